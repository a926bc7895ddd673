package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelscribe/internal/config"
)

// ErrRunNotFound is returned when a run id or prefix matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, id, ledgerPath string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("run id is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ledger_path, status, started_at) VALUES (?, ?, ?, ?)`,
		id, nullableString(ledgerPath), RunStatusRunning, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun marks a run terminal.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status, nullableString(message), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// RecordWorkItem inserts or replaces the outcome of a ledger row.
func (s *Store) RecordWorkItem(ctx context.Context, item WorkItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO work_items (
            run_id, row_number, topic, lookback_days, discovered, eligible,
            transcribed, transcript_path, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.Row, item.Topic, item.LookbackDays, item.Discovered, item.Eligible,
		item.Transcribed, nullableString(item.TranscriptPath), nullableString(item.ErrorMessage),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record work item %d: %w", item.Row, err)
	}
	return nil
}

// RecordCandidate inserts or replaces the outcome of a candidate.
func (s *Store) RecordCandidate(ctx context.Context, c Candidate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO candidates (
            run_id, row_number, ordinal, candidate_id, title, url, state, stage,
            language, fallback, error_message, text_length, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.Row, c.Ordinal, c.CandidateID, nullableString(c.Title), nullableString(c.URL),
		c.State, nullableString(c.Stage), nullableString(c.Language), boolToInt(c.Fallback),
		nullableString(c.Error), c.TextLength, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record candidate %d/%d: %w", c.Row, c.Ordinal, err)
	}
	return nil
}

const runSummaryQuery = `SELECT r.id, r.ledger_path, r.status, r.error_message, r.started_at, r.finished_at,
    (SELECT COUNT(1) FROM work_items w WHERE w.run_id = r.id),
    (SELECT COUNT(1) FROM work_items w WHERE w.run_id = r.id AND COALESCE(w.transcript_path, '') != ''),
    (SELECT COUNT(1) FROM candidates c WHERE c.run_id = r.id)
FROM runs r`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, runSummaryQuery+` ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by full id or unique id prefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, runSummaryQuery+` WHERE r.id = ? OR r.id LIKE ? ORDER BY r.id LIMIT 2`,
		idOrPrefix, stripLikeWildcards(idOrPrefix)+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("run prefix %q is ambiguous", idOrPrefix)
	}
}

// WorkItems returns the recorded work items of a run in ledger order.
func (s *Store) WorkItems(ctx context.Context, runID string) ([]WorkItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, row_number, topic, lookback_days, discovered, eligible, transcribed,
                transcript_path, error_message, recorded_at
         FROM work_items WHERE run_id = ? ORDER BY row_number`, runID)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var items []WorkItem
	for rows.Next() {
		var (
			item       WorkItem
			transcript sql.NullString
			errMsg     sql.NullString
			recorded   string
		)
		if err := rows.Scan(&item.RunID, &item.Row, &item.Topic, &item.LookbackDays, &item.Discovered,
			&item.Eligible, &item.Transcribed, &transcript, &errMsg, &recorded); err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		item.TranscriptPath = transcript.String
		item.ErrorMessage = errMsg.String
		item.RecordedAt, _ = parseTimeString(recorded)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Candidates returns the recorded candidate outcomes of a run ordered by row
// and ordinal.
func (s *Store) Candidates(ctx context.Context, runID string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, row_number, ordinal, candidate_id, title, url, state, stage, language,
                fallback, error_message, text_length, recorded_at
         FROM candidates WHERE run_id = ? ORDER BY row_number, ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var title, url, stage, language, errMsg sql.NullString
		var fallback int
		var recorded string
		if err := rows.Scan(&c.RunID, &c.Row, &c.Ordinal, &c.CandidateID, &title, &url, &c.State, &stage,
			&language, &fallback, &errMsg, &c.TextLength, &recorded); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Title = title.String
		c.URL = url.String
		c.Stage = stage.String
		c.Language = language.String
		c.Fallback = fallback != 0
		c.Error = errMsg.String
		c.RecordedAt, _ = parseTimeString(recorded)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CheckHealth returns diagnostic information about the history database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat history database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("history database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping history database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM runs").Scan(&health.TotalRuns); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count runs: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
