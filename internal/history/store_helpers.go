package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		ledgerPath sql.NullString
		status     string
		errMsg     sql.NullString
		startedRaw string
		finishRaw  sql.NullString
	)
	if err := scanner.Scan(&run.ID, &ledgerPath, &status, &errMsg, &startedRaw, &finishRaw,
		&run.WorkItems, &run.Transcripts, &run.Candidates); err != nil {
		return Run{}, err
	}
	run.LedgerPath = ledgerPath.String
	run.Status = RunStatus(status)
	run.ErrorMessage = errMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishRaw.Valid {
		if finished, err := parseTimeString(finishRaw.String); err == nil {
			run.FinishedAt = finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func stripLikeWildcards(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
