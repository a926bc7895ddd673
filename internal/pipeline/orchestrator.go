package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"reelscribe/internal/config"
	"reelscribe/internal/discovery"
	"reelscribe/internal/history"
	"reelscribe/internal/language"
	"reelscribe/internal/ledger"
	"reelscribe/internal/logging"
	"reelscribe/internal/notifications"
	"reelscribe/internal/services"
	"reelscribe/internal/staging"
)

// Orchestrator runs the ingestion pipeline over ledger work items.
type Orchestrator struct {
	cfg      *config.Config
	deps     Deps
	accepted language.Set
	workers  int
	logger   *slog.Logger
}

// CandidateOutcome is the terminal result of one candidate.
type CandidateOutcome struct {
	Ordinal   int
	Candidate discovery.Candidate
	State     State
	// Stage is the stage that failed; empty for transcribed candidates.
	Stage    string
	Language string
	Fallback bool
	Text     string
	Err      error
}

// WorkItemResult summarizes one processed ledger row.
type WorkItemResult struct {
	Item           ledger.WorkItem
	Discovered     int
	Outcomes       []CandidateOutcome
	TranscriptPath string
	Err            error
}

// Transcribed counts the candidates that contributed a segment.
func (r WorkItemResult) Transcribed() int {
	n := 0
	for _, out := range r.Outcomes {
		if out.State == StateTranscribed && out.Text != "" {
			n++
		}
	}
	return n
}

// RunResult summarizes a run.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []WorkItemResult
}

// New constructs an Orchestrator. Every collaborator except History is required.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires a config")
	}
	if deps.Searcher == nil || deps.Acquirer == nil || deps.Normalizer == nil || deps.Identifier == nil || deps.Dispatcher == nil {
		return nil, errors.New("pipeline requires searcher, acquirer, normalizer, identifier, and dispatcher")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	workers := cfg.Workflow.CandidateWorkers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		accepted: language.NewSet(cfg.Languages.Accepted...),
		workers:  workers,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Run processes every row of l, writes each row's transcript path back into
// the ledger and saves it. Per-candidate failures never surface here; the
// returned error reports lock, ledger persistence or cancellation problems.
func (o *Orchestrator) Run(ctx context.Context, l *ledger.Ledger) (RunResult, error) {
	if l == nil {
		return RunResult{}, services.Wrap(services.ErrConfiguration, "run", "load ledger", "ledger is nil", nil)
	}
	release, err := AcquireLock(o.cfg.LockPath())
	if err != nil {
		return RunResult{}, err
	}
	defer release()

	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	result := RunResult{RunID: runID, StartedAt: time.Now()}

	o.recordHistory(logger, "begin run", func(r Recorder) error {
		return r.BeginRun(context.WithoutCancel(ctx), runID, l.Path())
	})

	if o.cfg.Discovery.UpdateOnStart {
		if err := o.deps.Searcher.Update(ctx); err != nil {
			logging.WarnWithContext(logger, "yt-dlp self-update failed; continuing with installed version", "search_update_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "update yt-dlp manually or disable discovery.update_on_start"),
				logging.String(logging.FieldImpact, "searches may fail if the provider changed"),
			)
		}
	}

	runDirName := "run-" + runID
	if hours := o.cfg.Workflow.StaleWorkHours; hours > 0 {
		staging.CleanStale(ctx, o.cfg.Paths.WorkDir, time.Duration(hours)*time.Hour, logger,
			runDirName, filepath.Base(o.cfg.Paths.ScratchDir))
	}
	runDir := filepath.Join(o.cfg.Paths.WorkDir, runDirName)
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			logger.Warn("failed to remove run work directory",
				logging.String("path", runDir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "work_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "disk space not reclaimed until the next stale cleanup"),
			)
		}
	}()

	items := l.Items()
	logger.Info("run started",
		logging.String("ledger", l.Path()),
		logging.Int("work_items", len(items)),
		logging.Int("candidate_workers", o.workers),
		logging.String(logging.FieldEventType, "run_start"),
	)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		res := o.processWorkItem(ctx, runID, runDir, item)
		result.Items = append(result.Items, res)
		if err := l.SetTranscriptPath(item.Row, res.TranscriptPath); err != nil {
			logger.Error("failed to annotate ledger row", logging.Int("row", item.Row), logging.Error(err))
		}
	}

	runErr := ctx.Err()
	if err := l.Save(); err != nil {
		saveErr := services.Wrap(services.ErrConfiguration, "run", "save ledger", l.Path(), err)
		runErr = errors.Join(runErr, saveErr)
		o.notify(ctx, logger, notifications.EventError, notifications.Payload{
			"context": "ledger save",
			"error":   saveErr.Error(),
		})
	}
	result.FinishedAt = time.Now()

	status := history.RunStatusCompleted
	message := ""
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = history.RunStatusCancelled
		message = runErr.Error()
	case runErr != nil:
		status = history.RunStatusFailed
		message = runErr.Error()
	}
	o.recordHistory(logger, "finish run", func(r Recorder) error {
		return r.FinishRun(context.WithoutCancel(ctx), runID, status, message)
	})

	transcripts, failed := 0, 0
	for _, res := range result.Items {
		if res.TranscriptPath != "" {
			transcripts++
		}
		if res.Err != nil {
			failed++
		}
	}
	logger.Info("run finished",
		logging.String("status", string(status)),
		logging.Int("work_items", len(result.Items)),
		logging.Int("transcripts", transcripts),
		logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	if status != history.RunStatusCancelled {
		o.notify(ctx, logger, notifications.EventRunCompleted, notifications.Payload{
			"topics":      len(result.Items),
			"transcripts": transcripts,
			"failed":      failed,
			"duration":    result.FinishedAt.Sub(result.StartedAt),
		})
	}
	return result, runErr
}

func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if o.deps.Notifier == nil {
		return
	}
	if err := o.deps.Notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run output is unaffected"),
		)
	}
}

func (o *Orchestrator) recordHistory(logger *slog.Logger, op string, fn func(Recorder) error) {
	if o.deps.History == nil {
		return
	}
	if err := fn(o.deps.History); err != nil {
		logging.WarnWithContext(logger, fmt.Sprintf("run history %s failed", op), "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions or delete history.db"),
			logging.String(logging.FieldImpact, "reelscribe history output is incomplete for this run"),
		)
	}
}
