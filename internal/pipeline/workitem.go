package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"reelscribe/internal/discovery"
	"reelscribe/internal/history"
	"reelscribe/internal/ledger"
	"reelscribe/internal/logging"
	"reelscribe/internal/notifications"
	"reelscribe/internal/services"
	"reelscribe/internal/staging"
	"reelscribe/internal/transcript"
)

// Query returns the search query for a topic.
func (o *Orchestrator) Query(topic string) string {
	return strings.TrimSpace(topic) + o.cfg.Discovery.QuerySuffix
}

func (o *Orchestrator) processWorkItem(ctx context.Context, runID, runDir string, item ledger.WorkItem) (res WorkItemResult) {
	ctx = services.WithWorkItem(ctx, item.Row)
	logger := logging.WithContext(ctx, o.logger).With(logging.String("topic", item.Topic))
	res.Item = item

	defer func() {
		o.cleanScratch(logger)
		o.recordWorkItem(ctx, logger, runID, res)
	}()

	if item.Invalid != "" {
		res.Err = services.Wrap(services.ErrConfiguration, "ledger", "read row", item.Invalid, nil)
		logging.WarnWithContext(logger, "ledger row skipped", "work_item_invalid",
			logging.String("reason", item.Invalid),
			logging.String(logging.FieldErrorHint, "fix the row in the ledger"),
			logging.String(logging.FieldImpact, "row receives an empty transcript path"),
		)
		return res
	}

	query := o.Query(item.Topic)
	found := o.deps.Searcher.Search(services.WithStage(ctx, StageDiscover), query, o.cfg.Discovery.MaxResults)
	res.Discovered = len(found)
	eligible := discovery.Filter(found, item.LookbackDays, o.cfg.Discovery.MinDurationSeconds, o.deps.Now())

	logger.Info("candidates filtered",
		logging.String("query", query),
		logging.Int("discovered", len(found)),
		logging.Int("eligible", len(eligible)),
		logging.Int("lookback_days", item.LookbackDays),
		logging.String(logging.FieldStage, StageFilter),
		logging.String(logging.FieldEventType, "candidates_filtered"),
	)
	if len(eligible) == 0 {
		logger.Info("no eligible candidates; no transcript written",
			logging.String(logging.FieldEventType, "work_item_empty"),
		)
		return res
	}

	rowDir := filepath.Join(runDir, fmt.Sprintf("row-%d", item.Row))
	defer os.RemoveAll(rowDir)

	// Ordinals follow survival order and are fixed before dispatch.
	res.Outcomes = make([]CandidateOutcome, len(eligible))
	var group errgroup.Group
	group.SetLimit(o.workers)
	for i, candidate := range eligible {
		ordinal := i + 1
		group.Go(func() error {
			res.Outcomes[i] = o.processCandidate(ctx, candidateJob{
				ordinal:   ordinal,
				candidate: candidate,
				dir:       filepath.Join(rowDir, fmt.Sprintf("candidate-%d", ordinal)),
			})
			return nil
		})
	}
	_ = group.Wait()

	assembler := &transcript.Assembler{}
	for _, out := range res.Outcomes {
		if out.State == StateTranscribed {
			assembler.Add(out.Ordinal, out.Language, out.Text)
		}
		o.recordCandidate(ctx, logger, runID, item.Row, out)
	}

	path, err := assembler.Write(o.cfg.Paths.TranscriptsDir, item.Topic)
	if err != nil {
		res.Err = services.Wrap(services.ErrExternalTool, StageAssemble, "write transcript", item.Topic, err)
		logging.ErrorWithContext(logger, "transcript write failed", "transcript_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.transcripts_dir permissions and free space"),
		)
		return res
	}
	res.TranscriptPath = path
	if path == "" {
		logger.Info("no candidate produced text; no transcript written",
			logging.Int("eligible", len(eligible)),
			logging.String(logging.FieldEventType, "work_item_empty"),
		)
		return res
	}
	logger.Info("transcript written",
		logging.String("path", path),
		logging.Int("segments", assembler.Len()),
		logging.Int("eligible", len(eligible)),
		logging.String(logging.FieldEventType, "transcript_written"),
	)
	o.notify(ctx, logger, notifications.EventTopicTranscribed, notifications.Payload{
		"topic":          item.Topic,
		"segments":       assembler.Len(),
		"transcriptPath": path,
	})
	return res
}

func (o *Orchestrator) cleanScratch(logger *slog.Logger) {
	result := staging.CleanScratch(o.cfg.Paths.ScratchDir, logger)
	for _, failure := range result.Errors {
		logging.WarnWithContext(logger, "scratch cleanup incomplete", "scratch_cleanup_failed",
			logging.String("path", failure.Path),
			logging.Error(failure.Error),
			logging.String(logging.FieldErrorHint, "check paths.scratch_dir permissions"),
			logging.String(logging.FieldImpact, "leftover excerpts are retried after the next work item"),
		)
	}
}

func (o *Orchestrator) recordWorkItem(ctx context.Context, logger *slog.Logger, runID string, res WorkItemResult) {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	o.recordHistory(logger, "record work item", func(r Recorder) error {
		return r.RecordWorkItem(context.WithoutCancel(ctx), history.WorkItem{
			RunID:          runID,
			Row:            res.Item.Row,
			Topic:          res.Item.Topic,
			LookbackDays:   res.Item.LookbackDays,
			Discovered:     res.Discovered,
			Eligible:       len(res.Outcomes),
			Transcribed:    res.Transcribed(),
			TranscriptPath: res.TranscriptPath,
			ErrorMessage:   errMsg,
		})
	})
}

func (o *Orchestrator) recordCandidate(ctx context.Context, logger *slog.Logger, runID string, row int, out CandidateOutcome) {
	errMsg := ""
	if out.Err != nil {
		errMsg = out.Err.Error()
	}
	o.recordHistory(logger, "record candidate", func(r Recorder) error {
		return r.RecordCandidate(context.WithoutCancel(ctx), history.Candidate{
			RunID:       runID,
			Row:         row,
			Ordinal:     out.Ordinal,
			CandidateID: out.Candidate.ID,
			Title:       out.Candidate.Title,
			URL:         out.Candidate.URL,
			State:       string(out.State),
			Stage:       out.Stage,
			Language:    out.Language,
			Fallback:    out.Fallback,
			Error:       errMsg,
			TextLength:  len(out.Text),
		})
	})
}
