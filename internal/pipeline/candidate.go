package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reelscribe/internal/discovery"
	"reelscribe/internal/fileutil"
	"reelscribe/internal/logging"
	"reelscribe/internal/services"
)

const normalizedFileName = "normalized.wav"

type candidateJob struct {
	ordinal   int
	candidate discovery.Candidate
	dir       string
}

// candidateWork carries the artifacts produced as a candidate advances.
type candidateWork struct {
	job            candidateJob
	acquiredPath   string
	normalizedPath string
	language       string
	fallback       bool
	text           string
}

func (o *Orchestrator) processCandidate(ctx context.Context, job candidateJob) (out CandidateOutcome) {
	ctx = services.WithOrdinal(ctx, job.ordinal)
	logger := logging.WithContext(ctx, o.logger).With(
		logging.String("candidate_id", job.candidate.ID),
		logging.String("title", job.candidate.Title),
	)
	out = CandidateOutcome{Ordinal: job.ordinal, Candidate: job.candidate, State: StateEligible}
	work := &candidateWork{job: job}

	defer func() {
		for _, path := range []string{work.acquiredPath, work.normalizedPath} {
			if err := fileutil.RemoveIfExists(path); err != nil {
				logger.Warn("failed to remove transient audio",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "transient_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check paths.work_dir permissions"),
					logging.String(logging.FieldImpact, "file is removed with the run directory"),
				)
			}
		}
		_ = os.RemoveAll(job.dir)
	}()

	for !out.State.Terminal() {
		t, ok := transitionFrom(out.State)
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			out.Stage = t.stage
			out.Err = services.Wrap(services.ErrTimeout, t.stage, "run", "cancelled", err)
			out.State = StateSkipped
			break
		}
		stageStart := time.Now()
		err := t.run(o, services.WithStage(ctx, t.stage), work)
		if err != nil {
			out.Stage = t.stage
			out.Err = err
			out.State = failurePolicy(err)
			msg := "candidate skipped"
			if out.State == StateDropped {
				msg = "candidate dropped"
			}
			logging.WarnWithContext(logger, msg, "candidate_"+string(out.State),
				logging.String(logging.FieldStage, t.stage),
				logging.String("url", job.candidate.URL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, stageHint(t.stage, err)),
				logging.String(logging.FieldImpact, "candidate contributes no transcript segment"),
			)
			break
		}
		out.State = t.done
		logger.Debug("candidate advanced",
			logging.String(logging.FieldStage, t.stage),
			logging.String("state", string(out.State)),
			logging.Duration("elapsed", time.Since(stageStart)),
		)
	}

	out.Language = work.language
	out.Fallback = work.fallback
	out.Text = work.text
	if out.State == StateTranscribed {
		logger.Info("candidate transcribed",
			logging.String("language", work.language),
			logging.Bool("language_fallback", work.fallback),
			logging.Int("text_length", len(work.text)),
			logging.String(logging.FieldEventType, "candidate_transcribed"),
		)
	}
	return out
}

func (o *Orchestrator) acquireStage(ctx context.Context, w *candidateWork) error {
	audio, err := o.deps.Acquirer.Acquire(ctx, w.job.candidate, w.job.dir)
	if err != nil {
		return err
	}
	w.acquiredPath = audio.Path
	return nil
}

func (o *Orchestrator) normalizeStage(ctx context.Context, w *candidateWork) error {
	audio, err := o.deps.Normalizer.Normalize(ctx, w.acquiredPath, filepath.Join(w.job.dir, normalizedFileName))
	if err != nil {
		return err
	}
	w.normalizedPath = audio.Path
	// The compressed download is no longer needed once canonical audio exists.
	if err := fileutil.RemoveIfExists(w.acquiredPath); err == nil {
		w.acquiredPath = ""
	}
	return nil
}

func (o *Orchestrator) identifyStage(ctx context.Context, w *candidateWork) error {
	ident, err := o.deps.Identifier.Identify(ctx, w.normalizedPath)
	if err != nil {
		return err
	}
	w.fallback = ident.Fallback
	if !o.accepted.Contains(ident.Tag) {
		w.language = ident.Tag
		return services.Wrap(services.ErrUnsupportedLanguage, StageIdentify, "accept",
			fmt.Sprintf("language %q is not in the accepted set %v", ident.Tag, o.accepted.Codes()), nil)
	}
	w.language = ident.Tag
	return nil
}

func (o *Orchestrator) transcribeStage(ctx context.Context, w *candidateWork) error {
	if seconds := o.cfg.Recognition.Timeout; seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
		defer cancel()
	}
	text, err := o.deps.Dispatcher.Transcribe(ctx, w.normalizedPath, w.language)
	if err != nil {
		return err
	}
	w.text = text
	return nil
}

func stageHint(stage string, err error) string {
	switch {
	case errors.Is(err, services.ErrUnsupportedLanguage):
		return "add the language to languages.accepted with a model to keep such videos"
	case errors.Is(err, services.ErrConfiguration):
		return "run reelscribe doctor to check the language model registry"
	case errors.Is(err, services.ErrTimeout):
		return "raise the stage timeout or check provider responsiveness"
	}
	switch stage {
	case StageAcquire:
		return "check network access and that yt-dlp is current"
	case StageNormalize:
		return "check that ffmpeg and ffprobe are installed"
	case StageIdentify:
		return "check the classifier command and model files"
	case StageTranscribe:
		return "check the recognition model for this language"
	default:
		return "check logs for details"
	}
}
