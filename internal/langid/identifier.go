package langid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"reelscribe/internal/config"
	"reelscribe/internal/fileutil"
	"reelscribe/internal/language"
	"reelscribe/internal/logging"
	"reelscribe/internal/media/wav"
	"reelscribe/internal/services"
)

const stageName = "identify"

// Identification is the outcome of classifying one clip.
type Identification struct {
	// Tag is the ISO 639-1 code assigned to the clip.
	Tag string
	// Fallback reports that Tag is the fallback language rather than a
	// classifier prediction.
	Fallback bool
	// Raw is the classifier's top label before parsing.
	Raw string
}

// Excerpter writes the leading seconds of a clip to dest.
type Excerpter interface {
	Excerpt(ctx context.Context, input string, seconds int, dest string) error
}

// OutputRunner executes a command and returns its stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Identifier classifies normalized audio.
type Identifier struct {
	command        string
	args           []string
	scratchDir     string
	excerptSeconds int
	sampleRate     int
	maxFrames      int
	fallback       string
	policy         string
	timeout        time.Duration
	excerpter      Excerpter
	run            OutputRunner
	logger         *slog.Logger
}

// New constructs an Identifier from configuration.
func New(cfg config.Identifier, scratchDir string, excerpter Excerpter, logger *slog.Logger) *Identifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Identifier{
		command:        cfg.Command,
		args:           append([]string(nil), cfg.Args...),
		scratchDir:     scratchDir,
		excerptSeconds: cfg.ExcerptSeconds,
		sampleRate:     cfg.SampleRate,
		maxFrames:      cfg.MaxFrames,
		fallback:       language.ToISO2(cfg.FallbackLanguage),
		policy:         cfg.FallbackPolicy,
		timeout:        time.Duration(cfg.Timeout) * time.Second,
		excerpter:      excerpter,
		run:            runOutput,
		logger:         logging.NewComponentLogger(logger, "langid"),
	}
}

// WithRunner sets a custom classifier runner (for testing).
func (id *Identifier) WithRunner(runner OutputRunner) {
	if runner != nil {
		id.run = runner
	}
}

// Identify classifies the clip at path. An error is returned only when
// classification failed and the skip policy is configured.
func (id *Identifier) Identify(ctx context.Context, path string) (Identification, error) {
	logger := logging.WithContext(ctx, id.logger)

	raw, tag, err := id.classify(ctx, path)
	if err == nil {
		logger.Info("language identified",
			logging.Args(logging.DecisionAttrs("language", tag, "classifier top prediction")...)...,
		)
		return Identification{Tag: tag, Raw: raw}, nil
	}

	if id.policy == config.FallbackPolicySkip {
		logging.WarnWithContext(logger, "language identification failed; candidate skipped", "language_unidentified",
			logging.Error(err),
			logging.String("policy", id.policy),
			logging.String(logging.FieldImpact, "candidate contributes no transcript segment"),
		)
		return Identification{Raw: raw}, services.Wrap(services.ErrExternalTool, stageName, "classify", "no usable prediction", err)
	}

	logging.WarnWithContext(logger, "language identification failed; using fallback language", "language_fallback",
		logging.Error(err),
		logging.String("fallback_language", id.fallback),
		logging.String(logging.FieldErrorHint, "check the classifier command and model files with reelscribe doctor"),
		logging.String(logging.FieldImpact, "candidate may be transcribed with the wrong language model"),
	)
	return Identification{Tag: id.fallback, Fallback: true, Raw: raw}, nil
}

func (id *Identifier) classify(ctx context.Context, path string) (raw, tag string, err error) {
	if strings.TrimSpace(id.command) == "" {
		return "", "", errors.New("classifier command not configured")
	}
	if err := os.MkdirAll(id.scratchDir, 0o755); err != nil {
		return "", "", fmt.Errorf("ensure scratch dir: %w", err)
	}
	scratch, err := os.CreateTemp(id.scratchDir, scratchPattern(ctx))
	if err != nil {
		return "", "", fmt.Errorf("create excerpt: %w", err)
	}
	excerpt := scratch.Name()
	scratch.Close()
	defer func() {
		if removeErr := fileutil.RemoveIfExists(excerpt); removeErr != nil {
			id.logger.Warn("excerpt cleanup failed",
				logging.String("path", excerpt),
				logging.Error(removeErr),
				logging.String(logging.FieldEventType, "excerpt_cleanup_failed"),
			)
		}
	}()

	if err := id.excerpter.Excerpt(ctx, path, id.excerptSeconds, excerpt); err != nil {
		return "", "", err
	}
	if err := id.prepare(excerpt); err != nil {
		return "", "", err
	}

	runCtx := ctx
	if id.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, id.timeout)
		defer cancel()
	}
	args := append(append([]string(nil), id.args...), excerpt)
	output, err := id.run(runCtx, id.command, args...)
	if err != nil {
		return "", "", fmt.Errorf("run classifier: %w", err)
	}
	predictions, err := ParsePredictions(output)
	if err != nil {
		return "", "", err
	}
	raw = predictions[0]
	tag = language.ParseLabel(raw)
	if tag == "" {
		return raw, "", fmt.Errorf("unrecognised classifier label %q", raw)
	}
	return raw, tag, nil
}

// prepare rewrites the excerpt as mono audio at the classifier sample rate
// bounded to maxFrames.
func (id *Identifier) prepare(path string) error {
	samples, err := wav.Decode(path)
	if err != nil {
		return fmt.Errorf("decode excerpt: %w", err)
	}
	if samples.Frames() == 0 {
		return errors.New("excerpt contains no audio")
	}
	prepared := wav.Downmix(samples)
	prepared = wav.Resample(prepared, id.sampleRate)
	prepared = wav.Truncate(prepared, id.maxFrames)
	if prepared.Channels == samples.Channels && prepared.SampleRate == samples.SampleRate && prepared.Frames() == samples.Frames() {
		return nil
	}
	if err := wav.Write(path, prepared); err != nil {
		return fmt.Errorf("rewrite excerpt: %w", err)
	}
	return nil
}

func scratchPattern(ctx context.Context) string {
	pattern := "excerpt"
	if row, ok := services.WorkItemFromContext(ctx); ok {
		pattern += fmt.Sprintf("-r%d", row)
	}
	if ordinal, ok := services.OrdinalFromContext(ctx); ok {
		pattern += fmt.Sprintf("-c%d", ordinal)
	}
	return pattern + "-*.wav"
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
