package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"reelscribe/internal/discovery"
	"reelscribe/internal/fileutil"
	"reelscribe/internal/logging"
	"reelscribe/internal/services"
	"reelscribe/internal/textutil"
)

const (
	stageName              = "acquire"
	defaultTitle           = "audio"
	defaultInitialInterval = 2 * time.Second
	defaultMaxInterval     = 30 * time.Second
)

// Audio is a downloaded audio file owned by the caller until it is removed.
type Audio struct {
	Path      string
	Candidate discovery.Candidate
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Options configures a Downloader.
type Options struct {
	Binary            string
	AudioFormat       string
	RequestsPerMinute int
	Retries           int
	Timeout           time.Duration
	// RetryInterval is the first backoff delay; later delays grow exponentially.
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// Downloader fetches candidate audio with yt-dlp.
type Downloader struct {
	binary        string
	format        string
	retries       int
	timeout       time.Duration
	retryInterval time.Duration
	limiter       *rate.Limiter
	logger        *slog.Logger
	run           CommandRunner
}

// New constructs a Downloader. A RequestsPerMinute of zero disables pacing.
func New(opts Options) *Downloader {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	format := strings.TrimSpace(opts.AudioFormat)
	if format == "" {
		format = "mp3"
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = defaultInitialInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Downloader{
		binary:        binary,
		format:        format,
		retries:       max(opts.Retries, 0),
		timeout:       opts.Timeout,
		retryInterval: interval,
		limiter:       limiter,
		logger:        logging.NewComponentLogger(logger, "acquire"),
		run:           runCommand,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (d *Downloader) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		d.run = runner
	}
}

// FileStem returns the output stem for candidate: the sanitized title joined
// with the candidate id.
func FileStem(candidate discovery.Candidate) string {
	title := textutil.SanitizeFileName(candidate.Title)
	if title == "" {
		title = defaultTitle
	}
	id := textutil.SanitizeFileName(candidate.ID)
	if id == "" {
		id = discovery.CandidateID("", candidate.URL)
	}
	return title + "-" + id
}

// DownloadArgs returns the yt-dlp arguments that extract url's best audio
// track into outputTemplate.
func DownloadArgs(format, outputTemplate, url string) []string {
	return []string{
		"-f", "bestaudio",
		"--extract-audio",
		"--audio-format", format,
		"--no-playlist",
		"--no-progress",
		"-o", outputTemplate,
		url,
	}
}

// Acquire downloads candidate's audio into dir. Any error means no file was
// produced; partial artifacts are removed before returning.
func (d *Downloader) Acquire(ctx context.Context, candidate discovery.Candidate, dir string) (Audio, error) {
	if strings.TrimSpace(candidate.URL) == "" {
		return Audio{}, services.Wrap(services.ErrValidation, stageName, "resolve url", "candidate has no webpage url", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Audio{}, services.Wrap(services.ErrExternalTool, stageName, "ensure dir", dir, err)
	}

	stem := FileStem(candidate)
	target := filepath.Join(dir, stem+"."+d.format)
	template := filepath.Join(dir, stem+".%(ext)s")
	logger := logging.WithContext(ctx, d.logger)

	attempt := 0
	operation := func() (string, error) {
		attempt++
		if err := d.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		attemptCtx := ctx
		if d.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		err := d.run(attemptCtx, d.binary, DownloadArgs(d.format, template, candidate.URL)...)
		switch {
		case err == nil:
			_, statErr := os.Stat(target)
			if statErr == nil {
				return target, nil
			}
			err = services.Wrap(services.ErrValidation, stageName, "verify output",
				fmt.Sprintf("downloader reported success but %s is missing", filepath.Base(target)), statErr)
		case ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			err = services.Wrap(services.ErrTimeout, stageName, "yt-dlp",
				fmt.Sprintf("download %s exceeded %s", candidate.URL, d.timeout), err)
		default:
			err = services.Wrap(services.ErrExternalTool, stageName, "yt-dlp", fmt.Sprintf("download %s", candidate.URL), err)
		}
		d.removePartials(logger, dir, stem)
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		if !services.Retryable(err) {
			return "", backoff.Permanent(err)
		}
		if attempt <= d.retries {
			logger.Warn("download attempt failed, retrying",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", d.retries+1),
				logging.String("url", candidate.URL),
				logging.Error(err),
				logging.String(logging.FieldEventType, "download_retry"),
				logging.String(logging.FieldErrorHint, "transient network or provider throttling; yt-dlp may need an update"),
			)
		}
		return "", err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.retryInterval
	bo.MaxInterval = defaultMaxInterval

	path, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(d.retries+1)),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			marker := services.ErrExternalTool
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				marker = services.ErrTimeout
			}
			return Audio{}, services.Wrap(marker, stageName, "yt-dlp", fmt.Sprintf("download %s", candidate.URL), err)
		}
		return Audio{}, err
	}

	logger.Debug("audio downloaded",
		logging.String("path", path),
		logging.Int("attempts", attempt),
		logging.String(logging.FieldEventType, "audio_downloaded"),
	)
	return Audio{Path: path, Candidate: candidate}, nil
}

func (d *Downloader) removePartials(logger *slog.Logger, dir, stem string) {
	removed, err := fileutil.RemoveWithPrefix(dir, stem+".")
	if err != nil {
		logging.WarnWithContext(logger, "partial download cleanup failed", "download_cleanup_failed",
			logging.String("dir", dir),
			logging.String("stem", stem),
			logging.Error(err),
			logging.String(logging.FieldImpact, "partial download files may remain in the work directory"),
		)
	}
	if len(removed) > 0 {
		logger.Debug("removed partial download artifacts",
			logging.Int("count", len(removed)),
			logging.String(logging.FieldEventType, "download_partials_removed"),
		)
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(lastLines(string(output), 5)))
	}
	return nil
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
