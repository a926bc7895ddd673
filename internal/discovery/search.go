package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"reelscribe/internal/logging"
)

// OutputRunner executes a command and returns its stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Searcher queries yt-dlp for candidate videos.
type Searcher struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     OutputRunner
}

// NewSearcher constructs a Searcher. A zero timeout leaves searches bounded
// only by ctx.
func NewSearcher(binary string, timeout time.Duration, logger *slog.Logger) *Searcher {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Searcher{
		binary:  binary,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "discovery"),
		run:     runOutput,
	}
}

// WithRunner sets a custom command runner (for testing).
func (s *Searcher) WithRunner(runner OutputRunner) {
	if runner != nil {
		s.run = runner
	}
}

// SearchArgs returns the yt-dlp arguments for a search of query capped at maxResults.
func SearchArgs(query string, maxResults int) []string {
	return []string{
		"--dump-json",
		"--no-warnings",
		"--skip-download",
		fmt.Sprintf("ytsearch%d:%s", maxResults, query),
	}
}

// Search returns up to maxResults candidates for query. Failures are logged
// and yield whatever candidates could be parsed, possibly none.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) []Candidate {
	logger := logging.WithContext(ctx, s.logger)
	query = strings.TrimSpace(query)
	if query == "" || maxResults <= 0 {
		logger.Warn("search skipped; empty query or result cap",
			logging.String("query", query),
			logging.Int("max_results", maxResults),
			logging.String(logging.FieldEventType, "search_skipped"),
		)
		return nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	output, runErr := s.run(ctx, s.binary, SearchArgs(query, maxResults)...)
	candidates, malformed := ParseCandidates(output)
	if runErr != nil {
		logging.WarnWithContext(logger, "search provider failed", "search_failed",
			logging.String("query", query),
			logging.Int("parsed", len(candidates)),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "run yt-dlp manually with the same query or update it with yt-dlp -U"),
			logging.String(logging.FieldImpact, "work item continues with the candidates parsed before the failure"),
		)
	}
	if malformed > 0 {
		logging.WarnWithContext(logger, "search returned malformed entries", "search_malformed",
			logging.String("query", query),
			logging.Int("malformed", malformed),
			logging.String(logging.FieldImpact, "malformed entries were skipped"),
		)
	}
	logger.Info("search completed",
		logging.String("query", query),
		logging.Int("results", len(candidates)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "search_completed"),
	)
	return candidates
}

// Update runs yt-dlp's self-update. Callers treat failures as warnings.
func (s *Searcher) Update(ctx context.Context) error {
	if _, err := s.run(ctx, s.binary, "-U"); err != nil {
		return fmt.Errorf("yt-dlp update: %w", err)
	}
	return nil
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
