package langid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"reelscribe/internal/fileutil"
	"reelscribe/internal/logging"
)

// ModelFiles are the checkpoint files the language classifier loads.
var ModelFiles = []string{"hyperparams.yaml", "embedding_model.ckpt", "label_encoder.txt"}

// ModelSource locates the classifier checkpoint on a Hugging Face compatible hub.
type ModelSource struct {
	HubURL string
	Repo   string
	Token  string
	Dir    string
	Client *http.Client
}

// MissingModelFiles lists the checkpoint files absent from dir.
func MissingModelFiles(dir string) []string {
	var missing []string
	for _, name := range ModelFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.Size() == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// EnsureModel downloads any missing checkpoint files into src.Dir and returns
// the names it fetched.
func EnsureModel(ctx context.Context, src ModelSource, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "langid")
	if strings.TrimSpace(src.Repo) == "" || strings.TrimSpace(src.Dir) == "" {
		return nil, errors.New("ensure classifier model: repo and dir are required")
	}
	missing := MissingModelFiles(src.Dir)
	if len(missing) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(src.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure classifier model dir: %w", err)
	}
	client := src.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}

	fetched := make([]string, 0, len(missing))
	for _, name := range missing {
		started := time.Now()
		if err := downloadModelFile(ctx, client, src, name); err != nil {
			return fetched, fmt.Errorf("download %s: %w", name, err)
		}
		fetched = append(fetched, name)
		logger.Info("classifier model file downloaded",
			logging.String("file", name),
			logging.String("repo", src.Repo),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "model_file_downloaded"),
		)
	}
	return fetched, nil
}

// ModelFileURL returns the hub URL of a file in repo's main revision.
func ModelFileURL(hubURL, repo, name string) string {
	base := strings.TrimRight(strings.TrimSpace(hubURL), "/")
	if base == "" {
		base = "https://huggingface.co"
	}
	return fmt.Sprintf("%s/%s/resolve/main/%s", base, strings.Trim(repo, "/"), url.PathEscape(name))
}

func downloadModelFile(ctx context.Context, client *http.Client, src ModelSource, name string) error {
	target := filepath.Join(src.Dir, name)
	fileURL := ModelFileURL(src.HubURL, src.Repo, name)

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if token := strings.TrimSpace(src.Token); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return struct{}{}, fmt.Errorf("status %d", resp.StatusCode)
		default:
			return struct{}{}, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return struct{}{}, fileutil.WriteAtomicFunc(target, 0o644, func(w io.Writer) error {
			_, copyErr := io.Copy(w, resp.Body)
			return copyErr
		})
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(2*time.Minute))
	return err
}
