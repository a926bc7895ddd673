package staging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelscribe/internal/logging"
)

// CleanupResult contains the outcome of a cleanup operation.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
	// DirRemoved reports that the cleaned directory itself was removed.
	DirRemoved bool
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanScratch removes every entry in scratchDir, then removes scratchDir
// itself if it is empty. Running it again on a cleaned or missing directory
// is a no-op.
func CleanScratch(scratchDir string, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}

	scratchDir = strings.TrimSpace(scratchDir)
	if scratchDir == "" {
		return result
	}

	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: scratchDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		path := filepath.Join(scratchDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove scratch file",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check paths.scratch_dir permissions"),
					logging.String(logging.FieldImpact, "scratch directory is left in place"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	if len(result.Errors) == 0 {
		if err := os.Remove(scratchDir); err == nil {
			result.DirRemoved = true
		} else if !errors.Is(err, os.ErrNotExist) {
			// A concurrent writer may have added a file; the directory stays.
			result.Errors = append(result.Errors, CleanupError{Path: scratchDir, Error: err})
		}
	}

	if logger != nil && len(result.Removed) > 0 {
		logger.Debug("scratch directory cleaned",
			logging.String("path", scratchDir),
			logging.Int("removed", len(result.Removed)),
			logging.Bool("dir_removed", result.DirRemoved),
			logging.String(logging.FieldEventType, "scratch_cleanup"),
		)
	}
	return result
}

// CleanStale removes run directories under workDir older than maxAge. Names
// in keep (base names) are never removed.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger, keep ...string) CleanupResult {
	result := CleanupResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" || maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		}
		return result
	}

	kept := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		kept[filepath.Base(name)] = struct{}{}
	}
	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		if _, skip := kept[entry.Name()]; skip {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(dirPath); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
				if logger != nil {
					logger.Warn("failed to remove stale work directory",
						logging.String("path", dirPath),
						logging.Error(err),
						logging.String(logging.FieldEventType, "work_cleanup_failed"),
						logging.String(logging.FieldErrorHint, "check paths.work_dir permissions"),
						logging.String(logging.FieldImpact, "disk space not reclaimed"),
					)
				}
			} else {
				result.Removed = append(result.Removed, dirPath)
				if logger != nil {
					logger.Info("removed stale work directory",
						logging.String("path", dirPath),
						logging.Duration("age", time.Since(info.ModTime())),
						logging.String(logging.FieldEventType, "work_cleanup"),
					)
				}
			}
		}
	}

	return result
}

// ListDirectories returns all directories in dir with their metadata.
func ListDirectories(dir string) ([]DirInfo, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(dir, entry.Name())
		size, _ := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a work directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !d.IsDir() {
			if info, infoErr := d.Info(); infoErr == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}
