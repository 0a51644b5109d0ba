package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tome/internal/logging"
)

// CleanStaleResult contains the outcome of a cleanup pass.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staging workspaces older than maxAge. A zero maxAge
// removes every workspace. It returns the removed directories and any
// errors encountered.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	entries, ok := readStagingDir(stagingDir, &result)
	if !ok {
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}

		if info.ModTime().Before(cutoff) {
			removeWorkspace(dirPath, time.Since(info.ModTime()), logger, &result)
		}
	}

	return result
}

// CleanOrphaned removes staging workspaces no catalog document references.
// Re-submissions with changed content leave the previous hash directory
// behind; this pass reclaims those alongside workspaces of removed
// documents.
func CleanOrphaned(ctx context.Context, stagingDir string, activeRoots map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	entries, ok := readStagingDir(stagingDir, &result)
	if !ok {
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, active := activeRoots[entry.Name()]; active {
			continue
		}
		removeWorkspace(filepath.Join(stagingDir, entry.Name()), 0, logger, &result)
	}

	return result
}

func readStagingDir(stagingDir string, result *CleanStaleResult) ([]os.DirEntry, bool) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, false
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return nil, false
	}
	return entries, true
}

func removeWorkspace(dirPath string, age time.Duration, logger *slog.Logger, result *CleanStaleResult) {
	if err := os.RemoveAll(dirPath); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
		if logger != nil {
			logger.Warn("failed to remove staging workspace",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
		return
	}
	result.Removed = append(result.Removed, dirPath)
	if logger != nil {
		attrs := []logging.Attr{
			logging.String("path", dirPath),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		}
		if age > 0 {
			attrs = append(attrs, logging.Duration("age", age))
		}
		logger.Info("removed staging workspace", logging.Args(attrs...)...)
	}
}

// ListDirectories returns the staging workspaces with their metadata.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
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

		dirPath := filepath.Join(stagingDir, entry.Name())
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

// DirInfo contains metadata about a staging workspace.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// dirSize totals the file sizes under path, best effort.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
