package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a directory and filename pattern eligible for pruning.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs deletes files matching the targets whose modification time
// predates the retention window. retentionDays <= 0 disables pruning entirely.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	protected := collectExclusions(targets)

	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				if matched, err := filepath.Match(pat, entry.Name()); err != nil || !matched {
					continue
				}
			}
			path := filepath.Join(dir, entry.Name())
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if _, skip := protected[path]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			pruneLogFile(logger, path)
		}
	}
}

func collectExclusions(targets []RetentionTarget) map[string]struct{} {
	protected := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			trimmed := strings.TrimSpace(path)
			if trimmed == "" {
				continue
			}
			if abs, err := filepath.Abs(trimmed); err == nil {
				protected[abs] = struct{}{}
			}
		}
	}
	return protected
}

func pruneLogFile(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
			String("path", path),
			Error(err),
			String(FieldErrorHint, "check file permissions and log_dir ownership"),
			String(FieldImpact, "old log file remains on disk"),
		)
		return
	}
	if logger != nil {
		logger.Info("log pruned",
			String("path", path),
			String(FieldEventType, "log_pruned"),
		)
	}
}
