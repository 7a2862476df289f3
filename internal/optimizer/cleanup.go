package optimizer

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skypro1111/speech-prep-service/internal/audio"
)

// Cleanup removes processed files in the scratch directory older than
// maxAgeHours. Only files named like audio.WriteTemp outputs are touched.
// Per-file failures are logged and counted, never returned.
func (o *Optimizer) Cleanup(maxAgeHours float64) CleanupReport {
	dir := o.cfg.Cleanup.ScratchDir
	if dir == "" {
		dir = os.TempDir()
	}
	if maxAgeHours < 0 {
		maxAgeHours = o.cfg.Cleanup.MaxAgeHours
	}

	report := CleanupReport{Dir: dir, Removed: []string{}}
	cutoff := time.Now().Add(-time.Duration(maxAgeHours * float64(time.Hour)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		o.logger.Warn("Cannot read scratch directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		report.Failures++
		o.metrics.RecordCleanup(0, 0, report.Failures)
		return report
	}

	for _, entry := range entries {
		if entry.IsDir() || !audio.IsTempFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				o.logger.Warn("Cannot stat scratch file",
					slog.String("file", path),
					slog.String("error", err.Error()))
				report.Failures++
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				o.logger.Warn("Failed to remove scratch file",
					slog.String("file", path),
					slog.String("error", err.Error()))
				report.Failures++
			}
			continue
		}

		report.Removed = append(report.Removed, path)
		report.BytesRemoved += info.Size()
	}

	o.metrics.RecordCleanup(len(report.Removed), report.BytesRemoved, report.Failures)
	o.logger.Info("Scratch cleanup completed",
		slog.String("dir", dir),
		slog.Float64("max_age_hours", maxAgeHours),
		slog.Int("removed", len(report.Removed)),
		slog.Int64("bytes_removed", report.BytesRemoved),
		slog.Int("failures", report.Failures))

	return report
}
