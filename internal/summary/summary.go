// Package summary keeps a plain-text file of the most launched apps up to
// date. It is the RefreshSink used by the watch command.
package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/apptracker/internal/logger"
	"github.com/blackwell-systems/apptracker/internal/output"
	"github.com/blackwell-systems/apptracker/internal/watcher"
)

// Sink rewrites the summary file on every notification.
type Sink struct {
	path  string
	limit int
	now   func() time.Time
}

// New creates a Sink writing the top limit apps to path.
func New(path string, limit int) *Sink {
	return &Sink{path: path, limit: limit, now: time.Now}
}

// Notify implements watcher.RefreshSink. Errors are logged, never returned.
func (s *Sink) Notify(ctx context.Context, st watcher.UsageStore) {
	if err := s.Refresh(ctx, st); err != nil {
		l := logger.Named("summary")
		l.Error().Err(err).Str("path", s.path).Msg("failed to refresh summary")
	}
}

// Refresh renders the current counters and replaces the summary file. A nil
// store leaves the previous summary in place.
func (s *Sink) Refresh(ctx context.Context, st watcher.UsageStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if st == nil {
		return fmt.Errorf("summary: store unavailable")
	}

	apps, err := st.ListApps(s.limit)
	if err != nil {
		return fmt.Errorf("summary: list apps: %w", err)
	}

	now := s.now()
	body := fmt.Sprintf("Top apps (updated %s)\n\n%s", now.Format(time.RFC3339),
		output.RenderAppTable(apps, output.TableOptions{Now: now}))

	return writeFileAtomic(s.path, []byte(body))
}

// writeFileAtomic writes data via a temp-file rename so readers never see a
// partial summary.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("summary: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("summary: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("summary: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("summary: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("summary: rename: %w", err)
	}
	return nil
}
