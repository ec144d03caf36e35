// Package watcher polls a source tree and reports the Python files that
// changed since the last poll.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/digitaldomain/QtPyConvert/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// ChangeFunc receives the absolute paths of new or modified files.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher polls one root with an interval that grows with the file count.
type Watcher struct {
	// OnDelete, when set, receives the absolute paths of files that
	// disappeared. Errors are logged; deletions are not retried.
	OnDelete ChangeFunc

	root     string
	opts     *discover.Options
	onChange ChangeFunc
	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
	ctx      context.Context
}

// New creates a Watcher. onChange is called when files under root change.
func New(root string, opts *discover.Options, onChange ChangeFunc) *Watcher {
	return &Watcher{
		root:     root,
		opts:     opts,
		onChange: onChange,
	}
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling only when
// the adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	w.ctx = ctx
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Now().Before(w.nextPoll) {
				continue
			}
			w.poll()
		}
	}
}

// poll captures a snapshot of the tree and compares it with the previous one.
// The first poll only records a baseline.
func (w *Watcher) poll() {
	if w.ctx == nil {
		w.ctx = context.Background()
	}
	if _, err := os.Stat(w.root); err != nil {
		slog.Warn("watcher.root_gone", "path", w.root)
		w.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := captureSnapshot(w.ctx, w.root, w.opts)
	if err != nil {
		slog.Warn("watcher.snapshot", "path", w.root, "err", err)
		w.nextPoll = time.Now().Add(w.interval)
		return
	}

	interval := pollInterval(len(snap))

	if w.snapshot == nil {
		slog.Debug("watcher.baseline", "path", w.root, "files", len(snap))
		w.snapshot = snap
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	if removed := deletedFiles(w.snapshot, snap); len(removed) > 0 && w.OnDelete != nil {
		slog.Info("watcher.deleted", "path", w.root, "deleted", len(removed))
		if err := w.OnDelete(w.ctx, removed); err != nil {
			slog.Warn("watcher.forget", "path", w.root, "err", err)
		}
	}

	changed := changedFiles(w.snapshot, snap)
	if len(changed) == 0 {
		w.snapshot = snap
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "path", w.root, "changed", len(changed), "files", len(snap))
	if err := w.onChange(w.ctx, changed); err != nil {
		slog.Warn("watcher.convert", "path", w.root, "err", err)
		// Keep the old snapshot so the next cycle retries.
		w.nextPoll = time.Now().Add(interval)
		return
	}

	w.snapshot = snap
	w.interval = interval
	w.nextPoll = time.Now().Add(w.interval)
}

// captureSnapshot walks the tree using discover.Discover and captures
// mtime+size for each file, keyed by absolute path.
func captureSnapshot(ctx context.Context, root string, opts *discover.Options) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.Path] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
	}
	return snap, nil
}

// changedFiles returns the sorted paths in b that are new or differ from a.
func changedFiles(a, b map[string]fileSnapshot) []string {
	var out []string
	for path, bSnap := range b {
		aSnap, ok := a[path]
		if !ok || !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// deletedFiles returns the sorted paths in a that are missing from b.
func deletedFiles(a, b map[string]fileSnapshot) []string {
	var out []string
	for path := range a {
		if _, ok := b[path]; !ok {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
