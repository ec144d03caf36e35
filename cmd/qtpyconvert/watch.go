package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/digitaldomain/QtPyConvert/internal/discover"
	"github.com/digitaldomain/QtPyConvert/internal/runner"
	"github.com/digitaldomain/QtPyConvert/internal/watcher"
)

// watch converts files below each folder in roots whenever they change,
// until ctx is cancelled.
func watch(ctx context.Context, r *runner.Runner, roots []string, opts *discover.Options) error {
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("--watch needs folders, %s is a file", root)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		w := watcher.New(root, opts, func(ctx context.Context, changed []string) error {
			rep, err := r.RunFiles(ctx, root, changed)
			if err != nil {
				return err
			}
			slog.Info("watch.converted", "root", root, "files", len(rep.Outcomes), "failed", rep.Summary.Failed)
			return nil
		})
		w.OnDelete = func(_ context.Context, removed []string) error {
			return r.Forget(removed)
		}
		g.Go(func() error {
			w.Run(gctx)
			return nil
		})
	}
	slog.Info("watch.start", "roots", len(roots))
	return g.Wait()
}
