// Package runner converts files and folders in parallel and writes the
// results to stdout, in place, into a mirror tree, or as a diff.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/digitaldomain/QtPyConvert/internal/convert"
	"github.com/digitaldomain/QtPyConvert/internal/discover"
	"github.com/digitaldomain/QtPyConvert/internal/report"
	"github.com/digitaldomain/QtPyConvert/internal/store"
)

// Mode selects where converted text goes.
type Mode int

const (
	ModeStdout Mode = iota // print converted text
	ModeWrite              // overwrite the source file
	ModeMirror             // write below OutputDir, mirroring the input tree
	ModeDiff               // print a unified diff, write nothing
)

var modeNames = map[Mode]string{
	ModeStdout: "stdout",
	ModeWrite:  "write",
	ModeMirror: "mirror",
	ModeDiff:   "diff",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Options configures a Runner.
type Options struct {
	Convert   convert.Options
	Mode      Mode
	OutputDir string // ModeMirror target
	// Backup writes the original text to .<name>.bak beside each written file.
	Backup    bool
	Recursive bool
	Ignore    []string
	Jobs      int // <= 0 uses the CPU count; ModeStdout always uses 1

	// Journal records runs when set. Incremental skips files whose content
	// and options match the journal.
	Journal     *store.Store
	Incremental bool

	// Printer receives change lines (when Verbose), warnings, errors, diffs
	// and the summary. Nil prints nothing.
	Printer *report.Printer
	Verbose bool
	// Stdout receives converted text in ModeStdout. Defaults to os.Stdout.
	Stdout io.Writer
}

// Outcome is the result of one file.
type Outcome struct {
	Path    string
	RelPath string
	Status  string // one of the store.Status constants
	Result  *convert.Result
	Err     error
	Changes []convert.Change
	Elapsed time.Duration

	inputHash  string
	outputHash string
}

// Report is the result of a batch.
type Report struct {
	RunID    int64
	Outcomes []*Outcome
	Summary  report.Summary
}

// Runner converts batches of files. A Runner is safe to reuse across runs
// but not for concurrent runs.
type Runner struct {
	opts        Options
	optionsHash string
	stdoutMu    sync.Mutex
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Mode == ModeMirror && opts.OutputDir == "" {
		return nil, fmt.Errorf("mirror mode needs an output directory")
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.Mode == ModeStdout {
		opts.Jobs = 1
	}
	return &Runner{opts: opts, optionsHash: optionsHash(opts.Convert)}, nil
}

// task is one file with the root its relative path is computed from.
type task struct {
	path string
	rel  string
}

// collect expands paths into tasks. A file is its own task; a folder
// contributes the Python files below it.
func (r *Runner) collect(ctx context.Context, paths []string) ([]task, error) {
	var tasks []task
	seen := map[string]bool{}
	add := func(t task) {
		if !seen[t.path] {
			seen[t.path] = true
			tasks = append(tasks, t)
		}
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(task{path: abs, rel: filepath.Base(abs)})
			continue
		}
		files, err := discover.Discover(ctx, abs, &discover.Options{
			Recursive: r.opts.Recursive,
			Ignore:    r.opts.Ignore,
		})
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", p, err)
		}
		for _, f := range files {
			add(task{path: f.Path, rel: f.RelPath})
		}
	}
	return tasks, nil
}

// Run converts every file named by paths. Per-file failures are reported in
// the outcomes; the returned error is for failures of the batch itself.
func (r *Runner) Run(ctx context.Context, paths ...string) (*Report, error) {
	tasks, err := r.collect(ctx, paths)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, tasks, paths)
}

// RunFiles converts files whose paths are relative to root, as reported by
// the watcher.
func (r *Runner) RunFiles(ctx context.Context, root string, files []string) (*Report, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	tasks := make([]task, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task{path: abs, rel: filepath.ToSlash(rel)})
	}
	return r.run(ctx, tasks, []string{root})
}

// Forget drops the journal hashes of deleted files so that a file recreated
// with the same content is converted again.
func (r *Runner) Forget(paths []string) error {
	if r.opts.Journal == nil {
		return nil
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := r.opts.Journal.DeleteFileHash(abs); err != nil {
			return fmt.Errorf("forget %s: %w", p, err)
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, tasks []task, roots []string) (*Report, error) {
	start := time.Now()
	rep := &Report{Summary: report.Summary{Manual: map[string]int{}}}

	if r.opts.Journal != nil {
		id, err := r.opts.Journal.BeginRun(joinRoots(roots), r.opts.Mode.String(), r.optionsHash)
		if err != nil {
			return nil, err
		}
		rep.RunID = id
	}

	outcomes := make([]*Outcome, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)
	for i, t := range tasks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[i] = r.safeConvert(gctx, t)
			return nil
		})
	}
	waitErr := g.Wait()

	for _, o := range outcomes {
		if o == nil {
			continue
		}
		rep.Outcomes = append(rep.Outcomes, o)
		rep.Summary.Files++
		switch o.Status {
		case store.StatusConverted:
			rep.Summary.Converted++
		case store.StatusUnchanged:
			rep.Summary.Unchanged++
		case store.StatusSkipped:
			rep.Summary.Skipped++
		case store.StatusFailed:
			rep.Summary.Failed++
		}
		if o.Result != nil && len(o.Result.Aliases.Errors) > 0 {
			rep.Summary.Manual[o.RelPath] = len(o.Result.Aliases.Errors)
		}
	}

	if r.opts.Journal != nil {
		if err := r.record(rep); err != nil {
			slog.Warn("runner.journal", "err", err)
		}
	}
	slog.Info("runner.done",
		"files", rep.Summary.Files,
		"converted", rep.Summary.Converted,
		"failed", rep.Summary.Failed,
		"elapsed", time.Since(start),
	)
	if r.opts.Printer != nil && r.opts.Mode != ModeStdout {
		r.opts.Printer.Summary(rep.Summary)
	}
	if waitErr != nil {
		return rep, waitErr
	}
	return rep, ctx.Err()
}

// record writes the outcomes of a run to the journal in one transaction.
func (r *Runner) record(rep *Report) error {
	return r.opts.Journal.WithTransaction(func(tx *store.Store) error {
		for _, o := range rep.Outcomes {
			res := &store.FileResult{
				RunID:      rep.RunID,
				Path:       o.Path,
				Status:     o.Status,
				InputHash:  o.inputHash,
				OutputHash: o.outputHash,
				ElapsedMS:  o.Elapsed.Milliseconds(),
			}
			if o.Err != nil {
				res.Message = o.Err.Error()
			}
			if o.Result != nil {
				res.Bindings = o.Result.Aliases.Bindings.Sorted()
				res.Warnings = len(o.Result.Aliases.Warnings)
				for _, e := range o.Result.Aliases.Errors {
					res.Errors = append(res.Errors, store.ErrorRecord(e))
				}
			}
			if err := tx.RecordResult(res); err != nil {
				return err
			}
			if o.Status != store.StatusFailed && o.Status != store.StatusSkipped {
				if err := tx.UpsertFileHash(store.FileHash{
					Path:        o.Path,
					OptionsHash: r.optionsHash,
					InputHash:   o.inputHash,
					OutputHash:  o.outputHash,
				}); err != nil {
					return err
				}
			}
		}
		return tx.FinishRun(rep.RunID, store.RunStats{
			Files:     rep.Summary.Files,
			Converted: rep.Summary.Converted,
			Skipped:   rep.Summary.Skipped,
			Failed:    rep.Summary.Failed,
		})
	})
}

func joinRoots(roots []string) string {
	if len(roots) == 1 {
		return roots[0]
	}
	return fmt.Sprint(roots)
}
