package runner

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/digitaldomain/QtPyConvert/internal/convert"
	"github.com/digitaldomain/QtPyConvert/internal/store"
)

// contentHash is the hex xxh3-128 of text.
func contentHash(text string) string {
	sum := xxh3.HashString128(text).Bytes()
	return hex.EncodeToString(sum[:])
}

// optionsHash identifies the settings that change conversion output.
func optionsHash(opts convert.Options) string {
	h := xxh3.New()
	fmt.Fprintf(h, "to-methods=%t;explicit=%t;string=%s;", opts.ToMethods, opts.ExplicitSignals, opts.StringType)
	if opts.Registry != nil {
		for _, b := range opts.Registry.Bindings() {
			fmt.Fprintf(h, "binding=%s;", b)
			rels := opts.Registry.RelocationsFor(b)
			olds := make([]string, 0, len(rels))
			for old := range rels {
				olds = append(olds, old)
			}
			sort.Strings(olds)
			for _, old := range olds {
				fmt.Fprintf(h, "%s=%s;", old, rels[old])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// safeConvert converts one file. A panic is logged with its stack and turned
// into a failed outcome so the batch continues.
func (r *Runner) safeConvert(ctx context.Context, t task) (out *Outcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("runner.panic", "path", t.path, "panic", rec, "stack", string(debug.Stack()))
			out = &Outcome{Path: t.path, RelPath: t.rel, Status: store.StatusFailed,
				Err: fmt.Errorf("internal error: %v", rec)}
		}
		out.Elapsed = time.Since(start)
	}()
	return r.convertFile(ctx, t)
}

func (r *Runner) convertFile(ctx context.Context, t task) *Outcome {
	out := &Outcome{Path: t.path, RelPath: t.rel}
	fail := func(err error) *Outcome {
		out.Status = store.StatusFailed
		out.Err = err
		slog.Warn("runner.file", "path", t.path, "err", err)
		if p := r.opts.Printer; p != nil {
			p.Failure(t.rel, err)
		}
		return out
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return fail(fmt.Errorf("read: %w", err))
	}
	text := string(data)
	out.inputHash = contentHash(text)

	if r.opts.Incremental && r.opts.Journal != nil {
		unchanged, err := r.opts.Journal.Unchanged(t.path, r.optionsHash, out.inputHash)
		if err != nil {
			slog.Warn("runner.journal", "path", t.path, "err", err)
		} else if unchanged {
			slog.Debug("runner.skip", "path", t.path)
			out.Status = store.StatusSkipped
			out.outputHash = out.inputHash
			return out
		}
	}

	opts := r.opts.Convert
	opts.OnChange = func(c convert.Change) { out.Changes = append(out.Changes, c) }
	res, err := convert.RunContext(ctx, text, opts)
	out.Result = res
	if err != nil {
		return fail(err)
	}
	out.outputHash = contentHash(res.Text)
	if res.Text == text {
		out.Status = store.StatusUnchanged
	} else {
		out.Status = store.StatusConverted
	}

	if err := r.emit(t, text, res.Text); err != nil {
		return fail(err)
	}
	r.print(out, res)
	slog.Debug("runner.file", "path", t.path, "status", out.Status, "changes", len(out.Changes))
	return out
}

// emit sends converted text where the mode says.
func (r *Runner) emit(t task, before, after string) error {
	switch r.opts.Mode {
	case ModeStdout:
		r.stdoutMu.Lock()
		defer r.stdoutMu.Unlock()
		_, err := io.WriteString(r.opts.Stdout, after)
		return err
	case ModeDiff:
		if r.opts.Printer == nil {
			return nil
		}
		return r.opts.Printer.Diff(t.rel, before, after)
	case ModeWrite:
		if before == after {
			return nil
		}
		return r.write(t.path, before, after)
	case ModeMirror:
		dst := filepath.Join(r.opts.OutputDir, filepath.FromSlash(t.rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		return r.write(dst, before, after)
	}
	return fmt.Errorf("unknown mode %s", r.opts.Mode)
}

// write stores after at path, first saving before as .<name>.bak when
// backups are on.
func (r *Runner) write(path, before, after string) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat: %w", err)
	}
	if r.opts.Backup {
		bak := BackupPath(path)
		if err := os.WriteFile(bak, []byte(before), perm); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		slog.Debug("runner.backup", "path", bak)
	}
	if err := os.WriteFile(path, []byte(after), perm); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// BackupPath returns the backup written beside path: dir/.name.bak.
func BackupPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".bak")
}

// print reports the changes, warnings and manual work of one file.
func (r *Runner) print(out *Outcome, res *convert.Result) {
	p := r.opts.Printer
	if p == nil {
		return
	}
	if r.opts.Verbose {
		p.Changes(out.RelPath, out.Changes)
	}
	p.Warnings(out.RelPath, res.Aliases.Warnings)
	// Rows refer to the converted text.
	p.Errors(out.RelPath, res.Text, res.Aliases.Errors)
}

// ManualError returns the records of o as an error, nil when there are none.
func (o *Outcome) ManualError() error {
	if o.Result == nil {
		return nil
	}
	if err := convert.NewUserInputRequired(o.RelPath, o.Result.Text, o.Result.Aliases.Errors); err != nil {
		return err
	}
	return nil
}

// Failed lists the outcomes that did not convert, one per line.
func (rep *Report) Failed() string {
	var b strings.Builder
	for _, o := range rep.Outcomes {
		if o.Status == store.StatusFailed {
			fmt.Fprintf(&b, "%s: %v\n", o.RelPath, o.Err)
		}
	}
	return b.String()
}
