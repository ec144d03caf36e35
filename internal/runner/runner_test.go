package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/digitaldomain/QtPyConvert/internal/convert"
	"github.com/digitaldomain/QtPyConvert/internal/report"
	"github.com/digitaldomain/QtPyConvert/internal/store"
)

const (
	qt4Source = "from PyQt4 import QtGui\n\nw = QtGui.QWidget()\n"
	qtSource  = "from Qt import QtWidgets\n\nw = QtWidgets.QWidget()\n"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func mustRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestStdoutMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	writeFile(t, path, qt4Source)

	var stdout bytes.Buffer
	r := mustRunner(t, Options{Mode: ModeStdout, Stdout: &stdout, Jobs: 8})
	if r.opts.Jobs != 1 {
		t.Errorf("stdout mode should run one job, got %d", r.opts.Jobs)
	}
	rep, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.String() != qtSource {
		t.Errorf("stdout =\n%s\nwant\n%s", stdout.String(), qtSource)
	}
	if readFile(t, path) != qt4Source {
		t.Error("stdout mode modified the source")
	}
	if rep.Summary.Converted != 1 || rep.Outcomes[0].Status != store.StatusConverted {
		t.Errorf("unexpected summary: %+v", rep.Summary)
	}
}

func TestWriteModeWithBackup(t *testing.T) {
	dir := t.TempDir()
	changed := filepath.Join(dir, "a.py")
	same := filepath.Join(dir, "b.py")
	writeFile(t, changed, qt4Source)
	writeFile(t, same, "x = 1\n")

	r := mustRunner(t, Options{Mode: ModeWrite, Backup: true})
	rep, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readFile(t, changed); got != qtSource {
		t.Errorf("a.py =\n%s\nwant\n%s", got, qtSource)
	}
	if got := readFile(t, BackupPath(changed)); got != qt4Source {
		t.Errorf("backup =\n%s\nwant the original", got)
	}
	if _, err := os.Stat(BackupPath(same)); !os.IsNotExist(err) {
		t.Error("unchanged file should not be backed up")
	}
	if rep.Summary.Converted != 1 || rep.Summary.Unchanged != 1 {
		t.Errorf("unexpected summary: %+v", rep.Summary)
	}
	if filepath.Base(BackupPath(changed)) != ".a.py.bak" {
		t.Errorf("BackupPath = %s", BackupPath(changed))
	}
}

func TestMirrorMode(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeFile(t, filepath.Join(src, "pkg", "a.py"), qt4Source)
	writeFile(t, filepath.Join(src, "top.py"), "x = 1\n")
	writeFile(t, filepath.Join(src, "notes.txt"), "ignored\n")

	r := mustRunner(t, Options{Mode: ModeMirror, OutputDir: dst, Recursive: true})
	if _, err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "pkg", "a.py")); got != qtSource {
		t.Errorf("mirrored a.py =\n%s", got)
	}
	if got := readFile(t, filepath.Join(dst, "top.py")); got != "x = 1\n" {
		t.Errorf("unchanged files are mirrored too, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(dst, "notes.txt")); !os.IsNotExist(err) {
		t.Error("non-Python files should not be mirrored")
	}
	if readFile(t, filepath.Join(src, "pkg", "a.py")) != qt4Source {
		t.Error("mirror mode modified the source")
	}

	if _, err := New(Options{Mode: ModeMirror}); err == nil {
		t.Error("mirror mode without an output directory should fail")
	}
}

func TestDiffMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	writeFile(t, path, qt4Source)

	var out bytes.Buffer
	r := mustRunner(t, Options{Mode: ModeDiff, Printer: report.NewPrinter(&out, false)})
	if _, err := r.Run(context.Background(), path); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, want := range []string{"--- a/a.py", "-from PyQt4 import QtGui", "+from Qt import QtWidgets", "Done. 1 file(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("diff output missing %q:\n%s", want, out.String())
		}
	}
	if readFile(t, path) != qt4Source {
		t.Error("diff mode modified the source")
	}
}

func TestFailuresDoNotStopTheBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.py"), "def f(:\n")
	writeFile(t, filepath.Join(dir, "good.py"), qt4Source)
	writeFile(t, filepath.Join(dir, "manual.py"), "form, base = uic.loadUiType(\"x.ui\")\n")

	var out bytes.Buffer
	r := mustRunner(t, Options{Mode: ModeWrite, Printer: report.NewPrinter(&out, false), Verbose: true})
	rep, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Summary.Files != 3 || rep.Summary.Failed != 1 || rep.Summary.Converted != 1 || rep.Summary.Unchanged != 1 {
		t.Errorf("unexpected summary: %+v", rep.Summary)
	}
	if rep.Summary.Manual["manual.py"] != 1 {
		t.Errorf("manual = %v", rep.Summary.Manual)
	}
	if !strings.Contains(rep.Failed(), "bad.py") {
		t.Errorf("Failed() = %q", rep.Failed())
	}
	for _, o := range rep.Outcomes {
		if o.RelPath == "manual.py" && o.ManualError() == nil {
			t.Error("manual.py should carry a manual error")
		}
		if o.RelPath == "good.py" && o.ManualError() != nil {
			t.Error("good.py should not carry a manual error")
		}
	}
	text := out.String()
	for _, want := range []string{"ERROR: bad.py", "issue(s) in manual.py", "Replacing"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestJournalAndIncremental(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	writeFile(t, path, qt4Source)

	journal, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer journal.Close()

	r := mustRunner(t, Options{Mode: ModeWrite, Journal: journal, Incremental: true})
	first, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.Summary.Skipped != 1 {
		t.Errorf("second run should skip the converted file: %+v", second.Summary)
	}

	results, err := journal.ResultsForRun(first.RunID)
	if err != nil {
		t.Fatalf("ResultsForRun: %v", err)
	}
	if len(results) != 1 || results[0].Status != store.StatusConverted || results[0].Bindings[0] != "PyQt4" {
		t.Errorf("unexpected journal results: %+v", results)
	}
	run, err := journal.GetRun(second.RunID)
	if err != nil || run == nil || run.Skipped != 1 || run.FinishedAt == "" {
		t.Errorf("unexpected run: %+v, %v", run, err)
	}

	// Other options invalidate the journal entry.
	other := mustRunner(t, Options{Mode: ModeDiff, Journal: journal, Incremental: true,
		Convert: convert.Options{ToMethods: true}})
	third, err := other.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if third.Summary.Skipped != 0 || third.Summary.Unchanged != 1 {
		t.Errorf("changed options should convert again: %+v", third.Summary)
	}
}

func TestForget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	writeFile(t, path, qt4Source)

	journal, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer journal.Close()

	r := mustRunner(t, Options{Mode: ModeWrite, Journal: journal, Incremental: true})
	if _, err := r.Run(context.Background(), dir); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := r.Forget([]string{path}); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	rep, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Summary.Skipped != 0 || rep.Summary.Unchanged != 1 {
		t.Errorf("forgotten file should be converted again: %+v", rep.Summary)
	}

	if err := mustRunner(t, Options{Mode: ModeDiff}).Forget([]string{path}); err != nil {
		t.Errorf("Forget without a journal: %v", err)
	}
}

func TestRunFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	path := filepath.Join(src, "sub", "a.py")
	writeFile(t, path, qt4Source)

	r := mustRunner(t, Options{Mode: ModeMirror, OutputDir: dst})
	rep, err := r.RunFiles(context.Background(), src, []string{path})
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if len(rep.Outcomes) != 1 || rep.Outcomes[0].RelPath != "sub/a.py" {
		t.Fatalf("unexpected outcomes: %+v", rep.Outcomes)
	}
	if got := readFile(t, filepath.Join(dst, "sub", "a.py")); got != qtSource {
		t.Errorf("mirrored =\n%s", got)
	}
}

func TestRunMissingPath(t *testing.T) {
	r := mustRunner(t, Options{Mode: ModeDiff})
	if _, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestOptionsHash(t *testing.T) {
	a := optionsHash(convert.Options{StringType: "str"})
	b := optionsHash(convert.Options{StringType: "unicode"})
	if a == b || a != optionsHash(convert.Options{StringType: "str"}) {
		t.Error("options hash should depend on the options only")
	}
	if contentHash("x") == contentHash("y") || len(contentHash("x")) != 32 {
		t.Errorf("unexpected content hash %q", contentHash("x"))
	}
}
