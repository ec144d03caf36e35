package convert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

func mustRun(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	res, err := Run(src, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRunScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "size policy moves to QtWidgets",
			in:   "from PyQt4 import QtGui\n\ndef f():\n    p = QtGui.QSizePolicy(QtGui.QSizePolicy.MinimumExpanding, QtGui.QSizePolicy.MinimumExpanding)\n",
			want: "from Qt import QtWidgets\n\ndef f():\n    p = QtWidgets.QSizePolicy(QtWidgets.QSizePolicy.MinimumExpanding, QtWidgets.QSizePolicy.MinimumExpanding)\n",
		},
		{
			name: "from submodule import member",
			in:   "from PyQt4.QtGui import QLineEdit\n\nl = QLineEdit()\nx = 42",
			want: "from Qt import QtWidgets\n\nl = QtWidgets.QLineEdit()\nx = 42",
		},
		{
			name: "module stays when members do",
			in:   "from PySide import QtGui\n\nc = QtGui.QColor(1, 2, 3)\n",
			want: "from Qt import QtGui\n\nc = QtGui.QColor(1, 2, 3)\n",
		},
		{
			name: "bare binding import",
			in:   "import PySide\n",
			want: "import Qt\n",
		},
		{
			name: "bare binding import with usage",
			in:   "import PySide\n\nw = PySide.QtGui.QWidget()\n",
			want: "from Qt import QtWidgets\n\nw = QtWidgets.QWidget()\n",
		},
		{
			name: "submodule import keeps other modules",
			in:   "import os, PyQt4.QtCore\n\nt = PyQt4.QtCore.QTimer()\n",
			want: "import os\nfrom Qt import QtCore\n\nt = QtCore.QTimer()\n",
		},
		{
			name: "aliased submodule import",
			in:   "import PyQt5.QtWidgets as W\n\nb = W.QPushButton()\n",
			want: "from Qt import QtWidgets\n\nb = QtWidgets.QPushButton()\n",
		},
		{
			name: "aliased module in from-import",
			in:   "from PyQt5 import QtCore as C\n\no = C.QObject()\n",
			want: "from Qt import QtCore\n\no = QtCore.QObject()\n",
		},
		{
			name: "cross-module relocation keeps siblings",
			in:   "from PyQt4 import QtGui\n\nm = QtGui.QSortFilterProxyModel(QtGui.QWidget())\n",
			want: "from Qt import QtCore, QtWidgets\n\nm = QtCore.QSortFilterProxyModel(QtWidgets.QWidget())\n",
		},
		{
			name: "imports joined by a semicolon",
			in:   "from PyQt4 import QtCore; from PyQt4 import QtGui\n\nw = QtGui.QWidget()\nt = QtCore.QTimer()\n",
			want: "from Qt import QtCore, QtWidgets\n\nw = QtWidgets.QWidget()\nt = QtCore.QTimer()\n",
		},
		{
			name: "signal class renamed",
			in:   "from PyQt4 import QtCore\n\nclass A(QtCore.QObject):\n    changed = QtCore.pyqtSignal(int)\n",
			want: "from Qt import QtCore\n\nclass A(QtCore.QObject):\n    changed = QtCore.Signal(int)\n",
		},
		{
			name: "translate goes to QtCompat",
			in:   "from PyQt4 import QtGui\n\ntext = QtGui.QApplication.translate(\"ctx\", \"Hello\", None, QtGui.QApplication.UnicodeUTF8)\n",
			want: "from Qt import QtCompat, QtWidgets\n\ntext = QtCompat.translate(\"ctx\", \"Hello\", None, QtWidgets.QApplication.UnicodeUTF8)\n",
		},
		{
			name: "message handler goes to QtCompat",
			in:   "from PyQt4 import QtCore\n\nQtCore.qInstallMsgHandler(handler)\n",
			want: "from Qt import QtCompat\n\nQtCompat.qInstallMessageHandler(handler)\n",
		},
		{
			name: "old style connect",
			in: "from PyQt4 import QtCore, QtGui\n\nclass W(QtGui.QWidget):\n    def __init__(self):\n" +
				"        super(W, self).__init__()\n        self.connect(self.button, QtCore.SIGNAL(\"clicked()\"), self.go)\n",
			want: "from Qt import QtWidgets\n\nclass W(QtWidgets.QWidget):\n    def __init__(self):\n" +
				"        super(W, self).__init__()\n        self.button.clicked.connect(self.go)\n",
		},
		{
			name: "comments and blank lines survive",
			in:   "# header\nfrom PyQt4 import QtGui  # gui\n\n\n# body\nw = QtGui.QWidget()  # trailing\n",
			want: "# header\nfrom Qt import QtWidgets  # gui\n\n\n# body\nw = QtWidgets.QWidget()  # trailing\n",
		},
		{
			name: "no binding leaves source alone",
			in:   "import os\n\nprint(os.getcwd())\n",
			want: "import os\n\nprint(os.getcwd())\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.in, Options{})
			if res.Text != tt.want {
				t.Errorf("Run =\n%s\nwant\n%s", res.Text, tt.want)
			}
		})
	}
}

func TestRunConsolidation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "duplicate shim imports merge into the first",
			in:   "from PyQt4 import QtGui\nfrom PyQt4 import QtCore\n\nw = QtGui.QWidget()\no = QtCore.QObject()\n",
			want: "from Qt import QtCore, QtWidgets\n\nw = QtWidgets.QWidget()\no = QtCore.QObject()\n",
		},
		{
			name: "emptied block keeps a pass",
			in:   "try:\n    from PyQt4 import QtGui\nexcept ImportError:\n    from PySide import QtGui\n\nw = QtGui.QWidget()\n",
			want: "try:\n    from Qt import QtWidgets\nexcept ImportError:\n    pass\n\nw = QtWidgets.QWidget()\n",
		},
		{
			name: "sip absorbed into QtCompat",
			in:   "import sip\nfrom PyQt4 import QtGui\n\nw = sip.wrapinstance(ptr, QtGui.QWidget)\n",
			want: "from Qt import QtCompat, QtWidgets\n\nw = QtCompat.wrapInstance(ptr, QtWidgets.QWidget)\n",
		},
		{
			name: "sip kept while still referenced",
			in:   "import sip\nsip.setapi(\"QString\", 2)\nfrom PyQt4 import QtGui\n\nw = QtGui.QWidget()\n",
			want: "import sip\nsip.setapi(\"QString\", 2)\nfrom Qt import QtWidgets\n\nw = QtWidgets.QWidget()\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.in, Options{})
			if res.Text != tt.want {
				t.Errorf("Run =\n%s\nwant\n%s", res.Text, tt.want)
			}
		})
	}
}

func TestRunLegacy(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts Options
		want string
	}{
		{
			name: "empty variant",
			in:   "t = QVariant()  # c\n",
			want: "t = None  # c\n",
		},
		{
			name: "variant with value",
			in:   "tt = QVariant(\"[23, 19]\")\n",
			want: "tt = \"[23, 19]\"\n",
		},
		{
			name: "variant nested in a list",
			in:   "x = sum([QVariant(\"[23, 19]\"), 42])\n",
			want: "x = sum([\"[23, 19]\", 42])\n",
		},
		{
			name: "string classes",
			in:   "s = QtCore.QString(\"a\")\nl = QStringList()\nu = QString.fromUtf8(\"b\")\n",
			want: "s = str(\"a\")\nl = list()\nu = str(\"b\")\n",
		},
		{
			name: "configured string type",
			in:   "s = QString(\"a\")\n",
			opts: Options{StringType: "unicode"},
			want: "s = unicode(\"a\")\n",
		},
		{
			name: "unrelated attribute named like a string class",
			in:   "s = other.QString(\"a\")\n",
			want: "s = other.QString(\"a\")\n",
		},
		{
			name: "to-methods off by default",
			in:   "v = value.toString()\n",
			want: "v = value.toString()\n",
		},
		{
			name: "to-methods",
			in:   "v = value.toString()\nn = item.data(0).toPyObject()\nk = a.toString().toInt()\n",
			opts: Options{ToMethods: true},
			want: "v = value\nn = item.data(0)\nk = a\n",
		},
		{
			name: "emit without arguments",
			in:   "self.emit(QtCore.SIGNAL(\"done()\"))\n",
			want: "self.done.emit()\n",
		},
		{
			name: "explicit signal types",
			in:   "self.connect(w, SIGNAL(\"valueChanged(int)\"), self.f)\n",
			opts: Options{ExplicitSignals: true},
			want: "w.valueChanged[int].connect(self.f)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.in, tt.opts)
			if res.Text != tt.want {
				t.Errorf("Run =\n%s\nwant\n%s", res.Text, tt.want)
			}
			if len(res.Aliases.Errors) != 0 {
				t.Errorf("errors = %v, want none", res.Aliases.Errors)
			}
		})
	}
}

func TestRunUnsupported(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		row     int
		message string
	}{
		{
			name:    "variant class object",
			in:      "ok = isinstance(value, QVariant)\n",
			want:    "ok = isinstance(value, QVariant)\n",
			row:     0,
			message: "no QVariant class",
		},
		{
			name:    "loadUiType alone",
			in:      "form, base = uic.loadUiType(\"x.ui\")\n",
			want:    "form, base = uic.loadUiType(\"x.ui\")\n",
			row:     0,
			message: "issues/237",
		},
		{
			name:    "loadUiType next to converted code",
			in:      "from PyQt4 import QtGui, uic\n\nw = QtGui.QWidget()\nform, base = uic.loadUiType(\"x.ui\")\n",
			want:    "from Qt import QtWidgets\n\nw = QtWidgets.QWidget()\nform, base = uic.loadUiType(\"x.ui\")\n",
			row:     3,
			message: "issues/237",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.in, Options{})
			if res.Text != tt.want {
				t.Errorf("Run =\n%s\nwant\n%s", res.Text, tt.want)
			}
			if len(res.Aliases.Errors) != 1 {
				t.Fatalf("errors = %v, want 1", res.Aliases.Errors)
			}
			rec := res.Aliases.Errors[0]
			if rec.Row != tt.row || rec.RowTo != tt.row {
				t.Errorf("record rows = %d-%d, want %d", rec.Row, rec.RowTo, tt.row)
			}
			if !strings.Contains(rec.Reason, tt.message) {
				t.Errorf("reason %q does not mention %q", rec.Reason, tt.message)
			}
		})
	}
}

func TestRunWildcard(t *testing.T) {
	res := mustRun(t, "from PyQt4.QtGui import *\n\nw = QWidget()\nc = QColor()\n", Options{})
	want := "from Qt import QtGui, QtWidgets\n\nw = QtWidgets.QWidget()\nc = QtGui.QColor()\n"
	if res.Text != want {
		t.Errorf("Run =\n%s\nwant\n%s", res.Text, want)
	}
	if len(res.Aliases.Warnings) == 0 {
		t.Error("wildcard import should be warned about")
	}
}

type failingLister struct{}

func (failingLister) PublicMembers(context.Context, string) ([]string, error) {
	return nil, errors.New("no interpreter")
}

func TestRunWildcardListerFailure(t *testing.T) {
	in := "from PyQt4.QtGui import *\n\nw = QWidget()\n"
	res := mustRun(t, in, Options{Lister: failingLister{}})
	if res.Text != in {
		t.Errorf("Run =\n%s\nwant unchanged", res.Text)
	}
	if len(res.Aliases.Errors) != 1 || res.Aliases.Errors[0].Row != 0 {
		t.Errorf("errors = %v, want one at row 0", res.Aliases.Errors)
	}
}

func TestRunIdempotent(t *testing.T) {
	inputs := []string{
		"from PyQt4 import QtGui\n\nw = QtGui.QWidget()\n",
		"import os, PyQt4.QtCore\n\nt = PyQt4.QtCore.QTimer()\n",
		"from PyQt4 import QtGui\n\nm = QtGui.QSortFilterProxyModel(QtGui.QWidget())\n",
		"from PyQt4 import QtGui\n\ntext = QtGui.QApplication.translate(\"ctx\", \"Hello\")\n",
		"import sip\nfrom PyQt4 import QtGui\n\nw = sip.wrapinstance(ptr, QtGui.QWidget)\n",
	}
	for _, in := range inputs {
		first := mustRun(t, in, Options{})
		second := mustRun(t, first.Text, Options{})
		if second.Text != first.Text {
			t.Errorf("second run changed\n%s\ninto\n%s", first.Text, second.Text)
		}
	}
}

// Mapping keys are applied shortest first, so the module import recorded
// before the translate relocation still counts as used.
func TestRunKeyOrderConflict(t *testing.T) {
	in := "import PyQt4.QtGui\n\nt = PyQt4.QtGui.QApplication.translate(\"c\", \"t\")\n"
	want := "from Qt import QtCompat, QtGui\n\nt = QtCompat.translate(\"c\", \"t\")\n"
	res := mustRun(t, in, Options{})
	if res.Text != want {
		t.Errorf("Run =\n%s\nwant\n%s", res.Text, want)
	}
	if !res.Aliases.Used.Has("QtGui") || !res.Aliases.Used.Has("QtCompat") {
		t.Errorf("used = %v", res.Aliases.Used.Sorted())
	}
}

func TestRunTranslateThroughMemberImport(t *testing.T) {
	in := "from PyQt4.QtGui import QApplication\n\nt = QApplication.translate(\"c\", \"t\")\n"
	res := mustRun(t, in, Options{})
	if !strings.HasSuffix(res.Text, "\nt = QtCompat.translate(\"c\", \"t\")\n") {
		t.Errorf("Run =\n%s", res.Text)
	}
	if !strings.HasPrefix(res.Text, "from Qt import QtCompat") {
		t.Errorf("QtCompat not imported:\n%s", res.Text)
	}
}

func TestRunParseFailure(t *testing.T) {
	in := "def f(:\n    pass\n"
	res, err := Run(in, Options{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrParse) || !errors.Is(err, parser.ErrSyntax) {
		t.Errorf("err = %v, want ErrParse wrapping ErrSyntax", err)
	}
	if res.Text != in {
		t.Errorf("text changed on parse failure")
	}
	if len(res.Aliases.Errors) != 1 || res.Aliases.Errors[0].Row != 0 {
		t.Errorf("errors = %v, want one at row 0", res.Aliases.Errors)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunContext(ctx, "from PyQt4 import QtGui\n", Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunIsolation(t *testing.T) {
	a := mustRun(t, "from PyQt4 import QtGui\n\nw = QtGui.QWidget()\n", Options{})
	b := mustRun(t, "x = 1\n", Options{})
	if !a.Aliases.Bindings.Has("PyQt4") {
		t.Error("first run should record PyQt4")
	}
	if len(b.Aliases.Bindings) != 0 || len(b.Mapping) != 0 || len(b.Aliases.RootAliases) != 0 {
		t.Errorf("second run inherited state: %+v %v", b.Aliases, b.Mapping)
	}

	in := "from PyQt4 import QtGui\n\np = QtGui.QSizePolicy(QtGui.QSizePolicy.Fixed)\n"
	want := "from Qt import QtWidgets\n\np = QtWidgets.QSizePolicy(QtWidgets.QSizePolicy.Fixed)\n"
	var wg sync.WaitGroup
	outs := make([]string, 8)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Run(in, Options{})
			if err == nil {
				outs[i] = res.Text
			}
		}(i)
	}
	wg.Wait()
	for i, out := range outs {
		if out != want {
			t.Errorf("run %d =\n%s\nwant\n%s", i, out, want)
		}
	}
}

func TestRunCustomBinding(t *testing.T) {
	reg := bindings.New(bindings.Options{
		CustomBindings: []string{"MyQt"},
		CustomRelocations: map[string]map[string]bindings.Relocation{
			"MyQt": {"QtGui.QFancy": {Target: "QtWidgets.QWidget"}},
		},
	})
	in := "from MyQt import QtGui\n\nw = QtGui.QFancy()\nl = QtGui.QLineEdit()\n"
	want := "from Qt import QtWidgets\n\nw = QtWidgets.QWidget()\nl = QtWidgets.QLineEdit()\n"
	res := mustRun(t, in, Options{Registry: reg})
	if res.Text != want {
		t.Errorf("Run =\n%s\nwant\n%s", res.Text, want)
	}
}

func TestRunOnChange(t *testing.T) {
	var changes []Change
	mustRun(t, "from PyQt4 import QtGui\n\nw = QtGui.QWidget()\n", Options{
		OnChange: func(c Change) { changes = append(changes, c) },
	})
	if len(changes) == 0 {
		t.Fatal("no changes reported")
	}
	if changes[0].Pass != PassFromImports || changes[0].Row != 0 {
		t.Errorf("first change = %+v", changes[0])
	}
	var sawBody bool
	for _, c := range changes {
		if c.Row == 2 && strings.Contains(c.Replacement, "QtWidgets") {
			sawBody = true
		}
	}
	if !sawBody {
		t.Errorf("no change rewrote line 2: %+v", changes)
	}
}

func TestAttributePassReplacesRootsOnly(t *testing.T) {
	var changes []Change
	res := mustRun(t, "from PyQt4 import QtGui\n\nm = QtGui.QSortFilterProxyModel(QtGui.QWidget())\n", Options{
		OnChange: func(c Change) { changes = append(changes, c) },
	})
	if want := "m = QtCore.QSortFilterProxyModel(QtWidgets.QWidget())\n"; !strings.HasSuffix(res.Text, want) {
		t.Fatalf("Run =\n%s", res.Text)
	}
	got := map[string]bool{}
	for _, c := range changes {
		if c.Pass != PassAttributes {
			continue
		}
		if c.Original != "QtGui" || c.Row != 2 {
			t.Errorf("attribute change = %+v, want the QtGui root on row 2", c)
		}
		got[c.Replacement] = true
	}
	if !got["QtCore"] || !got["QtWidgets"] {
		t.Errorf("attribute replacements = %v, want QtCore and QtWidgets", got)
	}
}

func TestUserInputRequiredError(t *testing.T) {
	if NewUserInputRequired("a.py", "x", nil) != nil {
		t.Error("no records should give a nil error")
	}
	err := NewUserInputRequired("a.py", "a\nb\nc\nd\n", []ErrorRecord{
		{Row: 1, RowTo: 1, Reason: "bad line\n"},
		{Row: 2, RowTo: 3, Reason: "bad block"},
	})
	msg := err.Error()
	for _, want := range []string{"2 issue(s) in a.py", "Line 2:\n    b\nbad line", "Lines 3-4:\n    c\n    d\nbad block"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
