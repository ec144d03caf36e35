package parser

import (
	"errors"
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/lang"
)

func TestParsePython(t *testing.T) {
	source := []byte(`def greet(name):
    return f"Hello, {name}"

class MyClass:
    def method(self):
        pass
`)
	tree, err := Parse(lang.Python, source)
	if err != nil {
		t.Fatalf("Parse Python: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var funcCount, classCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			funcCount++
		case "class_definition":
			classCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_definitions, got %d", funcCount)
	}
	if classCount != 1 {
		t.Errorf("expected 1 class_definition, got %d", classCount)
	}
}

func TestParsePython2Print(t *testing.T) {
	doc, err := ParseDocument(lang.Python, []byte("print \"hello\"\n"))
	if err != nil {
		t.Fatalf("python 2 print statement should parse: %v", err)
	}
	doc.Close()
}

func TestParseDocumentSyntaxError(t *testing.T) {
	_, err := ParseDocument(lang.Python, []byte("x = 1\ndef broken(:\n    pass\n"))
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected ErrSyntax, got %v", err)
	}
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
	if serr.Row != 1 {
		t.Errorf("expected error on row 1, got %d", serr.Row)
	}
}

func mustDoc(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ParseDocument(lang.Python, []byte(src))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	t.Cleanup(doc.Close)
	return doc
}

func TestChains(t *testing.T) {
	doc := mustDoc(t, "p = QtGui.QSizePolicy(QtGui.QSizePolicy.Fixed, x.y[0])\nfoo()\n")
	var got []string
	for _, c := range doc.Chains() {
		got = append(got, doc.Text(c))
	}
	want := []string{
		"QtGui.QSizePolicy(QtGui.QSizePolicy.Fixed, x.y[0])",
		"QtGui.QSizePolicy.Fixed",
		"x.y[0]",
		"foo()",
	}
	if len(got) != len(want) {
		t.Fatalf("chains = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// Replacing only chain roots keeps nested references in the same statement
// editable in one commit.
func TestReplaceRootKeepsSiblings(t *testing.T) {
	src := "p = QtGui.QSizePolicy(QtGui.QSizePolicy.A, QtGui.QSizePolicy.B)\n"
	doc := mustDoc(t, src)
	for _, c := range doc.Chains() {
		doc.ReplaceRoot(c, "QtWidgets")
	}
	n, err := doc.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 applied edits, got %d", n)
	}
	want := "p = QtWidgets.QSizePolicy(QtWidgets.QSizePolicy.A, QtWidgets.QSizePolicy.B)\n"
	if doc.String() != want {
		t.Errorf("got %q, want %q", doc.String(), want)
	}
}

// Replacing a whole statement and then one of its children loses the child
// edit: the later edit overlaps and is dropped.
func TestCommitDropsOverlap(t *testing.T) {
	doc := mustDoc(t, "a = b.c\n")
	stmt := doc.Root().NamedChild(0)
	doc.Replace(stmt, "a = d.c")
	chain := doc.Chains()[0]
	doc.ReplaceRoot(chain, "e")
	n, err := doc.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 applied edit, got %d", n)
	}
	if doc.String() != "a = d.c\n" {
		t.Errorf("got %q", doc.String())
	}
}

func TestCommitRejectsBrokenResult(t *testing.T) {
	doc := mustDoc(t, "a = b\n")
	doc.Replace(findIdent(t, doc, "b"), "(")
	if _, err := doc.Commit(); !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected ErrSyntax, got %v", err)
	}
	if doc.String() != "a = b\n" {
		t.Errorf("document should be unchanged, got %q", doc.String())
	}
}

func findIdent(t *testing.T, d *Document, name string) *tree_sitter.Node {
	t.Helper()
	nodes := d.Find([]string{"identifier"}, func(n *tree_sitter.Node) bool { return d.Text(n) == name })
	if len(nodes) != 1 {
		t.Fatalf("expected one identifier %s, got %d", name, len(nodes))
	}
	return nodes[0]
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"own line", "import sip\nx = 1\n", "x = 1\n"},
		{"last line", "x = 1\nimport sip", "x = 1\n"},
		{"semicolon", "import sip; x = 1\n", "x = 1\n"},
		{"after semicolon", "x = 1; import sip\n", "x = 1\n"},
		{"between semicolons", "x = 1; import sip; y = 2\n", "x = 1; y = 2\n"},
		{"only statement in block", "try:\n    import sip\nexcept ImportError:\n    pass\n", "try:\n    pass\nexcept ImportError:\n    pass\n"},
		{"indented", "if x:\n    import sip\n    y = 1\n", "if x:\n    y = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.src)
			imps := doc.Imports()
			if len(imps) != 1 {
				t.Fatalf("expected 1 import, got %d", len(imps))
			}
			doc.Remove(imps[0])
			if _, err := doc.Commit(); err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if doc.String() != tt.want {
				t.Errorf("got %q, want %q", doc.String(), tt.want)
			}
		})
	}
}

func TestIsReference(t *testing.T) {
	doc := mustDoc(t, "def QLineEdit(QColor, x=QFont):\n    return self.QIcon(QPen, key=QBrush)\n")
	refs := map[string]bool{}
	for _, n := range doc.Find([]string{"identifier"}, nil) {
		refs[doc.Text(n)] = IsReference(n)
	}
	want := map[string]bool{
		"QLineEdit": false,
		"QColor":    false,
		"x":         false,
		"QFont":     true,
		"self":      true,
		"QIcon":     false,
		"QPen":      true,
		"key":       false,
		"QBrush":    true,
	}
	for name, w := range want {
		if refs[name] != w {
			t.Errorf("IsReference(%s) = %v, want %v", name, refs[name], w)
		}
	}
}

func TestIndentAndLines(t *testing.T) {
	doc := mustDoc(t, "def f():\n    import os\n")
	imp := doc.Imports()[0]
	if got := doc.Indent(imp); got != "    " {
		t.Errorf("Indent = %q", got)
	}
	if row, rowTo := doc.Lines(imp); row != 1 || rowTo != 1 {
		t.Errorf("Lines = %d,%d", row, rowTo)
	}
}
