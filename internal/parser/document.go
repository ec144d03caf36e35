package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/lang"
)

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports the first location tree-sitter could not parse.
type SyntaxError struct {
	Row    int // 0-based
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d", e.Row+1, e.Column+1)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Edit replaces source bytes [Start, End) with Text. Start == End inserts.
type Edit struct {
	Start, End uint
	Text       string
}

// Document is a parsed source file with a pending edit set. Nodes obtained
// from a Document stay valid until the next Commit or Close.
type Document struct {
	spec   *lang.LanguageSpec
	source []byte
	tree   *tree_sitter.Tree
	edits  []Edit
}

// ParseDocument parses source and rejects input containing syntax errors.
func ParseDocument(l lang.Language, source []byte) (*Document, error) {
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	src := append([]byte(nil), source...)
	tree, err := Parse(l, src)
	if err != nil {
		return nil, err
	}
	if serr := firstSyntaxError(tree.RootNode()); serr != nil {
		tree.Close()
		return nil, serr
	}
	return &Document{spec: spec, source: src, tree: tree}, nil
}

func firstSyntaxError(root *tree_sitter.Node) error {
	if !root.HasError() {
		return nil
	}
	var found *tree_sitter.Node
	Walk(root, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	if found == nil {
		return &SyntaxError{}
	}
	pos := found.StartPosition()
	return &SyntaxError{Row: int(pos.Row), Column: int(pos.Column)}
}

// Close releases the underlying tree.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// Root returns the module node.
func (d *Document) Root() *tree_sitter.Node {
	return d.tree.RootNode()
}

// Spec returns the language spec the document was parsed with.
func (d *Document) Spec() *lang.LanguageSpec {
	return d.spec
}

// Source returns the committed source bytes.
func (d *Document) Source() []byte {
	return d.source
}

// String serializes the committed document.
func (d *Document) String() string {
	return string(d.source)
}

// Text returns the committed source text of n.
func (d *Document) Text(n *tree_sitter.Node) string {
	return NodeText(n, d.source)
}

// Lines returns the 0-based first and last line spanned by n.
func (d *Document) Lines(n *tree_sitter.Node) (int, int) {
	return int(n.StartPosition().Row), int(n.EndPosition().Row)
}

// Find returns all nodes of one of the given kinds accepted by pred (nil
// accepts everything), in document order.
func (d *Document) Find(kinds []string, pred func(*tree_sitter.Node) bool) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	Walk(d.Root(), func(n *tree_sitter.Node) bool {
		if lang.Contains(kinds, n.Kind()) && (pred == nil || pred(n)) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Imports returns every import and from-import statement in document order.
func (d *Document) Imports() []*tree_sitter.Node {
	kinds := append(append([]string(nil), d.spec.ImportNodeTypes...), d.spec.ImportFromTypes...)
	return d.Find(kinds, nil)
}

// InImport reports whether n lies inside an import statement.
func (d *Document) InImport(n *tree_sitter.Node) bool {
	if lang.Contains(d.spec.ImportNodeTypes, n.Kind()) || lang.Contains(d.spec.ImportFromTypes, n.Kind()) {
		return true
	}
	return HasAncestor(n, append(append([]string(nil), d.spec.ImportNodeTypes...), d.spec.ImportFromTypes...)...)
}

// Indent returns the whitespace that precedes n on its line, or "" when n is
// not the first token of the line.
func (d *Document) Indent(n *tree_sitter.Node) string {
	indent, _ := d.leading(n)
	return indent
}

// AtLineStart reports whether only whitespace precedes n on its line.
func (d *Document) AtLineStart(n *tree_sitter.Node) bool {
	_, ok := d.leading(n)
	return ok
}

func (d *Document) leading(n *tree_sitter.Node) (string, bool) {
	start := n.StartByte()
	i := start
	for i > 0 && (d.source[i-1] == ' ' || d.source[i-1] == '\t') {
		i--
	}
	if i > 0 && d.source[i-1] != '\n' {
		return "", false
	}
	return string(d.source[i:start]), true
}

// Replace schedules replacing n with text.
func (d *Document) Replace(n *tree_sitter.Node, text string) {
	d.ReplaceRange(n.StartByte(), n.EndByte(), text)
}

// ReplaceRange schedules replacing bytes [start, end) with text.
func (d *Document) ReplaceRange(start, end uint, text string) {
	d.edits = append(d.edits, Edit{Start: start, End: end, Text: text})
}

// Remove schedules deletion of a statement node. A statement on its own line
// takes the line with it; the last statement of a block becomes pass.
func (d *Document) Remove(stmt *tree_sitter.Node) {
	if p := stmt.Parent(); p != nil && lang.Contains(d.spec.BlockNodeTypes, p.Kind()) && StatementCount(p) == 1 {
		d.Replace(stmt, "pass")
		return
	}
	src := d.source
	start, end := stmt.StartByte(), stmt.EndByte()
	lineStart := start
	for lineStart > 0 && (src[lineStart-1] == ' ' || src[lineStart-1] == '\t') {
		lineStart--
	}
	if lineStart > 0 && src[lineStart-1] != '\n' {
		// A statement after "a;" takes the separator with it.
		if src[lineStart-1] == ';' {
			start = lineStart - 1
			for start > 0 && (src[start-1] == ' ' || src[start-1] == '\t') {
				start--
			}
		}
		d.ReplaceRange(start, end, "")
		return
	}
	after := end
	for after < uint(len(src)) && (src[after] == ' ' || src[after] == '\t') {
		after++
	}
	switch {
	case after == uint(len(src)):
		d.ReplaceRange(lineStart, after, "")
	case src[after] == '\n':
		d.ReplaceRange(lineStart, after+1, "")
	case src[after] == '\r' && after+1 < uint(len(src)) && src[after+1] == '\n':
		d.ReplaceRange(lineStart, after+2, "")
	case src[after] == ';':
		after++
		for after < uint(len(src)) && (src[after] == ' ' || src[after] == '\t') {
			after++
		}
		d.ReplaceRange(start, after, "")
	default:
		d.ReplaceRange(start, end, "")
	}
}

// StatementCount returns the number of non-comment statements in block.
func StatementCount(block *tree_sitter.Node) int {
	count := 0
	for i := uint(0); i < block.NamedChildCount(); i++ {
		if c := block.NamedChild(i); c != nil && c.Kind() != "comment" {
			count++
		}
	}
	return count
}

// Pending returns the number of scheduled edits.
func (d *Document) Pending() int {
	return len(d.edits)
}

// Commit applies scheduled edits and reparses. Edits overlapping an earlier
// scheduled edit are dropped. If the edited text no longer parses, the
// document is left unchanged and the syntax error is returned.
func (d *Document) Commit() (int, error) {
	if len(d.edits) == 0 {
		return 0, nil
	}
	edits := d.edits
	d.edits = nil

	order := make([]int, len(edits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return edits[order[a]].Start < edits[order[b]].Start
	})

	var b strings.Builder
	b.Grow(len(d.source))
	var cursor uint
	applied := 0
	for _, idx := range order {
		e := edits[idx]
		if e.Start < cursor || e.End < e.Start || e.End > uint(len(d.source)) {
			slog.Debug("document.overlap", "start", e.Start, "end", e.End, "text", e.Text)
			continue
		}
		b.Write(d.source[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.End
		applied++
	}
	b.Write(d.source[cursor:])

	next := []byte(b.String())
	tree, err := Parse(d.spec.Language, next)
	if err != nil {
		return 0, err
	}
	if serr := firstSyntaxError(tree.RootNode()); serr != nil {
		tree.Close()
		return 0, fmt.Errorf("commit %d edits: %w", applied, serr)
	}
	d.tree.Close()
	d.tree = tree
	d.source = next
	return applied, nil
}
