// Package convert rewrites Python source written against a Qt binding
// (PyQt4, PyQt5, PySide, PySide2) into source that imports the Qt shim.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/introspect"
	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

// StringSet is an unordered set of names.
type StringSet map[string]struct{}

func (s StringSet) Add(v string) { s[v] = struct{}{} }

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in lexicographic order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// AliasTable is the state one conversion accumulates.
type AliasTable struct {
	Bindings    StringSet // bindings the source imported
	RootAliases StringSet // names the rewritten imports bring into scope
	Used        StringSet // shim modules the rewritten body references
	Warnings    []string
	Errors      []ErrorRecord
}

func newAliasTable() *AliasTable {
	return &AliasTable{
		Bindings:    StringSet{},
		RootAliases: StringSet{},
		Used:        StringSet{},
	}
}

// Pass identifies a conversion stage.
type Pass int

const (
	PassParse Pass = iota
	PassFromImports
	PassImports
	PassMappings
	PassLegacy
	PassSignals
	PassBody
	PassRootNames
	PassAttributes
	PassConsolidate
	PassUnsupported
)

var passNames = map[Pass]string{
	PassParse:       "parse",
	PassFromImports: "from-imports",
	PassImports:     "imports",
	PassMappings:    "mappings",
	PassLegacy:      "legacy",
	PassSignals:     "signals",
	PassBody:        "body",
	PassRootNames:   "root-names",
	PassAttributes:  "attributes",
	PassConsolidate: "consolidate",
	PassUnsupported: "unsupported",
}

func (p Pass) String() string {
	if s, ok := passNames[p]; ok {
		return s
	}
	return fmt.Sprintf("pass(%d)", int(p))
}

// Change describes one replacement, reported through Options.OnChange.
type Change struct {
	Pass        Pass
	Row         int // 0-based line of the original text at the time of the pass
	Original    string
	Replacement string
}

// Options configures a conversion. The zero value converts with the default
// registry.
type Options struct {
	Registry *bindings.Registry
	// Lister enumerates binding modules for wildcard imports. Defaults to
	// the registry's member tables.
	Lister introspect.MemberLister
	// ToMethods strips PyQt4 API v1 conversion calls such as .toString().
	ToMethods bool
	// ExplicitSignals writes signal argument types, as in clicked[bool].
	ExplicitSignals bool
	// StringType replaces QString and friends. Defaults to "str".
	StringType string
	OnChange   func(Change)
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = bindings.Default()
	}
	if o.Lister == nil {
		o.Lister = introspect.RegistryLister{Registry: o.Registry}
	}
	if o.StringType == "" {
		o.StringType = "str"
	}
	return o
}

// Result is the outcome of a conversion.
type Result struct {
	Aliases *AliasTable
	Mapping map[string]string
	Text    string
}

// converter carries one conversion through its passes.
type converter struct {
	ctx     context.Context
	doc     *parser.Document
	reg     *bindings.Registry
	opts    Options
	aliases *AliasTable
	mapping map[string]string
	pass    Pass
}

func (c *converter) replace(n *tree_sitter.Node, text string) {
	c.replaceRange(n.StartByte(), n.EndByte(), int(n.StartPosition().Row), text)
}

func (c *converter) replaceRange(start, end uint, row int, text string) {
	c.notify(row, string(c.doc.Source()[start:end]), text)
	c.doc.ReplaceRange(start, end, text)
}

// replaceRoot swaps the root identifier of chain, leaving its arguments
// untouched.
func (c *converter) replaceRoot(chain *tree_sitter.Node, text string) {
	root := parser.ChainRoot(chain)
	c.notify(int(root.StartPosition().Row), c.doc.Text(root), text)
	c.doc.ReplaceRoot(chain, text)
}

func (c *converter) remove(stmt *tree_sitter.Node) {
	c.notify(int(stmt.StartPosition().Row), c.doc.Text(stmt), "")
	c.doc.Remove(stmt)
}

func (c *converter) notify(row int, original, replacement string) {
	if c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange(Change{
		Pass:        c.pass,
		Row:         row,
		Original:    strings.TrimRight(original, "\n"),
		Replacement: replacement,
	})
}

// commit applies the pending edits. A commit that would break the syntax is
// dropped with a warning and the document keeps its previous text.
func (c *converter) commit() {
	if c.doc.Pending() == 0 {
		return
	}
	n, err := c.doc.Commit()
	if err != nil {
		c.warn("skipped edits that would break the source", "pass", c.pass.String(), "err", err)
		return
	}
	slog.Debug("convert.commit", "pass", c.pass.String(), "edits", n)
}

func (c *converter) warn(msg string, args ...any) {
	slog.Warn("convert."+c.pass.String(), append([]any{"warning", msg}, args...)...)
	c.aliases.Warnings = append(c.aliases.Warnings, msg)
}

// fail records a construct the converter cannot rewrite. Identical records
// are kept once.
func (c *converter) fail(n *tree_sitter.Node, reason string) {
	row, rowTo := c.doc.Lines(n)
	rec := ErrorRecord{Row: row, RowTo: rowTo, Reason: reason}
	for _, e := range c.aliases.Errors {
		if e == rec {
			return
		}
	}
	c.aliases.Errors = append(c.aliases.Errors, rec)
}

// recordUsed marks the first segment of path as used when it is a shim module.
func (c *converter) recordUsed(path string) {
	root, _, _ := strings.Cut(path, ".")
	if c.reg.IsShimModule(root) {
		c.aliases.Used.Add(root)
	}
}
