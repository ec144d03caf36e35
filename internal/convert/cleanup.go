package convert

import (
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/lang"
	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

// shimImportNames returns the modules the consolidated import must provide:
// the used shim modules, or failing that the modules the original imports
// mapped to.
func (c *converter) shimImportNames() []string {
	var names []string
	for _, u := range c.aliases.Used.Sorted() {
		if c.reg.IsShimModule(u) {
			names = append(names, u)
		}
	}
	if len(names) > 0 {
		return names
	}
	seen := StringSet{}
	for _, alias := range c.aliases.RootAliases.Sorted() {
		value, ok := c.mapping[alias]
		if !ok {
			continue
		}
		if head := firstSegment(value); !seen.Has(head) {
			seen.Add(head)
			names = append(names, head)
		}
	}
	sort.Strings(names)
	return names
}

// referenced reports whether name is used outside import statements.
func (c *converter) referenced(name string) bool {
	ids := c.doc.Find([]string{"identifier"}, func(n *tree_sitter.Node) bool {
		return c.doc.Text(n) == name && parser.IsReference(n) && !c.doc.InImport(n)
	})
	return len(ids) > 0
}

// consolidatable reports whether an import child of an import statement is
// one the consolidated shim import replaces: the shim itself, or an interop
// helper such as sip whose remaining uses were all relocated.
func (c *converter) consolidatable(t importTarget) bool {
	root := firstSegment(t.Name)
	if root == bindings.Shim {
		return true
	}
	return c.reg.IsSupplementary(root) && !c.referenced(t.Local())
}

// consolidate rewrites the first shim import to import exactly the used
// modules and deletes every later one.
func (c *converter) consolidate() {
	c.pass = PassConsolidate
	names := c.shimImportNames()
	line := "from " + bindings.Shim + " import " + strings.Join(names, ", ")
	placed := false
	if len(names) == 0 {
		c.warn("no usages of Qt found despite the binding import; removing the import")
	}

	var removals []*tree_sitter.Node
	for _, stmt := range c.doc.Imports() {
		var (
			kept  []string
			match bool
		)
		if lang.Contains(c.doc.Spec().ImportFromTypes, stmt.Kind()) {
			modNode := stmt.ChildByFieldName("module_name")
			if modNode == nil || compact(c.doc.Text(modNode)) != bindings.Shim {
				continue
			}
			match = true
		} else {
			targets, _ := c.importTargets(stmt, nil)
			for _, t := range targets {
				if c.consolidatable(t) {
					match = true
				} else {
					kept = append(kept, c.doc.Text(t.node))
				}
			}
			if !match {
				continue
			}
		}

		var parts []string
		if len(kept) > 0 {
			parts = append(parts, "import "+strings.Join(kept, ", "))
		}
		if !placed && len(names) > 0 {
			parts = append(parts, line)
			placed = true
		}
		if len(parts) == 0 {
			removals = append(removals, stmt)
			continue
		}
		sep := "; "
		if c.doc.AtLineStart(stmt) {
			sep = "\n" + c.doc.Indent(stmt)
		}
		if text := strings.Join(parts, sep); text != c.doc.Text(stmt) {
			c.replace(stmt, text)
		}
	}
	c.removeStatements(removals)
	c.commit()
}

// removeStatements deletes statements, leaving pass in any block they would
// empty.
func (c *converter) removeStatements(stmts []*tree_sitter.Node) {
	pending := map[uintptr]int{}
	for _, s := range stmts {
		if p := s.Parent(); p != nil {
			pending[p.Id()]++
		}
	}
	for _, s := range stmts {
		p := s.Parent()
		if p != nil && lang.Contains(c.doc.Spec().BlockNodeTypes, p.Kind()) {
			pending[p.Id()]--
			if pending[p.Id()] == 0 && parser.StatementCount(p) == countIn(stmts, p) {
				c.replace(s, "pass")
				continue
			}
		}
		c.remove(s)
	}
}

func countIn(stmts []*tree_sitter.Node, parent *tree_sitter.Node) int {
	n := 0
	for _, s := range stmts {
		if p := s.Parent(); p != nil && parser.SameNode(p, parent) {
			n++
		}
	}
	return n
}
