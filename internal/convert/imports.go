package convert

import (
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

// importTarget is one imported name, "name" or "name as alias".
type importTarget struct {
	Name  string
	Alias string
	node  *tree_sitter.Node
}

// Local returns the name the import binds in the module namespace.
func (t importTarget) Local() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// importTargets lists the imported names of an import or from-import
// statement. skip is the module_name node of a from-import.
func (c *converter) importTargets(stmt, skip *tree_sitter.Node) (targets []importTarget, wildcard bool) {
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child == nil || (skip != nil && parser.SameNode(child, skip)) {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			targets = append(targets, importTarget{Name: compact(c.doc.Text(child)), node: child})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			t := importTarget{Name: compact(c.doc.Text(nameNode)), node: child}
			if aliasNode != nil {
				t.Alias = c.doc.Text(aliasNode)
			}
			targets = append(targets, t)
		case "wildcard_import":
			wildcard = true
		}
	}
	return targets, wildcard
}

// splitBinding returns the binding text starts with and the dotted remainder.
func (c *converter) splitBinding(text string) (binding, rest string, ok bool) {
	binding, ok = c.reg.Match(text)
	if !ok {
		return "", "", false
	}
	return binding, strings.TrimPrefix(text[len(binding):], "."), true
}

func firstSegment(path string) string {
	head, _, _ := strings.Cut(path, ".")
	return head
}

// fromImports rewrites "from <binding>[.<module>] import ..." statements.
func (c *converter) fromImports() {
	c.pass = PassFromImports
	warnedWildcard := false
	for _, stmt := range c.doc.Find(c.doc.Spec().ImportFromTypes, nil) {
		modNode := stmt.ChildByFieldName("module_name")
		if modNode == nil || modNode.Kind() != "dotted_name" {
			continue
		}
		module := compact(c.doc.Text(modNode))
		binding, rest, ok := c.splitBinding(module)
		if !ok {
			continue
		}
		targets, wildcard := c.importTargets(stmt, modNode)

		if rest == "" {
			var names []string
			for _, t := range targets {
				names = append(names, t.Name)
				c.aliases.RootAliases.Add(t.Name)
				if t.Alias != "" && t.Alias != t.Name {
					c.mapping[t.Alias] = t.Name
				}
			}
			if wildcard {
				for _, m := range c.reg.CommonModules() {
					names = append(names, m)
					c.aliases.RootAliases.Add(m)
				}
			}
			c.aliases.Bindings.Add(binding)
			c.replace(stmt, "from "+bindings.Shim+" import "+strings.Join(names, ", "))
			continue
		}

		sub := firstSegment(rest)
		if wildcard {
			if !warnedWildcard {
				c.warn("wildcard import found, enumerating binding members to resolve it", "module", module)
				warnedWildcard = true
			}
			members, err := c.opts.Lister.PublicMembers(c.ctx, module)
			if err != nil {
				c.fail(stmt, "could not enumerate the members of "+module+" to expand the wildcard import: "+err.Error())
				continue
			}
			for _, m := range members {
				c.mapping[m] = rest + "." + m
			}
			c.aliases.RootAliases.Add(sub)
		}
		for _, t := range targets {
			c.mapping[t.Local()] = rest + "." + t.Name
			c.aliases.RootAliases.Add(t.Name)
		}
		c.aliases.Bindings.Add(binding)
		c.replace(stmt, "from "+bindings.Shim+" import "+sub)
	}
	c.commit()
}

// imports rewrites "import <binding>[.<module>] [as alias]" children of
// import statements. Children importing other modules are kept.
func (c *converter) imports() {
	c.pass = PassImports
	for _, stmt := range c.doc.Find(c.doc.Spec().ImportNodeTypes, nil) {
		targets, _ := c.importTargets(stmt, nil)
		var (
			kept    []string
			added   []string
			matched bool
		)
		for _, t := range targets {
			binding, rest, ok := c.splitBinding(t.Name)
			if !ok {
				kept = append(kept, c.doc.Text(t.node))
				continue
			}
			matched = true
			c.aliases.Bindings.Add(binding)
			line := "import " + bindings.Shim
			if rest == "" {
				c.mapping[t.Local()] = bindings.Shim
			} else {
				sub := firstSegment(rest)
				c.mapping[t.Local()] = rest
				c.aliases.RootAliases.Add(sub)
				line = "from " + bindings.Shim + " import " + sub
			}
			if !slices.Contains(added, line) {
				added = append(added, line)
			}
		}
		if !matched {
			continue
		}
		lines := added
		if len(kept) > 0 {
			lines = append([]string{"import " + strings.Join(kept, ", ")}, added...)
		}
		sep := "; "
		if c.doc.AtLineStart(stmt) {
			sep = "\n" + c.doc.Indent(stmt)
		}
		c.replace(stmt, strings.Join(lines, sep))
	}
	c.commit()
}
