package convert

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

// rootMember returns the root identifier of chain and the attribute node
// that follows it, if any.
func rootMember(chain *tree_sitter.Node) (root, member *tree_sitter.Node) {
	root = parser.ChainRoot(chain)
	if p := parser.ChainParent(root); p != nil && p.Kind() == "attribute" {
		member = p.ChildByFieldName("attribute")
	}
	return root, member
}

// rootNames turns Qt.<Module>.X into <Module>.X for sources that imported the
// bare binding.
func (c *converter) rootNames() {
	c.pass = PassRootNames
	for _, chain := range c.doc.Chains() {
		if c.doc.InImport(chain) {
			continue
		}
		root, member := rootMember(chain)
		if c.doc.Text(root) != bindings.Shim || member == nil {
			continue
		}
		sub := c.doc.Text(member)
		if !c.reg.IsShimModule(sub) {
			c.warn("Unknown second level module from the Qt package \""+sub+"\"", "row", int(root.StartPosition().Row))
			continue
		}
		c.aliases.RootAliases.Add(sub)
		c.replaceRange(root.StartByte(), member.StartByte(), int(root.StartPosition().Row), "")
	}
	c.commit()
}

// attributes moves <Module>.<Member> references to the module that owns the
// member in the shim, e.g. QtGui.QWidget to QtWidgets.QWidget. Only the root
// identifier is replaced.
func (c *converter) attributes() {
	c.pass = PassAttributes
	for _, chain := range c.doc.Chains() {
		if c.doc.InImport(chain) {
			continue
		}
		root, member := rootMember(chain)
		module := c.doc.Text(root)
		if !c.reg.IsShimModule(module) {
			continue
		}
		if member == nil || !c.reg.IsCommonModule(module) {
			c.recordUsed(module)
			continue
		}
		name := c.doc.Text(member)
		owner, ok := c.reg.CommonModuleOf(name)
		if !ok || owner == module || c.reg.Owns(module, name) {
			c.recordUsed(module)
			continue
		}
		c.replaceRoot(chain, owner)
		c.recordUsed(owner)
	}
	// Modules referenced by name alone, as in f(QtGui).
	for _, id := range c.doc.Find([]string{"identifier"}, func(n *tree_sitter.Node) bool {
		return parser.ChainParent(n) == nil && parser.IsReference(n) && !c.doc.InImport(n)
	}) {
		c.recordUsed(c.doc.Text(id))
	}
	c.commit()
}
