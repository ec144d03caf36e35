package convert

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

const (
	reasonLoadUiType = `The Qt.py module does not support uic.loadUiType as it is not a method in PySide.
Please see: https://github.com/mottosso/Qt.py/issues/237
This will break and you will have to update this or refactor it out.`

	reasonQVariant = `As of API v2.0 there is no QVariant class.
Using the class object directly cannot be translated into something that can be relied on.
You will probably want to remove this usage entirely.`
)

// unsupportedNames maps identifiers the shim cannot express to the reason
// reported for them.
var unsupportedNames = map[string]string{
	"loadUiType": reasonLoadUiType,
	"QVariant":   reasonQVariant,
}

// unsupported records an error for every expression that still uses a name
// in unsupportedNames. The text is left as is.
func (c *converter) unsupported() {
	c.pass = PassUnsupported
	seen := map[uintptr]bool{}
	for _, id := range c.doc.Find([]string{"identifier"}, func(n *tree_sitter.Node) bool {
		_, ok := unsupportedNames[c.doc.Text(n)]
		return ok && !c.doc.InImport(n)
	}) {
		start := id
		if p := id.Parent(); p != nil && p.Kind() == "attribute" && parser.SameNode(p.ChildByFieldName("attribute"), id) {
			start = p
		} else if !parser.IsReference(id) {
			continue
		}
		top := parser.ChainTop(start)
		if seen[top.Id()] {
			continue
		}
		seen[top.Id()] = true
		c.fail(top, unsupportedNames[c.doc.Text(id)])
	}
}
