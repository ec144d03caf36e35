package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// A reference chain is a postfix expression built from attribute access,
// calls and subscripts: QtGui.QSizePolicy(QtGui.QSizePolicy.Fixed).
// The root of a chain is its innermost primary expression (QtGui above).

// chainChild returns the link a chain node extends, or nil for non-chain nodes.
func chainChild(n *tree_sitter.Node) *tree_sitter.Node {
	switch n.Kind() {
	case "attribute":
		return n.ChildByFieldName("object")
	case "call":
		return n.ChildByFieldName("function")
	case "subscript":
		return n.ChildByFieldName("value")
	}
	return nil
}

// IsChainLink reports whether n is an attribute, call or subscript node.
func IsChainLink(n *tree_sitter.Node) bool {
	return chainChild(n) != nil
}

// ChainParent returns the chain link that extends n, or nil when n is the
// outermost link of its chain.
func ChainParent(n *tree_sitter.Node) *tree_sitter.Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	if c := chainChild(p); c != nil && SameNode(c, n) {
		return p
	}
	return nil
}

// ChainRoot descends to the innermost primary expression of a chain.
func ChainRoot(n *tree_sitter.Node) *tree_sitter.Node {
	for {
		c := chainChild(n)
		if c == nil {
			return n
		}
		n = c
	}
}

// ChainTop climbs to the outermost link of the chain containing n.
func ChainTop(n *tree_sitter.Node) *tree_sitter.Node {
	for p := ChainParent(n); p != nil; p = ChainParent(n) {
		n = p
	}
	return n
}

// IsReference reports whether an identifier is in a position where it names
// a value: not an attribute name, keyword argument name, parameter or
// definition name.
func IsReference(n *tree_sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return true
	}
	switch p.Kind() {
	case "attribute":
		return SameNode(p.ChildByFieldName("object"), n)
	case "keyword_argument", "function_definition", "class_definition",
		"default_parameter", "typed_default_parameter":
		return !SameNode(p.ChildByFieldName("name"), n)
	case "parameters", "lambda_parameters", "typed_parameter",
		"list_splat_pattern", "dictionary_splat_pattern":
		return false
	}
	return true
}

// Chains returns every outermost reference chain whose root is a plain
// identifier, in document order. Chains nested in arguments or subscripts of
// another chain are returned as well.
func (d *Document) Chains() []*tree_sitter.Node {
	var out []*tree_sitter.Node
	Walk(d.Root(), func(n *tree_sitter.Node) bool {
		if IsChainLink(n) && ChainParent(n) == nil && ChainRoot(n).Kind() == "identifier" {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ReplaceRoot replaces only the root identifier of the chain containing n.
// Sibling references inside the chain's arguments keep their own nodes and
// can be edited independently in the same commit.
func (d *Document) ReplaceRoot(n *tree_sitter.Node, text string) {
	d.Replace(ChainRoot(n), text)
}
