package convert

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/parser"
	"github.com/digitaldomain/QtPyConvert/internal/signals"
)

// legacyKind is one rewrite of the PyQt4 API v1 idioms that the v2 API and
// PySide dropped.
type legacyKind int

const (
	legacyStrings legacyKind = iota
	legacyVariant
	legacyToMethods
	legacySignals
)

type legacyHandler struct {
	pass    Pass
	enabled func(Options) bool
	find    func(c *converter) int // schedules edits, returns how many
}

var legacyOrder = []legacyKind{legacyStrings, legacyVariant, legacyToMethods, legacySignals}

var legacyHandlers = map[legacyKind]legacyHandler{
	legacyStrings:   {pass: PassLegacy, find: (*converter).legacyStrings},
	legacyVariant:   {pass: PassLegacy, find: (*converter).legacyVariants},
	legacyToMethods: {pass: PassLegacy, enabled: func(o Options) bool { return o.ToMethods }, find: (*converter).legacyToMethods},
	legacySignals:   {pass: PassSignals, find: (*converter).legacySignals},
}

// maxLegacyRounds bounds the rewrite loop for nested matches, which can only
// be replaced once their enclosing match is gone.
const maxLegacyRounds = 8

func (c *converter) legacy() {
	for _, kind := range legacyOrder {
		h := legacyHandlers[kind]
		if h.enabled != nil && !h.enabled(c.opts) {
			continue
		}
		c.pass = h.pass
		for round := 0; round < maxLegacyRounds; round++ {
			if h.find(c) == 0 {
				break
			}
			before := c.doc.String()
			c.commit()
			if c.doc.String() == before {
				break
			}
		}
	}
}

// stringTypes maps the Qt string classes to their Python replacement; ""
// stands for the configured string type.
var stringTypes = map[string]string{
	"QString":     "",
	"QChar":       "",
	"QStringRef":  "",
	"QStringList": "list",
}

// legacyTarget returns the expression naming a legacy class through the
// identifier n: the identifier itself, or QtCore.<name> when qualified by a
// QtCore reference. ok is false for other positions, such as attributes of
// unrelated objects or definition names.
func (c *converter) legacyTarget(n *tree_sitter.Node) (*tree_sitter.Node, bool) {
	if c.doc.InImport(n) {
		return nil, false
	}
	p := n.Parent()
	if p != nil && p.Kind() == "attribute" && parser.SameNode(p.ChildByFieldName("attribute"), n) {
		obj := p.ChildByFieldName("object")
		if obj == nil || lastSegment(c.doc.Text(obj)) != "QtCore" {
			return nil, false
		}
		return p, true
	}
	if !parser.IsReference(n) {
		return nil, false
	}
	return n, true
}

func lastSegment(path string) string {
	path = compact(path)
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

func (c *converter) legacyStrings() int {
	count := 0
	ids := c.doc.Find([]string{"identifier"}, func(n *tree_sitter.Node) bool {
		_, ok := stringTypes[c.doc.Text(n)]
		return ok
	})
	for _, id := range ids {
		target, ok := c.legacyTarget(id)
		if !ok {
			continue
		}
		repl := stringTypes[c.doc.Text(id)]
		if repl == "" {
			repl = c.opts.StringType
		}
		// QString.fromUtf8(x) becomes str(x).
		if p := parser.ChainParent(target); p != nil && p.Kind() == "attribute" {
			if attr := p.ChildByFieldName("attribute"); attr != nil && c.doc.Text(attr) == "fromUtf8" {
				target = p
			}
		}
		c.replace(target, repl)
		count++
	}
	return count
}

// legacyVariants unwraps QVariant(value) to value, and QVariant() to None.
// Other uses of the class are reported by the unsupported pass.
func (c *converter) legacyVariants() int {
	count := 0
	for _, id := range c.doc.Find([]string{"identifier"}, func(n *tree_sitter.Node) bool {
		return c.doc.Text(n) == "QVariant"
	}) {
		target, ok := c.legacyTarget(id)
		if !ok {
			continue
		}
		call := parser.ChainParent(target)
		if call == nil || call.Kind() != "call" {
			continue
		}
		args := call.ChildByFieldName("arguments")
		if args == nil || args.Kind() != "argument_list" {
			continue
		}
		inner := strings.TrimSpace(c.doc.Text(args))
		inner = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(inner, "("), ")"))
		inner = strings.TrimSuffix(inner, ",")
		if inner == "" {
			inner = "None"
		}
		c.replace(call, inner)
		count++
	}
	return count
}

var toMethods = map[string]bool{
	"toString": true, "toInt": true, "toFloat": true,
	"toBool": true, "toPyObject": true, "toAscii": true,
}

// legacyToMethods drops the API v1 conversion calls: v.toString() becomes v.
func (c *converter) legacyToMethods() int {
	count := 0
	for _, call := range c.doc.Find([]string{"call"}, nil) {
		fn := call.ChildByFieldName("function")
		if fn == nil || fn.Kind() != "attribute" {
			continue
		}
		attr := fn.ChildByFieldName("attribute")
		obj := fn.ChildByFieldName("object")
		if attr == nil || obj == nil || !toMethods[c.doc.Text(attr)] {
			continue
		}
		if hasMatchingAncestor(call, c.isToMethodCall) {
			continue
		}
		c.replace(call, c.doc.Text(obj))
		count++
	}
	return count
}

func (c *converter) isToMethodCall(n *tree_sitter.Node) bool {
	if n.Kind() != "call" {
		return false
	}
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "attribute" {
		return false
	}
	attr := fn.ChildByFieldName("attribute")
	return attr != nil && toMethods[c.doc.Text(attr)]
}

// isSignalCall reports whether n is an old-style connect, disconnect or emit.
func (c *converter) isSignalCall(n *tree_sitter.Node) bool {
	if n.Kind() != "call" {
		return false
	}
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "attribute" {
		return false
	}
	attr := fn.ChildByFieldName("attribute")
	if attr == nil {
		return false
	}
	if _, ok := signals.KindOf(c.doc.Text(attr)); !ok {
		return false
	}
	return strings.Contains(c.doc.Text(n), "SIGNAL")
}

func (c *converter) isRewritableSignalCall(n *tree_sitter.Node) bool {
	if !c.isSignalCall(n) {
		return false
	}
	_, ok := signals.Parse(c.doc.Text(n))
	return ok
}

func (c *converter) legacySignals() int {
	opts := signals.Options{Explicit: c.opts.ExplicitSignals, StringType: c.opts.StringType}
	count := 0
	for _, call := range c.doc.Find([]string{"call"}, c.isSignalCall) {
		if hasMatchingAncestor(call, c.isRewritableSignalCall) {
			continue
		}
		text := c.doc.Text(call)
		out, ok := signals.Rewrite(text, opts)
		if !ok || out == text {
			continue
		}
		c.replace(call, out)
		count++
	}
	return count
}

func hasMatchingAncestor(n *tree_sitter.Node, match func(*tree_sitter.Node) bool) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if match(p) {
			return true
		}
	}
	return false
}
