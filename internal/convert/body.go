package convert

import (
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/digitaldomain/QtPyConvert/internal/parser"
)

// sortedKeys orders mapping keys by length, then lexicographically. Shorter
// keys run first so that alias rewrites such as PyQt4.QtGui -> QtGui are in
// place before longer relocation keys that start with the rewritten text.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// hasPathPrefix reports whether text starts with key followed by the end of
// text or by an attribute, call or subscript.
func hasPathPrefix(text, key string) bool {
	if !strings.HasPrefix(text, key) {
		return false
	}
	if len(text) == len(key) {
		return true
	}
	switch text[len(key)] {
	case '.', '(', '[':
		return true
	}
	return false
}

// body applies the mapping to references outside import statements, one
// key at a time.
func (c *converter) body() {
	c.pass = PassBody
	for _, key := range sortedKeys(c.mapping) {
		value := c.mapping[key]
		if strings.Contains(key, ".") {
			c.bodyPath(key, value)
		} else {
			c.bodyName(key, value)
		}
		c.commit()
	}
}

// bodyPath rewrites chains whose text starts with a dotted key. Only the
// key's bytes are replaced so that nested chains stay addressable.
func (c *converter) bodyPath(key, value string) {
	for _, chain := range c.doc.Chains() {
		if c.doc.InImport(chain) {
			continue
		}
		text := c.doc.Text(chain)
		if !hasPathPrefix(text, key) {
			continue
		}
		if key == value {
			c.recordUsed(text)
			continue
		}
		start := chain.StartByte()
		c.replaceRange(start, start+uint(len(key)), int(chain.StartPosition().Row), value)
		c.recordUsed(value)
	}
}

// bodyName rewrites identifiers equal to key in reference position.
func (c *converter) bodyName(key, value string) {
	ids := c.doc.Find([]string{"identifier"}, func(n *tree_sitter.Node) bool {
		return c.doc.Text(n) == key && parser.IsReference(n) && !c.doc.InImport(n)
	})
	for _, id := range ids {
		if key == value {
			c.recordUsed(key)
			continue
		}
		c.replaceRoot(id, value)
		c.recordUsed(value)
	}
}
