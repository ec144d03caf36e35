package convert

import (
	"log/slog"
	"sort"
	"strings"
)

// mergeRelocations folds the relocation tables of every imported binding
// into the mapping. A mapping value that names a relocated member is
// rewritten in place; otherwise the relocation becomes a mapping of its own.
func (c *converter) mergeRelocations() {
	c.pass = PassMappings
	for _, binding := range c.aliases.Bindings.Sorted() {
		table := c.reg.RelocationsFor(binding)
		if len(table) == 0 {
			slog.Debug("convert.mappings", "binding", binding, "relocations", 0)
			continue
		}
		olds := make([]string, 0, len(table))
		for old := range table {
			olds = append(olds, old)
		}
		sort.Strings(olds)
		for _, old := range olds {
			rel := table[old]
			if rel.Extra != "" {
				slog.Debug("convert.relocation", "from", old, "to", rel.String())
			}
			replaced := false
			for key, value := range c.mapping {
				if value == old {
					c.mapping[key] = rel.Target
					replaced = true
				}
			}
			if !replaced {
				c.mapping[old] = rel.Target
			}
		}
	}
}

// normalizeMappings points "Module.Member" values at the module that owns
// the member in the shim, e.g. QtGui.QWidget becomes QtWidgets.QWidget.
func (c *converter) normalizeMappings() {
	for key, value := range c.mapping {
		parts := strings.Split(value, ".")
		if len(parts) < 2 {
			continue
		}
		module, member := parts[len(parts)-2], parts[len(parts)-1]
		if !c.reg.IsCommonModule(module) {
			continue
		}
		owner, ok := c.reg.CommonModuleOf(member)
		if !ok || owner == module || c.reg.Owns(module, member) {
			continue
		}
		parts[len(parts)-2] = owner
		c.mapping[key] = strings.Join(parts, ".")
		slog.Debug("convert.normalize", "key", key, "from", value, "to", c.mapping[key])
	}
}

// normalizeKeys adds the shim spelling of relocation keys that name a member
// of a moved class, so QtGui.QApplication.translate still matches once a
// from-import has turned QApplication into QtWidgets.QApplication.
func (c *converter) normalizeKeys() {
	for _, key := range sortedKeys(c.mapping) {
		parts := strings.Split(key, ".")
		if len(parts) < 3 || !c.reg.IsCommonModule(parts[0]) {
			continue
		}
		owner, ok := c.reg.CommonModuleOf(parts[1])
		if !ok || owner == parts[0] || c.reg.Owns(parts[0], parts[1]) {
			continue
		}
		parts[0] = owner
		alt := strings.Join(parts, ".")
		if _, exists := c.mapping[alt]; !exists {
			c.mapping[alt] = c.mapping[key]
		}
	}
}
