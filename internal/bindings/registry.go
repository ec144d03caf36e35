// Package bindings describes the Qt bindings the converter understands and
// where their members live in the Qt shim.
package bindings

import (
	"sort"
	"strings"
	"sync"
)

const (
	// Shim is the module every binding is converted to.
	Shim = "Qt"
	// CompatModule holds the shim's replacements for binding-specific helpers.
	CompatModule = "QtCompat"
)

// DefaultBindings are the bindings supported without configuration.
var DefaultBindings = []string{"PySide2", "PySide", "PyQt5", "PyQt4"}

// supplementaryModules are interop helpers imported next to a binding whose
// members the shim absorbs into QtCompat.
var supplementaryModules = []string{"sip", "shiboken", "shiboken2"}

// Relocation is the new location of a member whose path differs between
// binding versions. Extra carries a note about behavior that differs at the
// new location; most relocations have none.
type Relocation struct {
	Target string
	Extra  string
}

// Options extends the default tables.
type Options struct {
	CustomBindings    []string
	CustomRelocations map[string]map[string]Relocation
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	bindings      []string
	modules       []string
	members       map[string]map[string]bool
	owner         map[string]string
	relocations   map[string]map[string]Relocation
	supplementary map[string]bool
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the built-in tables only.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New(Options{})
	})
	return defaultReg
}

// New builds a registry from the built-in tables merged with opts.
func New(opts Options) *Registry {
	r := &Registry{
		members:       make(map[string]map[string]bool, len(commonMembers)),
		owner:         make(map[string]string),
		relocations:   make(map[string]map[string]Relocation),
		supplementary: make(map[string]bool, len(supplementaryModules)),
	}

	seen := map[string]bool{}
	for _, b := range append(append([]string(nil), DefaultBindings...), opts.CustomBindings...) {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		r.bindings = append(r.bindings, b)
	}
	// Longest first so PySide2 is tried before PySide.
	sort.SliceStable(r.bindings, func(i, j int) bool {
		return len(r.bindings[i]) > len(r.bindings[j])
	})

	for module := range commonMembers {
		r.modules = append(r.modules, module)
	}
	sort.Strings(r.modules)
	for _, module := range r.modules {
		set := make(map[string]bool, len(commonMembers[module]))
		for _, m := range commonMembers[module] {
			set[m] = true
			if _, taken := r.owner[m]; !taken {
				r.owner[m] = module
			}
		}
		r.members[module] = set
	}

	for binding, table := range misplacedMembers {
		r.relocations[binding] = copyRelocations(table)
	}
	for binding, table := range opts.CustomRelocations {
		dst := r.relocations[binding]
		if dst == nil {
			dst = make(map[string]Relocation, len(table))
			r.relocations[binding] = dst
		}
		for old, rel := range table {
			dst[old] = rel
		}
	}

	for _, m := range supplementaryModules {
		r.supplementary[m] = true
	}
	return r
}

func copyRelocations(src map[string]Relocation) map[string]Relocation {
	dst := make(map[string]Relocation, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Bindings returns the supported bindings, longest name first.
func (r *Registry) Bindings() []string {
	return append([]string(nil), r.bindings...)
}

// Match returns the longest supported binding that text starts with, where
// the binding is either the whole text or followed by a dot.
func (r *Registry) Match(text string) (string, bool) {
	for _, b := range r.bindings {
		if text == b || strings.HasPrefix(text, b+".") {
			return b, true
		}
	}
	return "", false
}

// RelocationsFor returns a copy of the relocation table of a binding.
func (r *Registry) RelocationsFor(binding string) map[string]Relocation {
	return copyRelocations(r.relocations[binding])
}

// CommonModuleOf returns the module that owns member. When several modules
// list the member, the first in alphabetical order wins.
func (r *Registry) CommonModuleOf(member string) (string, bool) {
	m, ok := r.owner[member]
	return m, ok
}

// Owns reports whether module lists member.
func (r *Registry) Owns(module, member string) bool {
	return r.members[module][member]
}

// IsCommonModule reports whether name is a second-level module with a member table.
func (r *Registry) IsCommonModule(name string) bool {
	_, ok := r.members[name]
	return ok
}

// IsShimModule reports whether name can appear in a "from Qt import" line.
func (r *Registry) IsShimModule(name string) bool {
	return name == CompatModule || r.IsCommonModule(name)
}

// CommonModules returns the second-level modules in alphabetical order.
func (r *Registry) CommonModules() []string {
	return append([]string(nil), r.modules...)
}

// Members returns the sorted member names of module.
func (r *Registry) Members(module string) []string {
	out := make([]string, 0, len(r.members[module]))
	for m := range r.members[module] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// qt4Bindings ship the widget, print support and proxy model classes in QtGui.
var qt4Bindings = map[string]bool{"PyQt4": true, "PySide": true}

// BindingMembers returns the sorted members that binding exposes in module.
func (r *Registry) BindingMembers(binding, module string) []string {
	if module != "QtGui" || !qt4Bindings[binding] {
		return r.Members(module)
	}
	set := map[string]bool{}
	for _, m := range []string{"QtGui", "QtWidgets", "QtPrintSupport"} {
		for name := range r.members[m] {
			set[name] = true
		}
	}
	for _, name := range proxyModels {
		set[name] = true
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsSupplementary reports whether name is an interop helper module such as sip.
func (r *Registry) IsSupplementary(name string) bool {
	return r.supplementary[name]
}
