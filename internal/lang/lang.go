package lang

import (
	"bytes"
	"path/filepath"
)

// Language represents a source language the converter understands.
type Language string

const (
	Python Language = "python"
)

// LanguageSpec defines the file detection rules and tree-sitter node types for a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string
	// ShebangMarkers are substrings of a "#!" first line that identify the
	// language for extensionless scripts.
	ShebangMarkers []string

	ModuleNodeTypes []string
	ImportNodeTypes []string
	ImportFromTypes []string
	// ChainNodeTypes are the postfix expression kinds that form a dotted
	// reference chain (a.b, a(b), a[b]).
	ChainNodeTypes []string
	// BlockNodeTypes are statement containers that must never become empty.
	BlockNodeTypes []string
	// DefinitionNodeTypes name things rather than reference them.
	DefinitionNodeTypes []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

var specs []*LanguageSpec

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
	specs = append(specs, spec)
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range specs {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// Detect identifies the language of a file from its name, falling back to the
// shebang line in head for files without a known extension.
func Detect(path string, head []byte) (Language, bool) {
	if l, ok := LanguageForExtension(filepath.Ext(path)); ok {
		return l, true
	}
	if filepath.Ext(path) != "" || !bytes.HasPrefix(head, []byte("#!")) {
		return "", false
	}
	first := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		first = head[:i]
	}
	for _, spec := range specs {
		for _, marker := range spec.ShebangMarkers {
			if bytes.Contains(first, []byte(marker)) {
				return spec.Language, true
			}
		}
	}
	return "", false
}

// Contains reports whether kind is one of kinds.
func Contains(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
