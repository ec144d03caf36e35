// Package discover finds the Python files a conversion should visit.
package discover

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/digitaldomain/QtPyConvert/internal/lang"
)

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".eggs": true, ".git": true, ".hg": true,
	".idea": true, ".mypy_cache": true, ".nox": true,
	".pytest_cache": true, ".ruff_cache": true, ".svn": true,
	".tox": true, ".venv": true, ".vscode": true,
	"__pycache__": true, "build": true, "dist": true, "env": true,
	"htmlcov": true, "node_modules": true, "site-packages": true,
	"venv": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = map[string]bool{
	".tmp": true, "~": true, ".pyc": true, ".pyo": true,
	".bak": true, ".so": true, ".dll": true,
}

// IgnoreFileName is read from the root when Options.IgnoreFile is empty.
const IgnoreFileName = ".qtpyconvertignore"

// headSize is how much of an extensionless file is read to find a shebang.
const headSize = 256

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to the root, slash separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string   // ignore file path (optional)
	Ignore     []string // extra glob patterns matched against names and relative paths
	Recursive  bool     // descend into subdirectories
}

// shouldSkip returns true if the entry matches a built-in or extra pattern.
func shouldSkip(name, rel string, extraIgnore []string) bool {
	for _, pattern := range extraIgnore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// Detect reports whether path holds Python source: a .py extension, or no
// extension and a python shebang.
func Detect(path string) (lang.Language, bool) {
	if filepath.Ext(path) != "" {
		return lang.Detect(path, nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()
	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", false
	}
	return lang.Detect(path, head[:n])
}

// Discover walks root and returns the Python files below it in lexical order.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{Recursive: true}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ignPath := opts.IgnoreFile
	if ignPath == "" {
		ignPath = filepath.Join(root, IgnoreFileName)
	}
	extraIgnore, _ := loadIgnoreFile(ignPath)
	extraIgnore = append(extraIgnore, opts.Ignore...)

	var files []FileInfo

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || IGNORE_PATTERNS[info.Name()] || shouldSkip(info.Name(), rel, extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		for suffix := range IGNORE_SUFFIXES {
			if strings.HasSuffix(path, suffix) {
				return nil
			}
		}
		if shouldSkip(info.Name(), rel, extraIgnore) {
			return nil
		}

		if l, ok := Detect(path); ok {
			files = append(files, FileInfo{
				Path:     path,
				RelPath:  rel,
				Language: l,
			})
		}
		return nil
	})

	return files, err
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
