// Package introspect enumerates the public members of a binding module, which
// wildcard imports need before they can be rewritten.
package introspect

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
)

// MemberLister returns the public member names of a dotted module path such
// as "PyQt4.QtGui".
type MemberLister interface {
	PublicMembers(ctx context.Context, module string) ([]string, error)
}

// RegistryLister answers from the registry's member tables. It never imports
// anything, so it works without the binding installed.
type RegistryLister struct {
	Registry *bindings.Registry
}

// PublicMembers implements MemberLister. For a bare binding it returns the
// second-level modules.
func (l RegistryLister) PublicMembers(_ context.Context, module string) ([]string, error) {
	reg := l.Registry
	if reg == nil {
		reg = bindings.Default()
	}
	binding, ok := reg.Match(module)
	if !ok {
		return nil, fmt.Errorf("%s is not a supported binding module", module)
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(module, binding), ".")
	if rest == "" {
		return reg.CommonModules(), nil
	}
	if !reg.IsCommonModule(rest) {
		return nil, fmt.Errorf("no member table for %s", module)
	}
	return reg.BindingMembers(binding, rest), nil
}

// PythonLister imports the module in a Python interpreter and lists dir().
type PythonLister struct {
	Python  string        // interpreter, "python" when empty
	Timeout time.Duration // per module, 30s when zero
}

const listScript = `import importlib, sys
m = importlib.import_module(sys.argv[1])
print("\n".join(n for n in dir(m) if not n.startswith("__")))`

// PublicMembers implements MemberLister.
func (l PythonLister) PublicMembers(ctx context.Context, module string) ([]string, error) {
	python := l.Python
	if python == "" {
		python = "python"
	}
	path, err := exec.LookPath(python)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", python, err)
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "-c", listScript, module)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			slog.Debug("introspect.exit", "module", module, "code", exitErr.ExitCode(), "stderr", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("list members of %s: %w", module, err)
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Fallback tries each lister in order and returns the first success.
type Fallback []MemberLister

// PublicMembers implements MemberLister.
func (f Fallback) PublicMembers(ctx context.Context, module string) ([]string, error) {
	var lastErr error
	for _, l := range f {
		names, err := l.PublicMembers(ctx, module)
		if err == nil {
			return names, nil
		}
		slog.Debug("introspect.fallback", "module", module, "err", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no member lister configured")
	}
	return nil, lastErr
}

// Cached memoizes another lister. Safe for concurrent use.
type Cached struct {
	inner MemberLister
	mu    sync.Mutex
	cache map[string][]string
}

// NewCached wraps inner.
func NewCached(inner MemberLister) *Cached {
	return &Cached{inner: inner, cache: make(map[string][]string)}
}

// PublicMembers implements MemberLister. Failures are not cached.
func (c *Cached) PublicMembers(ctx context.Context, module string) ([]string, error) {
	c.mu.Lock()
	names, ok := c.cache[module]
	c.mu.Unlock()
	if ok {
		return names, nil
	}
	names, err := c.inner.PublicMembers(ctx, module)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[module] = names
	c.mu.Unlock()
	return names, nil
}
