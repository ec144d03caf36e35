package bindings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables that extend the default tables.
const (
	EnvCustomBindings  = "QT_CUSTOM_BINDINGS_SUPPORT"
	EnvCustomMisplaced = "QT_CUSTOM_MISPLACED_MEMBERS"
)

// OptionsFromEnv reads custom bindings (an os.PathListSeparator separated
// list) and custom relocations (JSON) from the environment.
func OptionsFromEnv() (Options, error) {
	var opts Options
	if v := os.Getenv(EnvCustomBindings); v != "" {
		opts.CustomBindings = filepath.SplitList(v)
	}
	if v := os.Getenv(EnvCustomMisplaced); v != "" {
		rel, err := ParseRelocations([]byte(v))
		if err != nil {
			return opts, fmt.Errorf("%s: %w", EnvCustomMisplaced, err)
		}
		opts.CustomRelocations = rel
	}
	return opts, nil
}

// ParseRelocations decodes {"binding": {"old.path": "new.path" | ["new.path", extra]}}.
func ParseRelocations(data []byte) (map[string]map[string]Relocation, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode relocations: %w", err)
	}
	out := make(map[string]map[string]Relocation, len(raw))
	for binding, table := range raw {
		dst := make(map[string]Relocation, len(table))
		for old, value := range table {
			rel, err := decodeRelocation(value)
			if err != nil {
				return nil, fmt.Errorf("relocation %s %s: %w", binding, old, err)
			}
			dst[old] = rel
		}
		out[binding] = dst
	}
	return out, nil
}

func decodeRelocation(value json.RawMessage) (Relocation, error) {
	var target string
	if err := json.Unmarshal(value, &target); err == nil {
		return Relocation{Target: target}, nil
	}
	var pair []any
	if err := json.Unmarshal(value, &pair); err != nil {
		return Relocation{}, fmt.Errorf("expected string or [target, extra]: %w", err)
	}
	if len(pair) == 0 {
		return Relocation{}, fmt.Errorf("empty relocation")
	}
	target, ok := pair[0].(string)
	if !ok {
		return Relocation{}, fmt.Errorf("relocation target must be a string")
	}
	rel := Relocation{Target: target}
	if len(pair) > 1 && pair[1] != nil {
		if s, ok := pair[1].(string); ok {
			rel.Extra = s
		} else {
			b, _ := json.Marshal(pair[1])
			rel.Extra = string(b)
		}
	}
	return rel, nil
}

// Merge returns a copy of o with other's entries added; other wins per key.
func (o Options) Merge(other Options) Options {
	out := Options{
		CustomBindings:    append(append([]string(nil), o.CustomBindings...), other.CustomBindings...),
		CustomRelocations: make(map[string]map[string]Relocation),
	}
	for _, src := range []map[string]map[string]Relocation{o.CustomRelocations, other.CustomRelocations} {
		for binding, table := range src {
			dst := out.CustomRelocations[binding]
			if dst == nil {
				dst = make(map[string]Relocation, len(table))
				out.CustomRelocations[binding] = dst
			}
			for k, v := range table {
				dst[k] = v
			}
		}
	}
	return out
}

// String renders a relocation for logs.
func (r Relocation) String() string {
	if r.Extra == "" {
		return r.Target
	}
	return r.Target + " (" + strings.TrimSpace(r.Extra) + ")"
}
