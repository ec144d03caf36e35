// Package config loads .qtpyconvert.yaml and turns it, together with the
// environment, into conversion options.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/convert"
	"github.com/digitaldomain/QtPyConvert/internal/introspect"
)

// FileName is looked up in the directory being converted.
const FileName = ".qtpyconvert.yaml"

// Config holds user-overridable settings. Pointer fields distinguish "unset"
// from the zero value; use the Effective accessors.
type Config struct {
	// CustomBindings are extra binding names, converted like PyQt5.
	CustomBindings []string `yaml:"custom_bindings"`
	// MisplacedMembers adds relocations per binding: old path to new path,
	// or to [new path, note].
	MisplacedMembers map[string]map[string]RelocationValue `yaml:"misplaced_members"`

	ToMethods       *bool  `yaml:"to_methods"`
	ExplicitSignals *bool  `yaml:"explicit_signals"`
	StringType      string `yaml:"string_type"`

	// Introspect lists wildcard imports by importing the binding in Python
	// before falling back to the built-in tables.
	Introspect *bool  `yaml:"introspect"`
	Python     string `yaml:"python"`

	Jobs    *int     `yaml:"jobs"`
	Ignore  []string `yaml:"ignore"`
	Journal string   `yaml:"journal"`
}

// RelocationValue decodes either "new.path" or ["new.path", "note"].
type RelocationValue bindings.Relocation

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RelocationValue) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		r.Target = value.Value
		return nil
	case yaml.SequenceNode:
		if len(value.Content) == 0 || value.Content[0].Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: relocation needs a target", value.Line)
		}
		r.Target = value.Content[0].Value
		if len(value.Content) > 1 {
			r.Extra = value.Content[1].Value
		}
		return nil
	}
	return fmt.Errorf("line %d: expected a path or [path, note]", value.Line)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig reads FileName from the given directory. Returns the default
// config if the file doesn't exist or is invalid.
func LoadConfig(dir string) *Config {
	cfg, err := LoadFile(filepath.Join(dir, FileName))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("config.load", "dir", dir, "err", err)
		}
		return DefaultConfig()
	}
	return cfg
}

// LoadFile reads a config file at an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// EffectiveToMethods returns the configured setting, or false.
func (c *Config) EffectiveToMethods() bool {
	return c.ToMethods != nil && *c.ToMethods
}

// EffectiveExplicitSignals returns the configured setting, or false.
func (c *Config) EffectiveExplicitSignals() bool {
	return c.ExplicitSignals != nil && *c.ExplicitSignals
}

// EffectiveStringType returns the replacement for QString, "str" by default.
func (c *Config) EffectiveStringType() string {
	if c.StringType != "" {
		return c.StringType
	}
	return "str"
}

// EffectiveIntrospect returns the configured setting, or false.
func (c *Config) EffectiveIntrospect() bool {
	return c.Introspect != nil && *c.Introspect
}

// EffectivePython returns the interpreter used for introspection.
func (c *Config) EffectivePython() string {
	if c.Python != "" {
		return c.Python
	}
	return "python"
}

// EffectiveJobs returns the configured parallelism, or the CPU count.
func (c *Config) EffectiveJobs() int {
	if c.Jobs != nil && *c.Jobs > 0 {
		return *c.Jobs
	}
	return runtime.NumCPU()
}

// RegistryOptions returns the file's binding overrides merged with the
// environment ones (the environment wins per key).
func (c *Config) RegistryOptions() (bindings.Options, error) {
	file := bindings.Options{CustomBindings: c.CustomBindings}
	if len(c.MisplacedMembers) > 0 {
		file.CustomRelocations = make(map[string]map[string]bindings.Relocation, len(c.MisplacedMembers))
		for binding, table := range c.MisplacedMembers {
			dst := make(map[string]bindings.Relocation, len(table))
			for old, rel := range table {
				dst[old] = bindings.Relocation(rel)
			}
			file.CustomRelocations[binding] = dst
		}
	}
	env, err := bindings.OptionsFromEnv()
	if err != nil {
		return file, err
	}
	return file.Merge(env), nil
}

// ConvertOptions builds the options of a conversion from c and the
// environment.
func (c *Config) ConvertOptions() (convert.Options, error) {
	regOpts, err := c.RegistryOptions()
	if err != nil {
		return convert.Options{}, err
	}
	reg := bindings.Default()
	if len(regOpts.CustomBindings) > 0 || len(regOpts.CustomRelocations) > 0 {
		reg = bindings.New(regOpts)
	}
	var lister introspect.MemberLister = introspect.RegistryLister{Registry: reg}
	if c.EffectiveIntrospect() {
		lister = introspect.NewCached(introspect.Fallback{
			introspect.PythonLister{Python: c.EffectivePython()},
			lister,
		})
	}
	return convert.Options{
		Registry:        reg,
		Lister:          lister,
		ToMethods:       c.EffectiveToMethods(),
		ExplicitSignals: c.EffectiveExplicitSignals(),
		StringType:      c.EffectiveStringType(),
	}, nil
}
