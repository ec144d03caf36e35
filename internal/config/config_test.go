package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/digitaldomain/QtPyConvert/internal/bindings"
	"github.com/digitaldomain/QtPyConvert/internal/introspect"
)

func TestLoadConfigDefault(t *testing.T) {
	cfg := LoadConfig("/nonexistent/path")
	if cfg.EffectiveToMethods() || cfg.EffectiveExplicitSignals() || cfg.EffectiveIntrospect() {
		t.Error("expected boolean settings off by default")
	}
	if cfg.EffectiveStringType() != "str" {
		t.Errorf("expected default string type str, got %q", cfg.EffectiveStringType())
	}
	if cfg.EffectivePython() != "python" {
		t.Errorf("expected default python, got %q", cfg.EffectivePython())
	}
	if cfg.EffectiveJobs() != runtime.NumCPU() {
		t.Errorf("expected %d jobs, got %d", runtime.NumCPU(), cfg.EffectiveJobs())
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	configContent := `
custom_bindings:
  - MyQt
misplaced_members:
  MyQt:
    QtGui.QFancy: QtWidgets.QWidget
    QtCore.qOld: [QtCompat.qNew, "signature differs"]
to_methods: true
explicit_signals: true
string_type: unicode
introspect: true
python: python2
jobs: 3
ignore:
  - "*_rc.py"
journal: /tmp/j.db
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(configContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig(dir)
	if !cfg.EffectiveToMethods() || !cfg.EffectiveExplicitSignals() || !cfg.EffectiveIntrospect() {
		t.Error("expected boolean settings on")
	}
	if cfg.EffectiveStringType() != "unicode" || cfg.EffectivePython() != "python2" || cfg.EffectiveJobs() != 3 {
		t.Errorf("unexpected settings: %+v", cfg)
	}
	if len(cfg.Ignore) != 1 || cfg.Journal != "/tmp/j.db" {
		t.Errorf("unexpected ignore/journal: %+v", cfg)
	}
	rel := cfg.MisplacedMembers["MyQt"]["QtCore.qOld"]
	if rel.Target != "QtCompat.qNew" || rel.Extra != "signature differs" {
		t.Errorf("unexpected relocation: %+v", rel)
	}

	opts, err := cfg.ConvertOptions()
	if err != nil {
		t.Fatalf("ConvertOptions: %v", err)
	}
	if _, ok := opts.Registry.Match("MyQt.QtGui"); !ok {
		t.Error("custom binding not registered")
	}
	if got := opts.Registry.RelocationsFor("MyQt")["QtGui.QFancy"].Target; got != "QtWidgets.QWidget" {
		t.Errorf("custom relocation = %q", got)
	}
	if _, ok := opts.Lister.(*introspect.Cached); !ok {
		t.Errorf("introspect should use a cached python lister, got %T", opts.Lister)
	}
	if !opts.ToMethods || !opts.ExplicitSignals || opts.StringType != "unicode" {
		t.Errorf("unexpected convert options: %+v", opts)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("to_methods: [valid: yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := LoadConfig(dir)
	if cfg.EffectiveToMethods() {
		t.Error("expected defaults on invalid yaml")
	}
	if _, err := LoadFile(filepath.Join(dir, FileName)); err == nil {
		t.Error("LoadFile should report invalid yaml")
	}
}

func TestRelocationValueRejectsMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	if err := os.WriteFile(path, []byte("misplaced_members:\n  B:\n    a.b: {x: 1}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected an error for a mapping relocation")
	}
}

func TestRegistryOptionsEnvWins(t *testing.T) {
	t.Setenv(bindings.EnvCustomBindings, "EnvQt")
	t.Setenv(bindings.EnvCustomMisplaced, `{"MyQt": {"QtGui.QFancy": "QtGui.QColor"}}`)

	cfg := &Config{
		CustomBindings: []string{"MyQt"},
		MisplacedMembers: map[string]map[string]RelocationValue{
			"MyQt": {"QtGui.QFancy": {Target: "QtWidgets.QWidget"}},
		},
	}
	opts, err := cfg.RegistryOptions()
	if err != nil {
		t.Fatalf("RegistryOptions: %v", err)
	}
	if len(opts.CustomBindings) != 2 {
		t.Errorf("bindings = %v, want file and env entries", opts.CustomBindings)
	}
	if got := opts.CustomRelocations["MyQt"]["QtGui.QFancy"].Target; got != "QtGui.QColor" {
		t.Errorf("relocation = %q, want the environment value", got)
	}

	t.Setenv(bindings.EnvCustomMisplaced, "{broken")
	if _, err := cfg.ConvertOptions(); err == nil {
		t.Error("expected an error for invalid environment JSON")
	}
}

func TestConvertOptionsDefaultRegistry(t *testing.T) {
	t.Setenv(bindings.EnvCustomBindings, "")
	t.Setenv(bindings.EnvCustomMisplaced, "")
	opts, err := DefaultConfig().ConvertOptions()
	if err != nil {
		t.Fatalf("ConvertOptions: %v", err)
	}
	if opts.Registry != bindings.Default() {
		t.Error("expected the shared default registry without overrides")
	}
	if _, ok := opts.Lister.(introspect.RegistryLister); !ok {
		t.Errorf("expected the registry lister, got %T", opts.Lister)
	}
}
