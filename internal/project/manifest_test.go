package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "ember.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[package]
name = "demo"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Package.Name != "demo" {
		t.Fatalf("name = %q", cfg.Package.Name)
	}
	if cfg.Check.MaxDiagnostics != DefaultMaxDiagnostics {
		t.Fatalf("max_diagnostics = %d, want default %d", cfg.Check.MaxDiagnostics, DefaultMaxDiagnostics)
	}
	if cfg.Check.InstantiationDepth != DefaultInstantiationDepth {
		t.Fatalf("instantiation_depth = %d, want default %d", cfg.Check.InstantiationDepth, DefaultInstantiationDepth)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[package]
name = "demo"

[check]
max_diagnostics = 5
instantiation_depth = 8
warnings_as_errors = true

[modules]
"app/main" = "src/main.emt"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Check.MaxDiagnostics != 5 || cfg.Check.InstantiationDepth != 8 || !cfg.Check.WarningsAsErrors {
		t.Fatalf("unexpected check config: %+v", cfg.Check)
	}
	if cfg.Modules["app/main"] != "src/main.emt" {
		t.Fatalf("modules = %v", cfg.Modules)
	}
}

func TestLoadConfigRejectsBadManifests(t *testing.T) {
	bad := []struct {
		name string
		body string
	}{
		{name: "missing package", body: `[check]` + "\n" + `max_diagnostics = 1`},
		{name: "missing name", body: `[package]` + "\n" + `root = "src"`},
		{name: "invalid name", body: `[package]` + "\n" + `name = "has-dash"`},
		{name: "bad depth", body: `[package]` + "\n" + `name = "demo"` + "\n\n" + `[check]` + "\n" + `instantiation_depth = 0`},
		{name: "bad module path", body: `[package]` + "\n" + `name = "demo"` + "\n\n" + `[modules]` + "\n" + `"a//b" = "x.emt"`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			if _, err := LoadConfig(path); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestFindEmberTomlWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"demo\"\n")
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path, ok, err := FindEmberToml(nested)
	if err != nil {
		t.Fatalf("FindEmberToml: %v", err)
	}
	if !ok {
		t.Fatalf("expected manifest to be found")
	}
	want := filepath.Join(root, "ember.toml")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	m, ok, err := LoadManifest(nested)
	if err != nil || !ok {
		t.Fatalf("LoadManifest: ok=%v err=%v", ok, err)
	}
	if m.Root != root {
		t.Fatalf("root = %q, want %q", m.Root, root)
	}
}
