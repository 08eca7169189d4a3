package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults for the [check] section when ember.toml omits them.
const (
	DefaultMaxDiagnostics     = 100
	DefaultInstantiationDepth = 32
)

// Manifest is a loaded ember.toml together with where it was found.
type Manifest struct {
	Path   string // absolute path to ember.toml
	Root   string // directory containing it
	Config Config
}

// Config mirrors the ember.toml schema.
type Config struct {
	Package PackageConfig     `toml:"package"`
	Check   CheckConfig       `toml:"check"`
	Modules map[string]string `toml:"modules"`
}

type PackageConfig struct {
	Name string `toml:"name"`
	Root string `toml:"root"`
}

type CheckConfig struct {
	MaxDiagnostics     int  `toml:"max_diagnostics"`
	InstantiationDepth int  `toml:"instantiation_depth"`
	WarningsAsErrors   bool `toml:"warnings_as_errors"`
}

// FindEmberToml walks up from startDir to locate ember.toml.
func FindEmberToml(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "ember.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindProjectRoot returns the directory containing ember.toml, if any.
func FindProjectRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := FindEmberToml(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}

// LoadManifest finds and parses the nearest ember.toml above startDir.
// ok is false when no manifest exists; err covers unreadable or invalid ones.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindEmberToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

// LoadConfig parses and validates one ember.toml file.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Check: CheckConfig{
			MaxDiagnostics:     DefaultMaxDiagnostics,
			InstantiationDepth: DefaultInstantiationDepth,
		},
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if !IsValidModuleIdent(cfg.Package.Name) {
		return Config{}, fmt.Errorf("%s: invalid [package].name %q", path, cfg.Package.Name)
	}
	if cfg.Check.MaxDiagnostics < 0 {
		return Config{}, fmt.Errorf("%s: [check].max_diagnostics must not be negative", path)
	}
	if cfg.Check.InstantiationDepth < 1 {
		return Config{}, fmt.Errorf("%s: [check].instantiation_depth must be at least 1", path)
	}
	for name := range cfg.Modules {
		if _, err := NormalizeModulePath(name); err != nil {
			return Config{}, fmt.Errorf("%s: invalid module path %q in [modules]", path, name)
		}
	}
	return cfg, nil
}
