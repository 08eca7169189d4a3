package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new ember project",
	Long: `Initialize a new ember project by creating a project manifest (ember.toml)
and a source directory. If [path|name] is omitted, initializes the current
directory. If a non-existing name is provided, a directory will be created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// runInit creates ember.toml and a src/ directory at the target path. The
// package name is derived from the directory basename; initialization is
// refused when a manifest already exists anywhere at the target.
func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if !project.IsValidModuleIdent(name) {
		name = "ember_project"
	}

	manifestPath := filepath.Join(target, "ember.toml")
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}

	if err := os.WriteFile(manifestPath, []byte(buildDefaultManifest(name)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	srcDir := filepath.Join(target, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return fmt.Errorf("failed to create source directory: %w", err)
	}

	mainPath := filepath.Join(srcDir, "main.em")
	createdMain := false
	if _, err := os.Stat(mainPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(mainPath, []byte(defaultMainEM()), 0o600); err != nil {
			return fmt.Errorf("failed to write main.em: %w", err)
		}
		createdMain = true
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, target); err2 == nil {
			rel = r
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized ember project in %s\n", rel)
	fmt.Fprintf(out, "  - ember.toml\n")
	if createdMain {
		fmt.Fprintf(out, "  - src/main.em\n")
	} else {
		fmt.Fprintf(out, "  - src/main.em (existing)\n")
	}
	return nil
}

func buildDefaultManifest(name string) string {
	return fmt.Sprintf(`# Ember project manifest
[package]
name = "%s"
root = "src"

[check]
max_diagnostics = %d
instantiation_depth = %d
`, name, project.DefaultMaxDiagnostics, project.DefaultInstantiationDepth)
}

func defaultMainEM() string {
	return `// Ember hello world (placeholder)

fn main() {
    print("Hello, Ember!");
}
`
}
