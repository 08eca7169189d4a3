package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/astcodec"
	"ember/internal/diag"
	"ember/internal/diagfmt"
	"ember/internal/driver"
	"ember/internal/project"
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Check a project or a single unit file",
	Long: `Check runs the semantic checker over every module of the nearest
ember.toml project, or over one compiled unit when given a *.emt file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("json", false, "emit diagnostics as JSON")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().Int("jobs", 0, "max parallel module checks (0=auto)")
	checkCmd.Flags().Int("depth", 0, "generic instantiation depth limit (0=manifest or default)")
	checkCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	checkCmd.Flags().Bool("disk-cache", false, "reuse clean verdicts from the disk cache")
	checkCmd.Flags().String("emit", "", "directory for annotated output of clean modules")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	opts := driver.Options{}
	opts.Jobs, _ = cmd.Flags().GetInt("jobs")
	opts.InstantiationDepth, _ = cmd.Flags().GetInt("depth")
	opts.MaxDiagnostics, _ = cmd.Root().PersistentFlags().GetInt("max-diagnostics")

	if strings.HasSuffix(target, astcodec.UnitExt) {
		return checkSingleUnit(cmd, target, opts)
	}

	manifest, ok, err := project.LoadManifest(target)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no ember.toml found above %s", target)
	}

	if useCache, _ := cmd.Flags().GetBool("disk-cache"); useCache {
		cache, err := driver.OpenDiskCache("ember")
		if err != nil {
			return err
		}
		opts.Cache = cache
	}

	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	var result *driver.ProjectResult
	if shouldUseTUI(mode) {
		result, err = checkProjectWithUI(cmd.Context(), manifest, opts)
	} else {
		result, err = driver.CheckProject(cmd.Context(), manifest, opts)
	}
	if err != nil {
		return err
	}

	return reportProject(cmd, manifest, result)
}

func checkSingleUnit(cmd *cobra.Command, path string, opts driver.Options) error {
	b, err := astcodec.ReadUnitFile(path)
	if err != nil {
		return err
	}
	res := driver.CheckUnit(b, nil, opts)
	res.File = path
	if err := printDiagnostics(cmd, res.Bag); err != nil {
		return err
	}
	if err := maybeEmit(cmd, res); err != nil {
		return err
	}
	return verdict(cmd, res.Bag.HasErrors(), res.Bag.HasWarnings())
}

func reportProject(cmd *cobra.Command, manifest *project.Manifest, result *driver.ProjectResult) error {
	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")

	anyErrors := false
	anyWarnings := false
	for _, u := range result.Units {
		if u.Bag.Len() == 0 {
			continue
		}
		anyErrors = anyErrors || u.Bag.HasErrors()
		anyWarnings = anyWarnings || u.Bag.HasWarnings()
		if !asJSON {
			fmt.Fprintf(out, "module %s:\n", u.Path)
		}
		if err := printDiagnostics(cmd, u.Bag); err != nil {
			return err
		}
	}

	for _, u := range result.Units {
		if !u.Broken {
			if err := maybeEmit(cmd, u); err != nil {
				return err
			}
		}
	}

	wae, _ := cmd.Flags().GetBool("warnings-as-errors")
	wae = wae || manifest.Config.Check.WarningsAsErrors
	if wae && anyWarnings {
		anyErrors = true
	}
	if anyErrors {
		return fmt.Errorf("check failed")
	}
	if !asJSON {
		fmt.Fprintf(out, "checked %d modules\n", len(result.Units))
	}
	return nil
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag) error {
	out := cmd.OutOrStdout()
	withNotes, _ := cmd.Flags().GetBool("with-notes")
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return diagfmt.JSON(out, bag, nil, diagfmt.JSONOpts{IncludeNotes: withNotes})
	}
	diagfmt.Pretty(out, bag, nil, diagfmt.PrettyOpts{
		Color:     useColor(cmd),
		ShowNotes: withNotes,
	})
	return nil
}

func maybeEmit(cmd *cobra.Command, u *driver.UnitResult) error {
	dir, _ := cmd.Flags().GetString("emit")
	if dir == "" || u.Sema == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	name := strings.ReplaceAll(u.Path, "/", "_") + ".emc"
	return astcodec.WriteCheckedFile(filepath.Join(dir, name), u.Builder, u.Sema, u.Warnings())
}

func verdict(cmd *cobra.Command, hasErrors, hasWarnings bool) error {
	wae, _ := cmd.Flags().GetBool("warnings-as-errors")
	if hasErrors || (wae && hasWarnings) {
		return fmt.Errorf("check failed")
	}
	return nil
}
