package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jpequegn/polybench/internal/project"
)

// initCmd, newCmd, buildCmd, and addCmd are deliberately thin: project
// scaffolding and dependency-installation shims are a Non-goal (spec
// §1). Each delegates the one call internal/project actually supports
// — reading and validating an existing manifest — rather than growing
// real scaffolding logic.

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Validate an existing project manifest (scaffolding is out of scope)",
	Long: `Polybench does not scaffold new projects. "init" only checks that a
polybench.toml manifest already present in the working directory is
well-formed, the way a real "init" command's first run would.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateManifest("polybench.toml")
	},
}

var newCmd = &cobra.Command{
	Use:   "new [manifest-path]",
	Short: "Validate a manifest at the given path (scaffolding is out of scope)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "polybench.toml"
		if len(args) == 1 {
			path = args[0]
		}
		return validateManifest(path)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [manifest-path]",
	Short: "Report which languages a manifest enables (dependency installation is out of scope)",
	Long: `Polybench does not install per-language dependencies for you. "build"
loads the manifest and reports which languages it enables, the
information a real build step would use to decide what to install.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "polybench.toml"
		if len(args) == 1 {
			path = args[0]
		}
		m, err := project.Load(afero.NewOsFs(), path)
		if err != nil {
			return &ExitCodeError{Code: 1, Err: err}
		}
		if errs := project.Validate(m); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			return &ExitCodeError{Code: 1, Err: fmt.Errorf("%s failed validation", path)}
		}
		fmt.Printf("%s enables: %v\n", m.Name, m.EnabledLanguages())
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <language> <name> <version>",
	Short: "Report what adding a dependency would require (manifest writing is out of scope)",
	Long: `Polybench does not write to the manifest for you. "add" only confirms
the named language is one the manifest tracks, echoing the dependency
line a real "add" command would insert.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, name, version := args[0], args[1], args[2]
		m, err := project.Load(afero.NewOsFs(), "polybench.toml")
		if err != nil {
			return &ExitCodeError{Code: 1, Err: err}
		}
		found := false
		for _, l := range m.EnabledLanguages() {
			if string(l) == lang {
				found = true
			}
		}
		if !found {
			return &ExitCodeError{Code: 1, Err: fmt.Errorf("project: language %q is not enabled in the manifest", lang)}
		}
		fmt.Printf("would add %s %s = %q under [%s]\n", name, lang, version, lang)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd, newCmd, buildCmd, addCmd)
}

func validateManifest(path string) error {
	m, err := project.Load(afero.NewOsFs(), path)
	if err != nil {
		return &ExitCodeError{Code: 1, Err: err}
	}
	if errs := project.Validate(m); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return &ExitCodeError{Code: 1, Err: fmt.Errorf("%s failed validation", path)}
	}
	fmt.Printf("%s: manifest OK (%d language(s) enabled)\n", path, len(m.EnabledLanguages()))
	return nil
}
