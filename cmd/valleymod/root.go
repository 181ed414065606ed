// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for valleymod.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "valleymod",
		Short: "Install Stardew Valley mods and keep their dependencies straight",
		Long: TitleStyle.Render("valleymod") + SubtitleStyle.Render(" - a mod manager for SMAPI") + `

valleymod installs SMAPI and mod archives into your game folder and records,
for every installed mod, which of its dependencies are installed, which can
be downloaded from the mod catalog, and which could not be found.

` + SubtitleStyle.Render("Examples:") + `
  valleymod discover                  Show the game folder and version
  valleymod install ContentPatcher.zip
  valleymod list                      List installed mods
  valleymod deps <mod-id> --open      Open download pages for missing dependencies
  valleymod watch                     Reconcile whenever a manifest changes`,
		SilenceUsage: true,
	}

	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/valleymod/config.cue)")

	root.AddCommand(
		newDiscoverCommand(app),
		newManifestCommand(app),
		newInstallCommand(app),
		newUninstallCommand(app),
		newListCommand(app),
		newEnableCommand(app),
		newDisableCommand(app),
		newDepsCommand(app),
		newReconcileCommand(app),
		newUpdatesCommand(app),
		newWatchCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// runE wraps a handler so actionable errors are shown with their
// suggestions and, in verbose mode, the linked troubleshooting guide.
func (a *App) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		fmt.Fprintln(a.stderr, formatErrorForDisplay(err, a.verbose))
		return &ExitError{Code: 1, Err: err}
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method; verbose
// mode appends the rendered issue guide when one is linked.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return ErrorStyle.Render("Error: ") + err.Error()
	}
	out := ErrorStyle.Render("Error: ") + ae.Format(verboseMode)
	if verboseMode {
		if is := ae.Issue(); is != nil {
			if guide, renderErr := is.Render("dark"); renderErr == nil {
				out += "\n" + guide
			}
		}
	}
	return out
}
