// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/internal/issue"
	"github.com/valleymod/valleymod/pkg/manifest"
)

func newManifestCommand(app *App) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect mod manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <manifest.json|mod folder>",
		Short: "Show a manifest the way valleymod reads it",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, manifest.FileName)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading manifest: %w", err)
			}

			var diags []manifest.Diagnostic
			m, err := manifest.Parse(data,
				manifest.WithSource(path),
				manifest.WithDiagnostics(func(d manifest.Diagnostic) { diags = append(diags, d) }),
			)
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("read manifest").
					WithResource(path).
					WithSuggestion("Validate the file with a JSON linter").
					WithIssue(issue.ManifestMalformedId).
					Wrap(err).
					BuildError()
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(m.ToRaw())
			}

			printField(w, "Name", m.Name)
			printField(w, "UniqueID", IDStyle.Render(m.UniqueID))
			printField(w, "Version", m.Version)
			printField(w, "Author", m.Author)
			if m.EntryDLL != "" {
				printField(w, "Entry DLL", m.EntryDLL)
			}
			if m.ContentPackFor != nil {
				printField(w, "Content pack for", formatDependency(*m.ContentPackFor))
			}
			printField(w, "Update keys", strings.Join(m.UpdateKeys, ", "))
			fmt.Fprintln(w, labelStyle.Render("Dependencies"))
			if len(m.Dependencies) == 0 {
				fmt.Fprintln(w, SubtitleStyle.Render("  none"))
			}
			for _, d := range m.Dependencies {
				fmt.Fprintln(w, "  "+formatDependency(d))
			}
			for _, d := range diags {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: ")+d.String())
			}
			return nil
		}),
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the normalized manifest as JSON")

	manifestCmd.AddCommand(show)
	return manifestCmd
}

func formatDependency(d manifest.Dependency) string {
	out := IDStyle.Render(d.UniqueID)
	if d.MinimumVersion != "" {
		out += " >= " + d.MinimumVersion
	}
	if d.IsRequired {
		out += SubtitleStyle.Render(" (required)")
	} else {
		out += SubtitleStyle.Render(" (optional)")
	}
	return out
}
