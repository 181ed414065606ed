// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/installer"
	"github.com/valleymod/valleymod/internal/issue"
)

func newInstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install <archive.zip>",
		Short: "Install SMAPI, a mod archive or a game content override",
		Long: `Install an archive into the game folder.

SMAPI installer archives install the mod loader. Mod archives are copied into
the mods folder, recorded as one installed mod and have their dependencies
reconciled. Reinstalling an archive whose folders belong to one installed mod
upgrades that mod in place.`,
		Args: cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			inst, err := s.modInstaller(ctx)
			if err != nil {
				return err
			}
			out, err := inst.Install(ctx, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch out.Kind {
			case installer.KindSMAPI:
				fmt.Fprintln(w, SuccessStyle.Render("SMAPI installed"))
				return nil
			case installer.KindRootFolder:
				fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("Game content installed:"), modLabel(out.Mod))
				return nil
			}

			verb := "Installed"
			if out.Replaced {
				verb = "Upgraded"
			}
			fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render(verb), modLabel(out.Mod), SubtitleStyle.Render("("+out.Mod.ID+")"))
			for _, path := range out.Malformed {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: ")+
					fmt.Sprintf("%s could not be read; its dependencies are not tracked", path))
			}

			res, err := s.reconciler.OnModEnabled(ctx, out.Mod.ID)
			if err != nil {
				return err
			}
			printReconcile(w, modLabel(out.Mod), res)
			return nil
		}),
	}
}

func newUninstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <mod-id>",
		Aliases: []string{"remove"},
		Short:   "Delete a mod's folders and forget it",
		Args:    cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			mod, err := s.store.Mod(ctx, args[0])
			if err != nil {
				return modNotFound(args[0], err)
			}
			inst, err := s.installation(ctx)
			if err != nil {
				return err
			}
			for _, folder := range mod.Folders {
				if err := os.RemoveAll(filepath.Join(inst.ModsPath, folder)); err != nil {
					return fmt.Errorf("removing %s: %w", folder, err)
				}
			}
			if err := s.store.RemoveMod(ctx, mod.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Removed"), modLabel(mod))

			// Mods that depended on it now need a download hint instead.
			results, err := s.reconciler.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			for _, res := range results {
				if res.Changed {
					other, _ := s.store.Mod(ctx, res.OwnerID)
					printReconcile(cmd.OutOrStdout(), modLabel(other), res)
				}
			}
			return nil
		}),
	}
}

// modNotFound turns an unknown host id into an actionable error; other
// errors pass through.
func modNotFound(id string, err error) error {
	if !errors.Is(err, host.ErrModNotFound) {
		return err
	}
	return issue.NewErrorContext().
		WithOperation("find installed mod").
		WithResource(id).
		WithSuggestion("Run 'valleymod list' to see installed mod ids").
		WithIssue(issue.ModNotFoundId).
		Wrap(err).
		BuildError()
}
