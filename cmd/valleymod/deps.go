// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/internal/rules"
)

func newDepsCommand(app *App) *cobra.Command {
	var (
		open    bool
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "deps <mod-id>",
		Short: "Show the dependency rules recorded for a mod",
		Long: `Show the dependency rules recorded for a mod.

Each rule is local (satisfied by an installed mod), remote (found in the mod
catalog, with a download page) or unresolved (not found anywhere).`,
		Args: cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if refresh {
				if _, err := s.reconciler.OnModEnabled(ctx, args[0]); err != nil {
					return modNotFound(args[0], err)
				}
			}
			mod, err := s.store.Mod(ctx, args[0])
			if err != nil {
				return modNotFound(args[0], err)
			}
			installed, err := s.store.InstalledMods(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, TitleStyle.Render(modLabel(mod)))
			printRules(w, mod.Rules, installed)

			if !open {
				return nil
			}
			opened := 0
			for _, r := range mod.Rules {
				url := r.DownloadURL()
				if r.State != rules.StateRemote || url == "" {
					continue
				}
				if err := app.OpenURL(url); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Open this page in your browser:\n  %s\n", url)
					continue
				}
				opened++
			}
			if opened == 0 {
				fmt.Fprintln(w, SubtitleStyle.Render("Nothing to download."))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&open, "open", false, "open the download page of every downloadable dependency")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reconcile before showing")
	return cmd
}

func newReconcileCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute dependency rules for every enabled mod",
		Args:  cobra.NoArgs,
		RunE: app.runE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			results, err := s.reconciler.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			installed, err := s.store.InstalledMods(ctx)
			if err != nil {
				return err
			}
			for _, res := range results {
				mod, _ := installed.Get(res.OwnerID)
				printReconcile(cmd.OutOrStdout(), modLabel(mod), res)
			}
			return nil
		}),
	}
}
