// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEnableCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <mod-id>",
		Short: "Enable a mod and reconcile its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := s.store.SetEnabled(ctx, args[0], true); err != nil {
				return modNotFound(args[0], err)
			}
			res, err := s.reconciler.OnModEnabled(ctx, args[0])
			if err != nil {
				return err
			}
			mod, err := s.store.Mod(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Enabled"), modLabel(mod))
			printReconcile(cmd.OutOrStdout(), modLabel(mod), res)
			return nil
		}),
	}
}

func newDisableCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <mod-id>",
		Short: "Disable a mod",
		Args:  cobra.ExactArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := s.store.SetEnabled(ctx, args[0], false); err != nil {
				return modNotFound(args[0], err)
			}
			mod, err := s.store.Mod(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SubtitleStyle.Render("Disabled"), modLabel(mod))
			return nil
		}),
	}
}
