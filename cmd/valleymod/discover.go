// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

func newDiscoverCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Show the game folder, mods folder and game version",
		Args:  cobra.NoArgs,
		RunE: app.runE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			inst, err := s.installation(ctx)
			if err != nil {
				return err
			}
			version, verr := s.versions.GameVersion(ctx)
			if verr != nil {
				s.logger.Debug("game version unknown", "err", verr)
				version = WarningStyle.Render("unknown (run the game once with SMAPI or set game.version)")
			}

			w := cmd.OutOrStdout()
			printField(w, "Game folder", inst.Path)
			printField(w, "Mods folder", inst.ModsPath)
			printField(w, "Store", inst.Store)
			printField(w, "Game version", version)
			printField(w, "Config file", s.cfg.Path)
			printField(w, "State file", s.store.Path())
			return nil
		}),
	}
}
