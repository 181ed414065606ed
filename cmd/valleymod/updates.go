// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/pkg/manifest"
)

func newUpdatesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "updates",
		Short: "Check the mod catalog for newer versions of installed mods",
		Args:  cobra.NoArgs,
		RunE: app.runE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			mods, err := s.store.InstalledMods(ctx)
			if err != nil {
				return err
			}
			var manifests []manifest.Manifest
			for _, m := range mods {
				manifests = append(manifests, m.Manifests...)
			}

			w := cmd.OutOrStdout()
			version, err := s.versions.GameVersion(ctx)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: ")+
					"game version unknown; set game.version or run the game once with SMAPI")
				s.logger.Debug("skipping update check", "err", err)
				return nil
			}

			updates := s.catalog.CheckUpdates(ctx, manifests, version)
			if len(updates) == 0 {
				fmt.Fprintln(w, SuccessStyle.Render("Everything is up to date."))
				return nil
			}
			for _, u := range updates {
				name := u.Name
				if name == "" {
					name = u.UniqueID
				}
				fmt.Fprintf(w, "%s  %s -> %s  %s\n",
					IDStyle.Render(name),
					u.InstalledVersion,
					SuccessStyle.Render(u.Suggested.Version),
					SubtitleStyle.Render(u.Suggested.URL))
			}
			return nil
		}),
	}
}
