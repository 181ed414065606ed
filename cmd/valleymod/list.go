// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/internal/resolve"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed mods",
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
			w := cmd.OutOrStdout()
			if len(mods) == 0 {
				fmt.Fprintln(w, SubtitleStyle.Render("No mods installed."))
				return nil
			}
			for _, m := range mods {
				state := SuccessStyle.Render("enabled ")
				if !m.Enabled {
					state = SubtitleStyle.Render("disabled")
				}
				note := ""
				if sum := resolve.Summarize(m.Rules); sum.MissingRequired > 0 {
					note = WarningStyle.Render(fmt.Sprintf("  %d required missing", sum.MissingRequired))
				}
				fmt.Fprintf(w, "%s  %s  %s  %s%s\n",
					state,
					IDStyle.Render(m.ID),
					modLabel(m),
					SubtitleStyle.Render(strings.Join(m.Folders, ", ")),
					note)
			}
			return nil
		}),
	}
}
