// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/internal/watch"
)

func newWatchCommand(app *App) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile mods whenever their manifests change on disk",
		Long: `Watch the mods folder. When a manifest.json is edited, added or removed,
the owning installed mod is rescanned and, if enabled, its dependency rules
are reconciled. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
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
			mods, err := s.modInstaller(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			watcher, err := watch.New(watch.Config{
				ModsDir:  inst.ModsPath,
				Debounce: debounce,
				Logger:   s.logger.WithPrefix("watch"),
				OnChange: func(ctx context.Context, change watch.Change) error {
					updated, err := mods.Rescan(ctx, change.Folders)
					if err != nil {
						return err
					}
					for _, mod := range updated {
						if !mod.Enabled {
							continue
						}
						res, err := s.reconciler.OnModEnabled(ctx, mod.ID)
						if err != nil {
							return err
						}
						printReconcile(w, modLabel(mod), res)
					}
					return nil
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Watching"), inst.ModsPath)
			return watcher.Run(ctx)
		}),
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before reacting to changes (default 750ms)")
	return cmd
}
