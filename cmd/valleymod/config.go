// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valleymod/valleymod/internal/config"
	"github.com/valleymod/valleymod/internal/game"
)

// newConfigCommand creates the `valleymod config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage valleymod configuration",
		Long: `Manage valleymod configuration.

Configuration is stored in:
  - Linux: ~/.config/valleymod/config.cue
  - macOS: ~/Library/Application Support/valleymod/config.cue
  - Windows: %APPDATA%\valleymod\config.cue

Every key can be overridden from the environment, e.g. VALLEYMOD_GAME_PATH
or VALLEYMOD_CATALOG_TIMEOUT.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: app.runE(func(cmd *cobra.Command, _ []string) error {
			loaded, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if loaded.Path == "" {
				fmt.Fprintln(w, "// no config file; built-in defaults and environment")
			} else {
				fmt.Fprintf(w, "// loaded from %s\n", loaded.Path)
			}
			fmt.Fprint(w, config.GenerateCUE(loaded.Config))
			return nil
		}),
	})

	var (
		gamePath string
		force    bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: app.runE(func(cmd *cobra.Command, _ []string) error {
			path := app.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			cfg := config.DefaultConfig()
			if gamePath == "" {
				// Record the discovered folder so later runs skip discovery.
				if inst, err := game.Discover(cmd.Context(), game.DiscoverOptions{}); err == nil {
					gamePath = inst.Path
				}
			}
			cfg.Game.Path = gamePath

			if force {
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Wrote"), path)
				return nil
			}
			written, err := config.CreateDefaultConfig(path, cfg)
			if err != nil {
				return err
			}
			if !written {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", WarningStyle.Render("Config already exists:"), path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Created"), path)
			return nil
		}),
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	initCmd.Flags().StringVar(&gamePath, "game-path", "", "game folder to record (discovered when empty)")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: app.runE(func(cmd *cobra.Command, _ []string) error {
			path := app.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}),
	})

	return cfgCmd
}
