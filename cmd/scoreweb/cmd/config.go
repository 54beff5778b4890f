package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/scoreweb/internal/app"
)

var (
	configForce   bool
	configColor   string
	configNoColor bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the effective configuration (config file over defaults) and the workspace paths.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long:  "Writes .scoreweb/config.toml (or --config) with the default keywords and settings.",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	f := configCmd.Flags()
	f.StringVar(&configColor, "color", "auto", "Color output: auto, always, never")
	f.BoolVar(&configNoColor, "no-color", false, "Suppress color output")

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

// configFile returns the config path in effect: --config or the workspace default.
func configFile(paths *app.Paths) string {
	if configPath != "" {
		return configPath
	}
	return paths.Config
}

func runConfig(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	paths := app.NewPaths(root)
	paths.Config = configFile(paths)

	cfg, found, err := app.LoadConfig(paths.Config)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, formatConfig(cfg, paths, found, newStyles(out, resolveColor(configColor, configNoColor))))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	path := configFile(app.NewPaths(root))

	if !configForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := app.SaveConfig(path, app.DefaultConfig()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", path)
	return nil
}
