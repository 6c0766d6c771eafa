package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/vista/internal/cli"
	"github.com/aretw0/vista/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "vista",
	Short: "Vista defers tree mutations into view transitions",
	Long: `Vista sits between a renderer and the tree it mutates. While a view
transition is armed, mutations are queued on a shadow tree and replayed
inside the platform's capture callback.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a vista.yaml or vista.json config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("platform", "", "Transition platform: memory, none or rod")
}

// loadConfig reads the config file and lets explicit flags override it.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v, _ := cmd.Flags().GetString("platform"); v != "" {
		cfg.Platform = v
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("redis"); f != nil && f.Changed {
		cfg.Redis.Addr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("sqlite"); f != nil && f.Changed {
		cfg.SQLite.Path = f.Value.String()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger, err := cli.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
