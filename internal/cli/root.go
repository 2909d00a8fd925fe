// Package cli wires the snapdeck commands: configuration loading, logging
// setup, and the capture/monitors/config subcommands.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapdeck/snapdeck/internal/config"
)

var (
	cfgPath string
	verbose bool

	// cfg holds the merged configuration, populated in PersistentPreRunE.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "snapdeck",
	Short: "Capture a slide deck from any screen region",
	Long: `snapdeck samples a screen region at a fixed interval and keeps only the
frames that changed, turning a running presentation into an ordered deck of
slides exported as images, a manifest, or a standalone HTML page.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The config subcommands must work before a config file exists.
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			setupLogging(verbose)
			return nil
		}

		path := cfgPath
		explicit := cmd.Flags().Changed("config")
		if path == "" {
			path = config.DefaultPath()
		}

		var err error
		cfg, err = config.Load(path, explicit)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Verbose = true
		}
		setupLogging(cfg.Verbose)
		return nil
	},
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
