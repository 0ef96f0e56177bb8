package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"postcouncil/internal/config"
	"postcouncil/internal/logging"
	"postcouncil/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Set by PersistentPreRunE
	cfg           *config.Config
	shutdownTrace telemetry.Shutdown
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "postcouncil",
	Short: "Campaign post generation with a council of LLMs",
	Long: `postcouncil turns a campaign activation into one generated post per
enrolled person and post slot, then stores each winner for human review.

Simple campaigns make one model call per post. Complex campaigns ask a
council of models in parallel and let a judge pick the best candidate.

Every step is recorded in the execution log; see "postcouncil logs".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		opts := logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Categories: cfg.Logging.Categories,
		}
		if verbose {
			opts.Level = "debug"
		}
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		shutdownTrace, err = telemetry.Setup(cmd.Context(), cfg.Telemetry, version)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer logging.Sync()
		if shutdownTrace == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTrace(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "postcouncil.yaml", "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall command timeout")

	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
