package main

import (
	"fmt"
	"os"
	"runtime"

	"followscan/pkg/config"
	"followscan/pkg/logger"
	"followscan/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	storageKind string
	storagePath string
	quiet       bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "followscan",
	Short: "Find inactive accounts and one-way follows on Instagram, X and Threads",
	Long: `followscan walks the list of accounts you follow on Instagram, X (Twitter)
or Threads and reports the ones that have not posted for more than a year
or that do not follow you back.

Scans run in batches: each batch checks a window of your following list
(--start, --limit) and replaces the stored results of that platform.
Stopped batches keep what they found so far and can be resumed.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
		}
		if !quiet && cmd.Name() == "scan" && !useTUI {
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.followscan.yaml or ~/.config/followscan/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storageKind, "storage", "", "storage backend (json, memory, sqlite, postgres, redis)")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage-path", "", "path of the json or sqlite store")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every found account while scanning")

	rootCmd.SetVersionTemplate(`followscan {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration with the global flags merged in and
// initializes the global logger from it
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"log-level":    logLevel,
		"storage":      storageKind,
		"storage-path": storagePath,
		"quiet":        quiet,
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
