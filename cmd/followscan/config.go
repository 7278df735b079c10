package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"followscan/pkg/config"
	"followscan/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage followscan configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (FOLLOWSCAN_*)
  - .env and ~/.followscan.env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.followscan.yaml' in the current directory unless
a different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after every source has been applied.
Database credentials in the storage DSN are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Scan defaults and platform settings
  - Storage backend settings
  - Path accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# followscan configuration file
#
# Every option can also be set with an environment variable prefixed with
# FOLLOWSCAN_, e.g. FOLLOWSCAN_LIMIT, FOLLOWSCAN_STORAGE, FOLLOWSCAN_LOCALE.

# Defaults of a scan batch
scan:
  # Index of the first account of the batch
  start_index: 0
  # Number of accounts per batch
  limit: 100
  # fast: follow-back only; full: also look up each account's last post
  mode: "fast"

# Per-platform settings
platforms:
  instagram:
    # Your profile, e.g. https://www.instagram.com/yourname/
    location: ""
    # Pause between pages and between last-post lookups
    delay: 2s
    # Accounts per page, at most 50
    page_size: 50
    timeout: 30s
    user_agent: ""
    # Cap on upstream requests, 0 for none
    requests_per_minute: 30
  twitter:
    # Your following page, e.g. https://x.com/yourname/following
    location: ""
    # Settle time after each scroll pass
    delay: 1500ms
    timeout: 30s
    requests_per_minute: 40
    # Directory of saved HTML renders of the following page (optional)
    snapshot_dir: ""
  threads:
    # Your profile, e.g. https://www.threads.net/@yourname
    location: ""
    delay: 1500ms
    timeout: 30s
    requests_per_minute: 40
    snapshot_dir: ""

# Where results are stored
storage:
  # json, memory, sqlite, postgres or redis
  backend: "json"
  # File of the json and sqlite backends (default: the data directory)
  path: ""
  # Connection string of the postgres backend
  dsn: ""
  # Address and database of the redis backend
  addr: ""
  db: 0

# HTTP API of 'followscan serve'
server:
  addr: "127.0.0.1:8787"

# Terminal output
output:
  # Language of relative dates: en or ja
  locale: "en"
  # Start scans in the interactive dashboard
  tui: false

# Notifications when a scan ends
notifications:
  enabled: true
  on_complete: true
  on_error: true
  # terminal, desktop or none
  notification_type: "terminal"

# Logging
logging:
  # debug, info, warn, error
  level: "info"
  # console or json
  format: "console"
  # Also write logs to this file (optional)
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".followscan.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("%s already exists", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set the location of the platforms you want to scan")
	fmt.Println("2. Run 'followscan auth login' to store your session cookies")
	fmt.Println("3. Run 'followscan config validate' to check the configuration")
	fmt.Println("4. Start scanning with 'followscan scan --platform <name>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	display := *cfg
	display.Storage.DSN = maskDSN(display.Storage.DSN)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintInfo("Current configuration", sourceLabel())
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func sourceLabel() string {
	if configFile != "" {
		return configFile
	}
	return "defaults, environment and discovered files"
}

// maskDSN hides the password of a connection string
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	return u.Redacted()
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		home := os.Getenv("HOME")
		for _, candidate := range []string{
			".followscan.yaml",
			".followscan.yml",
			filepath.Join(home, ".config", config.AppName, "config.yaml"),
			filepath.Join(home, ".config", config.AppName, "config.yml"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			return fmt.Errorf("no configuration file found")
		}
	}

	ui.PrintInfo("Validating configuration", path)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration has errors", "")
		fmt.Println(err)
		return fmt.Errorf("invalid configuration")
	}

	var warnings []string
	for _, name := range []string{"instagram", "twitter", "threads"} {
		pc, _ := cfg.Platform(name)
		if pc.Location == "" {
			warnings = append(warnings, fmt.Sprintf("%s location not set, the stored account's profile is used", name))
		}
		if pc.SnapshotDir != "" {
			if info, err := os.Stat(pc.SnapshotDir); err != nil || !info.IsDir() {
				warnings = append(warnings, fmt.Sprintf("%s snapshot_dir %s is not a directory", name, pc.SnapshotDir))
			}
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Batch: start %d, limit %d, %s mode\n", cfg.Scan.StartIndex, cfg.Scan.Limit, cfg.Scan.Mode)
	fmt.Printf("  Storage: %s\n", cfg.Storage.Backend)
	fmt.Printf("  Locale: %s\n", cfg.Output.Locale)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
