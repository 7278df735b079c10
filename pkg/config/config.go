package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for followscan
type Config struct {
	// Scan defaults applied when a request leaves a parameter out
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Per-platform pacing and request settings
	Platforms PlatformsConfig `yaml:"platforms" json:"platforms"`

	// Where scan results are persisted
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// HTTP surface used by `followscan serve`
	Server ServerConfig `yaml:"server" json:"server"`

	// Terminal output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScanConfig holds the defaults of a scan request
type ScanConfig struct {
	StartIndex int    `yaml:"start_index" json:"start_index"`
	Limit      int    `yaml:"limit" json:"limit"`
	Mode       string `yaml:"mode" json:"mode"`
}

// PlatformsConfig groups the settings of every supported platform
type PlatformsConfig struct {
	Instagram PlatformConfig `yaml:"instagram" json:"instagram"`
	Twitter   PlatformConfig `yaml:"twitter" json:"twitter"`
	Threads   PlatformConfig `yaml:"threads" json:"threads"`
}

// PlatformConfig holds settings for a single platform
type PlatformConfig struct {
	// Location is the page the scan runs against, e.g. https://x.com/me/following
	Location string `yaml:"location" json:"location"`
	// Delay is the pause between upstream requests, pages or scroll passes
	Delay     time.Duration `yaml:"delay" json:"delay"`
	PageSize  int           `yaml:"page_size" json:"page_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	// RequestsPerMinute caps upstream requests; 0 disables the cap
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	// SnapshotDir holds saved HTML pages of the following list for scroll-based platforms
	SnapshotDir string `yaml:"snapshot_dir" json:"snapshot_dir"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
	DSN     string `yaml:"dsn" json:"dsn"`
	Addr    string `yaml:"addr" json:"addr"`
	DB      int    `yaml:"db" json:"db"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// OutputConfig holds terminal output settings
type OutputConfig struct {
	Locale string `yaml:"locale" json:"locale"`
	Format string `yaml:"format" json:"format"`
	TUI    bool   `yaml:"tui" json:"tui"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Storage backends
const (
	BackendJSON     = "json"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Minimum pauses between upstream requests, pages or scroll passes
const (
	MinInstagramDelay = 2 * time.Second
	MinTwitterDelay   = 1500 * time.Millisecond
	MinThreadsDelay   = 1500 * time.Millisecond
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			StartIndex: 0,
			Limit:      100,
			Mode:       "fast",
		},
		Platforms: PlatformsConfig{
			Instagram: PlatformConfig{
				Delay:             MinInstagramDelay,
				PageSize:          50,
				Timeout:           30 * time.Second,
				UserAgent:         defaultUserAgent,
				RequestsPerMinute: 30,
			},
			Twitter: PlatformConfig{
				Delay:             MinTwitterDelay,
				Timeout:           30 * time.Second,
				UserAgent:         defaultUserAgent,
				RequestsPerMinute: 40,
			},
			Threads: PlatformConfig{
				Delay:             MinThreadsDelay,
				Timeout:           30 * time.Second,
				UserAgent:         defaultUserAgent,
				RequestsPerMinute: 40,
			},
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Output: OutputConfig{
			Locale: "en",
			Format: "table",
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Platform returns the settings for the named platform
func (c *Config) Platform(name string) (PlatformConfig, bool) {
	switch strings.ToLower(name) {
	case "instagram":
		return c.Platforms.Instagram, true
	case "twitter":
		return c.Platforms.Twitter, true
	case "threads":
		return c.Platforms.Threads, true
	}
	return PlatformConfig{}, false
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if limit := os.Getenv("FOLLOWSCAN_LIMIT"); limit != "" {
		var val int
		fmt.Sscanf(limit, "%d", &val)
		if val > 0 {
			c.Scan.Limit = val
		}
	}
	if mode := os.Getenv("FOLLOWSCAN_MODE"); mode != "" {
		c.Scan.Mode = strings.ToLower(mode)
	}

	if loc := os.Getenv("FOLLOWSCAN_INSTAGRAM_URL"); loc != "" {
		c.Platforms.Instagram.Location = loc
	}
	if loc := os.Getenv("FOLLOWSCAN_TWITTER_URL"); loc != "" {
		c.Platforms.Twitter.Location = loc
	}
	if loc := os.Getenv("FOLLOWSCAN_THREADS_URL"); loc != "" {
		c.Platforms.Threads.Location = loc
	}

	if backend := os.Getenv("FOLLOWSCAN_STORAGE"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv("FOLLOWSCAN_STORAGE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if dsn := os.Getenv("FOLLOWSCAN_DATABASE_URL"); dsn != "" {
		c.Storage.DSN = dsn
	}
	if addr := os.Getenv("FOLLOWSCAN_REDIS_ADDR"); addr != "" {
		c.Storage.Addr = addr
	}

	if addr := os.Getenv("FOLLOWSCAN_LISTEN"); addr != "" {
		c.Server.Addr = addr
	}
	if locale := os.Getenv("FOLLOWSCAN_LOCALE"); locale != "" {
		c.Output.Locale = strings.ToLower(locale)
	}

	if notifEnabled := os.Getenv("FOLLOWSCAN_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if logLevel := os.Getenv("FOLLOWSCAN_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".followscan.yaml",
		".followscan.yml",
		filepath.Join(home, ".config", "followscan", "config.yaml"),
		filepath.Join(home, ".config", "followscan", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Scan.StartIndex < 0 {
		errs = append(errs, errors.New("start index cannot be negative"))
	}
	if c.Scan.Limit < 1 {
		errs = append(errs, errors.New("limit must be at least 1"))
	}
	if m := strings.ToLower(c.Scan.Mode); m != "fast" && m != "full" {
		errs = append(errs, fmt.Errorf("invalid scan mode %q", c.Scan.Mode))
	}

	for _, p := range []struct {
		name     string
		cfg      PlatformConfig
		minDelay time.Duration
	}{
		{"instagram", c.Platforms.Instagram, MinInstagramDelay},
		{"twitter", c.Platforms.Twitter, MinTwitterDelay},
		{"threads", c.Platforms.Threads, MinThreadsDelay},
	} {
		if p.cfg.Delay < p.minDelay {
			errs = append(errs, fmt.Errorf("%s delay must be at least %s", p.name, p.minDelay))
		}
		if p.cfg.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("%s timeout must be positive", p.name))
		}
		if p.cfg.RequestsPerMinute < 0 || p.cfg.RequestsPerMinute > 120 {
			errs = append(errs, fmt.Errorf("%s requests_per_minute must be between 0 and 120", p.name))
		}
	}
	if c.Platforms.Instagram.PageSize <= 0 || c.Platforms.Instagram.PageSize > 50 {
		errs = append(errs, errors.New("instagram page size must be between 1 and 50"))
	}

	switch strings.ToLower(c.Storage.Backend) {
	case BackendJSON, BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("postgres storage requires a dsn"))
		}
	case BackendRedis:
		if c.Storage.Addr == "" {
			errs = append(errs, errors.New("redis storage requires an addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if l := strings.ToLower(c.Output.Locale); l != "en" && l != "ja" {
		errs = append(errs, fmt.Errorf("unsupported locale %q", c.Output.Locale))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if start, ok := flags["start"].(int); ok {
		c.Scan.StartIndex = start
	}
	if limit, ok := flags["limit"].(int); ok && limit > 0 {
		c.Scan.Limit = limit
	}
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Scan.Mode = strings.ToLower(mode)
	}
	if backend, ok := flags["storage"].(string); ok && backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if path, ok := flags["storage-path"].(string); ok && path != "" {
		c.Storage.Path = path
	}
	if dsn, ok := flags["dsn"].(string); ok && dsn != "" {
		c.Storage.DSN = dsn
	}
	if addr, ok := flags["redis-addr"].(string); ok && addr != "" {
		c.Storage.Addr = addr
	}
	if addr, ok := flags["listen"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
	if locale, ok := flags["locale"].(string); ok && locale != "" {
		c.Output.Locale = strings.ToLower(locale)
	}
	if tui, ok := flags["tui"].(bool); ok && tui {
		c.Output.TUI = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if quiet, ok := flags["quiet"].(bool); ok && quiet {
		c.Logging.Level = "error"
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".followscan.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
