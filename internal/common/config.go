package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Backend     BackendConfig `toml:"backend"`
	Search      SearchConfig  `toml:"search"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig configures the simulator backend server (serve mode).
type ServerConfig struct {
	Port         int    `toml:"port"`
	Host         string `toml:"host"`
	PollInterval string `toml:"poll_interval"` // e.g. "1s" - how often the ws handler polls the job store
	JobTTL       string `toml:"job_ttl"`       // e.g. "1h" - job retention before the janitor purges it
	CleanupCron  string `toml:"cleanup_cron"`  // cron schedule for the expired-job janitor
	SitesFile    string `toml:"sites_file"`    // optional YAML site catalog path
}

// BackendConfig configures the client side (search mode): where jobs are
// submitted and where the update channel is dialed.
type BackendConfig struct {
	BaseURL   string `toml:"base_url"`   // e.g. "http://localhost:8085"
	RateLimit int    `toml:"rate_limit"` // submission requests per second
	Timeout   string `toml:"timeout"`    // HTTP timeout, e.g. "30s"
}

// SearchConfig contains client-side search defaults
type SearchConfig struct {
	DefaultSites []string `toml:"default_sites"` // used when a request carries no sites
	PageSize     int      `toml:"page_size"`     // default query page size
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	InMemory       bool   `toml:"in_memory"`        // Run without a data directory
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:         8085,
			Host:         "localhost",
			PollInterval: "1s",
			JobTTL:       "1h",
			CleanupCron:  "@every 10m",
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:8085",
			RateLimit: 10,
			Timeout:   "30s",
		},
		Search: SearchConfig{
			DefaultSites: []string{"google_shopping"},
			PageSize:     20,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:     "./data/reperio",
				InMemory: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later config files override earlier ones. CLI overrides are applied
// separately via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies REPERIO_* environment variables over file values
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("REPERIO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("REPERIO_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("REPERIO_BACKEND_URL"); v != "" {
		config.Backend.BaseURL = v
	}
	if v := os.Getenv("REPERIO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("REPERIO_DEFAULT_SITES"); v != "" {
		sites := []string{}
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sites = append(sites, s)
			}
		}
		if len(sites) > 0 {
			config.Search.DefaultSites = sites
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if len(config.Search.DefaultSites) == 0 {
		return fmt.Errorf("search.default_sites must not be empty")
	}
	if config.Search.PageSize < 1 {
		return fmt.Errorf("search.page_size must be positive")
	}
	if _, err := time.ParseDuration(config.Server.PollInterval); err != nil {
		return fmt.Errorf("invalid server.poll_interval: %w", err)
	}
	if _, err := time.ParseDuration(config.Server.JobTTL); err != nil {
		return fmt.Errorf("invalid server.job_ttl: %w", err)
	}
	if _, err := time.ParseDuration(config.Backend.Timeout); err != nil {
		return fmt.Errorf("invalid backend.timeout: %w", err)
	}
	return nil
}

// PollIntervalDuration returns the parsed ws poll interval.
func (s *ServerConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.PollInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// JobTTLDuration returns the parsed job retention duration.
func (s *ServerConfig) JobTTLDuration() time.Duration {
	d, err := time.ParseDuration(s.JobTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// TimeoutDuration returns the parsed backend HTTP timeout.
func (b *BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
