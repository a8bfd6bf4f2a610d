package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.3.0"

// CurrentConfigVersion is the expected config file version.
const CurrentConfigVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Discord    Discord    `koanf:"discord"`
	Monitoring Monitoring `koanf:"monitoring"`
	Filters    Filters    `koanf:"filters"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Discord contains platform credential configuration.
type Discord struct {
	// Bot token for the privileged event feed and operator delivery.
	BotToken string `koanf:"bot_token"`
	// Ordinary participant token for heuristic collection.
	UserToken string `koanf:"user_token"`
	// Operator user ID receiving direct notifications.
	OperatorID uint64 `koanf:"operator_id"`
}

// Monitoring contains poll loop configuration.
type Monitoring struct {
	// Seconds between poll cycles.
	PollInterval int `koanf:"poll_interval"`
	// Hours a (participant, community) pair stays suppressed after a
	// notification.
	DedupWindowHours int `koanf:"dedup_window_hours"`
	// Milliseconds between outbound platform API calls.
	RequestSpacing int `koanf:"request_spacing"`
	// Milliseconds of jitter applied to request spacing.
	RequestJitter int `koanf:"request_jitter"`
	// Seconds before a single collector call is abandoned.
	CollectorTimeout int `koanf:"collector_timeout"`
	// Maximum communities polled per cycle (0 for unlimited).
	MaxCommunities int `koanf:"max_communities"`
	// Community IDs that always receive heartbeat markers.
	Watchlist []uint64 `koanf:"watchlist"`
	// Community IDs never polled.
	ExcludedCommunities []uint64 `koanf:"excluded_communities"`
	// Days arrival and ledger rows are retained before cleanup.
	RetentionDays int `koanf:"retention_days"`
}

// Filters contains plausibility filter and delivery configuration.
type Filters struct {
	// Drop events from bot accounts.
	IgnoreBots bool `koanf:"ignore_bots"`
	// Drop events from platform system accounts.
	IgnoreSystemAccounts bool `koanf:"ignore_system_accounts"`
	// Minimum account age in days (0 disables the check).
	MinAccountAgeDays int `koanf:"min_account_age_days"`
	// Milliseconds between notification deliveries.
	NotifySpacing int `koanf:"notify_spacing"`
	// Capacity of the notification queue buffer.
	QueueSize int `koanf:"queue_size"`
}

// LoadConfig loads the configuration from the first config path that has a
// config.toml. Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".doorbell",
		homeDir + "/.doorbell/config",
		"/etc/doorbell/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/config.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentConfigVersion); err != nil {
		return nil, "", err
	}

	applyDefaults(&config)

	return &config, usedConfigPath, nil
}

// applyDefaults fills zero values with the defaults the pipeline was tuned
// for. Interval values are deliberately configuration, not constants.
func applyDefaults(config *Config) {
	if config.Monitoring.PollInterval <= 0 {
		config.Monitoring.PollInterval = 7
	}

	if config.Monitoring.DedupWindowHours <= 0 {
		config.Monitoring.DedupWindowHours = 24
	}

	if config.Monitoring.RequestSpacing <= 0 {
		config.Monitoring.RequestSpacing = 1000
	}

	if config.Monitoring.RequestJitter < 0 {
		config.Monitoring.RequestJitter = 0
	}

	if config.Monitoring.CollectorTimeout <= 0 {
		config.Monitoring.CollectorTimeout = 20
	}

	if config.Monitoring.RetentionDays <= 0 {
		config.Monitoring.RetentionDays = 90
	}

	if config.Filters.NotifySpacing <= 0 {
		config.Filters.NotifySpacing = 1000
	}

	if config.Filters.QueueSize <= 0 {
		config.Filters.QueueSize = 256
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: config.toml", ErrConfigVersionMissing)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: config.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/doorbell/tree/%s/config/config.toml",
			ErrConfigVersionMismatch,
			current,
			expected,
			RepositoryVersion,
		)
	}

	return nil
}
