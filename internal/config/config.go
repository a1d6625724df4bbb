package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Kamar-Folarin/propsync/pkg/utils"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port               string
	DBDriver           string
	DBConnectionString string
	LogLevel           string
	SignalFile         string
	Sync               *SyncConfig
	Remote             *RemoteConfig
}

func Load() (*Config, error) {
	syncCfg := DefaultSyncConfig()
	remoteCfg := DefaultRemoteConfig()

	interval, err := getEnvInt("SYNC_INTERVAL_SECONDS", int(syncCfg.Interval/time.Second))
	if err != nil {
		return nil, err
	}
	syncCfg.Interval = time.Duration(interval) * time.Second

	if syncCfg.MaxAttempts, err = getEnvInt("SYNC_MAX_ATTEMPTS", syncCfg.MaxAttempts); err != nil {
		return nil, err
	}
	if syncCfg.QueueWarnThreshold, err = getEnvInt("SYNC_QUEUE_WARN_THRESHOLD", syncCfg.QueueWarnThreshold); err != nil {
		return nil, err
	}
	if syncCfg.DeadLetterTerminal, err = getEnvBool("SYNC_DEAD_LETTER_TERMINAL", syncCfg.DeadLetterTerminal); err != nil {
		return nil, err
	}
	if syncCfg.BatchConfig.Size, err = getEnvInt("SYNC_RESYNC_BATCH_SIZE", syncCfg.BatchConfig.Size); err != nil {
		return nil, err
	}

	remoteCfg.BaseURL = getEnv("REMOTE_API_URL", remoteCfg.BaseURL)
	remoteCfg.Token = getEnv("REMOTE_API_TOKEN", "")

	timeout, err := getEnvInt("REMOTE_TIMEOUT_SECONDS", int(remoteCfg.Timeout/time.Second))
	if err != nil {
		return nil, err
	}
	remoteCfg.Timeout = time.Duration(timeout) * time.Second

	if remoteCfg.RateLimit.RequestsPerMinute, err = getEnvInt("REMOTE_RATE_LIMIT_PER_MINUTE", remoteCfg.RateLimit.RequestsPerMinute); err != nil {
		return nil, err
	}
	if remoteCfg.RateLimit.Burst, err = getEnvInt("REMOTE_RATE_BURST", remoteCfg.RateLimit.Burst); err != nil {
		return nil, err
	}
	if remoteCfg.Breaker.Enabled, err = getEnvBool("REMOTE_BREAKER_ENABLED", remoteCfg.Breaker.Enabled); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBDriver:           getEnv("DB_DRIVER", DriverSQLite),
		DBConnectionString: getEnv("DB_CONNECTION_STRING", "propsync.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SignalFile:         getEnv("CONNECTIVITY_SIGNAL_FILE", ""),
		Sync:               syncCfg,
		Remote:             remoteCfg,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the engine misbehave
func (c *Config) Validate() error {
	if c.DBDriver != DriverSQLite && c.DBDriver != DriverPostgres {
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be at least 1")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL_SECONDS must be positive")
	}
	if c.Remote.BaseURL != "" && !utils.IsValidBaseURL(c.Remote.BaseURL) {
		return fmt.Errorf("invalid REMOTE_API_URL %q", c.Remote.BaseURL)
	}
	if c.Remote.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("REMOTE_RATE_LIMIT_PER_MINUTE cannot be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
