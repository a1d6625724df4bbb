package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REMOTE_API_URL", "https://api.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "https://api.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
	assert.Equal(t, 200, cfg.Sync.QueueWarnThreshold)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.False(t, cfg.Sync.DeadLetterTerminal)
	assert.True(t, cfg.Remote.Breaker.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("SYNC_INTERVAL_SECONDS", "15")
	t.Setenv("SYNC_QUEUE_WARN_THRESHOLD", "250")
	t.Setenv("SYNC_DEAD_LETTER_TERMINAL", "true")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 15*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 250, cfg.Sync.QueueWarnThreshold)
	assert.True(t, cfg.Sync.DeadLetterTerminal)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric interval", "SYNC_INTERVAL_SECONDS", "soon"},
		{"zero attempts", "SYNC_MAX_ATTEMPTS", "0"},
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"bad bool", "REMOTE_BREAKER_ENABLED", "maybe"},
		{"bad remote url", "REMOTE_API_URL", "ftp://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
