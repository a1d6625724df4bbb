package config

import "time"

// SyncConfig holds drain and resync configuration
type SyncConfig struct {
	Interval           time.Duration
	MaxAttempts        int
	QueueWarnThreshold int
	BackoffBase        time.Duration
	DeadLetterTerminal bool
	PassTimeout        time.Duration
	BatchConfig        BatchConfig
}

// BatchConfig holds batch processing configuration for full resyncs
type BatchConfig struct {
	Size       int
	Workers    int
	MaxRetries int
	BatchDelay time.Duration
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Interval:           time.Minute,
		MaxAttempts:        5,
		QueueWarnThreshold: 200,
		BackoffBase:        time.Second,
		DeadLetterTerminal: false,
		PassTimeout:        10 * time.Minute,
		BatchConfig: BatchConfig{
			Size:       100,
			Workers:    1,
			MaxRetries: 2,
			BatchDelay: 100 * time.Millisecond,
		},
	}
}
