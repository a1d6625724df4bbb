package config

import "time"

// RemoteConfig holds configuration for the remote REST API
type RemoteConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
	RateLimit RateLimitConfig
	Breaker   BreakerConfig
}

// RateLimitConfig paces outgoing requests
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	Enabled            bool
	MinRequests        int
	FailureThreshold   int
	HalfOpenMaxSuccess int
	SamplingInterval   time.Duration
	RecoveryTime       time.Duration
}

// DefaultRemoteConfig returns the default remote API configuration
func DefaultRemoteConfig() *RemoteConfig {
	return &RemoteConfig{
		Timeout:   30 * time.Second,
		UserAgent: "propsync/1.0",
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
			Burst:             10,
		},
		Breaker: BreakerConfig{
			Enabled:            true,
			MinRequests:        5,
			FailureThreshold:   5,
			HalfOpenMaxSuccess: 1,
			SamplingInterval:   time.Minute,
			RecoveryTime:       30 * time.Second,
		},
	}
}
