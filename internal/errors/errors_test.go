package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationHelpers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		terminal  bool
		storage   bool
		offline   bool
	}{
		{"transient", NewTransientError("server error", nil), true, false, false, false},
		{"terminal", NewTerminalError("bad request", nil), false, true, false, false},
		{"storage", NewStorageError("disk full", nil), false, false, true, false},
		{"offline", NewOfflineError(), false, false, false, true},
		{"wrapped transient", fmt.Errorf("apply: %w", NewTransientError("timeout", nil)), true, false, false, false},
		{"plain error", fmt.Errorf("boom"), false, false, false, false},
		{"nil", nil, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.terminal, IsTerminal(tt.err))
			assert.Equal(t, tt.storage, IsStorage(tt.err))
			assert.Equal(t, tt.offline, IsOffline(tt.err))
		})
	}
}

func TestUnauthorizedIsNeitherTransientNorTerminal(t *testing.T) {
	err := fmt.Errorf("apply: %w", NewUnauthorizedError("remote API rejected credentials", nil))

	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsTransient(err))
	assert.False(t, IsTerminal(err))
	assert.Equal(t, ErrUnauthorized, TypeOf(err))
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("boom")))
}

func TestAppErrorMessage(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransientError("request failed", cause)

	assert.Equal(t, "TRANSIENT: request failed (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "OFFLINE: Device is offline", NewOfflineError().Error())
}

func TestNotFoundHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewResourceNotFoundError("queue item", "abc")))
	assert.True(t, IsNotFound(NewNotFoundError("missing", nil)))
	assert.False(t, IsNotFound(NewInternalError("boom", nil)))
	assert.True(t, IsSyncInProgress(fmt.Errorf("wrap: %w", NewSyncInProgressError("drain"))))
}
