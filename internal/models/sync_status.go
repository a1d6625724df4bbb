package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncSummary is the result of one drain pass or one full resync
type SyncSummary struct {
	Success       bool      `json:"success"`
	ItemsSynced   int       `json:"items_synced"`
	ItemsDeferred int       `json:"items_deferred"`
	ItemsFailed   int       `json:"items_failed"`
	Errors        []string  `json:"errors"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// NewSyncSummary returns a summary with a non-nil error list
func NewSyncSummary(startedAt time.Time) *SyncSummary {
	return &SyncSummary{
		Errors:    []string{},
		StartedAt: startedAt,
	}
}

// Failed builds an unsuccessful summary carrying a single error
func Failed(startedAt time.Time, message string) *SyncSummary {
	return &SyncSummary{
		Success:    false,
		Errors:     []string{message},
		StartedAt:  startedAt,
		FinishedAt: startedAt,
	}
}

// QueueStats is a point-in-time breakdown of the queue
type QueueStats struct {
	Pending    int `json:"pending"`
	Backoff    int `json:"backoff"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}

// Waiting returns the number of changes not yet synced and still retryable
func (s QueueStats) Waiting() int {
	return s.Pending + s.Backoff + s.Processing
}

// SyncStatus tracks the engine state shown to the UI
type SyncStatus struct {
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	IsSyncing    bool         `json:"is_syncing"`
	LastSyncAt   time.Time    `json:"last_sync_at"`
	LastError    string       `json:"last_error,omitempty"`
	LastSummary  *SyncSummary `json:"last_summary,omitempty"`
	Queue        QueueStats   `json:"queue"`
	SyncDuration int64        `json:"sync_duration"`
	PassCount    int64        `json:"pass_count"`
}

// String returns the JSON string representation of the sync status
func (s *SyncStatus) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal sync status: %v"}`, err)
	}
	return string(data)
}
