package models

import (
	"encoding/json"
	"time"
)

// ProgressTracking contains common fields for tracking progress
type ProgressTracking struct {
	StartTime      time.Time `json:"start_time"`
	LastUpdateTime time.Time `json:"last_update_time"`
	Status         string    `json:"status"` // e.g., "in_progress", "completed", "failed"
	Error          string    `json:"error,omitempty"`
}

// Progress status values
const (
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
	ProgressFailed     = "failed"
)

// LocalRecord is one row of the local read model the UI renders from
type LocalRecord struct {
	EntityType EntityType      `json:"entity_type"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	LocalOnly  bool            `json:"local_only"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
