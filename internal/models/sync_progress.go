package models

import "time"

// ResyncProgress represents the progress of a full resync of one entity type
type ResyncProgress struct {
	EntityType EntityType `json:"entity_type"`
	Done       int        `json:"done"`
	Total      int        `json:"total"`
	ProgressTracking
}

// BatchProgress tracks the progress of batch processing
type BatchProgress struct {
	TotalBatches     int       `json:"total_batches"`
	ProcessedBatches int       `json:"processed_batches"`
	TotalItems       int       `json:"total_items"`
	ProcessedItems   int       `json:"processed_items"`
	StartTime        time.Time `json:"start_time"`
	LastUpdateTime   time.Time `json:"last_update_time"`
	Errors           []string  `json:"errors,omitempty"`
}
