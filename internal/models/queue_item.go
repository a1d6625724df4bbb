package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityType identifies the kind of record a queued mutation targets
type EntityType string

const (
	EntitySavedProperty EntityType = "saved_property"
	EntitySearchHistory EntityType = "search_history"
	EntityDocument      EntityType = "document"
	EntityLOI           EntityType = "loi"
)

// AllEntityTypes returns every entity type the engine knows how to sync
func AllEntityTypes() []EntityType {
	return []EntityType{EntitySavedProperty, EntitySearchHistory, EntityDocument, EntityLOI}
}

// Valid reports whether t is one of the known entity types
func (t EntityType) Valid() bool {
	switch t {
	case EntitySavedProperty, EntitySearchHistory, EntityDocument, EntityLOI:
		return true
	}
	return false
}

// ParseEntityType converts a string into an EntityType
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type: %q", s)
	}
	return t, nil
}

// Action is the mutation kind carried by a queue item
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// QueueStatus is the lifecycle state of a queue item. Done items are deleted
// from the store instead of being kept with a done status.
type QueueStatus string

const (
	StatusPending    QueueStatus = "pending"
	StatusProcessing QueueStatus = "processing"
	StatusFailed     QueueStatus = "failed"
)

// Intent describes a mutation to be enqueued
type Intent struct {
	EntityType EntityType      `json:"entity_type"`
	Action     Action          `json:"action"`
	RecordID   *string         `json:"record_id,omitempty"`
	LocalID    *string         `json:"local_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Validate checks the intent shape: creates carry no record id, updates and
// deletes must name one.
func (i *Intent) Validate() error {
	if !i.EntityType.Valid() {
		return fmt.Errorf("unknown entity type: %q", i.EntityType)
	}
	if !i.Action.Valid() {
		return fmt.Errorf("unknown action: %q", i.Action)
	}
	switch i.Action {
	case ActionCreate:
		if i.RecordID != nil {
			return fmt.Errorf("create intent must not carry a record id")
		}
	default:
		if i.RecordID == nil || *i.RecordID == "" {
			return fmt.Errorf("%s intent requires a record id", i.Action)
		}
	}
	if len(i.Payload) > 0 && !json.Valid(i.Payload) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}

// QueueItem is one durable pending mutation
type QueueItem struct {
	ID          string          `json:"id"`
	Seq         int64           `json:"seq"`
	EntityType  EntityType      `json:"entity_type"`
	Action      Action          `json:"action"`
	RecordID    *string         `json:"record_id,omitempty"`
	LocalID     *string         `json:"local_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	Status      QueueStatus     `json:"status"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	NextRetryAt *time.Time      `json:"next_retry_at,omitempty"`
}

// RecordKey returns the key used to keep per-record ordering: the record id,
// or the local placeholder id for creates.
func (q *QueueItem) RecordKey() string {
	if q.RecordID != nil {
		return *q.RecordID
	}
	if q.LocalID != nil {
		return *q.LocalID
	}
	return ""
}

// Eligible reports whether the item may be processed at now
func (q *QueueItem) Eligible(now time.Time) bool {
	if q.Status != StatusPending {
		return false
	}
	return q.NextRetryAt == nil || !q.NextRetryAt.After(now)
}
