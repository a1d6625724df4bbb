package engine

import (
	"context"
	"time"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

// SyncService is the engine surface used by the HTTP API and the CLI
type SyncService interface {
	// Submit applies a mutation now when possible and queues it otherwise
	Submit(ctx context.Context, mutation Mutation) (*SubmitResult, error)

	// Enqueue appends a raw intent to the queue without touching the read model
	Enqueue(ctx context.Context, intent *models.Intent) (string, error)

	// CountPending counts queued mutations eligible for the next pass
	CountPending(ctx context.Context) (int, error)

	// QueueStats breaks the queue down by state
	QueueStats(ctx context.Context) (models.QueueStats, error)

	// ListFailed lists dead-lettered mutations
	ListFailed(ctx context.Context) ([]*models.QueueItem, error)

	// DiscardFailed deletes a dead-lettered mutation
	DiscardFailed(ctx context.Context, id string) error

	// RunSync runs one drain pass and returns its summary
	RunSync(ctx context.Context, reason Trigger) *models.SyncSummary

	// GetSyncStatus returns the drain status shown to the UI
	GetSyncStatus(ctx context.Context) (*models.SyncStatus, error)

	// Resync replaces the local read model of one entity type from the server
	Resync(ctx context.Context, entityType models.EntityType) *models.SyncSummary

	// GetResyncProgress returns the last persisted resync progress of one entity type
	GetResyncProgress(ctx context.Context, entityType models.EntityType) (*models.ResyncProgress, error)

	// ListRecords returns the local read model of one entity type
	ListRecords(ctx context.Context, entityType models.EntityType) ([]*models.LocalRecord, error)
}

// PassObserver is notified around every drain pass that gets past the
// connectivity check
type PassObserver interface {
	PassStarted(ctx context.Context, startedAt time.Time)
	PassFinished(ctx context.Context, summary *models.SyncSummary)
}

// Drainer runs drain passes
type Drainer interface {
	RunPass(ctx context.Context) *models.SyncSummary
}
