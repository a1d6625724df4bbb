package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

// DrainStatusName is the sync_status row the tracker persists
const DrainStatusName = "drain"

// Status values
const (
	StatusIdle       = "idle"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StatusStore persists tracker state
type StatusStore interface {
	GetSyncStatus(ctx context.Context, name string) (*models.SyncStatus, error)
	UpdateSyncStatus(ctx context.Context, status *models.SyncStatus) error
	QueueStats(ctx context.Context, now time.Time) (models.QueueStats, error)
}

// StatusTracker caches and persists the drain status. It observes the
// processor and is read by the API.
type StatusTracker struct {
	store  StatusStore
	logger *logrus.Logger
	now    func() time.Time
	mu     sync.RWMutex
	cache  *models.SyncStatus
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker(store StatusStore, logger *logrus.Logger) *StatusTracker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StatusTracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetStatus returns a copy of the current status with live queue stats
func (t *StatusTracker) GetStatus(ctx context.Context) (*models.SyncStatus, error) {
	status, err := t.load(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := t.store.QueueStats(ctx, t.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	status.Queue = stats
	return status, nil
}

// PassStarted marks the drain as running
func (t *StatusTracker) PassStarted(ctx context.Context, startedAt time.Time) {
	t.update(ctx, func(status *models.SyncStatus) {
		status.Status = StatusInProgress
		status.IsSyncing = true
	})
}

// PassFinished records the outcome of a pass
func (t *StatusTracker) PassFinished(ctx context.Context, summary *models.SyncSummary) {
	stats, err := t.store.QueueStats(ctx, t.now())
	if err != nil {
		t.logger.WithError(err).Warn("Failed to get queue stats for sync status")
	}

	t.update(ctx, func(status *models.SyncStatus) {
		status.IsSyncing = false
		status.LastSyncAt = summary.FinishedAt
		status.LastSummary = summary
		status.SyncDuration = summary.FinishedAt.Sub(summary.StartedAt).Milliseconds()
		status.PassCount++
		if err == nil {
			status.Queue = stats
		}
		if summary.Success {
			status.Status = StatusCompleted
			status.LastError = ""
		} else {
			status.Status = StatusFailed
			if len(summary.Errors) > 0 {
				status.LastError = summary.Errors[0]
			}
		}
	})
}

// update applies fn to the cached status and persists the result. Persist
// failures are logged; the cache stays authoritative for this process.
func (t *StatusTracker) update(ctx context.Context, fn func(status *models.SyncStatus)) {
	status, err := t.load(ctx)
	if err != nil {
		t.logger.WithError(err).Warn("Failed to load sync status, starting fresh")
		status = newDrainStatus()
	}
	fn(status)

	t.mu.Lock()
	t.cache = status
	t.mu.Unlock()

	copied := *status
	if err := t.store.UpdateSyncStatus(ctx, &copied); err != nil {
		t.logger.WithError(err).Warn("Failed to persist sync status")
	}
}

// load returns a copy of the cached status, reading it from the store on
// first use. A persisted in-progress flag belongs to a previous process and
// is cleared.
func (t *StatusTracker) load(ctx context.Context) (*models.SyncStatus, error) {
	t.mu.RLock()
	if t.cache != nil {
		status := *t.cache
		t.mu.RUnlock()
		return &status, nil
	}
	t.mu.RUnlock()

	status, err := t.store.GetSyncStatus(ctx, DrainStatusName)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	if status == nil {
		status = newDrainStatus()
	} else if status.IsSyncing {
		status.IsSyncing = false
		status.Status = StatusIdle
	}

	t.mu.Lock()
	if t.cache == nil {
		t.cache = status
	}
	copied := *t.cache
	t.mu.Unlock()

	return &copied, nil
}

func newDrainStatus() *models.SyncStatus {
	return &models.SyncStatus{
		Name:   DrainStatusName,
		Status: StatusIdle,
	}
}
