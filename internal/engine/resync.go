package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/adapter"
	"github.com/Kamar-Folarin/propsync/internal/batch"
	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

// ProgressFunc receives per-item resync progress. done increases by one per
// call and total is fixed for the run.
type ProgressFunc func(done, total int)

// ResyncStore is the storage a full resync needs
type ResyncStore interface {
	UpsertRecords(ctx context.Context, records []*models.LocalRecord) error
	PruneRecords(ctx context.Context, entityType models.EntityType, keep []string) (int, error)
	GetResyncProgress(ctx context.Context, entityType models.EntityType) (*models.ResyncProgress, error)
	SaveResyncProgress(ctx context.Context, progress *models.ResyncProgress) error
}

// ResyncService rebuilds the local read model of an entity type from the
// server. It never touches the queue.
type ResyncService struct {
	store    ResyncStore
	adapters adapter.Resolver
	probe    connectivity.Prober
	batch    *batch.Processor
	logger   *logrus.Logger
	now      func() time.Time

	mu     sync.Mutex
	active map[models.EntityType]bool
}

// NewResyncService creates a new resync service
func NewResyncService(store ResyncStore, adapters adapter.Resolver, probe connectivity.Prober, cfg *config.BatchConfig, logger *logrus.Logger) *ResyncService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ResyncService{
		store:    store,
		adapters: adapters,
		probe:    probe,
		batch:    batch.NewProcessor(cfg),
		logger:   logger,
		now:      time.Now,
		active:   make(map[models.EntityType]bool),
	}
}

// Sync pulls the full remote collection of entityType into the local read
// model. onProgress may be nil.
func (r *ResyncService) Sync(ctx context.Context, entityType models.EntityType, onProgress ProgressFunc) *models.SyncSummary {
	startedAt := r.now()
	if !entityType.Valid() {
		return models.Failed(startedAt, fmt.Sprintf("unknown entity type: %q", entityType))
	}
	if !r.acquire(entityType) {
		return models.Failed(startedAt, apperrors.SyncInProgressMessage)
	}
	defer r.release(entityType)

	if !r.probe.IsOnline(ctx) {
		return models.Failed(startedAt, apperrors.OfflineMessage)
	}

	logger := r.logger.WithField("entity_type", entityType)
	logger.Info("Starting full resync")

	progress := &models.ResyncProgress{
		EntityType: entityType,
		ProgressTracking: models.ProgressTracking{
			StartTime:      startedAt,
			LastUpdateTime: startedAt,
			Status:         models.ProgressInProgress,
		},
	}
	r.saveProgress(ctx, progress, logger)

	summary := models.NewSyncSummary(startedAt)
	fail := func(err error) *models.SyncSummary {
		logger.WithError(err).Error("Full resync failed")
		summary.Success = false
		summary.Errors = append(summary.Errors, err.Error())
		summary.FinishedAt = r.now()
		progress.Status = models.ProgressFailed
		progress.Error = err.Error()
		progress.LastUpdateTime = summary.FinishedAt
		r.saveProgress(ctx, progress, logger)
		return summary
	}

	adp, err := r.adapters.For(entityType)
	if err != nil {
		return fail(err)
	}
	records, err := adp.Fetch(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch %s records: %w", entityType, err))
	}

	total := len(records)
	progress.Total = total
	items := make([]any, total)
	keep := make([]string, total)
	for i, record := range records {
		items[i] = record
		keep[i] = record.ID
	}

	var mu sync.Mutex
	done := 0
	err = r.batch.ProcessItems(ctx, items, func(ctx context.Context, chunk []any) error {
		batchRecords := make([]*models.LocalRecord, len(chunk))
		for i, item := range chunk {
			batchRecords[i] = item.(*models.LocalRecord)
		}
		if err := r.store.UpsertRecords(ctx, batchRecords); err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		for range batchRecords {
			done++
			if onProgress != nil {
				onProgress(done, total)
			}
		}
		return nil
	}, func(bp models.BatchProgress) {
		progress.Done = bp.ProcessedItems
		progress.LastUpdateTime = bp.LastUpdateTime
		r.saveProgress(ctx, progress, logger)
	})
	summary.ItemsSynced = done
	if err != nil {
		return fail(err)
	}

	pruned, err := r.store.PruneRecords(ctx, entityType, keep)
	if err != nil {
		return fail(err)
	}

	summary.Success = true
	summary.FinishedAt = r.now()
	progress.Done = done
	progress.Status = models.ProgressCompleted
	progress.LastUpdateTime = summary.FinishedAt
	r.saveProgress(ctx, progress, logger)

	logger.WithFields(logrus.Fields{
		"records": done,
		"pruned":  pruned,
	}).Info("Full resync completed")
	return summary
}

// SyncAll resyncs every entity type in turn
func (r *ResyncService) SyncAll(ctx context.Context) map[models.EntityType]*models.SyncSummary {
	results := make(map[models.EntityType]*models.SyncSummary)
	for _, entityType := range models.AllEntityTypes() {
		results[entityType] = r.Sync(ctx, entityType, nil)
	}
	return results
}

// Progress returns the last persisted progress of entityType
func (r *ResyncService) Progress(ctx context.Context, entityType models.EntityType) (*models.ResyncProgress, error) {
	progress, err := r.store.GetResyncProgress(ctx, entityType)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, apperrors.NewResourceNotFoundError("resync progress", string(entityType))
	}
	return progress, nil
}

func (r *ResyncService) acquire(entityType models.EntityType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[entityType] {
		return false
	}
	r.active[entityType] = true
	return true
}

func (r *ResyncService) release(entityType models.EntityType) {
	r.mu.Lock()
	delete(r.active, entityType)
	r.mu.Unlock()
}

func (r *ResyncService) saveProgress(ctx context.Context, progress *models.ResyncProgress, logger *logrus.Entry) {
	if err := r.store.SaveResyncProgress(ctx, progress); err != nil {
		logger.WithError(err).Warn("Failed to save resync progress")
	}
}
