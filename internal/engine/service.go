package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/adapter"
	"github.com/Kamar-Folarin/propsync/internal/alert"
	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	"github.com/Kamar-Folarin/propsync/internal/db"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

// ServiceDeps are the collaborators of a Service
type ServiceDeps struct {
	Store    db.Store
	Adapters adapter.Resolver
	Probe    connectivity.Prober
	Alerts   alert.Sink
}

// Service wires the processor, gateway, resync service and status tracker
// behind SyncService
type Service struct {
	store     db.Store
	processor *Processor
	gateway   *Gateway
	resync    *ResyncService
	status    *StatusTracker
	logger    *logrus.Logger
	now       func() time.Time
}

var _ SyncService = (*Service)(nil)

// NewService creates a new sync service
func NewService(deps ServiceDeps, cfg *config.SyncConfig, logger *logrus.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	status := NewStatusTracker(deps.Store, logger)
	processor := NewProcessor(ProcessorDeps{
		Queue:    deps.Store,
		Records:  deps.Store,
		Adapters: deps.Adapters,
		Probe:    deps.Probe,
		Alerts:   deps.Alerts,
	}, cfg, logger, WithObserver(status))

	return &Service{
		store:     deps.Store,
		processor: processor,
		gateway:   NewGateway(deps.Store, deps.Store, deps.Adapters, deps.Probe, logger),
		resync:    NewResyncService(deps.Store, deps.Adapters, deps.Probe, &cfg.BatchConfig, logger),
		status:    status,
		logger:    logger,
		now:       time.Now,
	}
}

// Processor returns the drain processor, for the scheduler
func (s *Service) Processor() *Processor {
	return s.processor
}

// ResyncService returns the full-resync service
func (s *Service) ResyncService() *ResyncService {
	return s.resync
}

func (s *Service) Submit(ctx context.Context, mutation Mutation) (*SubmitResult, error) {
	return s.gateway.Submit(ctx, mutation)
}

func (s *Service) Enqueue(ctx context.Context, intent *models.Intent) (string, error) {
	return s.store.Enqueue(ctx, intent)
}

func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.store.CountPending(ctx, s.now())
}

func (s *Service) QueueStats(ctx context.Context) (models.QueueStats, error) {
	return s.store.QueueStats(ctx, s.now())
}

func (s *Service) ListFailed(ctx context.Context) ([]*models.QueueItem, error) {
	return s.store.ListFailed(ctx)
}

func (s *Service) DiscardFailed(ctx context.Context, id string) error {
	if err := s.store.DiscardFailed(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("item_id", id).Info("Discarded dead-lettered mutation")
	return nil
}

func (s *Service) RunSync(ctx context.Context, reason Trigger) *models.SyncSummary {
	s.logger.WithField("reason", reason).Info("Sync requested")
	return s.processor.RunPass(ctx)
}

func (s *Service) GetSyncStatus(ctx context.Context) (*models.SyncStatus, error) {
	status, err := s.status.GetStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	status.IsSyncing = s.processor.Running()
	return status, nil
}

func (s *Service) Resync(ctx context.Context, entityType models.EntityType) *models.SyncSummary {
	logger := s.logger.WithField("entity_type", entityType)
	return s.resync.Sync(ctx, entityType, func(done, total int) {
		logger.WithFields(logrus.Fields{"done": done, "total": total}).Debug("Resync progress")
	})
}

func (s *Service) GetResyncProgress(ctx context.Context, entityType models.EntityType) (*models.ResyncProgress, error) {
	if !entityType.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown entity type: %q", entityType), nil)
	}
	return s.resync.Progress(ctx, entityType)
}

func (s *Service) ListRecords(ctx context.Context, entityType models.EntityType) ([]*models.LocalRecord, error) {
	if !entityType.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown entity type: %q", entityType), nil)
	}
	return s.store.ListRecords(ctx, entityType)
}
