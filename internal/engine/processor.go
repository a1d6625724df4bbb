// Package engine drains the offline mutation queue against the remote API,
// applies mutations submitted by the UI and rebuilds the local read model
// from the server.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/adapter"
	"github.com/Kamar-Folarin/propsync/internal/alert"
	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	"github.com/Kamar-Folarin/propsync/internal/db"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
	"github.com/Kamar-Folarin/propsync/internal/utils"
)

// Alert categories raised by the processor
const (
	AlertCategorySync       = "sync"
	AlertCategoryDeadLetter = "sync_dead_letter"
)

// ProcessorDeps are the collaborators of a Processor
type ProcessorDeps struct {
	Queue    db.QueueStore
	Records  db.RecordStore
	Adapters adapter.Resolver
	Probe    connectivity.Prober
	Alerts   alert.Sink
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithClock overrides the processor clock
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithObserver registers an observer notified around each pass
func WithObserver(observer PassObserver) ProcessorOption {
	return func(p *Processor) {
		if observer != nil {
			p.observers = append(p.observers, observer)
		}
	}
}

// Processor runs drain passes over the queue. At most one pass runs at a time
// per Processor.
type Processor struct {
	deps      ProcessorDeps
	config    *config.SyncConfig
	logger    *logrus.Logger
	now       func() time.Time
	observers []PassObserver
	running   atomic.Bool
}

// NewProcessor creates a new sync processor
func NewProcessor(deps ProcessorDeps, cfg *config.SyncConfig, logger *logrus.Logger, opts ...ProcessorOption) *Processor {
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if deps.Alerts == nil {
		deps.Alerts = alert.NewLogSink(logger)
	}

	p := &Processor{
		deps:   deps,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Running reports whether a pass is in flight
func (p *Processor) Running() bool {
	return p.running.Load()
}

// RunPass drains every item eligible now. Per-item failures are recorded in
// the summary and never abort the pass; a storage failure does.
func (p *Processor) RunPass(ctx context.Context) *models.SyncSummary {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Debug("Sync already in progress, skipping pass")
		return models.Failed(p.now(), apperrors.SyncInProgressMessage)
	}
	defer p.running.Store(false)

	startedAt := p.now()
	if !p.deps.Probe.IsOnline(ctx) {
		p.logger.Info("Device is offline, skipping sync pass")
		return models.Failed(startedAt, apperrors.OfflineMessage)
	}

	for _, o := range p.observers {
		o.PassStarted(ctx, startedAt)
	}

	summary := p.drain(ctx, startedAt)
	summary.FinishedAt = p.now()

	p.logger.WithFields(logrus.Fields{
		"success":        summary.Success,
		"items_synced":   summary.ItemsSynced,
		"items_deferred": summary.ItemsDeferred,
		"items_failed":   summary.ItemsFailed,
		"errors":         len(summary.Errors),
		"duration":       summary.FinishedAt.Sub(startedAt).String(),
	}).Info("Sync pass finished")

	for _, o := range p.observers {
		o.PassFinished(ctx, summary)
	}
	return summary
}

// passState is the per-pass bookkeeping for per-record ordering and
// placeholder reconciliation
type passState struct {
	blocked  map[string]bool
	resolved map[string]string
}

func stateKey(entityType models.EntityType, key string) string {
	return string(entityType) + "|" + key
}

func (p *Processor) drain(ctx context.Context, startedAt time.Time) *models.SyncSummary {
	summary := models.NewSyncSummary(startedAt)

	count, err := p.deps.Queue.CountPending(ctx, startedAt)
	if err != nil {
		return p.abort(summary, err)
	}
	if p.config.QueueWarnThreshold > 0 && count >= p.config.QueueWarnThreshold {
		p.deps.Alerts.Emit(ctx, alert.Signal{
			Category: AlertCategorySync,
			Severity: alert.SeverityWarning,
			Message:  fmt.Sprintf("Sync queue has %d pending changes", count),
			Fields: map[string]any{
				"pending":   count,
				"threshold": p.config.QueueWarnThreshold,
			},
			At: startedAt,
		})
	}

	items, err := p.deps.Queue.ListPending(ctx, startedAt)
	if err != nil {
		return p.abort(summary, err)
	}
	if len(items) == 0 {
		summary.Success = true
		return summary
	}

	p.logger.WithField("items", len(items)).Info("Draining sync queue")

	state := &passState{
		blocked:  make(map[string]bool),
		resolved: make(map[string]string),
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			summary.Success = false
			summary.Errors = append(summary.Errors, fmt.Sprintf("sync pass interrupted: %v", err))
			return summary
		}
		if err := p.processItem(ctx, item, state, summary); err != nil {
			return p.abort(summary, err)
		}
	}

	summary.Success = true
	return summary
}

// processItem handles one queue item. Only storage errors are returned.
func (p *Processor) processItem(ctx context.Context, item *models.QueueItem, state *passState, summary *models.SyncSummary) error {
	key := item.RecordKey()
	if key != "" && state.blocked[stateKey(item.EntityType, key)] {
		summary.ItemsDeferred++
		return nil
	}
	if item.RecordID != nil {
		if id, ok := state.resolved[stateKey(item.EntityType, *item.RecordID)]; ok {
			item.RecordID = &id
		}
	}

	logger := p.logger.WithFields(logrus.Fields{
		"item_id":     item.ID,
		"entity_type": item.EntityType,
		"action":      item.Action,
		"attempts":    item.Attempts,
	})

	if err := p.deps.Queue.MarkProcessing(ctx, item.ID); err != nil {
		if apperrors.IsNotFound(err) {
			logger.Debug("Queue item no longer pending, skipping")
			summary.ItemsDeferred++
			return nil
		}
		return err
	}

	// once an item is processing its outcome is always recorded, even if
	// the pass is cancelled while the adapter call is in flight
	storeCtx := context.WithoutCancel(ctx)

	record, err := p.apply(ctx, item)
	if err != nil {
		if key != "" {
			state.blocked[stateKey(item.EntityType, key)] = true
		}
		return p.recordFailure(storeCtx, item, err, summary, logger)
	}

	if item.Action == models.ActionCreate && item.LocalID != nil && record != nil {
		if err := p.deps.Queue.RewriteRecordID(storeCtx, item.EntityType, *item.LocalID, record.ID); err != nil {
			return err
		}
		state.resolved[stateKey(item.EntityType, *item.LocalID)] = record.ID
	}
	if err := p.deps.Queue.MarkDone(storeCtx, item.ID); err != nil {
		return err
	}
	summary.ItemsSynced++
	logger.Debug("Queue item synced")

	p.updateReadModel(storeCtx, item, record, logger)
	return nil
}

func (p *Processor) apply(ctx context.Context, item *models.QueueItem) (*models.LocalRecord, error) {
	if item.RecordID != nil && utils.IsPlaceholderID(*item.RecordID) {
		return nil, apperrors.NewTerminalError(fmt.Sprintf("record %s has not been created remotely", *item.RecordID), nil)
	}

	adp, err := p.deps.Adapters.For(item.EntityType)
	if err != nil {
		return nil, err
	}
	return adp.Apply(ctx, adapter.Intent{
		Action:         item.Action,
		RecordID:       item.RecordID,
		Payload:        item.Payload,
		IdempotencyKey: item.ID,
	})
}

// recordFailure reschedules or dead-letters a failed item. The backoff is
// measured from the time of the failure, not from the start of the pass.
func (p *Processor) recordFailure(ctx context.Context, item *models.QueueItem, cause error, summary *models.SyncSummary, logger *logrus.Entry) error {
	attempts := item.Attempts + 1
	message := cause.Error()
	summary.Errors = append(summary.Errors, fmt.Sprintf("%s %s %s: %s", item.EntityType, item.Action, item.ID, message))
	logger = logger.WithField("error_type", apperrors.TypeOf(cause))

	terminal := apperrors.IsTerminal(cause) || apperrors.IsValidationError(cause)
	if attempts >= p.config.MaxAttempts || (terminal && p.config.DeadLetterTerminal) {
		if err := p.deps.Queue.MarkFailed(ctx, item.ID, attempts, message); err != nil {
			return err
		}
		summary.ItemsFailed++
		logger.WithError(cause).WithField("terminal", terminal).Warn("Queue item dead-lettered")
		p.deps.Alerts.Emit(ctx, alert.Signal{
			Category: AlertCategoryDeadLetter,
			Severity: alert.SeverityError,
			Message:  fmt.Sprintf("Gave up syncing %s %s after %d attempts", item.EntityType, item.Action, attempts),
			Fields: map[string]any{
				"item_id":     item.ID,
				"entity_type": string(item.EntityType),
				"attempts":    attempts,
				"error":       message,
			},
			At: p.now(),
		})
		return nil
	}

	next := p.now().Add(Backoff(attempts, p.config.BackoffBase))
	if err := p.deps.Queue.MarkRetry(ctx, item.ID, attempts, next, message); err != nil {
		return err
	}
	summary.ItemsDeferred++
	logger.WithError(cause).WithField("next_retry_at", next).Info("Queue item rescheduled")
	return nil
}

// updateReadModel mirrors a remotely applied mutation into the local read
// model. The remote state is authoritative, so failures here are logged and
// repaired by the next full resync.
func (p *Processor) updateReadModel(ctx context.Context, item *models.QueueItem, record *models.LocalRecord, logger *logrus.Entry) {
	var err error
	switch item.Action {
	case models.ActionCreate:
		if record == nil {
			return
		}
		if item.LocalID != nil {
			err = p.deps.Records.ReplaceRecordID(ctx, item.EntityType, *item.LocalID, record)
		} else {
			err = p.deps.Records.UpsertRecord(ctx, record)
		}
	case models.ActionUpdate:
		if record != nil {
			err = p.deps.Records.UpsertRecord(ctx, record)
		}
	case models.ActionDelete:
		if item.RecordID != nil {
			err = p.deps.Records.DeleteRecord(ctx, item.EntityType, *item.RecordID)
		}
	}
	if err != nil {
		logger.WithError(err).Warn("Failed to update local read model")
	}
}

func (p *Processor) abort(summary *models.SyncSummary, err error) *models.SyncSummary {
	p.logger.WithError(err).Error("Sync pass aborted by storage error")
	summary.Success = false
	summary.Errors = []string{err.Error()}
	return summary
}
