package engine

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/adapter"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	"github.com/Kamar-Folarin/propsync/internal/db"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
	"github.com/Kamar-Folarin/propsync/internal/utils"
)

// Mutation is a create, update or delete requested by the UI
type Mutation struct {
	EntityType models.EntityType `json:"entity_type" binding:"required"`
	Action     models.Action     `json:"action" binding:"required"`
	RecordID   *string           `json:"record_id,omitempty"`
	Payload    json.RawMessage   `json:"payload,omitempty" swaggertype:"object"`
}

// SubmitResult tells the UI what happened to a mutation. Record is the local
// read-model row after the write, nil for deletes.
type SubmitResult struct {
	Applied     bool                `json:"applied"`
	Queued      bool                `json:"queued"`
	QueueItemID string              `json:"queue_item_id,omitempty"`
	Record      *models.LocalRecord `json:"record,omitempty"`
}

// Gateway is the write path used by the UI
type Gateway struct {
	queue    db.QueueStore
	records  db.RecordStore
	adapters adapter.Resolver
	probe    connectivity.Prober
	logger   *logrus.Logger
}

// NewGateway creates a new mutation gateway
func NewGateway(queue db.QueueStore, records db.RecordStore, adapters adapter.Resolver, probe connectivity.Prober, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gateway{
		queue:    queue,
		records:  records,
		adapters: adapters,
		probe:    probe,
		logger:   logger,
	}
}

// Submit applies the mutation remotely when online and nothing is queued
// ahead of it for the same record. Otherwise, or when the remote call fails
// transiently, the mutation is queued and applied optimistically to the local
// read model. A terminal rejection while online is returned to the caller.
func (g *Gateway) Submit(ctx context.Context, m Mutation) (*SubmitResult, error) {
	intent := &models.Intent{
		EntityType: m.EntityType,
		Action:     m.Action,
		RecordID:   m.RecordID,
		Payload:    m.Payload,
	}
	if err := intent.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}

	logger := g.logger.WithFields(logrus.Fields{
		"entity_type": m.EntityType,
		"action":      m.Action,
	})

	direct, err := g.canApplyDirectly(ctx, intent)
	if err != nil {
		return nil, err
	}
	if direct {
		result, err := g.applyNow(ctx, intent)
		if err == nil {
			return result, nil
		}
		if apperrors.IsTerminal(err) {
			logger.WithError(err).Warn("Mutation rejected by server")
			return nil, err
		}
		logger.WithError(err).Info("Remote apply failed, queueing mutation")
	}

	return g.enqueue(ctx, intent, logger)
}

func (g *Gateway) canApplyDirectly(ctx context.Context, intent *models.Intent) (bool, error) {
	if !g.probe.IsOnline(ctx) {
		return false, nil
	}
	if intent.RecordID == nil {
		return true, nil
	}
	if utils.IsPlaceholderID(*intent.RecordID) {
		return false, nil
	}
	queued, err := g.queue.CountForRecord(ctx, intent.EntityType, *intent.RecordID)
	if err != nil {
		return false, err
	}
	return queued == 0, nil
}

func (g *Gateway) applyNow(ctx context.Context, intent *models.Intent) (*SubmitResult, error) {
	adp, err := g.adapters.For(intent.EntityType)
	if err != nil {
		return nil, err
	}
	record, err := adp.Apply(ctx, adapter.Intent{
		Action:         intent.Action,
		RecordID:       intent.RecordID,
		Payload:        intent.Payload,
		IdempotencyKey: uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}

	switch intent.Action {
	case models.ActionDelete:
		err = g.records.DeleteRecord(ctx, intent.EntityType, *intent.RecordID)
	default:
		if record != nil {
			err = g.records.UpsertRecord(ctx, record)
		}
	}
	if err != nil {
		g.logger.WithError(err).Warn("Failed to update local read model after remote apply")
	}

	return &SubmitResult{Applied: true, Record: record}, nil
}

func (g *Gateway) enqueue(ctx context.Context, intent *models.Intent, logger *logrus.Entry) (*SubmitResult, error) {
	if intent.Action == models.ActionCreate && intent.LocalID == nil {
		placeholder := utils.NewPlaceholderID()
		intent.LocalID = &placeholder
	}

	id, err := g.queue.Enqueue(ctx, intent)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Queued: true, QueueItemID: id}
	record, err := g.applyOptimistic(ctx, intent)
	if err != nil {
		logger.WithError(err).Warn("Failed to apply optimistic local update")
	}
	result.Record = record

	logger.WithField("queue_item_id", id).Info("Mutation queued")
	return result, nil
}

func (g *Gateway) applyOptimistic(ctx context.Context, intent *models.Intent) (*models.LocalRecord, error) {
	switch intent.Action {
	case models.ActionCreate:
		data, err := utils.WithID(intent.Payload, *intent.LocalID)
		if err != nil {
			return nil, err
		}
		record := &models.LocalRecord{
			EntityType: intent.EntityType,
			ID:         *intent.LocalID,
			Data:       data,
			LocalOnly:  true,
		}
		return record, g.records.UpsertRecord(ctx, record)

	case models.ActionUpdate:
		existing, err := g.records.GetRecord(ctx, intent.EntityType, *intent.RecordID)
		if err != nil {
			return nil, err
		}
		record := &models.LocalRecord{EntityType: intent.EntityType, ID: *intent.RecordID}
		var base json.RawMessage
		if existing != nil {
			base = existing.Data
			record.LocalOnly = existing.LocalOnly
		}
		merged, err := utils.MergeJSON(base, intent.Payload)
		if err != nil {
			return nil, err
		}
		if record.Data, err = utils.WithID(merged, record.ID); err != nil {
			return nil, err
		}
		return record, g.records.UpsertRecord(ctx, record)

	default:
		return nil, g.records.DeleteRecord(ctx, intent.EntityType, *intent.RecordID)
	}
}
