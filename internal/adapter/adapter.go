// Package adapter maps queued intents for each entity type onto the remote
// REST API and translates remote records into local read-model rows.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
	"github.com/Kamar-Folarin/propsync/internal/remote"
)

// Intent is one mutation to apply remotely
type Intent struct {
	Action         models.Action
	RecordID       *string
	Payload        json.RawMessage
	IdempotencyKey string
}

// Adapter applies intents for a single entity type
type Adapter interface {
	// EntityType returns the entity type this adapter serves
	EntityType() models.EntityType
	// Apply performs the intent remotely. It returns the server's record for
	// creates and updates and nil for deletes.
	Apply(ctx context.Context, intent Intent) (*models.LocalRecord, error)
	// Fetch lists the full remote collection
	Fetch(ctx context.Context) ([]*models.LocalRecord, error)
	// ToLocal converts a remote JSON record into a local read-model row
	ToLocal(data json.RawMessage) (*models.LocalRecord, error)
}

// Resolver finds the adapter for an entity type
type Resolver interface {
	For(entityType models.EntityType) (Adapter, error)
}

// Doer sends requests to the remote API
type Doer interface {
	Do(ctx context.Context, req remote.Request, out any) error
}

// validateFunc checks a payload. partial is true for updates, which may carry
// only the changed fields.
type validateFunc func(payload json.RawMessage, partial bool) error

// resource is the REST mapping shared by all entity adapters
type resource struct {
	entityType models.EntityType
	path       string
	client     Doer
	validate   validateFunc
	now        func() time.Time
}

func (r *resource) EntityType() models.EntityType {
	return r.entityType
}

func (r *resource) Apply(ctx context.Context, intent Intent) (*models.LocalRecord, error) {
	switch intent.Action {
	case models.ActionCreate:
		return r.create(ctx, intent)
	case models.ActionUpdate:
		return r.update(ctx, intent)
	case models.ActionDelete:
		return nil, r.delete(ctx, intent)
	default:
		return nil, apperrors.NewTerminalError(fmt.Sprintf("unsupported action %q", intent.Action), nil)
	}
}

func (r *resource) create(ctx context.Context, intent Intent) (*models.LocalRecord, error) {
	if err := r.validate(intent.Payload, false); err != nil {
		return nil, apperrors.NewTerminalError(fmt.Sprintf("invalid %s payload", r.entityType), err)
	}

	var out json.RawMessage
	err := r.client.Do(ctx, remote.Request{
		Method:         http.MethodPost,
		Path:           r.path,
		Body:           intent.Payload,
		IdempotencyKey: intent.IdempotencyKey,
	}, &out)
	if err != nil {
		// a replayed create the server already applied answers 409 with the existing record
		if apiErr, ok := remote.AsAPIError(err); ok && apiErr.StatusCode == http.StatusConflict {
			if record, convErr := r.ToLocal(apiErr.Body); convErr == nil {
				return record, nil
			}
		}
		return nil, err
	}

	return r.ToLocal(out)
}

func (r *resource) update(ctx context.Context, intent Intent) (*models.LocalRecord, error) {
	id, err := requireID(intent)
	if err != nil {
		return nil, err
	}
	if err := r.validate(intent.Payload, true); err != nil {
		return nil, apperrors.NewTerminalError(fmt.Sprintf("invalid %s payload", r.entityType), err)
	}

	var out json.RawMessage
	if err := r.client.Do(ctx, remote.Request{
		Method:         http.MethodPatch,
		Path:           r.itemPath(id),
		Body:           intent.Payload,
		IdempotencyKey: intent.IdempotencyKey,
	}, &out); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return &models.LocalRecord{EntityType: r.entityType, ID: id, Data: intent.Payload, UpdatedAt: r.now()}, nil
	}
	return r.ToLocal(out)
}

func (r *resource) delete(ctx context.Context, intent Intent) error {
	id, err := requireID(intent)
	if err != nil {
		return err
	}

	err = r.client.Do(ctx, remote.Request{
		Method:         http.MethodDelete,
		Path:           r.itemPath(id),
		IdempotencyKey: intent.IdempotencyKey,
	}, nil)
	if remote.StatusCode(err) == http.StatusNotFound {
		// already gone
		return nil
	}
	return err
}

func (r *resource) Fetch(ctx context.Context) ([]*models.LocalRecord, error) {
	var raw json.RawMessage
	if err := r.client.Do(ctx, remote.Request{Method: http.MethodGet, Path: r.path}, &raw); err != nil {
		return nil, err
	}

	items, err := decodeCollection(raw)
	if err != nil {
		return nil, apperrors.NewTerminalError(fmt.Sprintf("unexpected %s collection format", r.entityType), err)
	}

	records := make([]*models.LocalRecord, 0, len(items))
	for _, item := range items {
		record, err := r.ToLocal(item)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *resource) ToLocal(data json.RawMessage) (*models.LocalRecord, error) {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, apperrors.NewTerminalError(fmt.Sprintf("invalid %s record", r.entityType), err)
	}

	id, err := decodeID(head.ID)
	if err != nil || id == "" {
		return nil, apperrors.NewTerminalError(fmt.Sprintf("%s record has no id", r.entityType), err)
	}

	return &models.LocalRecord{
		EntityType: r.entityType,
		ID:         id,
		Data:       data,
		UpdatedAt:  r.now(),
	}, nil
}

func (r *resource) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func requireID(intent Intent) (string, error) {
	if intent.RecordID == nil || *intent.RecordID == "" {
		return "", apperrors.NewTerminalError(fmt.Sprintf("%s requires a record id", intent.Action), nil)
	}
	return *intent.RecordID, nil
}

// decodeID accepts string and numeric ids
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// decodeCollection accepts a bare array or a {"data": [...]} envelope
func decodeCollection(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// decodeStrict decodes payload into v; a field of the wrong JSON type is an error
func decodeStrict(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is empty")
	}
	return json.Unmarshal(payload, v)
}
