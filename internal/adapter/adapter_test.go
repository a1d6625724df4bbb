package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/propsync/internal/config"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
	"github.com/Kamar-Folarin/propsync/internal/remote"
)

func newTestRegistry(t *testing.T, handler http.HandlerFunc) *Registry {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))

	cfg := config.DefaultRemoteConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 2 * time.Second
	cfg.Breaker.Enabled = false
	cfg.RateLimit.RequestsPerMinute = 0

	client, err := remote.NewClient(cfg, logger, remote.WithRetryConfig(0, time.Millisecond, time.Millisecond))
	require.NoError(t, err)
	return NewRegistry(client)
}

func strPtr(s string) *string { return &s }

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry(nil)

	for _, entityType := range models.AllEntityTypes() {
		a, err := registry.For(entityType)
		require.NoError(t, err)
		assert.Equal(t, entityType, a.EntityType())
	}

	_, err := registry.For("listing")
	assert.True(t, apperrors.IsTerminal(err))
}

func TestCreateReturnsServerRecord(t *testing.T) {
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/saved-properties", r.URL.Path)
		assert.Equal(t, "item-1", r.Header.Get("Idempotency-Key"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"address_street":"123 Main"}`, string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"srv-42","address_street":"123 Main"}`))
	})

	a, err := registry.For(models.EntitySavedProperty)
	require.NoError(t, err)

	record, err := a.Apply(context.Background(), Intent{
		Action:         models.ActionCreate,
		Payload:        json.RawMessage(`{"address_street":"123 Main"}`),
		IdempotencyKey: "item-1",
	})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "srv-42", record.ID)
	assert.Equal(t, models.EntitySavedProperty, record.EntityType)
	assert.False(t, record.LocalOnly)
}

func TestCreateValidationIsTerminal(t *testing.T) {
	var calls int32
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	tests := []struct {
		name       string
		entityType models.EntityType
		payload    string
	}{
		{"property without street", models.EntitySavedProperty, `{"notes":"nice"}`},
		{"property with wrong type", models.EntitySavedProperty, `{"address_street":42}`},
		{"loi without price", models.EntityLOI, `{"property_id":"p1"}`},
		{"document without name", models.EntityDocument, `{"size_bytes":10}`},
		{"empty search", models.EntitySearchHistory, `{}`},
		{"empty payload", models.EntityDocument, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := registry.For(tt.entityType)
			require.NoError(t, err)

			_, err = a.Apply(context.Background(), Intent{Action: models.ActionCreate, Payload: json.RawMessage(tt.payload)})
			assert.True(t, apperrors.IsTerminal(err), "got %v", err)
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestReplayedCreateConflictIsSuccess(t *testing.T) {
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"id":"srv-7","property_id":"p1","offer_price":100}`))
	})

	a, _ := registry.For(models.EntityLOI)
	record, err := a.Apply(context.Background(), Intent{
		Action:         models.ActionCreate,
		Payload:        json.RawMessage(`{"property_id":"p1","offer_price":100}`),
		IdempotencyKey: "item-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-7", record.ID)
}

func TestConflictWithoutRecordIsTerminal(t *testing.T) {
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"duplicate"}`))
	})

	a, _ := registry.For(models.EntityLOI)
	_, err := a.Apply(context.Background(), Intent{
		Action:  models.ActionCreate,
		Payload: json.RawMessage(`{"property_id":"p1","offer_price":100}`),
	})
	assert.True(t, apperrors.IsTerminal(err))
}

func TestUpdateAndDelete(t *testing.T) {
	registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && r.URL.EscapedPath() == "/documents/d%2F1":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPatch && r.URL.Path == "/documents/d2":
			w.Write([]byte(`{"id":"d2","name":"renamed.pdf"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/documents/gone":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodDelete && r.URL.Path == "/documents/flaky":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})
	a, _ := registry.For(models.EntityDocument)
	ctx := context.Background()

	record, err := a.Apply(ctx, Intent{Action: models.ActionUpdate, RecordID: strPtr("d2"), Payload: json.RawMessage(`{"name":"renamed.pdf"}`)})
	require.NoError(t, err)
	assert.Equal(t, "d2", record.ID)

	record, err = a.Apply(ctx, Intent{Action: models.ActionUpdate, RecordID: strPtr("d/1"), Payload: json.RawMessage(`{"name":"x.pdf"}`)})
	require.NoError(t, err)
	assert.Equal(t, "d/1", record.ID, "empty update response falls back to the intent")

	_, err = a.Apply(ctx, Intent{Action: models.ActionUpdate, Payload: json.RawMessage(`{}`)})
	assert.True(t, apperrors.IsTerminal(err), "update without record id")

	record, err = a.Apply(ctx, Intent{Action: models.ActionDelete, RecordID: strPtr("gone")})
	require.NoError(t, err, "deleting a missing record is a success")
	assert.Nil(t, record)

	_, err = a.Apply(ctx, Intent{Action: models.ActionDelete, RecordID: strPtr("flaky")})
	assert.True(t, apperrors.IsTransient(err))
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name string
		body string
		ids  []string
	}{
		{"bare array", `[{"id":"a"},{"id":"b"}]`, []string{"a", "b"}},
		{"envelope", `{"data":[{"id":1},{"id":2}]}`, []string{"1", "2"}},
		{"empty", `[]`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search-history", r.URL.Path)
				w.Write([]byte(tt.body))
			})
			a, _ := registry.For(models.EntitySearchHistory)

			records, err := a.Fetch(context.Background())
			require.NoError(t, err)

			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestToLocalRequiresID(t *testing.T) {
	a := NewDocumentAdapter(nil)

	_, err := a.ToLocal(json.RawMessage(`{"name":"no-id.pdf"}`))
	assert.True(t, apperrors.IsTerminal(err))

	_, err = a.ToLocal(json.RawMessage(`not json`))
	assert.True(t, apperrors.IsTerminal(err))
}
