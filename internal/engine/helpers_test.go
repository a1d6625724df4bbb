package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/propsync/internal/adapter"
	"github.com/Kamar-Folarin/propsync/internal/alert"
	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	"github.com/Kamar-Folarin/propsync/internal/db"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
	"github.com/Kamar-Folarin/propsync/internal/utils"
)

// testClock is a manually advanced clock shared by the store and the engine
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	return logger
}

func setupStore(t *testing.T, clock *testClock) *db.SQLStore {
	t.Helper()
	store, err := db.NewSQLiteStore(filepath.Join(t.TempDir(), "engine.db"),
		db.WithNowFunc(clock.Now), db.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func testSyncConfig() *config.SyncConfig {
	cfg := config.DefaultSyncConfig()
	cfg.BatchConfig.BatchDelay = time.Millisecond
	return cfg
}

// fakeAdapter records applied intents. By default creates are assigned
// server ids srv-1, srv-2, ... in call order.
type fakeAdapter struct {
	mu         sync.Mutex
	entityType models.EntityType
	calls      []adapter.Intent
	applyFn    func(intent adapter.Intent) (*models.LocalRecord, error)
	records    []*models.LocalRecord
	fetchErr   error
	fetches    int
}

func newFakeAdapter(entityType models.EntityType) *fakeAdapter {
	return &fakeAdapter{entityType: entityType}
}

func (f *fakeAdapter) EntityType() models.EntityType {
	return f.entityType
}

func (f *fakeAdapter) Apply(ctx context.Context, intent adapter.Intent) (*models.LocalRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, intent)
	n := len(f.calls)
	applyFn := f.applyFn
	f.mu.Unlock()

	if applyFn != nil {
		return applyFn(intent)
	}

	switch intent.Action {
	case models.ActionCreate:
		id := fmt.Sprintf("srv-%d", n)
		data, err := utils.WithID(intent.Payload, id)
		if err != nil {
			return nil, err
		}
		return &models.LocalRecord{EntityType: f.entityType, ID: id, Data: data}, nil
	case models.ActionUpdate:
		data, err := utils.WithID(intent.Payload, *intent.RecordID)
		if err != nil {
			return nil, err
		}
		return &models.LocalRecord{EntityType: f.entityType, ID: *intent.RecordID, Data: data}, nil
	default:
		return nil, nil
	}
}

func (f *fakeAdapter) Fetch(ctx context.Context) ([]*models.LocalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.records, nil
}

func (f *fakeAdapter) ToLocal(data json.RawMessage) (*models.LocalRecord, error) {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	return &models.LocalRecord{EntityType: f.entityType, ID: head.ID, Data: data}, nil
}

func (f *fakeAdapter) Calls() []adapter.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]adapter.Intent, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeAdapter) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeResolver map[models.EntityType]*fakeAdapter

func (r fakeResolver) For(entityType models.EntityType) (adapter.Adapter, error) {
	if a, ok := r[entityType]; ok {
		return a, nil
	}
	return nil, apperrors.NewTerminalError(fmt.Sprintf("no adapter for entity type %q", entityType), nil)
}

func newResolver() (fakeResolver, *fakeAdapter) {
	saved := newFakeAdapter(models.EntitySavedProperty)
	return fakeResolver{
		models.EntitySavedProperty: saved,
		models.EntityDocument:      newFakeAdapter(models.EntityDocument),
	}, saved
}

// processorFixture is a processor over a real SQLite store
type processorFixture struct {
	clock     *testClock
	store     *db.SQLStore
	source    *connectivity.StaticSource
	alerts    *alert.MemorySink
	adapters  fakeResolver
	saved     *fakeAdapter
	processor *Processor
}

func newProcessorFixture(t *testing.T, cfg *config.SyncConfig) *processorFixture {
	t.Helper()
	if cfg == nil {
		cfg = testSyncConfig()
	}

	f := &processorFixture{
		clock:  newTestClock(),
		source: connectivity.Online(),
		alerts: alert.NewMemorySink(50),
	}
	f.store = setupStore(t, f.clock)
	f.adapters, f.saved = newResolver()
	f.processor = NewProcessor(ProcessorDeps{
		Queue:    f.store,
		Records:  f.store,
		Adapters: f.adapters,
		Probe:    connectivity.NewProbe(f.source, quietLogger()),
		Alerts:   f.alerts,
	}, cfg, quietLogger(), WithClock(f.clock.Now))
	return f
}

func (f *processorFixture) enqueue(t *testing.T, intent *models.Intent) string {
	t.Helper()
	id, err := f.store.Enqueue(context.Background(), intent)
	require.NoError(t, err)
	return id
}

func (f *processorFixture) enqueueSavedProperty(t *testing.T, street string) string {
	t.Helper()
	return f.enqueue(t, &models.Intent{
		EntityType: models.EntitySavedProperty,
		Action:     models.ActionCreate,
		Payload:    mustJSON(t, map[string]string{"address_street": street}),
	})
}

// MockQueueStore implements db.QueueStore for testing
type MockQueueStore struct {
	mock.Mock
}

func (m *MockQueueStore) Enqueue(ctx context.Context, intent *models.Intent) (string, error) {
	args := m.Called(ctx, intent)
	return args.String(0), args.Error(1)
}

func (m *MockQueueStore) GetQueueItem(ctx context.Context, id string) (*models.QueueItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*models.QueueItem)
	return item, args.Error(1)
}

func (m *MockQueueStore) ListPending(ctx context.Context, now time.Time) ([]*models.QueueItem, error) {
	args := m.Called(ctx, now)
	items, _ := args.Get(0).([]*models.QueueItem)
	return items, args.Error(1)
}

func (m *MockQueueStore) CountPending(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueStore) CountForRecord(ctx context.Context, entityType models.EntityType, recordKey string) (int, error) {
	args := m.Called(ctx, entityType, recordKey)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueStore) MarkProcessing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockQueueStore) MarkDone(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockQueueStore) MarkRetry(ctx context.Context, id string, attempts int, nextRetryAt time.Time, lastErr string) error {
	return m.Called(ctx, id, attempts, nextRetryAt, lastErr).Error(0)
}

func (m *MockQueueStore) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return m.Called(ctx, id, attempts, lastErr).Error(0)
}

func (m *MockQueueStore) RewriteRecordID(ctx context.Context, entityType models.EntityType, placeholder, recordID string) error {
	return m.Called(ctx, entityType, placeholder, recordID).Error(0)
}

// MockRecordStore implements db.RecordStore for testing
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) GetRecord(ctx context.Context, entityType models.EntityType, id string) (*models.LocalRecord, error) {
	args := m.Called(ctx, entityType, id)
	record, _ := args.Get(0).(*models.LocalRecord)
	return record, args.Error(1)
}

func (m *MockRecordStore) ListRecords(ctx context.Context, entityType models.EntityType) ([]*models.LocalRecord, error) {
	args := m.Called(ctx, entityType)
	records, _ := args.Get(0).([]*models.LocalRecord)
	return records, args.Error(1)
}

func (m *MockRecordStore) UpsertRecord(ctx context.Context, record *models.LocalRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockRecordStore) UpsertRecords(ctx context.Context, records []*models.LocalRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *MockRecordStore) DeleteRecord(ctx context.Context, entityType models.EntityType, id string) error {
	return m.Called(ctx, entityType, id).Error(0)
}

func (m *MockRecordStore) ReplaceRecordID(ctx context.Context, entityType models.EntityType, oldID string, record *models.LocalRecord) error {
	return m.Called(ctx, entityType, oldID, record).Error(0)
}

func (m *MockRecordStore) PruneRecords(ctx context.Context, entityType models.EntityType, keep []string) (int, error) {
	args := m.Called(ctx, entityType, keep)
	return args.Int(0), args.Error(1)
}
