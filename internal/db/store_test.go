package db

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

// testClock hands out strictly increasing timestamps so created_at order is deterministic
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
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func setupTestStore(t *testing.T) (*SQLStore, *testClock) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))

	clock := newTestClock()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"), WithNowFunc(clock.Now), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	return store, clock
}

func strPtr(s string) *string { return &s }

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: config.DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLStore{dialect: config.DriverSQLite}
	assert.Equal(t, "SELECT ? ", lite.rebind("SELECT ? "))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.NoError(t, store.Migrate())
}

func TestSyncStatusRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	status, err := store.GetSyncStatus(ctx, "drain")
	require.NoError(t, err)
	assert.Nil(t, status)

	require.NoError(t, store.UpdateSyncStatus(ctx, &models.SyncStatus{
		Name:      "drain",
		Status:    "completed",
		PassCount: 3,
		Queue:     models.QueueStats{Pending: 2, Failed: 1},
	}))
	require.NoError(t, store.UpdateSyncStatus(ctx, &models.SyncStatus{
		Name:      "drain",
		Status:    "failed",
		LastError: "Device is offline",
		PassCount: 4,
	}))

	status, err = store.GetSyncStatus(ctx, "drain")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, int64(4), status.PassCount)
	assert.Equal(t, "Device is offline", status.LastError)

	assert.Error(t, store.UpdateSyncStatus(ctx, nil))
}

func TestResyncProgressRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	progress, err := store.GetResyncProgress(ctx, models.EntityDocument)
	require.NoError(t, err)
	assert.Nil(t, progress)

	require.NoError(t, store.SaveResyncProgress(ctx, &models.ResyncProgress{
		EntityType: models.EntityDocument,
		Done:       3,
		Total:      7,
		ProgressTracking: models.ProgressTracking{
			Status: models.ProgressInProgress,
		},
	}))

	progress, err = store.GetResyncProgress(ctx, models.EntityDocument)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, 3, progress.Done)
	assert.Equal(t, 7, progress.Total)
	assert.Equal(t, models.ProgressInProgress, progress.Status)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
