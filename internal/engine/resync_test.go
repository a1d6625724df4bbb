package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

type progressCall struct {
	done, total int
}

func newResyncFixture(t *testing.T, batchSize int) (*processorFixture, *ResyncService) {
	t.Helper()
	f := newProcessorFixture(t, nil)
	cfg := &config.BatchConfig{Size: batchSize, Workers: 1}
	resync := NewResyncService(f.store, f.adapters, connectivity.NewProbe(f.source, quietLogger()), cfg, quietLogger())
	resync.now = f.clock.Now
	return f, resync
}

func remoteRecord(t *testing.T, entityType models.EntityType, id string) *models.LocalRecord {
	return &models.LocalRecord{
		EntityType: entityType,
		ID:         id,
		Data:       mustJSON(t, map[string]string{"id": id}),
	}
}

func TestResyncSingleRecord(t *testing.T) {
	f, resync := newResyncFixture(t, 100)
	ctx := context.Background()
	f.saved.records = []*models.LocalRecord{remoteRecord(t, models.EntitySavedProperty, "srv-1")}

	var calls []progressCall
	summary := resync.Sync(ctx, models.EntitySavedProperty, func(done, total int) {
		calls = append(calls, progressCall{done, total})
	})

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.ItemsSynced)
	assert.Equal(t, []progressCall{{1, 1}}, calls)

	records, err := f.store.ListRecords(ctx, models.EntitySavedProperty)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "srv-1", records[0].ID)

	progress, err := resync.Progress(ctx, models.EntitySavedProperty)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressCompleted, progress.Status)
	assert.Equal(t, 1, progress.Done)
	assert.Equal(t, 1, progress.Total)
}

func TestResyncReportsIncreasingProgress(t *testing.T) {
	f, resync := newResyncFixture(t, 2)
	for i := 1; i <= 5; i++ {
		f.saved.records = append(f.saved.records, remoteRecord(t, models.EntitySavedProperty, fmt.Sprintf("srv-%d", i)))
	}

	var calls []progressCall
	summary := resync.Sync(context.Background(), models.EntitySavedProperty, func(done, total int) {
		calls = append(calls, progressCall{done, total})
	})
	require.True(t, summary.Success)
	assert.Equal(t, 5, summary.ItemsSynced)

	require.Len(t, calls, 5)
	for i, call := range calls {
		assert.Equal(t, i+1, call.done)
		assert.Equal(t, 5, call.total)
	}
}

func TestResyncOffline(t *testing.T) {
	f, resync := newResyncFixture(t, 100)
	f.source.Set(connectivity.Signal{Connected: false})

	called := false
	summary := resync.Sync(context.Background(), models.EntitySavedProperty, func(done, total int) {
		called = true
	})

	assert.False(t, summary.Success)
	assert.Equal(t, []string{"Device is offline"}, summary.Errors)
	assert.False(t, called)
	assert.Equal(t, 0, f.saved.Fetches())
}

func TestResyncPrunesRecordsMissingRemotely(t *testing.T) {
	f, resync := newResyncFixture(t, 100)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertRecords(ctx, []*models.LocalRecord{
		remoteRecord(t, models.EntitySavedProperty, "srv-old"),
		{EntityType: models.EntitySavedProperty, ID: "local-1", Data: mustJSON(t, map[string]string{"id": "local-1"}), LocalOnly: true},
		remoteRecord(t, models.EntityDocument, "doc-1"),
	}))
	f.saved.records = []*models.LocalRecord{remoteRecord(t, models.EntitySavedProperty, "srv-1")}

	summary := resync.Sync(ctx, models.EntitySavedProperty, nil)
	require.True(t, summary.Success)

	gone, err := f.store.GetRecord(ctx, models.EntitySavedProperty, "srv-old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	placeholder, err := f.store.GetRecord(ctx, models.EntitySavedProperty, "local-1")
	require.NoError(t, err)
	assert.NotNil(t, placeholder)

	other, err := f.store.GetRecord(ctx, models.EntityDocument, "doc-1")
	require.NoError(t, err)
	assert.NotNil(t, other)
}

func TestResyncFetchFailure(t *testing.T) {
	f, resync := newResyncFixture(t, 100)
	ctx := context.Background()
	f.saved.fetchErr = apperrors.NewTransientError("GET /saved-properties failed", errors.New("connection reset"))

	summary := resync.Sync(ctx, models.EntitySavedProperty, nil)
	assert.False(t, summary.Success)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "connection reset")

	progress, err := resync.Progress(ctx, models.EntitySavedProperty)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressFailed, progress.Status)
	assert.NotEmpty(t, progress.Error)
}

func TestResyncDoesNotTouchQueue(t *testing.T) {
	f, resync := newResyncFixture(t, 100)
	ctx := context.Background()
	f.enqueueSavedProperty(t, "1 Queue St")
	f.saved.records = []*models.LocalRecord{remoteRecord(t, models.EntitySavedProperty, "srv-1")}

	summary := resync.Sync(ctx, models.EntitySavedProperty, nil)
	require.True(t, summary.Success)

	count, err := f.store.CountPending(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, f.saved.Calls())
}

func TestResyncUnknownEntity(t *testing.T) {
	_, resync := newResyncFixture(t, 100)

	summary := resync.Sync(context.Background(), "listing", nil)
	assert.False(t, summary.Success)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "unknown entity type")
}

func TestResyncRejectsConcurrentRunForSameType(t *testing.T) {
	_, resync := newResyncFixture(t, 100)
	require.True(t, resync.acquire(models.EntityDocument))
	defer resync.release(models.EntityDocument)

	summary := resync.Sync(context.Background(), models.EntityDocument, nil)
	assert.False(t, summary.Success)
	assert.Equal(t, []string{"Sync already in progress"}, summary.Errors)
}

func TestResyncAll(t *testing.T) {
	f, resync := newResyncFixture(t, 100)
	f.saved.records = []*models.LocalRecord{remoteRecord(t, models.EntitySavedProperty, "srv-1")}

	results := resync.SyncAll(context.Background())
	require.Len(t, results, len(models.AllEntityTypes()))
	assert.True(t, results[models.EntitySavedProperty].Success)
	assert.True(t, results[models.EntityDocument].Success)
	// no adapter registered in the fixture
	assert.False(t, results[models.EntityLOI].Success)
}

func TestResyncProgressNotFound(t *testing.T) {
	_, resync := newResyncFixture(t, 100)

	_, err := resync.Progress(context.Background(), models.EntityLOI)
	assert.True(t, apperrors.IsNotFound(err))
}
