package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

type countingDrainer struct {
	mu     sync.Mutex
	passes int
	ran    chan struct{}
}

func newCountingDrainer() *countingDrainer {
	return &countingDrainer{ran: make(chan struct{}, 10)}
}

func (d *countingDrainer) RunPass(ctx context.Context) *models.SyncSummary {
	d.mu.Lock()
	d.passes++
	d.mu.Unlock()
	d.ran <- struct{}{}
	summary := models.NewSyncSummary(time.Now())
	summary.Success = true
	return summary
}

func (d *countingDrainer) wait(t *testing.T) {
	t.Helper()
	select {
	case <-d.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a drain pass")
	}
}

func TestSchedulerRunsOnStartupTriggerAndRegain(t *testing.T) {
	drainer := newCountingDrainer()
	regained := make(chan struct{}, 1)
	scheduler := NewScheduler(drainer, time.Hour, time.Minute, regained, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(stopped)
	}()

	drainer.wait(t)

	require.True(t, scheduler.Trigger(TriggerForeground))
	drainer.wait(t)

	regained <- struct{}{}
	drainer.wait(t)

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	drainer.mu.Lock()
	defer drainer.mu.Unlock()
	assert.Equal(t, 3, drainer.passes)
}

func TestSchedulerRunsOnTimer(t *testing.T) {
	drainer := newCountingDrainer()
	scheduler := NewScheduler(drainer, 20*time.Millisecond, 0, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	drainer.wait(t)
	drainer.wait(t)
}

func TestSchedulerCoalescesTriggers(t *testing.T) {
	scheduler := NewScheduler(newCountingDrainer(), time.Hour, 0, nil, quietLogger())

	assert.True(t, scheduler.Trigger(TriggerManual))
	assert.False(t, scheduler.Trigger(TriggerForeground))
}

func TestParseTrigger(t *testing.T) {
	assert.Equal(t, TriggerForeground, ParseTrigger("foreground"))
	assert.Equal(t, TriggerConnectivity, ParseTrigger("connectivity"))
	assert.Equal(t, TriggerManual, ParseTrigger(""))
	assert.Equal(t, TriggerManual, ParseTrigger("pull"))
}
