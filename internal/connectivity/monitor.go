package connectivity

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Monitor turns signal change notifications into "connectivity regained"
// events, emitted once per offline to online transition
type Monitor struct {
	probe    Prober
	notifier Notifier
	logger   *logrus.Logger
	poll     time.Duration
	regained chan struct{}
}

// NewMonitor creates a monitor. poll is a fallback re-check interval for
// sources that miss notifications; zero disables it.
func NewMonitor(probe Prober, notifier Notifier, poll time.Duration, logger *logrus.Logger) *Monitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Monitor{
		probe:    probe,
		notifier: notifier,
		logger:   logger,
		poll:     poll,
		regained: make(chan struct{}, 1),
	}
}

// Regained emits when the device comes back online
func (m *Monitor) Regained() <-chan struct{} {
	return m.regained
}

// Run blocks until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	online := m.probe.IsOnline(ctx)
	m.logger.WithField("online", online).Info("Connectivity monitor started")

	var tick <-chan time.Time
	if m.poll > 0 {
		ticker := time.NewTicker(m.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	var changes <-chan struct{}
	if m.notifier != nil {
		changes = m.notifier.Changes()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
		case <-tick:
		}

		now := m.probe.IsOnline(ctx)
		if now == online {
			continue
		}
		online = now

		m.logger.WithField("online", online).Info("Connectivity changed")
		if online {
			select {
			case m.regained <- struct{}{}:
			default:
			}
		}
	}
}
