package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Trigger names what started a drain pass
type Trigger string

const (
	TriggerStartup      Trigger = "startup"
	TriggerTimer        Trigger = "timer"
	TriggerConnectivity Trigger = "connectivity"
	TriggerForeground   Trigger = "foreground"
	TriggerManual       Trigger = "manual"
)

// ParseTrigger maps a request value onto a Trigger, defaulting to manual
func ParseTrigger(s string) Trigger {
	switch t := Trigger(s); t {
	case TriggerStartup, TriggerTimer, TriggerConnectivity, TriggerForeground, TriggerManual:
		return t
	default:
		return TriggerManual
	}
}

// Scheduler runs drain passes on a timer, when connectivity comes back and
// on explicit triggers
type Scheduler struct {
	drainer     Drainer
	interval    time.Duration
	passTimeout time.Duration
	regained    <-chan struct{}
	triggers    chan Trigger
	logger      *logrus.Logger
}

// NewScheduler creates a scheduler. regained may be nil.
func NewScheduler(drainer Drainer, interval, passTimeout time.Duration, regained <-chan struct{}, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		drainer:     drainer,
		interval:    interval,
		passTimeout: passTimeout,
		regained:    regained,
		triggers:    make(chan Trigger, 1),
		logger:      logger,
	}
}

// Trigger requests a pass without waiting for it. It returns false when a
// request is already queued, in which case the two are coalesced.
func (s *Scheduler) Trigger(reason Trigger) bool {
	select {
	case s.triggers <- reason:
		return true
	default:
		s.logger.WithField("reason", reason).Debug("Sync already requested, coalescing trigger")
		return false
	}
}

// Run blocks until ctx is cancelled. A pass runs immediately on start.
func (s *Scheduler) Run(ctx context.Context) {
	logger := s.logger.WithField("interval", s.interval.String())
	logger.Info("Starting sync scheduler")

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.run(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sync scheduler stopped")
			return
		case <-tick:
			s.run(ctx, TriggerTimer)
		case <-s.regained:
			s.run(ctx, TriggerConnectivity)
		case reason := <-s.triggers:
			s.run(ctx, reason)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, reason Trigger) {
	passCtx := ctx
	if s.passTimeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, s.passTimeout)
		defer cancel()
	}

	summary := s.drainer.RunPass(passCtx)
	logger := s.logger.WithFields(logrus.Fields{
		"reason":       reason,
		"success":      summary.Success,
		"items_synced": summary.ItemsSynced,
	})
	if !summary.Success && len(summary.Errors) > 0 {
		logger.WithField("error", summary.Errors[0]).Debug("Scheduled sync pass did not complete")
		return
	}
	logger.Debug("Scheduled sync pass completed")
}
