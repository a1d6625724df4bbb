// Package connectivity decides whether the device can currently reach the
// remote API.
package connectivity

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Signal is the raw network state reported by the platform. Reachable is nil
// when the platform has not determined internet reachability yet.
type Signal struct {
	Connected bool  `json:"connected"`
	Reachable *bool `json:"reachable"`
}

// Source reads the current platform network signal
type Source interface {
	Read(ctx context.Context) (Signal, error)
}

// Notifier is implemented by sources that can announce signal changes
type Notifier interface {
	Changes() <-chan struct{}
}

// Prober answers whether the device is online
type Prober interface {
	IsOnline(ctx context.Context) bool
}

// Evaluate applies the online policy to a signal: not connected is offline,
// connected with unknown reachability is online, and connected but known
// unreachable is offline.
func Evaluate(sig Signal) bool {
	if !sig.Connected {
		return false
	}
	if sig.Reachable == nil {
		return true
	}
	return *sig.Reachable
}

// Probe is the Prober backed by a Source. It does not cache.
type Probe struct {
	source Source
	logger *logrus.Logger
}

// NewProbe creates a probe over source
func NewProbe(source Source, logger *logrus.Logger) *Probe {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Probe{source: source, logger: logger}
}

// IsOnline reads the source once. A source that cannot be read counts as
// online so a broken platform signal never blocks syncing.
func (p *Probe) IsOnline(ctx context.Context) bool {
	sig, err := p.source.Read(ctx)
	if err != nil {
		p.logger.WithError(err).Debug("Connectivity signal unavailable, assuming online")
		return true
	}
	return Evaluate(sig)
}

// StaticSource is a Source whose signal is set programmatically, for
// embedders that receive network callbacks directly and for tests
type StaticSource struct {
	mu      sync.RWMutex
	sig     Signal
	err     error
	changes chan struct{}
}

// NewStaticSource creates a source reporting sig
func NewStaticSource(sig Signal) *StaticSource {
	return &StaticSource{sig: sig, changes: make(chan struct{}, 1)}
}

// Online returns a source that reports a connected device with unknown reachability
func Online() *StaticSource {
	return NewStaticSource(Signal{Connected: true})
}

// Offline returns a source that reports a disconnected device
func Offline() *StaticSource {
	return NewStaticSource(Signal{Connected: false})
}

// Set replaces the reported signal and clears any read error
func (s *StaticSource) Set(sig Signal) {
	s.mu.Lock()
	s.sig = sig
	s.err = nil
	s.mu.Unlock()
	s.notify()
}

// SetError makes subsequent reads fail with err
func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.notify()
}

func (s *StaticSource) Read(ctx context.Context) (Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sig, s.err
}

// Changes signals after every Set or SetError. Bursts collapse into one notification.
func (s *StaticSource) Changes() <-chan struct{} {
	return s.changes
}

func (s *StaticSource) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Bool returns a pointer to b, for building Signal literals
func Bool(b bool) *bool {
	return &b
}
