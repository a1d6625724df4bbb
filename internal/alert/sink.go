package alert

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Severity of an operational signal
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Signal is an operational alert raised by the engine
type Signal struct {
	Category string         `json:"category"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Fields   map[string]any `json:"fields,omitempty"`
	At       time.Time      `json:"at"`
}

// Sink receives signals. Implementations must not block the caller for long.
type Sink interface {
	Emit(ctx context.Context, signal Signal)
}

// LogSink writes signals to a logrus logger
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a sink over logger
func NewLogSink(logger *logrus.Logger) *LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, signal Signal) {
	fields := logrus.Fields{
		"alert_category": signal.Category,
		"alert_severity": string(signal.Severity),
	}
	for k, v := range signal.Fields {
		fields[k] = v
	}

	entry := s.logger.WithFields(fields)
	switch signal.Severity {
	case SeverityError:
		entry.Error(signal.Message)
	case SeverityWarning:
		entry.Warn(signal.Message)
	default:
		entry.Info(signal.Message)
	}
}

// MemorySink keeps the most recent signals in a bounded buffer
type MemorySink struct {
	mu      sync.RWMutex
	signals []Signal
	limit   int
}

// NewMemorySink keeps up to limit signals
func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 100
	}
	return &MemorySink{limit: limit}
}

func (s *MemorySink) Emit(ctx context.Context, signal Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signals = append(s.signals, signal)
	if over := len(s.signals) - s.limit; over > 0 {
		s.signals = append([]Signal(nil), s.signals[over:]...)
	}
}

// Signals returns a copy of the buffered signals, oldest first
func (s *MemorySink) Signals() []Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Signal, len(s.signals))
	copy(out, s.signals)
	return out
}

// Count returns how many buffered signals match category
func (s *MemorySink) Count(category string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sig := range s.signals {
		if sig.Category == category {
			n++
		}
	}
	return n
}

// MultiSink fans a signal out to several sinks
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, signal Signal) {
	for _, sink := range m {
		sink.Emit(ctx, signal)
	}
}
