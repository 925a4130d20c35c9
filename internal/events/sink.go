package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"velour/internal/domain"
)

// Sink receives domain events. Emission is fire-and-forget: a sink must never
// fail the operation that produced the event.
type Sink interface {
	Emit(ctx context.Context, ev domain.Event)
}

// LogSink writes events to the structured log. Used when Kafka is not
// configured.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, ev domain.Event) {
	s.logger.Info("domain event",
		zap.String("event", ev.Name),
		zap.Time("occurred_at", ev.OccurredAt),
		zap.Any("payload", ev.Payload),
	)
}

// MemorySink collects events in memory for tests and inspection.
type MemorySink struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Emit(ctx context.Context, ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Names returns emitted event names in order.
func (s *MemorySink) Names() []string {
	evs := s.Events()
	names := make([]string, len(evs))
	for i, ev := range evs {
		names[i] = ev.Name
	}
	return names
}
