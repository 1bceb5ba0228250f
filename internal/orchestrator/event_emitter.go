package orchestrator

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventEmitter provides a thread-safe channel of engine events for
// observers. A full channel drops events rather than blocking the engine.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	logger       *zap.Logger
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int, logger *zap.Logger) *EventEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventEmitter{
		events: make(chan Event, bufferSize),
		logger: logger,
	}
}

// Emit sends an event to the channel. If the channel is full it retries
// briefly, then drops the event and accounts for the drop.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	// Give the receiver a short window to drain before dropping.
	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			e.logger.Warn("event channel full, dropping",
				zap.String("type", string(event.Type)),
				zap.Uint64("total_dropped", count))
		}
	}
}

// DroppedCount returns the total number of events dropped so far.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only event channel for subscribers.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the event channel. Call only after the engine has stopped.
func (e *EventEmitter) Close() {
	close(e.events)
}
