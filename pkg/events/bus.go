package events

import (
	"context"
	"sync"

	"github.com/codemesh-labs/routing-core/pkg/observability"
)

// busCapacity is the bounded channel capacity per subscriber, matching
// the ~100 capacity used throughout the core's actor mailboxes.
const busCapacity = 100

// Bus is the capability the core consumes: publish events, subscribe to
// receive them. A publish to a full subscriber channel is logged and
// dropped rather than blocking the publisher, per the core's backpressure
// policy for the event bus.
type Bus interface {
	Publish(ctx context.Context, evt SystemEvent)
	Subscribe() <-chan SystemEvent
}

// InProcessBus is a best-effort, in-memory, multi-subscriber bus. Each
// Subscribe call gets its own bounded channel; Publish fans the event out
// to every live subscriber without blocking on any of them.
type InProcessBus struct {
	mu          sync.RWMutex
	subscribers []chan SystemEvent
	logger      observability.Logger
}

// NewInProcessBus creates an InProcessBus. logger may be nil, in which
// case a no-op logger is used.
func NewInProcessBus(logger observability.Logger) *InProcessBus {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &InProcessBus{logger: logger}
}

// Subscribe registers a new receiver and returns its read-only channel.
// The channel is never closed by the bus; callers should simply stop
// reading from it when done (and drop the reference) since this is a
// best-effort fan-out, not a managed subscription registry.
func (b *InProcessBus) Subscribe() <-chan SystemEvent {
	ch := make(chan SystemEvent, busCapacity)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers evt to every current subscriber. A subscriber whose
// channel is full never blocks the publisher; the event is dropped for
// that subscriber and logged.
func (b *InProcessBus) Publish(ctx context.Context, evt SystemEvent) {
	b.mu.RLock()
	subs := make([]chan SystemEvent, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("event bus: subscriber channel full, dropping event", map[string]interface{}{
				"event_kind": string(evt.Kind),
			})
		}
	}
}
