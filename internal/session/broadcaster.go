// ABOUTME: In-memory fan-out of session signals to any number of observers
// ABOUTME: Non-blocking publish; slow subscribers drop signals instead of stalling the session

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// broadcaster delivers signals to subscribers. Each subscriber gets its own
// buffered channel; a full channel drops the signal for that subscriber.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Signal
	closed      bool
	logger      *slog.Logger
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{
		subscribers: make(map[string]chan Signal),
		logger:      logger,
	}
}

// subscribe registers a subscriber. The subscription is removed, and its
// channel closed, when ctx is done or the broadcaster closes.
func (b *broadcaster) subscribe(ctx context.Context) (<-chan Signal, string) {
	subID := uuid.New().String()
	ch := make(chan Signal, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	context.AfterFunc(ctx, func() { b.unsubscribe(subID) })

	return ch, subID
}

// publish sends sig to every subscriber without blocking.
func (b *broadcaster) publish(sig Signal) {
	// Sends happen under the read lock so unsubscribe cannot close a
	// channel mid-send; they never block.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- sig:
		default:
			b.logger.Debug("dropped signal for slow subscriber",
				"sub_id", id,
				"kind", sig.Kind.String())
		}
	}
}

func (b *broadcaster) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// close closes every subscriber channel. Later subscribers get a closed channel.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
