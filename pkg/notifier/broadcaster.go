// Package notifier fans change events out to live subscribers inside one API process.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/google/uuid"
)

const (
	DefaultBufferSize = 64
	DefaultMaxMissed  = 3
)

// ErrClosed is returned by Publish after the broadcaster was closed.
var ErrClosed = errors.New("broadcaster closed")

// Filter scopes a subscription server-side. The zero value receives everything.
type Filter struct {
	Area string
}

// Matches reports whether event passes the filter. Untagged events, heartbeats and
// connection confirmations pass every filter.
func (f Filter) Matches(event models.ChangeEvent) bool {
	if f.Area == "" || event.Tag == "" {
		return true
	}

	if event.Kind == models.ChangeHeartbeat || event.Kind == models.ChangeConnected {
		return true
	}

	return strings.EqualFold(f.Area, event.Tag)
}

// Subscription is one live listener. Its channel is closed when the subscription is
// closed, evicted or the broadcaster shuts down.
type Subscription struct {
	ID     string
	Filter Filter

	events      chan models.ChangeEvent
	missed      int
	broadcaster *Broadcaster
}

// Events returns the channel events are delivered on, in publish order.
func (s *Subscription) Events() <-chan models.ChangeEvent {
	return s.events
}

// Close unsubscribes. Closing twice is a no-op.
func (s *Subscription) Close() {
	s.broadcaster.remove(s.ID, "closed")
}

// Option customizes a Broadcaster.
type Option func(*Broadcaster)

// WithBufferSize sets the per-subscriber buffer.
func WithBufferSize(size int) Option {
	return func(b *Broadcaster) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithMaxMissed sets how many consecutive full-buffer misses evict a subscriber.
func WithMaxMissed(missed int) Option {
	return func(b *Broadcaster) {
		if missed > 0 {
			b.maxMissed = missed
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

// Broadcaster delivers every published event to every matching subscriber without
// ever blocking the publisher.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]*Subscription
	closed      bool

	bufferSize int
	maxMissed  int
	logger     *slog.Logger
}

// New creates a broadcaster.
func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subscribers: make(map[string]*Subscription),
		bufferSize:  DefaultBufferSize,
		maxMissed:   DefaultMaxMissed,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger = b.logger.With("module", "broadcaster")

	return b
}

// Subscribe registers a listener. Subscribing to a closed broadcaster returns a
// subscription whose channel is already closed.
func (b *Broadcaster) Subscribe(filter Filter) *Subscription {
	sub := &Subscription{
		ID:          uuid.NewString(),
		Filter:      filter,
		events:      make(chan models.ChangeEvent, b.bufferSize),
		broadcaster: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.events)

		return sub
	}

	b.subscribers[sub.ID] = sub
	activeSubscribers.Inc()

	b.logger.Debug("Subscriber added", "subscription_id", sub.ID, "area", filter.Area)

	return sub
}

// Publish hands event to every matching subscriber. A subscriber whose buffer is
// full misses the event; reaching the miss limit in a row evicts it.
func (b *Broadcaster) Publish(ctx context.Context, event models.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	published.WithLabelValues(string(event.Kind)).Inc()

	for id, sub := range b.subscribers {
		if !sub.Filter.Matches(event) {
			continue
		}

		select {
		case sub.events <- event:
			sub.missed = 0
		default:
			sub.missed++
			missedEvents.Inc()

			if sub.missed >= b.maxMissed {
				b.logger.WarnContext(ctx, "Evicting slow subscriber", "subscription_id", id, "missed", sub.missed)
				b.evict(id, "slow")
			}
		}
	}

	return nil
}

// Len returns the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

// Close closes every subscription. Further publishes fail with ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id := range b.subscribers {
		b.evict(id, "shutdown")
	}
}

func (b *Broadcaster) remove(id, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.evict(id, reason)
}

// evict must be called with mu held.
func (b *Broadcaster) evict(id, reason string) {
	sub, ok := b.subscribers[id]
	if !ok {
		return
	}

	delete(b.subscribers, id)
	close(sub.events)

	activeSubscribers.Dec()
	removals.WithLabelValues(reason).Inc()
}
