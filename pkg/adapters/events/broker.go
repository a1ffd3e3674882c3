// Package events provides in-process publication of link lifecycle events.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

// ErrBrokerClosed is returned when dispatching on a closed broker.
var ErrBrokerClosed = errors.New("event broker is closed")

// Subscription receives LinkCreated events on C.
type Subscription struct {
	ID        string
	C         chan domain.LinkCreated
	CreatedAt time.Time
}

// Broker fans events out to subscribers without blocking the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	closed      bool
	logger      *slog.Logger
}

// NewBroker creates a new event broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscription),
		logger:      logger,
	}
}

// Subscribe registers a subscriber with the given channel buffer.
func (b *Broker) Subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		ID:        uuid.New().String(),
		C:         make(chan domain.LinkCreated, buffer),
		CreatedAt: time.Now(),
	}
	if b.closed {
		close(sub.C)
		return sub
	}

	b.subscribers[sub.ID] = sub
	b.logger.Debug("subscriber added", "subscriber_id", sub.ID)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.C)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Dispatch delivers the event to every subscriber that has room for it.
func (b *Broker) Dispatch(ctx context.Context, event domain.LinkCreated) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	for _, sub := range b.subscribers {
		select {
		case sub.C <- event:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				"subscriber_id", sub.ID,
				"event_id", event.EventID,
				"link_id", event.LinkID,
			)
		}
	}
	return nil
}

// Close closes every subscription; later dispatches fail.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.C)
		delete(b.subscribers, id)
	}
}

var _ ports.EventDispatcher = (*Broker)(nil)
