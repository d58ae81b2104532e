// Package source defines the event feed boundary: an ordered, push-based
// sequence of ledger events the projection subscribes to exactly once.
package source

import (
	"context"
	"sync"

	"github.com/louisbranch/payrollwatch/internal/payroll/event"
)

// Feed is an ordered event sequence. Events returns a receive channel that
// is closed when the feed ends or the context is cancelled. A feed is
// subscribed to once; ordering across subscribers is not defined.
type Feed interface {
	Events(ctx context.Context) (<-chan event.Event, error)
}

// Channel is an in-process feed backed by a buffered channel. It is used by
// tests and by adapters that receive events from an external subscription
// and republish them in order.
type Channel struct {
	once   sync.Once
	events chan event.Event
}

// NewChannel creates a feed with the given buffer size.
func NewChannel(buffer int) *Channel {
	return &Channel{events: make(chan event.Event, buffer)}
}

// Publish appends one event to the feed. It blocks when the buffer is full
// so publishers inherit the projection's ordering backpressure.
func (c *Channel) Publish(ctx context.Context, ev event.Event) error {
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the feed. Safe to call more than once.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.events) })
}

// Events implements Feed.
func (c *Channel) Events(ctx context.Context) (<-chan event.Event, error) {
	return c.events, nil
}

var _ Feed = (*Channel)(nil)
