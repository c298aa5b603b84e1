package engine

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// Inbox is the bounded event queue drained by Engine.Run. Publishers block
// while it is full; the engine never does.
type Inbox struct {
	ch chan domain.Event
}

// NewInbox creates a queue holding up to size events.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{ch: make(chan domain.Event, size)}
}

// Publish implements ports.EventSink.
func (in *Inbox) Publish(ctx context.Context, ev domain.Event) error {
	select {
	case in.ch <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine.Publish: %s: %w", ev.Kind, ctx.Err())
	}
}

// Events is the consumer side.
func (in *Inbox) Events() <-chan domain.Event { return in.ch }

// Len is the number of queued events.
func (in *Inbox) Len() int { return len(in.ch) }
