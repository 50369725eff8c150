// Package nop provides the publisher used when fact events are turned off.
package nop

import (
	"context"

	"github.com/papercomputeco/meh/pkg/eventstream"
)

// Publisher discards every event.
type Publisher struct{}

// NewPublisher returns a Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishFact only rejects nil events.
func (p *Publisher) PublishFact(_ context.Context, event *eventstream.FactEvent) error {
	if event == nil {
		return eventstream.ErrNilFactEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
