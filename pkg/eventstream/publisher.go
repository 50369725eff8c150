package eventstream

import "context"

// Publisher publishes fact events to an event stream backend.
type Publisher interface {
	PublishFact(ctx context.Context, event *FactEvent) error
	Close() error
}
