// Package async moves fact event delivery off the write path. A Pool queues
// events and hands them to a wrapped publisher from background workers.
package async

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/logger"
)

const (
	defaultNumWorkers = 2
	defaultQueueSize  = 256
)

var (
	// ErrQueueFull is returned when an event is dropped because every slot
	// in the queue is taken.
	ErrQueueFull = errors.New("event queue full")

	// ErrClosed is returned by PublishFact after Close.
	ErrClosed = errors.New("event pool closed")
)

// Config configures a Pool.
type Config struct {
	// Publisher delivers the queued events. Required.
	Publisher eventstream.Publisher

	// NumWorkers defaults to 2.
	NumWorkers int

	// QueueSize defaults to 256.
	QueueSize int

	Logger *slog.Logger
}

// Pool is an eventstream.Publisher that enqueues events and returns
// immediately.
type Pool struct {
	inner  eventstream.Publisher
	queue  chan *eventstream.FactEvent
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ eventstream.Publisher = (*Pool)(nil)

// NewPool starts the pool's workers.
func NewPool(c Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	p := &Pool{
		inner:  c.Publisher,
		queue:  make(chan *eventstream.FactEvent, c.QueueSize),
		logger: c.Logger,
	}
	for id := range c.NumWorkers {
		p.wg.Go(func() { p.worker(id) })
	}
	return p, nil
}

// PublishFact queues event. It never blocks: a full queue drops the event
// and returns ErrQueueFull.
func (p *Pool) PublishFact(_ context.Context, event *eventstream.FactEvent) error {
	if event == nil {
		return eventstream.ErrNilFactEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("fact event queued", "event_type", event.EventType, "fact_id", event.FactID)
		return nil
	default:
		return errors.Wrapf(ErrQueueFull, "dropping %s for %s", event.EventType, event.FactID)
	}
}

// Close stops accepting events, drains the queue and closes the wrapped
// publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.inner.Close()
}

func (p *Pool) worker(id int) {
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		// The request that produced the event may be gone by now.
		if err := p.inner.PublishFact(context.Background(), event); err != nil {
			p.logger.Warn("failed to deliver fact event",
				"event_type", event.EventType,
				"fact_id", event.FactID,
				"error", err,
			)
		}
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}
