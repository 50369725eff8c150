package async_test

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/eventstream/async"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	closed bool
	gate   chan struct{}
	err    error
}

func (r *recordingPublisher) PublishFact(_ context.Context, e *eventstream.FactEvent) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.FactID)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) delivered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func event(id string) *eventstream.FactEvent {
	return &eventstream.FactEvent{EventType: eventstream.EventTypeFactCreated, FactID: id}
}

var _ = Describe("Pool", func() {
	var (
		ctx   context.Context
		inner *recordingPublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		inner = &recordingPublisher{}
	})

	It("requires a publisher", func() {
		_, err := async.NewPool(async.Config{})
		Expect(err).To(MatchError(ContainSubstring("publisher is required")))
	})

	It("delivers every queued event before Close returns", func() {
		pool, err := async.NewPool(async.Config{Publisher: inner, NumWorkers: 3})
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{"a", "b", "c", "d"} {
			Expect(pool.PublishFact(ctx, event(id))).To(Succeed())
		}
		Expect(pool.Close()).To(Succeed())

		Expect(inner.delivered()).To(ConsistOf("a", "b", "c", "d"))
		Expect(inner.closed).To(BeTrue())
	})

	It("drops events when the queue is full", func() {
		inner.gate = make(chan struct{})
		pool, err := async.NewPool(async.Config{Publisher: inner, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(pool.PublishFact(ctx, event("a"))).To(Succeed())
		// The worker holds "a" at the gate, at most one more fits.
		Eventually(func() error { return pool.PublishFact(ctx, event("b")) }).Should(Succeed())
		err = pool.PublishFact(ctx, event("c"))
		Expect(errors.Is(err, async.ErrQueueFull)).To(BeTrue())

		close(inner.gate)
		Expect(pool.Close()).To(Succeed())
		Expect(inner.delivered()).To(ConsistOf("a", "b"))
	})

	It("keeps going when delivery fails", func() {
		inner.err = errors.New("broker down")
		pool, err := async.NewPool(async.Config{Publisher: inner})
		Expect(err).NotTo(HaveOccurred())

		Expect(pool.PublishFact(ctx, event("a"))).To(Succeed())
		Expect(pool.PublishFact(ctx, event("b"))).To(Succeed())
		Expect(pool.Close()).To(Succeed())
		Expect(inner.delivered()).To(HaveLen(2))
	})

	It("rejects nil events and events after Close", func() {
		pool, err := async.NewPool(async.Config{Publisher: inner})
		Expect(err).NotTo(HaveOccurred())

		Expect(errors.Is(pool.PublishFact(ctx, nil), eventstream.ErrNilFactEvent)).To(BeTrue())
		Expect(pool.Close()).To(Succeed())
		Expect(pool.Close()).To(Succeed())
		Expect(errors.Is(pool.PublishFact(ctx, event("late")), async.ErrClosed)).To(BeTrue())
	})
})
