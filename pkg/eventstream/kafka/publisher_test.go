package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/eventstream/kafka"
	"github.com/papercomputeco/meh/pkg/fact"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *kafka.Publisher
	)

	BeforeEach(func() {
		writer = &recordingWriter{}
		var err error
		publisher, err = kafka.NewPublisher(kafka.Config{}, kafka.WithMessageWriter(writer))
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires brokers when no writer is supplied", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "facts"})
		Expect(err).To(MatchError(ContainSubstring("broker")))
	})

	It("builds a real writer from brokers", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("writes events as JSON keyed by path", func() {
		f := fact.New("@svc/timeout", "Timeout", "Timeout is 30s.")
		event := eventstream.NewFactEvent(eventstream.EventTypeFactCreated, f)

		Expect(publisher.PublishFact(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("@svc/timeout"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte("meh.fact.created")}))

		var decoded eventstream.FactEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.FactID).To(Equal(f.ID))
		Expect(decoded.EventID).To(Equal(event.EventID))
	})

	It("rejects nil events", func() {
		Expect(publisher.PublishFact(context.Background(), nil)).To(MatchError(eventstream.ErrNilFactEvent))
	})

	It("wraps write failures", func() {
		writer.err = errors.New("broker down")
		event := eventstream.NewFactEvent(eventstream.EventTypeFactCreated, fact.New("@a", "A", "a"))

		err := publisher.PublishFact(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
