package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("accepts fact events and drops them", func() {
		p := nop.NewPublisher()
		event := &eventstream.FactEvent{EventType: eventstream.EventTypeFactCreated, FactID: "01J0", Path: "@svc"}

		Expect(p.PublishFact(context.Background(), event)).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})

	It("rejects a nil event", func() {
		err := nop.NewPublisher().PublishFact(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilFactEvent))
	})
})
