package eventstream_test

import (
	"encoding/json"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/fact"
)

var _ = Describe("Event", func() {
	It("describes the fact it was built from", func() {
		original := fact.New("@svc/timeout", "Timeout", "Timeout is 30s.")
		correction := fact.Correction(original, "Timeout is 60s.")

		event := eventstream.NewFactEvent(eventstream.EventTypeFactCorrected, correction)
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal("meh.fact.corrected"))
		Expect(uuid.Validate(event.EventID)).To(Succeed())
		Expect(event.EmittedAt).NotTo(BeZero())
		Expect(event.FactID).To(Equal(correction.ID))
		Expect(event.Path).To(Equal("@svc/timeout"))
		Expect(event.Status).To(Equal(fact.StatusActive))
		Expect(event.Supersedes).To(HaveValue(Equal(original.ID)))
		Expect(event.PartitionKey()).To(Equal("@svc/timeout"))
	})

	It("marshals with expected top-level keys", func() {
		event := eventstream.NewFactEvent(eventstream.EventTypeFactCreated, fact.New("@a", "A", "a"))

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("fact_id"))
		Expect(got).To(HaveKey("path"))
		Expect(got).NotTo(HaveKey("supersedes"))
		Expect(got).NotTo(HaveKey("count"))
	})

	It("falls back to the fact id for partitioning", func() {
		event := &eventstream.FactEvent{FactID: "01ABC"}
		Expect(event.PartitionKey()).To(Equal("01ABC"))
	})

	It("builds collection events without a fact", func() {
		event := eventstream.NewCollectedEvent(3)
		Expect(event.EventType).To(Equal(eventstream.EventTypeFactsCollected))
		Expect(event.Count).To(Equal(3))
		Expect(event.FactID).To(BeEmpty())
		Expect(uuid.Validate(event.EventID)).To(Succeed())
	})

	It("provides ErrNilFactEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilFactEvent).To(MatchError("nil fact event"))
	})
})
