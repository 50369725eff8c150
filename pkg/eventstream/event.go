// Package eventstream defines the transport-neutral events meh emits when
// facts change, and the Publisher backends deliver them through.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/meh/pkg/fact"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	EventTypeFactCreated    = "meh.fact.created"
	EventTypeFactPending    = "meh.fact.pending"
	EventTypeFactCorrected  = "meh.fact.corrected"
	EventTypeFactExtended   = "meh.fact.extended"
	EventTypeFactDeprecated = "meh.fact.deprecated"
	EventTypeFactApproved   = "meh.fact.approved"
	EventTypeFactRejected   = "meh.fact.rejected"
	EventTypeFactsCollected = "meh.facts.collected"
)

// FactEvent describes one change to one fact.
type FactEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	FactID        string      `json:"fact_id"`
	Path          string      `json:"path"`
	Title         string      `json:"title,omitempty"`
	Status        fact.Status `json:"status,omitempty"`
	Supersedes    *string     `json:"supersedes,omitempty"`

	// Reason is set on deprecation events when one was given.
	Reason string `json:"reason,omitempty"`

	// Count is set on collection events instead of a single fact.
	Count int `json:"count,omitempty"`
}

// NewFactEvent builds an event of eventType describing f as it is now.
func NewFactEvent(eventType string, f *fact.Fact) *FactEvent {
	return &FactEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		FactID:        f.ID,
		Path:          f.Path,
		Title:         f.Title,
		Status:        f.Status,
		Supersedes:    f.Supersedes,
	}
}

// NewCollectedEvent builds the event emitted after garbage collection
// deleted count facts.
func NewCollectedEvent(count int) *FactEvent {
	return &FactEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeFactsCollected,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Count:         count,
	}
}

// PartitionKey groups events for the same path so consumers see them in order.
func (e *FactEvent) PartitionKey() string {
	if e.Path != "" {
		return e.Path
	}
	return e.FactID
}
