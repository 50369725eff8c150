// Package storage defines the fact store contract implemented by the sqlite,
// postgres and inmemory drivers.
package storage

import (
	"context"

	"github.com/papercomputeco/meh/pkg/fact"
)

// Driver persists facts and serves every read the rest of meh performs.
// Facts are append-only: besides Insert, the only mutations are the status
// transitions below and the two deletion paths, RejectFact and GarbageCollect.
type Driver interface {
	// Insert appends a fact. The search index is updated in the same
	// transaction as the row write.
	Insert(ctx context.Context, f *fact.Fact) error

	// GetByID returns the fact with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*fact.Fact, error)

	// GetByIDPrefix returns the facts whose id starts with prefix, compared
	// case-insensitively, newest first. It resolves short ids.
	GetByIDPrefix(ctx context.Context, prefix string) ([]*fact.Fact, error)

	// GetByPath returns the active facts at exactly path, newest first.
	GetByPath(ctx context.Context, path string) ([]*fact.Fact, error)

	// GetByPathPrefix returns the active facts at or below prefix, ordered by
	// path and then newest first.
	GetByPathPrefix(ctx context.Context, prefix string) ([]*fact.Fact, error)

	// ListChildren groups the active facts below parent by their next path
	// segment. Pages are ordered by the grouped path and resume after cursor.
	ListChildren(ctx context.Context, parent string, limit int, cursor string) (*ChildPage, error)

	// Search ranks active facts matching any word of query, best first.
	Search(ctx context.Context, query string, limit int) ([]*SearchHit, error)

	// MarkSuperseded moves an active fact to superseded.
	MarkSuperseded(ctx context.Context, id string) error

	// MarkDeprecated moves an active fact to deprecated.
	MarkDeprecated(ctx context.Context, id string) error

	// ApproveFact moves a pending_review fact to active.
	ApproveFact(ctx context.Context, id string) error

	// RejectFact deletes a pending_review fact and rebuilds the search index.
	RejectFact(ctx context.Context, id string) error

	// GetPendingReview returns the facts awaiting review, newest first.
	GetPendingReview(ctx context.Context) ([]*fact.Fact, error)

	// GetHistoryChain follows supersedes links back from id and returns the
	// chain oldest first, ending with id itself.
	GetHistoryChain(ctx context.Context, id string) ([]*fact.Fact, error)

	// GetSupersedingFacts follows supersedes links forward from id and
	// returns the successors oldest first, excluding id itself.
	GetSupersedingFacts(ctx context.Context, id string) ([]*fact.Fact, error)

	// GarbageCollect finds deprecated and superseded facts last updated before
	// the retention window. With dryRun it only reports them.
	GarbageCollect(ctx context.Context, retentionDays int, dryRun bool) (*GCResult, error)

	// Stats counts facts by status.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the backend.
	Close() error
}
