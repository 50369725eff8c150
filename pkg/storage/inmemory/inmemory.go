// Package inmemory provides a map-backed storage driver for tests and
// ephemeral sessions. Search ranks with an in-process BM25.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/factpath"
	"github.com/papercomputeco/meh/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards facts and order
	mu sync.RWMutex

	// facts maps id to a private copy of each fact
	facts map[string]*fact.Fact

	// order records insertion order, standing in for a rowid
	order map[string]int
	seq   int

	now func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock overrides the clock used for updated_at and retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// NewDriver creates a new in-memory store.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		facts: make(map[string]*fact.Fact),
		order: make(map[string]int),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Insert stores a copy of f. f.Path is normalized in place.
func (d *Driver) Insert(_ context.Context, f *fact.Fact) error {
	if f == nil {
		return errors.Wrap(storage.ErrInvalidArgument, "cannot insert nil fact")
	}

	path, err := storage.ValidateFactPath(f.Path)
	if err != nil {
		return err
	}
	switch {
	case f.ID == "":
		return errors.Wrap(storage.ErrInvalidArgument, "fact id is required")
	case !f.Status.Valid():
		return errors.Wrapf(storage.ErrInvalidArgument, "invalid status %q", f.Status)
	case !f.Type.Valid():
		return errors.Wrapf(storage.ErrInvalidArgument, "invalid fact type %q", f.Type)
	case f.TrustScore < 0 || f.TrustScore > 1:
		return errors.Wrapf(storage.ErrInvalidArgument, "trust score %v outside [0, 1]", f.TrustScore)
	}
	f.Path = path

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.facts[f.ID]; ok {
		return storage.Backend(errors.Newf("duplicate id %s", f.ID), "failed to insert fact %s", f.ID)
	}

	stored := f.Clone()
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.UpdatedAt = stored.UpdatedAt.UTC()
	if stored.Tags == nil {
		stored.Tags = []string{}
	}

	d.seq++
	d.facts[f.ID] = stored
	d.order[f.ID] = d.seq
	return nil
}

// GetByID returns a copy of the fact with id.
func (d *Driver) GetByID(_ context.Context, id string) (*fact.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, ok := d.facts[id]
	if !ok {
		return nil, storage.NotFound(id)
	}
	return f.Clone(), nil
}

// GetByIDPrefix returns facts whose id starts with prefix, compared
// case-insensitively, newest first.
func (d *Driver) GetByIDPrefix(_ context.Context, prefix string) ([]*fact.Fact, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.Wrap(storage.ErrInvalidArgument, "id prefix cannot be empty")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := d.collect(func(f *fact.Fact) bool {
		return len(f.ID) >= len(prefix) && strings.EqualFold(f.ID[:len(prefix)], prefix)
	})
	slices.SortFunc(out, d.newestFirst)
	return out, nil
}

// GetByPath returns the active facts at exactly path, newest first.
func (d *Driver) GetByPath(_ context.Context, path string) ([]*fact.Fact, error) {
	p, err := factpath.Parse(path)
	if err != nil {
		return nil, err
	}
	target := p.String()

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := d.collect(func(f *fact.Fact) bool {
		return f.IsActive() && f.Path == target
	})
	slices.SortFunc(out, d.newestFirst)
	return out, nil
}

// GetByPathPrefix returns the active facts at or below prefix.
func (d *Driver) GetByPathPrefix(_ context.Context, prefix string) ([]*fact.Fact, error) {
	p, childPrefix, err := storage.ParentPrefix(prefix)
	if err != nil {
		return nil, err
	}
	target := p.String()

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := d.collect(func(f *fact.Fact) bool {
		if !f.IsActive() {
			return false
		}
		return p.IsRoot() || f.Path == target || strings.HasPrefix(f.Path, childPrefix)
	})
	slices.SortFunc(out, func(a, b *fact.Fact) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return d.newestFirst(a, b)
	})
	return out, nil
}

// ListChildren returns one page of child groups below parent.
func (d *Driver) ListChildren(_ context.Context, parent string, limit int, cursor string) (*storage.ChildPage, error) {
	_, prefix, err := storage.ParentPrefix(parent)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	d.mu.RLock()
	counts := map[string]int{}
	for _, f := range d.facts {
		if !f.IsActive() || !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		group := storage.ChildGroup(f.Path, prefix)
		if group > cursor {
			counts[group]++
		}
	}
	d.mu.RUnlock()

	items := make([]storage.PathInfo, 0, len(counts))
	for path, n := range counts {
		items = append(items, storage.PathInfo{Path: path, FactCount: n})
	}
	slices.SortFunc(items, func(a, b storage.PathInfo) int {
		return strings.Compare(a.Path, b.Path)
	})

	page := &storage.ChildPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
		page.NextCursor = page.Items[limit-1].Path
	}
	return page, nil
}

// Search ranks active facts matching any word of query.
func (d *Driver) Search(_ context.Context, query string, limit int) ([]*storage.SearchHit, error) {
	tokens := storage.QueryTokens(query)
	if len(tokens) == 0 {
		return []*storage.SearchHit{}, nil
	}
	if limit <= 0 {
		limit = storage.DefaultSearchLimit
	}

	d.mu.RLock()
	active := d.collect(func(f *fact.Fact) bool { return f.IsActive() })
	d.mu.RUnlock()

	hits := newRanker(active).rank(tokens)
	slices.SortStableFunc(hits, func(a, b *storage.SearchHit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return b.Fact.CreatedAt.Compare(a.Fact.CreatedAt)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// MarkSuperseded moves an active fact to superseded.
func (d *Driver) MarkSuperseded(_ context.Context, id string) error {
	return d.transition(id, fact.StatusActive, fact.StatusSuperseded)
}

// MarkDeprecated moves an active fact to deprecated.
func (d *Driver) MarkDeprecated(_ context.Context, id string) error {
	return d.transition(id, fact.StatusActive, fact.StatusDeprecated)
}

// ApproveFact moves a pending_review fact to active.
func (d *Driver) ApproveFact(_ context.Context, id string) error {
	return d.transition(id, fact.StatusPendingReview, fact.StatusActive)
}

func (d *Driver) transition(id string, from, to fact.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.facts[id]
	if !ok || f.Status != from {
		return storage.NotInState(id, string(from))
	}

	f.Status = to
	f.UpdatedAt = d.now().UTC()
	return nil
}

// RejectFact deletes a pending_review fact.
func (d *Driver) RejectFact(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.facts[id]
	if !ok || f.Status != fact.StatusPendingReview {
		return storage.NotInState(id, string(fact.StatusPendingReview))
	}

	delete(d.facts, id)
	delete(d.order, id)
	return nil
}

// GetPendingReview returns facts awaiting review, newest first.
func (d *Driver) GetPendingReview(_ context.Context) ([]*fact.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := d.collect(func(f *fact.Fact) bool {
		return f.Status == fact.StatusPendingReview
	})
	slices.SortFunc(out, d.newestFirst)
	return out, nil
}

// GetHistoryChain walks supersedes links back from id, oldest first.
func (d *Driver) GetHistoryChain(_ context.Context, id string) ([]*fact.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	current, ok := d.facts[id]
	if !ok {
		return nil, storage.NotFound(id)
	}

	chain := []*fact.Fact{current.Clone()}
	seen := map[string]bool{id: true}
	for current.Supersedes != nil {
		prev, ok := d.facts[*current.Supersedes]
		if !ok || seen[prev.ID] {
			break
		}
		seen[prev.ID] = true
		chain = append(chain, prev.Clone())
		current = prev
	}

	slices.Reverse(chain)
	return chain, nil
}

// GetSupersedingFacts walks supersedes links forward from id, oldest first,
// following the oldest successor at a fork.
func (d *Driver) GetSupersedingFacts(_ context.Context, id string) ([]*fact.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chain := []*fact.Fact{}
	seen := map[string]bool{id: true}
	current := id
	for {
		successors := d.collect(func(f *fact.Fact) bool {
			return f.Supersedes != nil && *f.Supersedes == current
		})
		if len(successors) == 0 {
			break
		}
		slices.SortFunc(successors, func(a, b *fact.Fact) int {
			return -d.newestFirst(a, b)
		})

		next := successors[0]
		if seen[next.ID] {
			break
		}
		seen[next.ID] = true
		chain = append(chain, next)
		current = next.ID
	}
	return chain, nil
}

// GarbageCollect reports, and unless dryRun deletes, deprecated and
// superseded facts last updated before the retention window.
func (d *Driver) GarbageCollect(_ context.Context, retentionDays int, dryRun bool) (*storage.GCResult, error) {
	cutoff, err := storage.GCCutoff(d.now(), retentionDays)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	superseded := map[string]bool{}
	for _, f := range d.facts {
		if f.Supersedes != nil {
			superseded[*f.Supersedes] = true
		}
	}

	candidates := []storage.GCCandidate{}
	for _, f := range d.facts {
		reason, ok := storage.GCEligible(f.Status, superseded[f.ID], f.UpdatedAt, cutoff)
		if !ok {
			continue
		}
		candidates = append(candidates, storage.GCCandidate{
			ID:        f.ID,
			Path:      f.Path,
			Title:     f.Title,
			Status:    f.Status,
			Reason:    reason,
			UpdatedAt: f.UpdatedAt,
		})
	}
	slices.SortFunc(candidates, func(a, b storage.GCCandidate) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	result := &storage.GCResult{
		DryRun:     dryRun,
		Cutoff:     cutoff,
		Candidates: candidates,
	}
	if dryRun {
		return result, nil
	}

	for _, c := range candidates {
		delete(d.facts, c.ID)
		delete(d.order, c.ID)
	}
	result.DeletedCount = len(candidates)
	return result, nil
}

// Stats counts facts by status.
func (d *Driver) Stats(_ context.Context) (*storage.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := &storage.Stats{}
	for _, f := range d.facts {
		stats.Add(f.Status, 1)
	}
	return stats, nil
}

// Count returns the number of stored facts.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.facts)
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

// collect returns copies of the facts keep accepts. Callers hold mu.
func (d *Driver) collect(keep func(*fact.Fact) bool) []*fact.Fact {
	out := []*fact.Fact{}
	for _, f := range d.facts {
		if keep(f) {
			out = append(out, f.Clone())
		}
	}
	return out
}

// newestFirst orders by created_at descending, then insertion order
// descending. Callers hold mu.
func (d *Driver) newestFirst(a, b *fact.Fact) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(d.order[b.ID], d.order[a.ID])
}

var _ storage.Driver = (*Driver)(nil)
