// Package sqldriver implements storage.Driver over database/sql. The sqlite
// and postgres packages embed it and supply a Dialect for the parts that
// differ between backends: schema, text index and path grouping.
package sqldriver

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/factpath"
	"github.com/papercomputeco/meh/pkg/logger"
	"github.com/papercomputeco/meh/pkg/storage"
)

// Table is the facts table name.
const Table = "facts"

// deleteChunk bounds the number of bound parameters per DELETE.
const deleteChunk = 500

// Columns lists the facts table columns in scan order.
var Columns = []string{
	"id", "path", "title", "content", "summary", "tags", "source", "namespace",
	"trust_score", "status", "fact_type", "supersedes", "extends",
	"author_type", "author_id", "created_at", "updated_at", "accessed_at",
}

// QualifiedColumns renders Columns prefixed with alias for hand-written joins.
func QualifiedColumns(alias string) string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// Dialect supplies the backend-specific statements.
type Dialect interface {
	// Name is the ent dialect name used to build portable statements.
	Name() string

	// Migrate creates the facts table, its indexes and the text index.
	Migrate(ctx context.Context, db *sql.DB) error

	// SearchQuery ranks active facts matching any of tokens. It must select
	// Columns followed by one relevance column, higher is better.
	SearchQuery(tokens []string, limit int) (string, []any)

	// ChildrenQuery groups active facts whose path starts with prefix by their
	// next segment, returning (grouped_path, count) rows ordered by
	// grouped_path, strictly after cursor, at most limit rows. An empty
	// prefix groups every active path by its first segment.
	ChildrenQuery(prefix, cursor string, limit int) (string, []any)

	// Below matches paths starting with prefix, which ends with the separator.
	Below(prefix string) *entsql.Predicate

	// RebuildIndex resynchronizes the text index after rows are deleted.
	RebuildIndex(ctx context.Context, tx *sql.Tx) error
}

// Driver implements storage.Driver. A single mutex serializes every
// operation over the one pooled connection.
type Driver struct {
	db      *sql.DB
	dialect Dialect
	builder *entsql.DialectBuilder
	logger  *slog.Logger
	now     func() time.Time

	mu sync.Mutex
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for lenient-decode and chain warnings.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithClock overrides the clock used for updated_at and retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// New migrates db with dialect and returns a driver over it. The caller
// keeps ownership of db until New succeeds; afterwards Close closes it.
func New(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*Driver, error) {
	d := &Driver{
		db:      db,
		dialect: dialect,
		builder: entsql.Dialect(dialect.Name()),
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := dialect.Migrate(ctx, db); err != nil {
		return nil, storage.Backend(err, "failed to migrate database")
	}

	return d, nil
}

// DB exposes the underlying handle for tests and maintenance commands.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Insert appends f. f.Path is normalized in place.
func (d *Driver) Insert(ctx context.Context, f *fact.Fact) error {
	if f == nil {
		return errors.Wrap(storage.ErrInvalidArgument, "cannot insert nil fact")
	}

	path, err := storage.ValidateFactPath(f.Path)
	if err != nil {
		return err
	}
	if err := validateFact(f); err != nil {
		return err
	}
	f.Path = path

	tags, err := encodeList(f.Tags)
	if err != nil {
		return storage.Serialization(err, "failed to encode tags of fact %s", f.ID)
	}
	extends, err := encodeList(f.Extends)
	if err != nil {
		return storage.Serialization(err, "failed to encode extends of fact %s", f.ID)
	}

	var accessedAt any
	if f.AccessedAt != nil {
		accessedAt = storage.FormatTime(*f.AccessedAt)
	}

	query, args := d.builder.Insert(Table).
		Columns(Columns...).
		Values(
			f.ID, f.Path, f.Title, f.Content, nullable(f.Summary), tags, string(f.Source), f.Namespace,
			f.TrustScore, string(f.Status), string(f.Type), nullable(f.Supersedes), extends,
			string(f.AuthorType), f.AuthorID, storage.FormatTime(f.CreatedAt),
			storage.FormatTime(f.UpdatedAt), accessedAt,
		).
		Query()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return storage.Backend(err, "failed to insert fact %s", f.ID)
	}

	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func validateFact(f *fact.Fact) error {
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
	return nil
}

// GetByID returns the fact with id.
func (d *Driver) GetByID(ctx context.Context, id string) (*fact.Fact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.getByID(ctx, id)
}

func (d *Driver) getByID(ctx context.Context, id string) (*fact.Fact, error) {
	query, args := d.selectFacts().
		Where(entsql.EQ("id", id)).
		Query()

	facts, err := d.queryFacts(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, storage.NotFound(id)
	}
	return facts[0], nil
}

// GetByIDPrefix returns facts whose id starts with prefix, newest first.
// Ids are upper-case ULIDs, so prefix is upper-cased before matching.
func (d *Driver) GetByIDPrefix(ctx context.Context, prefix string) ([]*fact.Fact, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, errors.Wrap(storage.ErrInvalidArgument, "id prefix cannot be empty")
	}

	query, args := d.selectFacts().
		Where(entsql.HasPrefix("id", prefix)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.queryFacts(ctx, query, args...)
}

// GetByPath returns the active facts at exactly path, newest first.
func (d *Driver) GetByPath(ctx context.Context, path string) ([]*fact.Fact, error) {
	p, err := factpath.Parse(path)
	if err != nil {
		return nil, err
	}

	query, args := d.selectFacts().
		Where(entsql.And(
			entsql.EQ("path", p.String()),
			entsql.EQ("status", string(fact.StatusActive)),
		)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.queryFacts(ctx, query, args...)
}

// GetByPathPrefix returns the active facts at or below prefix.
func (d *Driver) GetByPathPrefix(ctx context.Context, prefix string) ([]*fact.Fact, error) {
	p, childPrefix, err := storage.ParentPrefix(prefix)
	if err != nil {
		return nil, err
	}

	active := entsql.EQ("status", string(fact.StatusActive))
	where := active
	if !p.IsRoot() {
		where = entsql.And(
			active,
			entsql.Or(entsql.EQ("path", p.String()), d.dialect.Below(childPrefix)),
		)
	}

	query, args := d.selectFacts().
		Where(where).
		OrderBy(entsql.Asc("path"), entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.queryFacts(ctx, query, args...)
}

// ListChildren returns one page of child groups below parent.
func (d *Driver) ListChildren(ctx context.Context, parent string, limit int, cursor string) (*storage.ChildPage, error) {
	_, prefix, err := storage.ParentPrefix(parent)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	query, args := d.dialect.ChildrenQuery(prefix, cursor, limit+1)

	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Backend(err, "failed to list children of %q", parent)
	}
	defer rows.Close()

	items := []storage.PathInfo{}
	for rows.Next() {
		var info storage.PathInfo
		if err := rows.Scan(&info.Path, &info.FactCount); err != nil {
			return nil, storage.Backend(err, "failed to scan child group")
		}
		items = append(items, info)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Backend(err, "failed to iterate child groups")
	}

	page := &storage.ChildPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
		page.NextCursor = page.Items[limit-1].Path
	}

	return page, nil
}

// Search ranks active facts matching any word of query.
func (d *Driver) Search(ctx context.Context, query string, limit int) ([]*storage.SearchHit, error) {
	tokens := storage.QueryTokens(query)
	if len(tokens) == 0 {
		return []*storage.SearchHit{}, nil
	}
	if limit <= 0 {
		limit = storage.DefaultSearchLimit
	}

	q, args := d.dialect.SearchQuery(tokens, limit)

	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storage.Backend(err, "failed to search facts")
	}
	defer rows.Close()

	hits := []*storage.SearchHit{}
	for rows.Next() {
		var score float64
		f, err := d.scanFact(rows, &score)
		if err != nil {
			return nil, err
		}
		hits = append(hits, &storage.SearchHit{Fact: f, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Backend(err, "failed to iterate search results")
	}

	return hits, nil
}

// MarkSuperseded moves an active fact to superseded.
func (d *Driver) MarkSuperseded(ctx context.Context, id string) error {
	return d.transition(ctx, id, fact.StatusActive, fact.StatusSuperseded)
}

// MarkDeprecated moves an active fact to deprecated.
func (d *Driver) MarkDeprecated(ctx context.Context, id string) error {
	return d.transition(ctx, id, fact.StatusActive, fact.StatusDeprecated)
}

// ApproveFact moves a pending_review fact to active.
func (d *Driver) ApproveFact(ctx context.Context, id string) error {
	return d.transition(ctx, id, fact.StatusPendingReview, fact.StatusActive)
}

func (d *Driver) transition(ctx context.Context, id string, from, to fact.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	query, args := d.builder.Update(Table).
		Set("status", string(to)).
		Set("updated_at", storage.FormatTime(d.now())).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("status", string(from)),
		)).
		Query()

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storage.Backend(err, "failed to mark fact %s %s", id, to)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storage.Backend(err, "failed to read affected rows")
	}
	if n == 0 {
		return storage.NotInState(id, string(from))
	}

	return nil
}

// RejectFact deletes a pending_review fact and rebuilds the text index.
func (d *Driver) RejectFact(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	query, args := d.builder.Delete(Table).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("status", string(fact.StatusPendingReview)),
		)).
		Query()

	return d.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return storage.Backend(err, "failed to reject fact %s", id)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return storage.Backend(err, "failed to read affected rows")
		}
		if n == 0 {
			return storage.NotInState(id, string(fact.StatusPendingReview))
		}

		return storage.Backend(d.dialect.RebuildIndex(ctx, tx), "failed to rebuild search index")
	})
}

// GetPendingReview returns facts awaiting review, newest first.
func (d *Driver) GetPendingReview(ctx context.Context) ([]*fact.Fact, error) {
	query, args := d.selectFacts().
		Where(entsql.EQ("status", string(fact.StatusPendingReview))).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.queryFacts(ctx, query, args...)
}

// GetHistoryChain walks supersedes links back from id, oldest first.
// Ancestors that were garbage collected end the walk.
func (d *Driver) GetHistoryChain(ctx context.Context, id string) ([]*fact.Fact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	chain := []*fact.Fact{current}
	seen := map[string]bool{current.ID: true}

	for current.Supersedes != nil {
		prevID := *current.Supersedes
		if seen[prevID] {
			d.logger.Warn("supersedes cycle detected", "id", current.ID, "supersedes", prevID)
			break
		}

		prev, err := d.getByID(ctx, prevID)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		seen[prev.ID] = true
		chain = append(chain, prev)
		current = prev
	}

	// Walked newest to oldest
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain, nil
}

// GetSupersedingFacts walks supersedes links forward from id, oldest first.
// When several facts supersede the same one the oldest is followed.
func (d *Driver) GetSupersedingFacts(ctx context.Context, id string) ([]*fact.Fact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	chain := []*fact.Fact{}
	seen := map[string]bool{id: true}
	current := id

	for {
		query, args := d.selectFacts().
			Where(entsql.EQ("supersedes", current)).
			OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
			Query()

		next, err := d.queryFacts(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			break
		}
		if len(next) > 1 {
			d.logger.Warn("forked supersession chain, following oldest successor",
				"id", current,
				"successors", len(next),
			)
		}

		successor := next[0]
		if seen[successor.ID] {
			d.logger.Warn("supersedes cycle detected", "id", successor.ID)
			break
		}

		seen[successor.ID] = true
		chain = append(chain, successor)
		current = successor.ID
	}

	return chain, nil
}

// GarbageCollect reports, and unless dryRun deletes, deprecated and
// superseded facts last updated before the retention window.
func (d *Driver) GarbageCollect(ctx context.Context, retentionDays int, dryRun bool) (*storage.GCResult, error) {
	cutoff, err := storage.GCCutoff(d.now(), retentionDays)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result := &storage.GCResult{
		DryRun:     dryRun,
		Cutoff:     cutoff,
		Candidates: []storage.GCCandidate{},
	}

	if dryRun {
		candidates, err := d.gcCandidates(ctx, d.db, cutoff)
		if err != nil {
			return nil, err
		}
		result.Candidates = candidates
		return result, nil
	}

	err = d.inTx(ctx, func(tx *sql.Tx) error {
		candidates, err := d.gcCandidates(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		result.Candidates = candidates
		if len(candidates) == 0 {
			return nil
		}

		for start := 0; start < len(candidates); start += deleteChunk {
			end := min(start+deleteChunk, len(candidates))
			ids := make([]any, 0, end-start)
			for _, c := range candidates[start:end] {
				ids = append(ids, c.ID)
			}

			query, args := d.builder.Delete(Table).Where(entsql.In("id", ids...)).Query()
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return storage.Backend(err, "failed to delete garbage collected facts")
			}
			n, err := res.RowsAffected()
			if err != nil {
				return storage.Backend(err, "failed to read affected rows")
			}
			result.DeletedCount += int(n)
		}

		return storage.Backend(d.dialect.RebuildIndex(ctx, tx), "failed to rebuild search index")
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (d *Driver) gcCandidates(ctx context.Context, q querier, cutoff time.Time) ([]storage.GCCandidate, error) {
	superseded := d.builder.Select("supersedes").
		From(d.builder.Table(Table)).
		Where(entsql.NotNull("supersedes"))

	query, args := d.builder.Select("id", "path", "title", "status", "updated_at").
		From(d.builder.Table(Table)).
		Where(entsql.And(
			entsql.LT("updated_at", storage.FormatTime(cutoff)),
			entsql.Or(
				entsql.EQ("status", string(fact.StatusDeprecated)),
				entsql.And(
					entsql.NotIn("status", string(fact.StatusActive), string(fact.StatusPendingReview)),
					entsql.In("id", superseded),
				),
			),
		)).
		OrderBy(entsql.Asc("updated_at"), entsql.Asc("id")).
		Query()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Backend(err, "failed to find garbage collection candidates")
	}
	defer rows.Close()

	candidates := []storage.GCCandidate{}
	for rows.Next() {
		var (
			c         storage.GCCandidate
			status    string
			updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.Path, &c.Title, &status, &updatedAt); err != nil {
			return nil, storage.Backend(err, "failed to scan garbage collection candidate")
		}

		c.Status = fact.Status(status)
		c.Reason = storage.GCReasonSuperseded
		if c.Status == fact.StatusDeprecated {
			c.Reason = storage.GCReasonDeprecated
		}
		if c.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
			return nil, storage.Serialization(err, "fact %s", c.ID)
		}

		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Backend(err, "failed to iterate garbage collection candidates")
	}

	return candidates, nil
}

// Stats counts facts by status.
func (d *Driver) Stats(ctx context.Context) (*storage.Stats, error) {
	query, args := d.builder.Select("status", entsql.Count("*")).
		From(d.builder.Table(Table)).
		GroupBy("status").
		Query()

	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Backend(err, "failed to count facts")
	}
	defer rows.Close()

	stats := &storage.Stats{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storage.Backend(err, "failed to scan fact counts")
		}
		stats.Add(fact.Status(status), n)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Backend(err, "failed to iterate fact counts")
	}

	return stats, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func (d *Driver) selectFacts() *entsql.Selector {
	return d.builder.Select(Columns...).From(d.builder.Table(Table))
}

func (d *Driver) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Backend(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return storage.Backend(tx.Commit(), "failed to commit transaction")
}

var _ storage.Driver = (*Driver)(nil)
