// Package service implements meh's fact workflows on top of a storage
// driver: adding, correcting, extending and deprecating facts under a write
// policy, moderating the review queue, and emitting change events.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/eventstream/nop"
	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/factpath"
	"github.com/papercomputeco/meh/pkg/logger"
	"github.com/papercomputeco/meh/pkg/search"
	"github.com/papercomputeco/meh/pkg/storage"
)

const maxDerivedTitle = 50

var (
	// ErrWriteDenied is returned for writes while the policy is deny.
	ErrWriteDenied = errors.New("writes are disabled by policy")

	// ErrAmbiguousRef is returned when a short id matches several facts.
	ErrAmbiguousRef = errors.New("ambiguous fact reference")

	// ErrNotActive is returned when correcting or extending a fact that has
	// been superseded or deprecated.
	ErrNotActive = errors.New("fact is not active")
)

// Actor identifies who performs writes.
type Actor struct {
	Type fact.AuthorType
	ID   string
}

// Service wraps a storage driver with meh's write workflows.
type Service struct {
	driver    storage.Driver
	trust     *fact.TrustEngine
	policy    WritePolicy
	actor     Actor
	source    fact.Source
	publisher eventstream.Publisher
	logger    *slog.Logger

	searchLimit   int
	tokenBudget   int
	retentionDays int
}

// Option configures a Service.
type Option func(*Service)

// WithTrustEngine sets the engine new facts are scored with.
func WithTrustEngine(e *fact.TrustEngine) Option {
	return func(s *Service) {
		s.trust = e
	}
}

// WithWritePolicy sets the write policy.
func WithWritePolicy(p WritePolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithActor sets the default author of writes.
func WithActor(a Actor) Option {
	return func(s *Service) {
		s.actor = a
	}
}

// WithSource sets the source recorded on new facts.
func WithSource(src fact.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p eventstream.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSearchDefaults sets the limit and token budget applied to searches
// that leave them unset.
func WithSearchDefaults(limit, tokenBudget int) Option {
	return func(s *Service) {
		s.searchLimit = limit
		s.tokenBudget = tokenBudget
	}
}

// WithRetentionDays sets the default garbage collection retention.
func WithRetentionDays(days int) Option {
	return func(s *Service) {
		s.retentionDays = days
	}
}

// New creates a service over driver.
func New(driver storage.Driver, opts ...Option) *Service {
	s := &Service{
		driver:        driver,
		trust:         fact.DefaultTrustEngine(),
		policy:        PolicyAllow,
		actor:         Actor{Type: fact.AuthorAI},
		source:        fact.SourceLocal,
		publisher:     nop.NewPublisher(),
		logger:        logger.Nop(),
		searchLimit:   search.DefaultLimit,
		retentionDays: storage.DefaultRetentionDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// As returns a copy of s that writes as actor.
func (s *Service) As(actor Actor) *Service {
	c := *s
	c.actor = actor
	return &c
}

// Driver returns the underlying storage driver.
func (s *Service) Driver() storage.Driver {
	return s.driver
}

// Policy returns the write policy.
func (s *Service) Policy() WritePolicy {
	return s.policy
}

// Close closes the publisher and the driver.
func (s *Service) Close() error {
	return errors.CombineErrors(s.publisher.Close(), s.driver.Close())
}

// AddRequest describes a new fact. A blank Title is derived from Content.
type AddRequest struct {
	Path      string   `json:"path"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
}

// Add stores a new fact. Under the ask policy it waits in the review queue.
func (s *Service) Add(ctx context.Context, req AddRequest) (*fact.Fact, error) {
	if err := s.policy.checkWrite(); err != nil {
		return nil, err
	}

	path, err := storage.ValidateFactPath(req.Path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.Wrap(storage.ErrInvalidArgument, "content is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = TitleFromContent(req.Content)
	}

	f := fact.New(path, title, req.Content).
		WithTags(req.Tags).
		WithNamespace(req.Namespace)

	if err := s.write(ctx, f); err != nil {
		return nil, err
	}

	s.emit(ctx, s.eventFor(eventstream.EventTypeFactCreated, f))
	return f, nil
}

// Correct supersedes the fact ref resolves to with new content.
func (s *Service) Correct(ctx context.Context, ref, content string) (*fact.Fact, error) {
	if err := s.policy.checkWrite(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(storage.ErrInvalidArgument, "content is required")
	}

	original, err := s.resolveActive(ctx, ref, "correct")
	if err != nil {
		return nil, err
	}

	correction := fact.Correction(original, content)
	if err := s.write(ctx, correction); err != nil {
		return nil, err
	}

	// Pending corrections supersede their original on approval.
	if correction.IsActive() {
		if err := s.driver.MarkSuperseded(ctx, original.ID); err != nil {
			return nil, errors.Wrapf(err, "correction %s stored but superseding %s failed", correction.ID, original.ID)
		}
	}

	s.emit(ctx, s.eventFor(eventstream.EventTypeFactCorrected, correction))
	return correction, nil
}

// Extend adds content to the fact ref resolves to without replacing it.
func (s *Service) Extend(ctx context.Context, ref, content string) (*fact.Fact, error) {
	if err := s.policy.checkWrite(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(storage.ErrInvalidArgument, "content is required")
	}

	original, err := s.resolveActive(ctx, ref, "extend")
	if err != nil {
		return nil, err
	}

	extension := fact.Extension(original, content)
	if err := s.write(ctx, extension); err != nil {
		return nil, err
	}

	s.emit(ctx, s.eventFor(eventstream.EventTypeFactExtended, extension))
	return extension, nil
}

// Deprecate flags the fact ref resolves to as deprecated. The reason is
// carried on the emitted event only.
func (s *Service) Deprecate(ctx context.Context, ref, reason string) (*fact.Fact, error) {
	if err := s.policy.checkWrite(); err != nil {
		return nil, err
	}

	f, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.driver.MarkDeprecated(ctx, f.ID); err != nil {
		return nil, err
	}
	f.Status = fact.StatusDeprecated

	event := eventstream.NewFactEvent(eventstream.EventTypeFactDeprecated, f)
	event.Reason = reason
	s.emit(ctx, event)
	return f, nil
}

// Approve activates a pending fact. An approved correction supersedes its
// original.
func (s *Service) Approve(ctx context.Context, ref string) (*fact.Fact, error) {
	f, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.driver.ApproveFact(ctx, f.ID); err != nil {
		return nil, err
	}
	f.Status = fact.StatusActive

	if f.Supersedes != nil {
		err := s.driver.MarkSuperseded(ctx, *f.Supersedes)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Warn("approved correction targets a fact that is no longer active",
				"id", f.ID,
				"supersedes", *f.Supersedes,
			)
		case err != nil:
			return nil, err
		}
	}

	s.emit(ctx, s.eventFor(eventstream.EventTypeFactApproved, f))
	return f, nil
}

// Reject deletes a pending fact.
func (s *Service) Reject(ctx context.Context, ref string) (*fact.Fact, error) {
	f, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.driver.RejectFact(ctx, f.ID); err != nil {
		return nil, err
	}

	s.emit(ctx, s.eventFor(eventstream.EventTypeFactRejected, f))
	return f, nil
}

// Pending lists the review queue, newest first.
func (s *Service) Pending(ctx context.Context) ([]*fact.Fact, error) {
	return s.driver.GetPendingReview(ctx)
}

// Get returns the fact ref resolves to.
func (s *Service) Get(ctx context.Context, ref string) (*fact.Fact, error) {
	return s.Resolve(ctx, ref)
}

// History is a fact's supersession chain in both directions.
type History struct {
	// Chain runs from the oldest ancestor to the fact itself.
	Chain []*fact.Fact `json:"chain"`

	// Superseding lists the facts that replaced it, oldest first.
	Superseding []*fact.Fact `json:"superseding"`
}

// History returns the supersession chain of the fact ref resolves to.
func (s *Service) History(ctx context.Context, ref string) (*History, error) {
	f, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	chain, err := s.driver.GetHistoryChain(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	superseding, err := s.driver.GetSupersedingFacts(ctx, f.ID)
	if err != nil {
		return nil, err
	}

	return &History{Chain: chain, Superseding: superseding}, nil
}

// BrowseResult is one level of the path hierarchy.
type BrowseResult struct {
	Path     string             `json:"path"`
	Children *storage.ChildPage `json:"children"`

	// Facts are the active facts stored at Path itself.
	Facts []*fact.Fact `json:"facts"`
}

// Browse lists the children of parent and the facts stored at it.
func (s *Service) Browse(ctx context.Context, parent string, limit int, cursor string) (*BrowseResult, error) {
	p, _, err := storage.ParentPrefix(parent)
	if err != nil {
		return nil, err
	}

	children, err := s.driver.ListChildren(ctx, parent, limit, cursor)
	if err != nil {
		return nil, err
	}

	result := &BrowseResult{
		Path:     p.String(),
		Children: children,
		Facts:    []*fact.Fact{},
	}
	if !p.IsRoot() && cursor == "" {
		if result.Facts, err = s.driver.GetByPath(ctx, p.String()); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Search runs q, filling in the configured limit and token budget.
func (s *Service) Search(ctx context.Context, q search.Query) (*search.Response, error) {
	if q.Limit <= 0 {
		q.Limit = s.searchLimit
	}
	if q.TokenBudget <= 0 {
		q.TokenBudget = s.tokenBudget
	}

	s.logger.Debug("search request",
		"query", q.Text,
		"limit", q.Limit,
		"path", q.PathPrefix,
	)

	return search.Run(ctx, s.driver, q)
}

// Stats counts facts by status.
func (s *Service) Stats(ctx context.Context) (*storage.Stats, error) {
	return s.driver.Stats(ctx)
}

// GC garbage collects with retentionDays, or the configured retention when
// it is negative.
func (s *Service) GC(ctx context.Context, retentionDays int, dryRun bool) (*storage.GCResult, error) {
	if retentionDays < 0 {
		retentionDays = s.retentionDays
	}

	result, err := s.driver.GarbageCollect(ctx, retentionDays, dryRun)
	if err != nil {
		return nil, err
	}

	if result.DeletedCount > 0 {
		s.logger.Info("garbage collected facts",
			"deleted", result.DeletedCount,
			"retention_days", retentionDays,
		)
		s.emit(ctx, eventstream.NewCollectedEvent(result.DeletedCount))
	}

	return result, nil
}

// EffectiveTrust scores f as of now with the service's trust engine.
func (s *Service) EffectiveTrust(f *fact.Fact) float64 {
	base := s.trust.InitialTrust(f.AuthorType, f.Source)
	return s.trust.EffectiveTrust(base, f.CreatedAt, f.Status, f.Type, 0)
}

// Resolve finds a fact by full id, short id ("meh-01hq3k2a" or
// "01hq3k2a"), or path, where a path yields its newest active fact.
func (s *Service) Resolve(ctx context.Context, ref string) (*fact.Fact, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.Wrap(storage.ErrInvalidArgument, "fact reference is required")
	}

	if looksLikePath(ref) {
		return s.resolvePath(ctx, ref)
	}

	id := strings.TrimPrefix(ref, fact.MehIDPrefix)
	f, err := s.driver.GetByID(ctx, id)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	matches, err := s.driver.GetByIDPrefix(ctx, id)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		if _, perr := factpath.Parse(ref); perr == nil && !strings.HasPrefix(ref, fact.MehIDPrefix) {
			return s.resolvePath(ctx, ref)
		}
		return nil, storage.NotFound(ref)
	case 1:
		return matches[0], nil
	default:
		return nil, errors.WithHint(
			errors.Wrapf(ErrAmbiguousRef, "%s matches %d facts", ref, len(matches)),
			"use a longer id prefix or the full id",
		)
	}
}

func (s *Service) resolvePath(ctx context.Context, ref string) (*fact.Fact, error) {
	facts, err := s.driver.GetByPath(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, errors.Wrapf(storage.ErrNotFound, "no active fact at %s", ref)
	}
	return facts[0], nil
}

func (s *Service) resolveActive(ctx context.Context, ref, verb string) (*fact.Fact, error) {
	f, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !f.IsActive() {
		return nil, errors.WithHintf(
			errors.Wrapf(ErrNotActive, "cannot %s %s: it is %s", verb, f.MehID(), f.Status),
			"run `meh history %s` and %s the latest version", f.MehID(), verb,
		)
	}
	return f, nil
}

// write stamps f with the service's actor, source and summary, applies the
// policy's initial status, and inserts it.
func (s *Service) write(ctx context.Context, f *fact.Fact) error {
	f.WithSource(s.source, s.trust)
	f.WithAuthor(s.actor.Type, s.actor.ID, s.trust)
	f.GenerateSummary(fact.DefaultSummaryChars)
	if s.policy == PolicyAsk {
		f.WithStatus(fact.StatusPendingReview)
	}

	return s.driver.Insert(ctx, f)
}

func (s *Service) eventFor(eventType string, f *fact.Fact) *eventstream.FactEvent {
	if f.Status == fact.StatusPendingReview && eventType != eventstream.EventTypeFactRejected {
		eventType = eventstream.EventTypeFactPending
	}
	return eventstream.NewFactEvent(eventType, f)
}

// emit publishes event. Delivery failures are logged and never fail the
// write that caused them.
func (s *Service) emit(ctx context.Context, event *eventstream.FactEvent) {
	if err := s.publisher.PublishFact(ctx, event); err != nil {
		s.logger.Warn("failed to publish fact event",
			"event_type", event.EventType,
			"id", event.FactID,
			"error", err,
		)
	}
}

// TitleFromContent is the first non-blank line of content, cut to
// maxDerivedTitle characters.
func TitleFromContent(content string) string {
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > maxDerivedTitle {
			line = strings.TrimSpace(string(r[:maxDerivedTitle]))
		}
		return line
	}
	return ""
}

func looksLikePath(ref string) bool {
	return strings.HasPrefix(ref, "@") || strings.Contains(ref, factpath.Separator)
}
