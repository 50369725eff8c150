// Package storagetest holds the ginkgo behaviours every storage.Driver must
// satisfy. Driver packages call DescribeDriver from their own suites.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/storage"
)

// Epoch is the instant test clocks start at.
var Epoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock for drivers under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory opens an empty driver whose updated_at and retention cutoffs
// follow now.
type Factory func(now func() time.Time) (storage.Driver, error)

// Days converts whole days to a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// NewFact builds an active fact at path created at the given instant.
func NewFact(path, title, content string, createdAt time.Time) *fact.Fact {
	f := fact.New(path, title, content)
	f.CreatedAt = createdAt
	f.UpdatedAt = createdAt
	return f
}

func ids(facts []*fact.Fact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.ID
	}
	return out
}

func hitIDs(hits []*storage.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Fact.ID
	}
	return out
}

// DescribeDriver registers the shared driver behaviours under name.
func DescribeDriver(name string, factory Factory) bool {
	return Describe(name, func() {
		var (
			ctx    context.Context
			clock  *Clock
			driver storage.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			clock = NewClock()

			var err error
			driver, err = factory(clock.Now)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				Expect(driver.Close()).To(Succeed())
			})
		})

		insert := func(path, title, content string) *fact.Fact {
			f := NewFact(path, title, content, clock.Now())
			Expect(driver.Insert(ctx, f)).To(Succeed())
			clock.Advance(time.Second)
			return f
		}

		Describe("Insert and GetByID", func() {
			It("round-trips every field", func() {
				f := NewFact("@products/alpha/api/timeout", "API timeout", "Timeout is 30s. Retries are off.", clock.Now())
				f.WithTags([]string{"api", "config"})
				f.WithSource(fact.SourceCompany, fact.DefaultTrustEngine())
				f.WithAuthor(fact.AuthorHuman, "alice", fact.DefaultTrustEngine())
				f.WithNamespace("team-a")
				f.GenerateSummary(fact.DefaultSummaryChars)
				supersedes := "01ARZ3NDEKTSV4RRFFQ69G5FAV"
				f.Supersedes = &supersedes
				f.Extends = []string{"01BX5ZZKBKACTAV9WEVGEMMVRY"}
				accessed := clock.Now().Add(time.Minute)
				f.AccessedAt = &accessed

				Expect(driver.Insert(ctx, f)).To(Succeed())

				got, err := driver.GetByID(ctx, f.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.ID).To(Equal(f.ID))
				Expect(got.Path).To(Equal("@products/alpha/api/timeout"))
				Expect(got.Title).To(Equal(f.Title))
				Expect(got.Content).To(Equal(f.Content))
				Expect(got.Summary).To(HaveValue(Equal("Timeout is 30s.")))
				Expect(got.Tags).To(Equal([]string{"api", "config"}))
				Expect(got.Source).To(Equal(fact.SourceCompany))
				Expect(got.Namespace).To(Equal("team-a"))
				Expect(got.TrustScore).To(BeNumerically("~", 0.76, 1e-9))
				Expect(got.Status).To(Equal(fact.StatusActive))
				Expect(got.Type).To(Equal(fact.TypeFact))
				Expect(got.Supersedes).To(HaveValue(Equal(supersedes)))
				Expect(got.Extends).To(Equal(f.Extends))
				Expect(got.AuthorType).To(Equal(fact.AuthorHuman))
				Expect(got.AuthorID).To(Equal("alice"))
				Expect(got.CreatedAt.Equal(f.CreatedAt)).To(BeTrue())
				Expect(got.UpdatedAt.Equal(f.UpdatedAt)).To(BeTrue())
				Expect(got.AccessedAt).NotTo(BeNil())
				Expect(got.AccessedAt.Equal(accessed)).To(BeTrue())
			})

			It("keeps optional fields empty", func() {
				f := insert("@a/b", "Title", "Content")

				got, err := driver.GetByID(ctx, f.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Summary).To(BeNil())
				Expect(got.Supersedes).To(BeNil())
				Expect(got.AccessedAt).To(BeNil())
				Expect(got.Tags).To(BeEmpty())
				Expect(got.Extends).To(BeEmpty())
			})

			It("normalizes the stored path", func() {
				f := NewFact("/@a//b/", "Title", "Content", clock.Now())
				Expect(driver.Insert(ctx, f)).To(Succeed())
				Expect(f.Path).To(Equal("@a/b"))

				got, err := driver.GetByID(ctx, f.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Path).To(Equal("@a/b"))
			})

			It("rejects malformed and root paths", func() {
				for _, p := range []string{"", "@a/b c", "@a/b.c", "/", "@", "/@/"} {
					err := driver.Insert(ctx, NewFact(p, "Title", "Content", clock.Now()))
					Expect(errors.Is(err, storage.ErrInvalidPath)).To(BeTrue(), "path %q", p)
				}
			})

			It("rejects a nil fact and out-of-range trust", func() {
				Expect(errors.Is(driver.Insert(ctx, nil), storage.ErrInvalidArgument)).To(BeTrue())

				f := NewFact("@a/b", "Title", "Content", clock.Now())
				f.TrustScore = 1.5
				Expect(errors.Is(driver.Insert(ctx, f), storage.ErrInvalidArgument)).To(BeTrue())
			})

			It("returns ErrNotFound for a missing id", func() {
				_, err := driver.GetByID(ctx, "missing")
				Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
			})
		})

		Describe("GetByIDPrefix", func() {
			It("resolves short ids case-insensitively", func() {
				f := insert("@a/b", "Title", "Content")
				other := insert("@a/c", "Title", "Content")

				facts, err := driver.GetByIDPrefix(ctx, f.ShortID())
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(facts)).To(ContainElement(f.ID))
				Expect(ids(facts)).To(HaveEach(HavePrefix(f.ID[:fact.ShortIDLen])))

				facts, err = driver.GetByIDPrefix(ctx, other.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(facts)).To(Equal([]string{other.ID}))
			})

			It("rejects an empty prefix", func() {
				_, err := driver.GetByIDPrefix(ctx, " ")
				Expect(errors.Is(err, storage.ErrInvalidArgument)).To(BeTrue())
			})
		})

		Describe("GetByPath", func() {
			It("returns active facts at the exact path, newest first", func() {
				older := insert("@svc/timeout", "Old", "Timeout is 10s.")
				newer := insert("@svc/timeout", "New", "Timeout is 20s.")
				insert("@svc/timeout/extra", "Deeper", "Not at the path.")
				gone := insert("@svc/timeout", "Gone", "Deprecated.")
				Expect(driver.MarkDeprecated(ctx, gone.ID)).To(Succeed())

				facts, err := driver.GetByPath(ctx, "@svc/timeout")
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(facts)).To(Equal([]string{newer.ID, older.ID}))
			})

			It("rejects malformed input", func() {
				_, err := driver.GetByPath(ctx, "@svc/time out")
				Expect(errors.Is(err, storage.ErrInvalidPath)).To(BeTrue())
			})
		})

		Describe("GetByPathPrefix", func() {
			It("matches whole segments case-sensitively", func() {
				exact := insert("@a/b", "Exact", "x")
				child := insert("@a/b/c", "Child", "x")
				insert("@a/bc", "Sibling", "x")
				insert("@a/b_c", "Underscore", "x")
				insert("@A/b/c", "Upper", "x")

				facts, err := driver.GetByPathPrefix(ctx, "@a/b")
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(facts)).To(Equal([]string{exact.ID, child.ID}))
			})

			It("returns every active fact for the root", func() {
				insert("@a/b", "One", "x")
				insert("@c", "Two", "x")

				facts, err := driver.GetByPathPrefix(ctx, "/")
				Expect(err).NotTo(HaveOccurred())
				Expect(facts).To(HaveLen(2))
			})
		})

		Describe("ListChildren", func() {
			BeforeEach(func() {
				insert("@products/alpha/api/timeout", "T", "x")
				insert("@products/alpha/api/retries", "R", "x")
				insert("@products/alpha/db", "D", "x")
				insert("@products/beta", "B", "x")
				insert("@products/beta", "B2", "x")
				insert("@team/oncall", "O", "x")
				gone := insert("@products/gamma", "G", "x")
				Expect(driver.MarkDeprecated(ctx, gone.ID)).To(Succeed())
			})

			It("groups one level below the parent with counts", func() {
				page, err := driver.ListChildren(ctx, "@products", 0, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(page.HasMore).To(BeFalse())
				Expect(page.NextCursor).To(BeEmpty())
				Expect(page.Items).To(Equal([]storage.PathInfo{
					{Path: "@products/alpha", FactCount: 3},
					{Path: "@products/beta", FactCount: 2},
				}))
			})

			It("groups by first segment at the root", func() {
				for _, root := range []string{"", "@", "/"} {
					page, err := driver.ListChildren(ctx, root, 10, "")
					Expect(err).NotTo(HaveOccurred())
					Expect(page.Items).To(Equal([]storage.PathInfo{
						{Path: "@products", FactCount: 5},
						{Path: "@team", FactCount: 1},
					}), "root %q", root)
				}
			})

			It("excludes facts stored at the parent itself", func() {
				page, err := driver.ListChildren(ctx, "@products/beta", 10, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(page.Items).To(BeEmpty())
			})

			It("paginates exhaustively in lexicographic order", func() {
				for _, name := range []string{"e", "a", "d", "c", "b"} {
					insert("@letters/"+name+"/leaf", "L", "x")
				}

				full, err := driver.ListChildren(ctx, "@letters", 100, "")
				Expect(err).NotTo(HaveOccurred())

				var (
					walked []storage.PathInfo
					cursor string
					pages  int
				)
				for {
					page, err := driver.ListChildren(ctx, "@letters", 2, cursor)
					Expect(err).NotTo(HaveOccurred())
					walked = append(walked, page.Items...)
					pages++
					if !page.HasMore {
						break
					}
					Expect(page.NextCursor).To(Equal(page.Items[len(page.Items)-1].Path))
					cursor = page.NextCursor
				}

				Expect(pages).To(Equal(3))
				Expect(walked).To(Equal(full.Items))
				Expect(walked).To(HaveLen(5))
				Expect(walked[0].Path).To(Equal("@letters/a"))
				Expect(walked[4].Path).To(Equal("@letters/e"))
			})

			It("rejects malformed parents", func() {
				_, err := driver.ListChildren(ctx, "@bad parent", 10, "")
				Expect(errors.Is(err, storage.ErrInvalidPath)).To(BeTrue())
			})
		})

		Describe("Search", func() {
			It("finds a fact as soon as it is inserted", func() {
				f := insert("@svc/timeout", "Service timeout", "Timeout is 30s.")

				hits, err := driver.Search(ctx, "timeout", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{f.ID}))
				Expect(hits[0].Score).To(BeNumerically(">", 0))
			})

			It("ignores control characters in the query", func() {
				f := insert("@svc/timeout", "Service timeout", "Timeout is 30s.")

				hits, err := driver.Search(ctx, "\x00", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(BeEmpty())

				hits, err = driver.Search(ctx, "timeout\x00\x1b", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{f.ID}))
			})

			It("matches any query word", func() {
				a := insert("@a", "Kafka brokers", "Three brokers in the cluster.")
				b := insert("@b", "Postgres", "Primary lives in us-east.")
				insert("@c", "Unrelated", "Nothing here.")

				hits, err := driver.Search(ctx, "kafka postgres", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(ConsistOf(a.ID, b.ID))
			})

			It("ranks title matches above content matches", func() {
				content := insert("@docs/one", "Deployment notes", "The retry budget is three attempts per call.")
				title := insert("@docs/two", "Retry policy", "Calls back off exponentially between attempts.")

				hits, err := driver.Search(ctx, "retry", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{title.ID, content.ID}))
			})

			It("only returns active facts", func() {
				a := insert("@svc/timeout", "Timeout", "Timeout is 30s.")
				b := insert("@svc/timeout", "Timeout", "Timeout is 60s.")
				Expect(driver.MarkSuperseded(ctx, a.ID)).To(Succeed())

				pending := NewFact("@svc/timeout", "Timeout", "Timeout is 90s.", clock.Now())
				pending.WithStatus(fact.StatusPendingReview)
				Expect(driver.Insert(ctx, pending)).To(Succeed())

				hits, err := driver.Search(ctx, "timeout", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{b.ID}))
			})

			It("tolerates query syntax and punctuation", func() {
				insert("@lang/cpp", "C++ build", "Use cmake with NEAR defaults.")

				for _, q := range []string{`c++`, `"quoted`, `OR AND NOT`, `NEAR(`, `title:cmake`, `*`} {
					_, err := driver.Search(ctx, q, 10)
					Expect(err).NotTo(HaveOccurred(), "query %q", q)
				}

				hits, err := driver.Search(ctx, `"cmake"`, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(HaveLen(1))
			})

			It("returns nothing for a blank query", func() {
				insert("@a", "Title", "Content")

				hits, err := driver.Search(ctx, "   ", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(BeEmpty())
			})

			It("honours the limit", func() {
				for i := range 5 {
					insert(fmt.Sprintf("@many/n%d", i), "Widget", "widget")
				}

				hits, err := driver.Search(ctx, "widget", 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(hits).To(HaveLen(3))
			})
		})

		Describe("status transitions", func() {
			It("changes only status and updated_at", func() {
				f := insert("@a/b", "Title", "Content")
				before, err := driver.GetByID(ctx, f.ID)
				Expect(err).NotTo(HaveOccurred())

				clock.Advance(time.Hour)
				Expect(driver.MarkSuperseded(ctx, f.ID)).To(Succeed())

				after, err := driver.GetByID(ctx, f.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(after.Status).To(Equal(fact.StatusSuperseded))
				Expect(after.UpdatedAt.Equal(clock.Now())).To(BeTrue())

				after.Status = before.Status
				after.UpdatedAt = before.UpdatedAt
				Expect(after).To(Equal(before))
			})

			It("only transitions active facts", func() {
				f := insert("@a/b", "Title", "Content")
				Expect(driver.MarkDeprecated(ctx, f.ID)).To(Succeed())

				Expect(errors.Is(driver.MarkSuperseded(ctx, f.ID), storage.ErrNotFound)).To(BeTrue())
				Expect(errors.Is(driver.MarkDeprecated(ctx, f.ID), storage.ErrNotFound)).To(BeTrue())
				Expect(errors.Is(driver.MarkDeprecated(ctx, "missing"), storage.ErrNotFound)).To(BeTrue())
			})
		})

		Describe("review queue", func() {
			var pending *fact.Fact

			BeforeEach(func() {
				pending = NewFact("@review/me", "Proposed", "Please review.", clock.Now())
				pending.WithStatus(fact.StatusPendingReview)
				Expect(driver.Insert(ctx, pending)).To(Succeed())
				clock.Advance(time.Second)
			})

			It("lists pending facts newest first", func() {
				newer := NewFact("@review/too", "Proposed", "Also review.", clock.Now())
				newer.WithStatus(fact.StatusPendingReview)
				Expect(driver.Insert(ctx, newer)).To(Succeed())
				insert("@review/active", "Active", "Not pending.")

				facts, err := driver.GetPendingReview(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(facts)).To(Equal([]string{newer.ID, pending.ID}))
			})

			It("approves into active", func() {
				Expect(driver.ApproveFact(ctx, pending.ID)).To(Succeed())

				got, err := driver.GetByID(ctx, pending.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Status).To(Equal(fact.StatusActive))

				hits, err := driver.Search(ctx, "review", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{pending.ID}))
			})

			It("rejects by deleting and keeps search consistent", func() {
				other := insert("@review/other", "Other", "Review this one instead.")

				Expect(driver.RejectFact(ctx, pending.ID)).To(Succeed())

				_, err := driver.GetByID(ctx, pending.ID)
				Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())

				hits, err := driver.Search(ctx, "review", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{other.ID}))
			})

			It("fails for missing or non-pending ids", func() {
				active := insert("@review/active", "Active", "Not pending.")

				Expect(errors.Is(driver.ApproveFact(ctx, active.ID), storage.ErrNotFound)).To(BeTrue())
				Expect(errors.Is(driver.RejectFact(ctx, active.ID), storage.ErrNotFound)).To(BeTrue())
				Expect(errors.Is(driver.ApproveFact(ctx, "missing"), storage.ErrNotFound)).To(BeTrue())
				Expect(errors.Is(driver.RejectFact(ctx, "missing"), storage.ErrNotFound)).To(BeTrue())
			})
		})

		Describe("chains", func() {
			var a, b, c *fact.Fact

			BeforeEach(func() {
				a = insert("@svc/timeout", "Timeout", "Timeout is 10s.")
				b = fact.Correction(a, "Timeout is 20s.")
				b.CreatedAt = clock.Now()
				Expect(driver.Insert(ctx, b)).To(Succeed())
				Expect(driver.MarkSuperseded(ctx, a.ID)).To(Succeed())
				clock.Advance(time.Second)

				c = fact.Correction(b, "Timeout is 30s.")
				c.CreatedAt = clock.Now()
				Expect(driver.Insert(ctx, c)).To(Succeed())
				Expect(driver.MarkSuperseded(ctx, b.ID)).To(Succeed())
			})

			It("walks history oldest first", func() {
				chain, err := driver.GetHistoryChain(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(chain)).To(Equal([]string{a.ID, b.ID, c.ID}))

				chain, err = driver.GetHistoryChain(ctx, a.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(chain)).To(Equal([]string{a.ID}))
			})

			It("walks successors oldest first", func() {
				next, err := driver.GetSupersedingFacts(ctx, a.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(next)).To(Equal([]string{b.ID, c.ID}))

				next, err = driver.GetSupersedingFacts(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(BeEmpty())
			})

			It("follows the oldest successor at a fork", func() {
				clock.Advance(time.Second)
				fork := fact.Correction(a, "Timeout is 15s.")
				fork.CreatedAt = clock.Now()
				Expect(driver.Insert(ctx, fork)).To(Succeed())

				next, err := driver.GetSupersedingFacts(ctx, a.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(next)).To(Equal([]string{b.ID, c.ID}))
			})

			It("returns ErrNotFound for a missing start", func() {
				_, err := driver.GetHistoryChain(ctx, "missing")
				Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
			})
		})

		Describe("GarbageCollect", func() {
			It("reports in dry run, then deletes exactly the candidates", func() {
				keep := insert("@svc/keep", "Keep", "Still current.")
				old := insert("@svc/old", "Old", "Deprecated long ago.")
				Expect(driver.MarkDeprecated(ctx, old.ID)).To(Succeed())

				clock.Advance(Days(60))

				dry, err := driver.GarbageCollect(ctx, 30, true)
				Expect(err).NotTo(HaveOccurred())
				Expect(dry.DryRun).To(BeTrue())
				Expect(dry.DeletedCount).To(BeZero())
				Expect(dry.Candidates).To(HaveLen(1))
				Expect(dry.Candidates[0].ID).To(Equal(old.ID))
				Expect(dry.Candidates[0].Reason).To(Equal(storage.GCReasonDeprecated))

				_, err = driver.GetByID(ctx, old.ID)
				Expect(err).NotTo(HaveOccurred())

				done, err := driver.GarbageCollect(ctx, 30, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(done.DeletedCount).To(Equal(1))
				Expect(done.Candidates).To(Equal(dry.Candidates))

				_, err = driver.GetByID(ctx, old.ID)
				Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())

				got, err := driver.GetByID(ctx, keep.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Status).To(Equal(fact.StatusActive))

				hits, err := driver.Search(ctx, "current", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{keep.ID}))
			})

			It("collects superseded originals but never active or pending facts", func() {
				a := insert("@svc/timeout", "Timeout", "Timeout is 10s.")
				b := fact.Correction(a, "Timeout is 20s.")
				b.CreatedAt = clock.Now()
				Expect(driver.Insert(ctx, b)).To(Succeed())
				Expect(driver.MarkSuperseded(ctx, a.ID)).To(Succeed())

				// corrected but never marked superseded
				stale := insert("@svc/stale", "Stale", "Still active.")
				fork := fact.Correction(stale, "Replacement.")
				Expect(driver.Insert(ctx, fork)).To(Succeed())

				pending := NewFact("@svc/pending", "Pending", "Awaiting review.", clock.Now())
				pending.WithStatus(fact.StatusPendingReview)
				Expect(driver.Insert(ctx, pending)).To(Succeed())

				clock.Advance(Days(45))

				result, err := driver.GarbageCollect(ctx, 30, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.DeletedCount).To(Equal(1))
				Expect(result.Candidates[0].ID).To(Equal(a.ID))
				Expect(result.Candidates[0].Reason).To(Equal(storage.GCReasonSuperseded))

				stats, err := driver.Stats(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.Active).To(Equal(3))
				Expect(stats.PendingReview).To(Equal(1))
				Expect(stats.Superseded).To(BeZero())
			})

			It("never collects inside the retention window", func() {
				f := insert("@svc/recent", "Recent", "Deprecated yesterday.")
				Expect(driver.MarkDeprecated(ctx, f.ID)).To(Succeed())
				clock.Advance(Days(1))

				for _, days := range []int{30, 2} {
					result, err := driver.GarbageCollect(ctx, days, false)
					Expect(err).NotTo(HaveOccurred())
					Expect(result.Candidates).To(BeEmpty())
					Expect(result.DeletedCount).To(BeZero())
				}

				result, err := driver.GarbageCollect(ctx, 0, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.DeletedCount).To(Equal(1))
			})

			It("treats an empty store as success", func() {
				result, err := driver.GarbageCollect(ctx, 30, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Candidates).To(BeEmpty())
			})

			It("rejects a negative retention", func() {
				_, err := driver.GarbageCollect(ctx, -1, true)
				Expect(errors.Is(err, storage.ErrInvalidArgument)).To(BeTrue())
			})
		})

		Describe("Stats", func() {
			It("counts by status", func() {
				insert("@a", "A", "x")
				dep := insert("@b", "B", "x")
				Expect(driver.MarkDeprecated(ctx, dep.ID)).To(Succeed())
				sup := insert("@c", "C", "x")
				Expect(driver.MarkSuperseded(ctx, sup.ID)).To(Succeed())

				stats, err := driver.Stats(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(*stats).To(Equal(storage.Stats{
					Total:      3,
					Active:     1,
					Deprecated: 1,
					Superseded: 1,
				}))
			})
		})

		Describe("end to end", func() {
			It("corrects a fact and walks its history", func() {
				a := insert("@svc/timeout", "Timeout", "Timeout is 30s.")

				hits, err := driver.Search(ctx, "timeout", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(hitIDs(hits)).To(Equal([]string{a.ID}))

				b := fact.Correction(a, "Timeout is 60s.")
				b.CreatedAt = clock.Now()
				Expect(b.Supersedes).To(HaveValue(Equal(a.ID)))
				Expect(driver.Insert(ctx, b)).To(Succeed())
				Expect(driver.MarkSuperseded(ctx, a.ID)).To(Succeed())

				facts, err := driver.GetByPath(ctx, "@svc/timeout")
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(facts)).To(Equal([]string{b.ID}))

				chain, err := driver.GetHistoryChain(ctx, b.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(chain)).To(Equal([]string{a.ID, b.ID}))
			})
		})

		Describe("concurrency", func() {
			It("serializes concurrent writers", func() {
				const workers = 8

				var wg sync.WaitGroup
				for i := range workers {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						f := NewFact(fmt.Sprintf("@load/w%d", i), "Load", "concurrent insert", clock.Now())
						Expect(driver.Insert(ctx, f)).To(Succeed())
					}()
				}
				wg.Wait()

				stats, err := driver.Stats(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.Total).To(Equal(workers))
			})
		})
	})
}
