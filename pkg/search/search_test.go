package search_test

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/search"
	"github.com/papercomputeco/meh/pkg/storage"
	"github.com/papercomputeco/meh/pkg/storage/inmemory"
)

var _ = Describe("Run", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	add := func(path, title, content string, tags ...string) *fact.Fact {
		f := fact.New(path, title, content).WithTags(tags)
		Expect(driver.Insert(ctx, f)).To(Succeed())
		return f
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	It("returns ranked results with token estimates", func() {
		f := add("@svc/timeout", "Timeout", "Timeout is 30s.")

		resp, err := search.Run(ctx, driver, search.Query{Text: "timeout"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Query).To(Equal("timeout"))
		Expect(resp.Count).To(Equal(1))
		Expect(resp.Results[0].Fact.ID).To(Equal(f.ID))
		Expect(resp.Results[0].Relevance).To(BeNumerically(">", 0))
		Expect(resp.Results[0].TokenCount).To(Equal(search.EstimateTokens(f)))
		Expect(resp.TotalTokens).To(Equal(resp.Results[0].TokenCount))
		Expect(resp.Truncated).To(BeFalse())
	})

	It("filters by whole-segment path prefix", func() {
		inside := add("@svc/api/timeout", "Timeout", "timeout")
		add("@svc/apigw/timeout", "Timeout", "timeout")
		add("@other/timeout", "Timeout", "timeout")

		resp, err := search.Run(ctx, driver, search.Query{Text: "timeout", PathPrefix: "@svc/api"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Results).To(HaveLen(1))
		Expect(resp.Results[0].Fact.ID).To(Equal(inside.ID))
	})

	It("treats the root prefix as unfiltered", func() {
		add("@a/x", "Widget", "widget")
		add("@b/x", "Widget", "widget")

		resp, err := search.Run(ctx, driver, search.Query{Text: "widget", PathPrefix: "@"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Results).To(HaveLen(2))
	})

	It("requires every tag", func() {
		both := add("@a", "Widget", "widget", "go", "api")
		add("@b", "Widget", "widget", "go")

		resp, err := search.Run(ctx, driver, search.Query{Text: "widget", Tags: []string{"go", "api"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Results).To(HaveLen(1))
		Expect(resp.Results[0].Fact.ID).To(Equal(both.ID))
	})

	It("drops results below the trust floor", func() {
		human := fact.New("@a", "Widget", "widget").WithAuthor(fact.AuthorHuman, "alice", fact.DefaultTrustEngine())
		Expect(driver.Insert(ctx, human)).To(Succeed())
		add("@b", "Widget", "widget")

		resp, err := search.Run(ctx, driver, search.Query{Text: "widget", MinTrust: 0.7})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Results).To(HaveLen(1))
		Expect(resp.Results[0].Fact.ID).To(Equal(human.ID))
	})

	It("stops at the token budget", func() {
		long := strings.Repeat("widget ", 100)
		for range 3 {
			add("@bulk/item", "Widget", long)
		}

		one := search.EstimateTokens(fact.New("@bulk/item", "Widget", long))
		resp, err := search.Run(ctx, driver, search.Query{Text: "widget", TokenBudget: one*2 + 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Results).To(HaveLen(2))
		Expect(resp.TotalTokens).To(Equal(one * 2))
		Expect(resp.Truncated).To(BeTrue())
	})

	It("honours the limit", func() {
		for range 5 {
			add("@bulk/item", "Widget", "widget")
		}

		resp, err := search.Run(ctx, driver, search.Query{Text: "widget", Limit: 2, Tags: []string{}})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Count).To(Equal(2))
	})

	It("rejects a malformed path prefix", func() {
		_, err := search.Run(ctx, driver, search.Query{Text: "x", PathPrefix: "@bad prefix"})
		Expect(errors.Is(err, storage.ErrInvalidPath)).To(BeTrue())
	})
})

var _ = Describe("EstimateTokens", func() {
	It("counts a quarter token per character plus overhead", func() {
		f := &fact.Fact{Path: "@a/bcd", Title: "12345678", Content: strings.Repeat("x", 40), CreatedAt: time.Now()}
		Expect(search.EstimateTokens(f)).To(Equal(10 + 2 + 1 + 20))
	})
})
