package factpath_test

import (
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/factpath"
)

var _ = Describe("Path", func() {
	Describe("Parse", func() {
		It("normalizes slashes and empty segments", func() {
			p, err := factpath.Parse("  /@products//alpha/api/ ")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.String()).To(Equal("@products/alpha/api"))
			Expect(p.Depth()).To(Equal(3))
		})

		It("parses a lone slash as the root", func() {
			p, err := factpath.Parse("/")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.IsRoot()).To(BeTrue())
			Expect(p.String()).To(Equal("/"))
		})

		It("rejects empty input", func() {
			_, err := factpath.Parse("   ")
			Expect(errors.Is(err, factpath.ErrInvalidPath)).To(BeTrue())
		})

		It("rejects disallowed characters", func() {
			for _, in := range []string{"@a/b c", "@a/b.c", "@a/*", "@a/é"} {
				_, err := factpath.Parse(in)
				Expect(errors.Is(err, factpath.ErrInvalidPath)).To(BeTrue(), in)
			}
		})

		It("accepts dashes, underscores and at signs", func() {
			p, err := factpath.Parse("@my-team/snake_case/v2")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Segments()).To(Equal([]string{"@my-team", "snake_case", "v2"}))
		})

		It("is idempotent for normalized paths", func() {
			for _, in := range []string{"@a", "@a/b/c", "x_y/z-1"} {
				once := factpath.MustParse(in)
				twice := factpath.MustParse(once.String())
				Expect(twice.String()).To(Equal(in))
			}
		})
	})

	Describe("navigation", func() {
		It("returns the parent and name", func() {
			p := factpath.MustParse("@a/b/c")
			parent, ok := p.Parent()
			Expect(ok).To(BeTrue())
			Expect(parent.String()).To(Equal("@a/b"))
			Expect(p.Name()).To(Equal("c"))
		})

		It("has no parent at the root", func() {
			_, ok := factpath.Root().Parent()
			Expect(ok).To(BeFalse())
			Expect(factpath.Root().Name()).To(BeEmpty())
		})

		It("joins validated segments", func() {
			p, err := factpath.MustParse("@a").Join("b")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.String()).To(Equal("@a/b"))

			_, err = factpath.MustParse("@a").Join("b!")
			Expect(errors.Is(err, factpath.ErrInvalidPath)).To(BeTrue())
		})

		It("does not alias the parent's segments after join", func() {
			base := factpath.MustParse("@a/b/c")
			parent, _ := base.Parent()
			_, err := parent.Join("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(base.String()).To(Equal("@a/b/c"))
		})
	})

	Describe("StartsWith", func() {
		p := factpath.MustParse("@a/b/c")

		It("matches itself and shorter prefixes", func() {
			Expect(p.StartsWith(p)).To(BeTrue())
			Expect(p.StartsWith(factpath.MustParse("@a/b"))).To(BeTrue())
			Expect(p.StartsWith(factpath.Root())).To(BeTrue())
		})

		It("never matches a longer path", func() {
			Expect(p.StartsWith(factpath.MustParse("@a/b/c/d"))).To(BeFalse())
		})

		It("compares whole segments", func() {
			Expect(p.StartsWith(factpath.MustParse("@a/bb"))).To(BeFalse())
			Expect(factpath.MustParse("@a/bb").StartsWith(factpath.MustParse("@a/b"))).To(BeFalse())
		})
	})

	Describe("Matches", func() {
		DescribeTable("wildcard patterns",
			func(path, pattern string, expected bool) {
				Expect(factpath.MustParse(path).Matches(pattern)).To(Equal(expected))
			},
			Entry("single wildcard", "@a/b/c", "@a/*/c", true),
			Entry("single wildcard, wrong tail", "@a/b/c", "@a/*/d", false),
			Entry("deep wildcard", "@a/b/c/d", "@a/**/d", true),
			Entry("deep wildcard, zero segments", "@a/d", "@a/**/d", true),
			Entry("trailing deep wildcard", "@a/b/c", "@a/**", true),
			Entry("trailing deep wildcard on exact", "@a", "@a/**", true),
			Entry("multiple deep wildcards", "@a/x/b/y/z/c", "@a/**/b/**/c", true),
			Entry("multiple deep wildcards, missing literal", "@a/x/y/z/c", "@a/**/b/**/c", false),
			Entry("star does not match zero", "@a/c", "@a/*/c", false),
			Entry("literal mismatch", "@a/b", "@a/c", false),
			Entry("pattern shorter than path", "@a/b/c", "@a/b", false),
			Entry("pattern longer than path", "@a/b", "@a/b/c", false),
			Entry("only deep wildcard", "@a/b/c", "**", true),
		)

		It("matches via the package helper", func() {
			Expect(factpath.Match("@svc/*", "@svc/timeout")).To(BeTrue())
			Expect(factpath.Match("@svc/*", "bad path")).To(BeFalse())
		})
	})
})
