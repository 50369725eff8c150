package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/meh/pkg/storage"
	"github.com/papercomputeco/meh/pkg/storage/inmemory"
	"github.com/papercomputeco/meh/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("In-Memory Driver", func(now func() time.Time) (storage.Driver, error) {
	return inmemory.NewDriver(inmemory.WithClock(now)), nil
})

var _ = Describe("In-memory specifics", func() {
	It("stores copies so callers cannot mutate stored facts", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()

		f := storagetest.NewFact("@copy/me", "Original", "Content", time.Now())
		f.WithTags([]string{"x"})
		Expect(d.Insert(ctx, f)).To(Succeed())

		f.Title = "Changed"
		f.Tags[0] = "y"

		got, err := d.GetByID(ctx, f.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal("Original"))
		Expect(got.Tags).To(Equal([]string{"x"}))

		got.Title = "Also changed"
		again, err := d.GetByID(ctx, f.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Title).To(Equal("Original"))
		Expect(d.Count()).To(Equal(1))
	})

	It("rejects duplicate ids as a backend error", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()

		f := storagetest.NewFact("@dup", "Dup", "Content", time.Now())
		Expect(d.Insert(ctx, f)).To(Succeed())
		Expect(d.Insert(ctx, f)).To(HaveOccurred())
	})
})
