package sqlitepath

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		GinkgoT().Setenv(EnvDatabase, "")
		GinkgoT().Setenv("XDG_DATA_HOME", "")
	})

	It("prefers the override", func() {
		GinkgoT().Setenv(EnvDatabase, "/tmp/env.db")

		path, err := ResolveSQLitePath(" /tmp/flag.db ", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/flag.db"))
	})

	It("uses MEH_DATABASE when set", func() {
		GinkgoT().Setenv(EnvDatabase, "/tmp/custom.db")

		path, err := ResolveSQLitePath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("finds an existing legacy file name", func() {
		legacy := filepath.Join(dir, "meh.sqlite")
		Expect(os.WriteFile(legacy, nil, 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(legacy))
	})

	It("finds a database under XDG_DATA_HOME", func() {
		xdg := GinkgoT().TempDir()
		GinkgoT().Setenv("XDG_DATA_HOME", xdg)
		Expect(os.MkdirAll(filepath.Join(xdg, "meh"), 0o755)).To(Succeed())
		db := filepath.Join(xdg, "meh", "meh.db")
		Expect(os.WriteFile(db, nil, 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(db))
	})

	It("defaults to meh.db in the meh directory", func() {
		path, err := ResolveSQLitePath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, "meh.db")))
	})

	It("asks for --sqlite without a directory", func() {
		_, err := ResolveSQLitePath("", "")
		Expect(err).To(HaveOccurred())
		Expect(errors.FlattenHints(err)).To(ContainSubstring("--sqlite"))
	})
})
