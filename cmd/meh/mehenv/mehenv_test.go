package mehenv_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/mehenv"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/logger"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage/inmemory"
)

var _ = Describe("Env", func() {
	var (
		ctx context.Context
		env *mehenv.Env
	)

	BeforeEach(func() {
		GinkgoT().Setenv("MEH_DATABASE", "")
		ctx = context.Background()
		env = &mehenv.Env{
			Config: config.NewDefaultConfig(),
			Dir:    GinkgoT().TempDir(),
			Logger: logger.Nop(),
		}
	})

	Describe("Load", func() {
		newCmd := func(dir string, args ...string) *cobra.Command {
			var store mehenv.StoreFlags
			var policy string
			cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
			cmd.Flags().String("config-dir", dir, "")
			cmd.Flags().Bool("debug", false, "")
			store.Register(cmd)
			config.AddStringFlag(cmd, config.Flags, config.FlagPolicy, &policy)
			Expect(cmd.ParseFlags(args)).To(Succeed())
			return cmd
		}

		It("layers flags over env over the config file", func() {
			dir := GinkgoT().TempDir()
			cfger, err := config.NewConfiger(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfger.SetConfigValue("write.policy", "ask")).To(Succeed())
			Expect(cfger.SetConfigValue("user.name", "alice")).To(Succeed())

			loaded, err := mehenv.Load(newCmd(dir), config.FlagPolicy)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Dir).To(Equal(dir))
			Expect(loaded.Config.Write.Policy).To(Equal("ask"))
			Expect(loaded.Config.User.Name).To(Equal("alice"))

			GinkgoT().Setenv("MEH_USER_NAME", "bob")
			loaded, err = mehenv.Load(newCmd(dir, "--policy", "deny"), config.FlagPolicy)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Config.Write.Policy).To(Equal("deny"))
			Expect(loaded.Config.User.Name).To(Equal("bob"))
		})

		It("rejects invalid flag values", func() {
			_, err := mehenv.Load(newCmd(GinkgoT().TempDir(), "--driver", "mysql"), config.StoreFlags...)
			Expect(errors.Is(err, config.ErrInvalidValue)).To(BeTrue())
		})
	})

	Describe("OpenDriver", func() {
		It("opens an in-memory store", func() {
			env.Config.Storage.Driver = config.DriverInMemory

			driver, err := env.OpenDriver(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		})

		It("opens SQLite in the meh directory", func() {
			driver, err := env.OpenDriver(ctx)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(driver.Close)

			Expect(driver.Insert(ctx, fact.New("@a", "A", "a"))).To(Succeed())
		})

		It("requires a DSN for postgres", func() {
			env.Config.Storage.Driver = config.DriverPostgres

			_, err := env.OpenDriver(ctx)
			Expect(err).To(HaveOccurred())
			Expect(errors.FlattenHints(err)).To(ContainSubstring("storage.postgres_dsn"))
		})
	})

	Describe("Publisher", func() {
		It("is nil when events are off", func() {
			p, err := env.Publisher()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeNil())
		})

		It("builds a Kafka publisher", func() {
			env.Config.Events.Provider = config.EventsKafka
			env.Config.Events.Brokers = "localhost:9092, localhost:9093"

			p, err := env.Publisher()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).NotTo(BeNil())
			Expect(p.Close()).To(Succeed())
		})

		It("requires brokers for Kafka", func() {
			env.Config.Events.Provider = config.EventsKafka

			_, err := env.Publisher()
			Expect(err).To(HaveOccurred())
			Expect(errors.FlattenHints(err)).To(ContainSubstring("events.brokers"))
		})
	})

	Describe("TeeLog", func() {
		It("appends JSON records at or above the level", func() {
			path := filepath.Join(env.Dir, "serve.log")
			closeLog, err := env.TeeLog(path, slog.LevelWarn)
			Expect(err).NotTo(HaveOccurred())

			env.Logger.Info("request served")
			env.Logger.Warn("slow query", "path", "@svc")
			Expect(closeLog()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).NotTo(ContainSubstring("request served"))
			Expect(string(data)).To(ContainSubstring(`"msg":"slow query"`))
		})

		It("writes debug records when debugging", func() {
			env.Debug = true
			path := filepath.Join(env.Dir, "debug.log")
			closeLog, err := env.TeeLog(path, slog.LevelError)
			Expect(err).NotTo(HaveOccurred())

			env.Logger.Debug("resolving path")
			Expect(closeLog()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("resolving path"))
		})

		It("fails for an unwritable path", func() {
			_, err := env.TeeLog(filepath.Join(env.Dir, "missing", "serve.log"), slog.LevelInfo)
			Expect(err).To(MatchError(ContainSubstring("opening log file")))
		})
	})

	Describe("Actor", func() {
		It("attributes the default user to an agent", func() {
			Expect(env.Actor().Type).To(Equal(fact.AuthorAI))
		})

		It("attributes named users to a human", func() {
			env.Config.User.Name = "alice"
			Expect(env.Actor()).To(Equal(service.Actor{Type: fact.AuthorHuman, ID: "alice"}))
		})
	})

	Describe("Service", func() {
		It("applies the configured write policy", func() {
			env.Config.Storage.Driver = config.DriverInMemory
			env.Config.Write.Policy = "deny"

			svc, err := env.Service(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Policy()).To(Equal(service.PolicyDeny))

			_, err = svc.Add(ctx, service.AddRequest{Path: "@a", Content: "a"})
			Expect(errors.Is(err, service.ErrWriteDenied)).To(BeTrue())
		})

		It("lets later options win", func() {
			env.Config.Storage.Driver = config.DriverInMemory

			svc, err := env.Service(ctx, service.WithWritePolicy(service.PolicyAsk))
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Policy()).To(Equal(service.PolicyAsk))
		})
	})

	Describe("Content", func() {
		newCmd := func(stdin string) *cobra.Command {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(stdin))
			return cmd
		}

		It("prefers the argument", func() {
			content, err := mehenv.Content(newCmd("ignored"), []string{"@a", "inline"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("inline"))
		})

		It("reads stdin for a missing argument or -", func() {
			content, err := mehenv.Content(newCmd("piped\n"), []string{"@a"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("piped\n"))

			content, err = mehenv.Content(newCmd("dash"), []string{"@a", "-"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("dash"))
		})

		It("rejects blank stdin", func() {
			_, err := mehenv.Content(newCmd("  \n"), []string{"@a"}, 1)
			Expect(errors.Is(err, mehenv.ErrContentRequired)).To(BeTrue())
		})
	})
})
