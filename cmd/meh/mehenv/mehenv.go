// Package mehenv resolves configuration for a meh command and opens the
// fact store and service it runs against.
package mehenv

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/meh/cmd/meh/sqlitepath"
	"github.com/papercomputeco/meh/pkg/cliui"
	"github.com/papercomputeco/meh/pkg/config"
	"github.com/papercomputeco/meh/pkg/dotdir"
	"github.com/papercomputeco/meh/pkg/eventstream"
	"github.com/papercomputeco/meh/pkg/eventstream/async"
	"github.com/papercomputeco/meh/pkg/eventstream/kafka"
	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/logger"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
	"github.com/papercomputeco/meh/pkg/storage/inmemory"
	"github.com/papercomputeco/meh/pkg/storage/postgres"
	"github.com/papercomputeco/meh/pkg/storage/sqldriver"
	"github.com/papercomputeco/meh/pkg/storage/sqlite"
)

// AgentActor attributes writes arriving over the API and MCP.
var AgentActor = service.Actor{Type: fact.AuthorAI, ID: "agent"}

// ErrContentRequired is returned when a write command gets no content.
var ErrContentRequired = errors.New("content is required")

// Env is the resolved configuration of one command invocation.
type Env struct {
	Config *config.Config

	// Dir is the .meh/ directory the config was resolved from.
	Dir string

	Logger *slog.Logger

	// Debug is the --debug flag.
	Debug bool
}

// Load resolves config for cmd through flags, MEH_* env, config.toml and
// defaults. flagKeys are the config.Flags registry keys cmd registered.
func Load(cmd *cobra.Command, flagKeys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, err
	}

	v, err := config.InitViper(dir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}

	return &Env{
		Config: cfg,
		Dir:    dir,
		Debug:  debug,
		Logger: logger.New(
			logger.WithDebug(debug),
			logger.WithPretty(true),
			logger.WithWriter(cmd.ErrOrStderr()),
		),
	}, nil
}

// TeeLog additionally writes JSON logs at level or above to path, appending.
// --debug lowers level to Debug. The returned func closes the file.
func (e *Env) TeeLog(path string, level slog.Level) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening log file %s", path)
	}

	if e.Debug {
		level = min(level, slog.LevelDebug)
	}
	e.Logger = logger.Multi(e.Logger, logger.New(
		logger.WithJSON(true),
		logger.WithLevel(level),
		logger.WithWriter(f),
	))
	return f.Close, nil
}

// OpenDriver opens the configured storage driver.
func (e *Env) OpenDriver(ctx context.Context) (storage.Driver, error) {
	cfg := e.Config.Storage

	switch cfg.Driver {
	case config.DriverSQLite, "":
		path, err := sqlitepath.ResolveSQLitePath(cfg.SQLitePath, e.Dir)
		if err != nil {
			return nil, err
		}
		e.Logger.Debug("using SQLite storage", "path", path)
		return sqlite.NewDriver(ctx, path, sqldriver.WithLogger(e.Logger))

	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.WithHint(
				errors.New("postgres driver needs a connection string"),
				"set storage.postgres_dsn or pass --postgres-dsn",
			)
		}
		e.Logger.Debug("using PostgreSQL storage")
		return postgres.NewDriver(ctx, cfg.PostgresDSN, sqldriver.WithLogger(e.Logger))

	case config.DriverInMemory:
		e.Logger.Debug("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, errors.Newf("unknown storage driver %q", cfg.Driver)
	}
}

// Publisher builds the configured fact event publisher, or nil when events
// are off. Kafka delivery runs in the background.
func (e *Env) Publisher() (eventstream.Publisher, error) {
	events := e.Config.Events
	if events.Provider != config.EventsKafka {
		return nil, nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: events.BrokerList(),
		Topic:   events.Topic,
	}, kafka.WithLogger(e.Logger))
	if err != nil {
		return nil, errors.WithHint(err, "set events.brokers or pass --kafka-brokers")
	}
	return async.NewPool(async.Config{Publisher: p, Logger: e.Logger})
}

// Actor is who CLI writes are attributed to. The default user name "AI"
// attributes writes to an agent; any other name to a human.
func (e *Env) Actor() service.Actor {
	name := strings.TrimSpace(e.Config.User.Name)
	if name == "" || strings.EqualFold(name, config.DefaultUserName) {
		return service.Actor{Type: fact.AuthorAI, ID: name}
	}
	return service.Actor{Type: fact.AuthorHuman, ID: name}
}

// Service opens the store and wraps it in a service configured from Env.
// opts are applied after the configured ones. Close the service when done.
func (e *Env) Service(ctx context.Context, opts ...service.Option) (*service.Service, error) {
	cfg := e.Config

	policy, err := service.ParseWritePolicy(cfg.Write.Policy)
	if err != nil {
		return nil, err
	}
	source := fact.SourceLocal
	if cfg.Core.DefaultSource != "" {
		if source, err = fact.ParseSource(cfg.Core.DefaultSource); err != nil {
			return nil, err
		}
	}

	driver, err := e.OpenDriver(ctx)
	if err != nil {
		return nil, err
	}

	base := []service.Option{
		service.WithTrustEngine(fact.NewTrustEngine(cfg.Trust)),
		service.WithWritePolicy(policy),
		service.WithActor(e.Actor()),
		service.WithSource(source),
		service.WithLogger(e.Logger),
		service.WithSearchDefaults(cfg.Search.DefaultLimit, cfg.Search.TokenBudget),
		service.WithRetentionDays(cfg.GC.RetentionDays),
	}

	publisher, err := e.Publisher()
	if err != nil {
		_ = driver.Close()
		return nil, err
	}
	if publisher != nil {
		base = append(base, service.WithPublisher(publisher))
	}

	return service.New(driver, append(base, opts...)...), nil
}

// AutoGC collects expired facts when gc.auto is set. Failures are logged.
func (e *Env) AutoGC(ctx context.Context, svc *service.Service) {
	if !e.Config.GC.Auto {
		return
	}

	result, err := svc.GC(ctx, -1, false)
	if err != nil {
		e.Logger.Warn("automatic garbage collection failed", "error", err)
		return
	}
	e.Logger.Debug("automatic garbage collection", "deleted", result.DeletedCount)
}

// Content returns args[idx], or stdin when it is absent or "-". Stdin is
// only read when it is not a terminal.
func Content(cmd *cobra.Command, args []string, idx int) (string, error) {
	if len(args) > idx && args[idx] != "-" {
		return args[idx], nil
	}

	in := cmd.InOrStdin()
	if len(args) <= idx && cliui.IsTerminal(in) {
		return "", errors.WithHint(ErrContentRequired, "pass content as an argument or pipe it on stdin")
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(err, "reading stdin")
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.WithHint(ErrContentRequired, "pass content as an argument or pipe it on stdin")
	}
	return string(data), nil
}

// StoreFlags receives the storage flags of commands that open the store.
// Values reach Env through viper, so they are only read there.
type StoreFlags struct {
	SQLitePath  string
	Driver      string
	PostgresDSN string
}

// Register adds --sqlite, --driver and --postgres-dsn to cmd.
func (s *StoreFlags) Register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &s.SQLitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagDriver, &s.Driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &s.PostgresDSN)
}
