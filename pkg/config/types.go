package config

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/fact"
)

// Config is the persistent meh configuration stored as config.toml in the
// .meh/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int              `toml:"version"`
	User    UserConfig       `toml:"user"`
	Core    CoreConfig       `toml:"core"`
	Storage StorageConfig    `toml:"storage"`
	Search  SearchConfig     `toml:"search"`
	GC      GCConfig         `toml:"gc"`
	Write   WriteConfig      `toml:"write"`
	API     APIConfig        `toml:"api"`
	Trust   fact.TrustConfig `toml:"trust"`
	Events  EventsConfig     `toml:"events"`
}

// UserConfig identifies the person writing through the CLI.
type UserConfig struct {
	Name string `toml:"name,omitempty"`
}

// CoreConfig holds settings applied to every new fact.
type CoreConfig struct {
	DefaultSource string `toml:"default_source,omitempty"`
}

// StorageConfig selects and locates the fact store.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// SearchConfig holds defaults for searches that leave them unset.
type SearchConfig struct {
	DefaultLimit int `toml:"default_limit,omitempty"`
	TokenBudget  int `toml:"token_budget,omitempty"`
}

// GCConfig holds garbage collection settings.
type GCConfig struct {
	RetentionDays int  `toml:"retention_days"`
	Auto          bool `toml:"auto"`
}

// WriteConfig holds the agent write policy.
type WriteConfig struct {
	Policy string `toml:"policy,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig selects where fact change events are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers, dropping blanks.
func (e EventsConfig) BrokerList() []string {
	out := []string{}
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func oneOfKey(field func(c *Config) *string, allowed ...string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return errors.WithHintf(
				errors.Wrapf(ErrInvalidValue, "%q", v),
				"valid values are %s", strings.Join(allowed, ", "),
			)
		},
	}
}

func intKey(field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "invalid integer %q", v), ErrInvalidValue)
			}
			if n < 0 {
				return errors.Wrapf(ErrInvalidValue, "%d must not be negative", n)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "invalid number %q", v), ErrInvalidValue)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolKey(field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "invalid boolean %q", v), ErrInvalidValue)
			}
			*field(c) = b
			return nil
		},
	}
}

var sourceNames = func() []string {
	out := []string{}
	for _, s := range []fact.Source{fact.SourceLocal, fact.SourceCompany, fact.SourceGlobal, fact.SourceNpm} {
		out = append(out, s.String())
	}
	return out
}()

// orderedKeys lists every supported key in TOML section order.
var orderedKeys = []string{
	"user.name",
	"core.default_source",
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"search.default_limit",
	"search.token_budget",
	"gc.retention_days",
	"gc.auto",
	"write.policy",
	"api.listen",
	"events.provider",
	"events.brokers",
	"events.topic",
	"trust.human_base",
	"trust.ai_base",
	"trust.system_base",
	"trust.local_multiplier",
	"trust.company_multiplier",
	"trust.global_multiplier",
	"trust.npm_multiplier",
	"trust.decay_start_days",
	"trust.decay_rate",
	"trust.decay_floor",
	"trust.confirmation_boost",
	"trust.superseded_penalty",
	"trust.deprecated_multiplier",
	"trust.archived_multiplier",
	"trust.correction_multiplier",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"user.name":            stringKey(func(c *Config) *string { return &c.User.Name }),
	"core.default_source":  oneOfKey(func(c *Config) *string { return &c.Core.DefaultSource }, sourceNames...),
	"storage.driver":       oneOfKey(func(c *Config) *string { return &c.Storage.Driver }, DriverSQLite, DriverPostgres, DriverInMemory),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"search.default_limit": intKey(func(c *Config) *int { return &c.Search.DefaultLimit }),
	"search.token_budget":  intKey(func(c *Config) *int { return &c.Search.TokenBudget }),
	"gc.retention_days":    intKey(func(c *Config) *int { return &c.GC.RetentionDays }),
	"gc.auto":              boolKey(func(c *Config) *bool { return &c.GC.Auto }),
	"write.policy":         oneOfKey(func(c *Config) *string { return &c.Write.Policy }, "allow", "deny", "ask"),
	"api.listen":           stringKey(func(c *Config) *string { return &c.API.Listen }),
	"events.provider":      oneOfKey(func(c *Config) *string { return &c.Events.Provider }, EventsNone, EventsKafka),
	"events.brokers":       stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":         stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"trust.human_base":            floatKey(func(c *Config) *float64 { return &c.Trust.HumanBase }),
	"trust.ai_base":               floatKey(func(c *Config) *float64 { return &c.Trust.AIBase }),
	"trust.system_base":           floatKey(func(c *Config) *float64 { return &c.Trust.SystemBase }),
	"trust.local_multiplier":      floatKey(func(c *Config) *float64 { return &c.Trust.LocalMultiplier }),
	"trust.company_multiplier":    floatKey(func(c *Config) *float64 { return &c.Trust.CompanyMultiplier }),
	"trust.global_multiplier":     floatKey(func(c *Config) *float64 { return &c.Trust.GlobalMultiplier }),
	"trust.npm_multiplier":        floatKey(func(c *Config) *float64 { return &c.Trust.NpmMultiplier }),
	"trust.decay_start_days":      intKey(func(c *Config) *int { return &c.Trust.DecayStartDays }),
	"trust.decay_rate":            floatKey(func(c *Config) *float64 { return &c.Trust.DecayRate }),
	"trust.decay_floor":           floatKey(func(c *Config) *float64 { return &c.Trust.DecayFloor }),
	"trust.confirmation_boost":    floatKey(func(c *Config) *float64 { return &c.Trust.ConfirmationBoost }),
	"trust.superseded_penalty":    floatKey(func(c *Config) *float64 { return &c.Trust.SupersededPenalty }),
	"trust.deprecated_multiplier": floatKey(func(c *Config) *float64 { return &c.Trust.DeprecatedMultiplier }),
	"trust.archived_multiplier":   floatKey(func(c *Config) *float64 { return &c.Trust.ArchivedMultiplier }),
	"trust.correction_multiplier": floatKey(func(c *Config) *float64 { return &c.Trust.CorrectionMultiplier }),
}
