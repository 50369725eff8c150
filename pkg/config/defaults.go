package config

import (
	"github.com/papercomputeco/meh/pkg/fact"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverInMemory = "inmemory"
)

// Event providers.
const (
	EventsNone  = "none"
	EventsKafka = "kafka"
)

// DefaultUserName attributes CLI writes to an agent rather than a person.
const DefaultUserName = "AI"

const (
	defaultSource        = "local"
	defaultDriver        = DriverSQLite
	defaultSearchLimit   = 20
	defaultTokenBudget   = 3000
	defaultRetentionDays = 30
	defaultWritePolicy   = "allow"
	defaultAPIListen     = ":8484"
	defaultEventsTopic   = "meh.facts"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		User: UserConfig{
			Name: DefaultUserName,
		},
		Core: CoreConfig{
			DefaultSource: defaultSource,
		},
		Storage: StorageConfig{
			Driver: defaultDriver,
		},
		Search: SearchConfig{
			DefaultLimit: defaultSearchLimit,
			TokenBudget:  defaultTokenBudget,
		},
		GC: GCConfig{
			RetentionDays: defaultRetentionDays,
			Auto:          true,
		},
		Write: WriteConfig{
			Policy: defaultWritePolicy,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Trust: fact.DefaultTrustConfig(),
		Events: EventsConfig{
			Provider: EventsNone,
			Topic:    defaultEventsTopic,
		},
	}
}
