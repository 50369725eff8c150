package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

var (
	// ErrUnknownKey is returned for dotted keys the config does not define.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidValue is returned when a value does not parse for its key.
	ErrInvalidValue = errors.New("invalid config value")
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "reading config")
	}

	// The file may not exist yet; SaveConfig creates it.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns every supported configuration key in TOML section
// order.
func ValidConfigKeys() []string {
	return append([]string{}, orderedKeys...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// Dir is the .meh/ directory holding the config file.
func (c *Configer) Dir() string {
	return filepath.Dir(c.targetPath)
}

// LoadConfig loads config.toml from the target .meh/ directory. Keys absent
// from the file keep their defaults, and a missing file yields
// NewDefaultConfig().
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "reading config")
	}

	return ParseConfigTOML(data)
}

// SaveConfig persists the configuration to config.toml in the target .meh/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return errors.Wrap(err, "encoding config")
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return unknownKey(key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return errors.Wrapf(err, "setting %s", key)
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", unknownKey(key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// Get returns the string form of key on cfg.
func (cfg *Config) Get(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", unknownKey(key)
	}
	return info.get(cfg), nil
}

// ParseConfigTOML parses raw TOML bytes over NewDefaultConfig(), so keys the
// data leaves out keep their defaults.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config TOML")
	}

	if cfg.Version != CurrentV {
		return nil, errors.Newf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

func unknownKey(key string) error {
	return errors.WithHint(
		errors.Wrapf(ErrUnknownKey, "%q", key),
		"run `meh config list` to see supported keys",
	)
}
