package logger

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// ErrInvalidLevel is returned by ParseLevel.
var ErrInvalidLevel = errors.New("invalid log level")

// Option configures a Logger created with New.
type Option func(*config)

// ParseLevel reads one of debug, info, warn or error, in any case. Empty
// means info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	lvl, err := charmlog.ParseLevel(s)
	if err != nil || lvl > charmlog.ErrorLevel {
		return 0, errors.WithHint(
			errors.Wrapf(ErrInvalidLevel, "%q", s),
			"valid levels are debug, info, warn and error",
		)
	}
	return slog.Level(lvl), nil
}

// WithLevel drops records below level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithDebug is WithLevel(slog.LevelDebug) when debug is set.
func WithDebug(debug bool) Option {
	if debug {
		return WithLevel(slog.LevelDebug)
	}
	return func(*config) {}
}

// WithPretty selects the charmbracelet/log handler used by the CLI.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler. It wins over WithPretty.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces the output writer.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters writes every record to all of w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}
