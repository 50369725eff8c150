// Package sqlitepath resolves which SQLite database file meh commands open.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/dotdir"
)

// EnvDatabase overrides the database path for every command.
const EnvDatabase = "MEH_DATABASE"

// ResolveSQLitePath picks the database for the .meh/ directory dir.
// Order of precedence is as follows:
//  1. override (--sqlite or storage.sqlite_path)
//  2. MEH_DATABASE
//  3. An existing database among the candidates
//  4. dir/meh.db, created on first open
func ResolveSQLitePath(override, dir string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvDatabase)); envPath != "" {
		return envPath, nil
	}

	if dir == "" {
		return "", errors.WithHint(
			errors.New("could not find meh SQLite database"),
			"pass --sqlite or run `meh init`",
		)
	}

	for _, candidate := range sqliteCandidates(dir) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return dotdir.DatabasePath(dir), nil
}

func sqliteCandidates(dir string) []string {
	candidates := []string{
		dotdir.DatabasePath(dir),
		filepath.Join(dir, "meh.sqlite"),
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates,
			filepath.Join(xdgHome, "meh", dotdir.DatabaseFile),
		)
	}

	return candidates
}
