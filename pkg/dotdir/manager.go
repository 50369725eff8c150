// Package dotdir manages the .meh/ and ~/.meh directories that hold the
// config file and the default SQLite database.
package dotdir

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const (
	// DirName is the name of the meh directory.
	DirName = ".meh"

	// DatabaseFile is the default SQLite database inside the meh directory.
	DatabaseFile = "meh.db"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .meh/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.meh/ dir
//  3. Home ~/.meh/ dir, created if missing
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "getting current directory")
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "getting home directory")
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating meh directory %s", dir)
	}

	return filepath.Abs(dir)
}

// Init creates a .meh/ directory inside parent and returns its absolute path.
// It reports whether the directory already existed.
func (m *Manager) Init(parent string) (string, bool, error) {
	dir := filepath.Join(parent, DirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return "", false, errors.Newf("%s exists and is not a directory", dir)
	case err == nil:
		abs, err := filepath.Abs(dir)
		return abs, true, err
	case !errors.Is(err, os.ErrNotExist):
		return "", false, errors.Wrapf(err, "checking %s", dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, errors.Wrapf(err, "creating meh directory %s", dir)
	}

	abs, err := filepath.Abs(dir)
	return abs, false, err
}

// DatabasePath is the default SQLite database inside the meh directory dir.
func DatabasePath(dir string) string {
	return filepath.Join(dir, DatabaseFile)
}

// localDirExists checks whether a .meh/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
