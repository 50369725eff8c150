// Package utils holds build metadata stamped in with -ldflags.
package utils

import "fmt"

var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionString is the one-line build description printed by meh version.
func VersionString() string {
	return fmt.Sprintf("meh %s (%s, built %s)", Version, Sha, Buildtime)
}
