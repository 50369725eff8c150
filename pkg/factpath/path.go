// Package factpath implements the hierarchical, slash-delimited addresses
// facts live under (e.g. "@products/alpha/api/timeout") and the "*" / "**"
// wildcard patterns used to query them.
package factpath

import (
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// Separator delimits path segments.
	Separator = "/"

	// AnySegment matches exactly one segment in a pattern.
	AnySegment = "*"

	// AnyDepth matches zero or more segments in a pattern.
	AnyDepth = "**"
)

// ErrInvalidPath marks malformed path input: empty strings or segments with
// characters outside [A-Za-z0-9_@-].
var ErrInvalidPath = errors.New("invalid path")

// Path is an immutable, validated path address. The zero value is the root.
type Path struct {
	segments []string
}

// Root returns the empty root path.
func Root() Path {
	return Path{}
}

// Parse normalizes and validates s. Leading and trailing slashes and empty
// segments are dropped, so "/@a//b/" parses to "@a/b" and "/" parses to the root.
func Parse(s string) (Path, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Path{}, errors.Wrap(ErrInvalidPath, "path cannot be empty")
	}

	trimmed = strings.Trim(trimmed, Separator)

	var segments []string
	for _, seg := range strings.Split(trimmed, Separator) {
		if seg == "" {
			continue
		}
		if err := validateSegment(seg); err != nil {
			return Path{}, err
		}
		segments = append(segments, seg)
	}

	return Path{segments: segments}, nil
}

// MustParse is Parse for constants in tests and defaults. It panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func validateSegment(seg string) error {
	for _, r := range seg {
		if !isSegmentRune(r) {
			return errors.Wrapf(ErrInvalidPath, "invalid character %q in segment %q", r, seg)
		}
	}
	return nil
}

func isSegmentRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '@':
		return true
	}
	return false
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Depth is the number of segments; the root has depth 0.
func (p Path) Depth() int {
	return len(p.segments)
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Parent drops the last segment. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Path{}, false
	}
	return Path{segments: p.segments[:len(p.segments)-1:len(p.segments)-1]}, true
}

// Name is the last segment, or "" for the root.
func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Join validates segment and returns a new path with it appended.
func (p Path) Join(segment string) (Path, error) {
	child, err := Parse(segment)
	if err != nil {
		return Path{}, err
	}

	segments := make([]string, 0, len(p.segments)+len(child.segments))
	segments = append(segments, p.segments...)
	segments = append(segments, child.segments...)
	return Path{segments: segments}, nil
}

// StartsWith is a segment-wise prefix test. Every path starts with itself and
// with the root; a path never starts with a longer path.
func (p Path) StartsWith(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, seg := range prefix.segments {
		if p.segments[i] != seg {
			return false
		}
	}
	return true
}

// Equal reports whether both paths have identical segments.
func (p Path) Equal(other Path) bool {
	return len(p.segments) == len(other.segments) && p.StartsWith(other)
}

// String renders the path; the root renders as "/".
func (p Path) String() string {
	if p.IsRoot() {
		return Separator
	}
	return strings.Join(p.segments, Separator)
}

// Matches reports whether p matches the wildcard pattern.
func (p Path) Matches(pattern string) bool {
	return matchSegments(splitPattern(pattern), p.segments)
}

// Match parses path and reports whether it matches pattern. Unparseable paths
// never match.
func Match(pattern, path string) bool {
	p, err := Parse(path)
	if err != nil {
		return false
	}
	return p.Matches(pattern)
}

func splitPattern(pattern string) []string {
	trimmed := strings.Trim(strings.TrimSpace(pattern), Separator)
	var out []string
	for _, seg := range strings.Split(trimmed, Separator) {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	head := pattern[0]

	if head == AnyDepth {
		// zero segments first, then consume one and keep "**"
		if matchSegments(pattern[1:], path) {
			return true
		}
		return len(path) > 0 && matchSegments(pattern, path[1:])
	}

	if len(path) == 0 {
		return false
	}

	if head == AnySegment || head == path[0] {
		return matchSegments(pattern[1:], path[1:])
	}

	return false
}
