package fact

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Status is the lifecycle state of a fact. It is the only fact field, besides
// UpdatedAt, that changes after insert.
type Status string

const (
	StatusActive        Status = "active"
	StatusSuperseded    Status = "superseded"
	StatusDeprecated    Status = "deprecated"
	StatusArchived      Status = "archived"
	StatusPendingReview Status = "pending_review"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusActive,
	StatusSuperseded,
	StatusDeprecated,
	StatusArchived,
	StatusPendingReview,
}

// Type records which constructor produced a fact.
type Type string

const (
	TypeFact        Type = "fact"
	TypeCorrection  Type = "correction"
	TypeExtension   Type = "extension"
	TypeWarning     Type = "warning"
	TypeDeprecation Type = "deprecation"
)

// AuthorType classifies who wrote a fact.
type AuthorType string

const (
	AuthorHuman  AuthorType = "human"
	AuthorAI     AuthorType = "ai"
	AuthorSystem AuthorType = "system"
)

// Source classifies where a fact came from.
type Source string

const (
	// SourceLocal is the user's own machine.
	SourceLocal Source = "local"

	// SourceCompany is a shared company server.
	SourceCompany Source = "company"

	// SourceGlobal is a public knowledge base.
	SourceGlobal Source = "global"

	// SourceNpm is knowledge bundled with third-party packages.
	SourceNpm Source = "npm"
)

// ErrUnknownKind is returned by the Parse* helpers for unrecognized values.
var ErrUnknownKind = errors.New("unknown kind")

func (s Status) String() string     { return string(s) }
func (t Type) String() string       { return string(t) }
func (a AuthorType) String() string { return string(a) }
func (s Source) String() string     { return string(s) }

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuperseded, StatusDeprecated, StatusArchived, StatusPendingReview:
		return true
	}
	return false
}

// Valid reports whether t is one of the known fact types.
func (t Type) Valid() bool {
	switch t {
	case TypeFact, TypeCorrection, TypeExtension, TypeWarning, TypeDeprecation:
		return true
	}
	return false
}

// Valid reports whether a is one of the known author types.
func (a AuthorType) Valid() bool {
	switch a {
	case AuthorHuman, AuthorAI, AuthorSystem:
		return true
	}
	return false
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceLocal, SourceCompany, SourceGlobal, SourceNpm:
		return true
	}
	return false
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", errors.Wrapf(ErrUnknownKind, "unknown status: %q", s)
	}
	return st, nil
}

// ParseType parses a fact type name, case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.Wrapf(ErrUnknownKind, "unknown fact type: %q", s)
	}
	return t, nil
}

// ParseAuthorType parses an author type name, case-insensitively.
func ParseAuthorType(s string) (AuthorType, error) {
	a := AuthorType(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", errors.Wrapf(ErrUnknownKind, "unknown author type: %q", s)
	}
	return a, nil
}

// ParseSource parses a source name, case-insensitively.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", errors.Wrapf(ErrUnknownKind, "unknown source: %q", s)
	}
	return src, nil
}
