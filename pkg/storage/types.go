package storage

import (
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/factpath"
)

const (
	// DefaultListLimit is the page size used when ListChildren gets limit <= 0.
	DefaultListLimit = 100

	// DefaultSearchLimit is the hit count used when Search gets limit <= 0.
	DefaultSearchLimit = 20

	// DefaultRetentionDays is the garbage collection retention period.
	DefaultRetentionDays = 30

	// TimeLayout is the fixed-width UTC layout timestamps are persisted in, so
	// they compare correctly as text.
	TimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// PathInfo is one group in a ListChildren page.
type PathInfo struct {
	Path      string `json:"path"`
	FactCount int    `json:"fact_count"`
}

// ChildPage is one page of ListChildren results.
type ChildPage struct {
	Items      []PathInfo `json:"items"`
	HasMore    bool       `json:"has_more"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// SearchHit is a ranked search result. Higher scores are more relevant.
type SearchHit struct {
	Fact  *fact.Fact `json:"fact"`
	Score float64    `json:"score"`
}

// Stats counts facts by status.
type Stats struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Superseded    int `json:"superseded"`
	Deprecated    int `json:"deprecated"`
	Archived      int `json:"archived"`
	PendingReview int `json:"pending_review"`
}

// Add counts one fact with the given status.
func (s *Stats) Add(status fact.Status, n int) {
	s.Total += n
	switch status {
	case fact.StatusActive:
		s.Active += n
	case fact.StatusSuperseded:
		s.Superseded += n
	case fact.StatusDeprecated:
		s.Deprecated += n
	case fact.StatusArchived:
		s.Archived += n
	case fact.StatusPendingReview:
		s.PendingReview += n
	}
}

// GCReason explains why a fact is a garbage collection candidate.
type GCReason string

const (
	GCReasonDeprecated GCReason = "deprecated"
	GCReasonSuperseded GCReason = "superseded"
)

// GCCandidate is a fact eligible for garbage collection.
type GCCandidate struct {
	ID        string      `json:"id"`
	Path      string      `json:"path"`
	Title     string      `json:"title"`
	Status    fact.Status `json:"status"`
	Reason    GCReason    `json:"reason"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// GCResult reports a garbage collection pass.
type GCResult struct {
	DryRun       bool          `json:"dry_run"`
	Cutoff       time.Time     `json:"cutoff"`
	DeletedCount int           `json:"deleted_count"`
	Candidates   []GCCandidate `json:"candidates"`
}

// GCCutoff validates retentionDays and returns the instant before which
// eligible facts may be collected.
func GCCutoff(now time.Time, retentionDays int) (time.Time, error) {
	if retentionDays < 0 {
		return time.Time{}, errors.Wrapf(ErrInvalidArgument, "retention days must be >= 0, got %d", retentionDays)
	}
	return now.UTC().AddDate(0, 0, -retentionDays), nil
}

// GCEligible reports whether a fact with the given state would be collected.
// superseded is true when some other fact's supersedes points at it.
func GCEligible(status fact.Status, superseded bool, updatedAt, cutoff time.Time) (GCReason, bool) {
	if !updatedAt.Before(cutoff) {
		return "", false
	}
	switch status {
	case fact.StatusDeprecated:
		return GCReasonDeprecated, true
	case fact.StatusActive, fact.StatusPendingReview:
		return "", false
	case fact.StatusSuperseded, fact.StatusArchived:
		if superseded {
			return GCReasonSuperseded, true
		}
	}
	return "", false
}

// ValidateFactPath parses a fact's path for insertion. Facts cannot live at
// the root, nor at RootAlias, which browsing reads as the root.
func ValidateFactPath(path string) (string, error) {
	p, err := factpath.Parse(path)
	if err != nil {
		return "", err
	}
	if p.IsRoot() || p.String() == RootAlias {
		return "", errors.Wrap(ErrInvalidPath, "facts cannot be stored at the root path")
	}
	return p.String(), nil
}

// QueryTokens splits a search query on whitespace and control characters.
func QueryTokens(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
}

// RootAlias is the conventional name agents browse the top level with.
const RootAlias = "@"

// ParentPrefix parses parent and returns the text prefix its children share:
// "" for the root, otherwise the path plus a trailing separator. An empty
// parent and RootAlias both denote the root.
func ParentPrefix(parent string) (factpath.Path, string, error) {
	trimmed := strings.TrimSpace(parent)
	if trimmed == "" || trimmed == RootAlias {
		return factpath.Root(), "", nil
	}

	p, err := factpath.Parse(trimmed)
	if err != nil {
		return factpath.Path{}, "", err
	}
	if p.IsRoot() {
		return p, "", nil
	}
	return p, p.String() + factpath.Separator, nil
}

// ChildGroup returns the grouped path of fullPath one level below prefix, as
// produced by ListChildren.
func ChildGroup(fullPath, prefix string) string {
	rest := strings.TrimPrefix(fullPath, prefix)
	if i := strings.Index(rest, factpath.Separator); i >= 0 {
		return prefix + rest[:i]
	}
	return fullPath
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp, also accepting RFC 3339 text.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing timestamp %q", s)
	}
	return t.UTC(), nil
}
