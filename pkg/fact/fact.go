// Package fact defines the append-only knowledge record stored by meh, the
// constructors that relate facts to one another, and the trust engine that
// scores them.
package fact

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

const (
	// DefaultSummaryChars is the summary budget used when facts are added.
	DefaultSummaryChars = 200

	// ShortIDLen is the number of id characters shown to humans.
	ShortIDLen = 8

	// MehIDPrefix marks short ids handed to agents ("meh-01hq3k2a").
	MehIDPrefix = "meh-"

	correctionTitlePrefix = "Correction: "
	extensionTitleSuffix  = " (extension)"
)

// Fact is the unit of knowledge. Everything except Status and UpdatedAt is
// fixed once the fact is inserted.
type Fact struct {
	ID         string     `json:"id"`
	Path       string     `json:"path"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Summary    *string    `json:"summary,omitempty"`
	Tags       []string   `json:"tags"`
	Source     Source     `json:"source"`
	Namespace  string     `json:"namespace"`
	TrustScore float64    `json:"trust_score"`
	Status     Status     `json:"status"`
	Type       Type       `json:"fact_type"`
	Supersedes *string    `json:"supersedes,omitempty"`
	Extends    []string   `json:"extends,omitempty"`
	AuthorType AuthorType `json:"author_type"`
	AuthorID   string     `json:"author_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	AccessedAt *time.Time `json:"accessed_at,omitempty"`
}

// NewID returns a fresh time-ordered identifier.
func NewID() string {
	return ulid.Make().String()
}

// New creates an active fact authored by an AI on the local source.
func New(path, title, content string) *Fact {
	now := time.Now().UTC()
	return &Fact{
		ID:         NewID(),
		Path:       path,
		Title:      title,
		Content:    content,
		Tags:       []string{},
		Source:     SourceLocal,
		TrustScore: DefaultTrustEngine().InitialTrust(AuthorAI, SourceLocal),
		Status:     StatusActive,
		Type:       TypeFact,
		Extends:    []string{},
		AuthorType: AuthorAI,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Correction creates a fact that supersedes original at the same path.
func Correction(original *Fact, content string) *Fact {
	title := original.Title
	if !strings.HasPrefix(title, correctionTitlePrefix) {
		title = correctionTitlePrefix + title
	}

	f := New(original.Path, title, content)
	supersedes := original.ID
	f.Supersedes = &supersedes
	f.Type = TypeCorrection
	f.Tags = append([]string{}, original.Tags...)
	return f
}

// Extension creates a fact that adds to original without replacing it.
func Extension(original *Fact, content string) *Fact {
	f := New(original.Path, original.Title+extensionTitleSuffix, content)
	f.Extends = []string{original.ID}
	f.Type = TypeExtension
	return f
}

// WithTags replaces the fact's tags, dropping blanks and duplicates.
func (f *Fact) WithTags(tags []string) *Fact {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	f.Tags = out
	return f
}

// WithSource sets the source and rescores the fact with engine.
func (f *Fact) WithSource(source Source, engine *TrustEngine) *Fact {
	f.Source = source
	f.TrustScore = engine.InitialTrust(f.AuthorType, f.Source)
	return f
}

// WithAuthor sets the author and rescores the fact with engine.
func (f *Fact) WithAuthor(author AuthorType, authorID string, engine *TrustEngine) *Fact {
	f.AuthorType = author
	f.AuthorID = authorID
	f.TrustScore = engine.InitialTrust(f.AuthorType, f.Source)
	return f
}

// WithNamespace sets the namespace.
func (f *Fact) WithNamespace(ns string) *Fact {
	f.Namespace = ns
	return f
}

// WithStatus sets the initial status, e.g. pending_review for moderated writes.
func (f *Fact) WithStatus(status Status) *Fact {
	f.Status = status
	return f
}

// RecalculateTrust rescores the fact from its author, source, age and status.
func (f *Fact) RecalculateTrust(engine *TrustEngine, confirmations int) {
	base := engine.InitialTrust(f.AuthorType, f.Source)
	f.TrustScore = engine.EffectiveTrust(base, f.CreatedAt, f.Status, f.Type, confirmations)
}

// GenerateSummary derives the summary from the content: the first sentence if
// it ends before maxChars, the whole content if it fits, otherwise a cut at
// the last word boundary followed by "...".
func (f *Fact) GenerateSummary(maxChars int) {
	summary := summarize(f.Content, maxChars)
	f.Summary = &summary
}

func summarize(content string, maxChars int) string {
	content = strings.TrimSpace(content)

	if end := strings.IndexAny(content, ".!?"); end >= 0 && end < maxChars {
		return content[:end+1]
	}

	if len(content) <= maxChars {
		return content
	}

	cut := max(maxChars, 0)
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	truncated := content[:cut]

	if i := strings.LastIndex(truncated, " "); i >= 0 {
		truncated = truncated[:i]
	}
	return truncated + "..."
}

// SummaryOrContent returns the summary when set, else the content.
func (f *Fact) SummaryOrContent() string {
	if f.Summary != nil && *f.Summary != "" {
		return *f.Summary
	}
	return f.Content
}

// ShortID is the lower-cased id prefix shown in listings.
func (f *Fact) ShortID() string {
	return ShortID(f.ID)
}

// MehID is the short id in the "meh-" form handed to agents.
func (f *Fact) MehID() string {
	return MehIDPrefix + f.ShortID()
}

// ShortID lower-cases and truncates id to ShortIDLen characters.
func ShortID(id string) string {
	if len(id) > ShortIDLen {
		id = id[:ShortIDLen]
	}
	return strings.ToLower(id)
}

// Clone returns a deep copy of f.
func (f *Fact) Clone() *Fact {
	c := *f
	c.Tags = append([]string{}, f.Tags...)
	c.Extends = append([]string{}, f.Extends...)
	if f.Summary != nil {
		s := *f.Summary
		c.Summary = &s
	}
	if f.Supersedes != nil {
		s := *f.Supersedes
		c.Supersedes = &s
	}
	if f.AccessedAt != nil {
		t := *f.AccessedAt
		c.AccessedAt = &t
	}
	return &c
}

// IsActive reports whether the fact is current.
func (f *Fact) IsActive() bool {
	return f.Status == StatusActive
}
