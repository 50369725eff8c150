package mcp

import (
	"time"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
)

// FactView is the agent facing rendering of a fact.
type FactView struct {
	ID         string   `json:"id"`
	MehID      string   `json:"meh_id"`
	Path       string   `json:"path"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Status     string   `json:"status"`
	Type       string   `json:"fact_type"`
	TrustScore float64  `json:"trust_score"`
	Tags       []string `json:"tags"`
	Supersedes string   `json:"supersedes,omitempty"`
	Extends    []string `json:"extends,omitempty"`
	Author     string   `json:"author"`
	CreatedAt  string   `json:"created_at"`
}

// PathView is one child path in a browse listing.
type PathView struct {
	Path      string `json:"path"`
	FactCount int    `json:"fact_count"`
}

// TreeEntryView is one path of a tree-mode browse, listed depth first. Depth
// is relative to the browsed path.
type TreeEntryView struct {
	Path      string `json:"path"`
	Depth     int    `json:"depth"`
	FactCount int    `json:"fact_count"`
	Here      int    `json:"here"`
	Truncated bool   `json:"truncated,omitempty"`
}

func viewFact(f *fact.Fact) FactView {
	v := FactView{
		ID:         f.ID,
		MehID:      f.MehID(),
		Path:       f.Path,
		Title:      f.Title,
		Content:    f.Content,
		Status:     string(f.Status),
		Type:       string(f.Type),
		TrustScore: f.TrustScore,
		Tags:       append([]string{}, f.Tags...),
		Extends:    f.Extends,
		Author:     string(f.AuthorType),
		CreatedAt:  f.CreatedAt.UTC().Format(time.RFC3339),
	}
	if f.AuthorID != "" {
		v.Author += ":" + f.AuthorID
	}
	if f.Supersedes != nil {
		v.Supersedes = *f.Supersedes
	}
	return v
}

func viewFacts(facts []*fact.Fact) []FactView {
	out := make([]FactView, 0, len(facts))
	for _, f := range facts {
		out = append(out, viewFact(f))
	}
	return out
}

func viewPaths(items []storage.PathInfo) []PathView {
	out := make([]PathView, 0, len(items))
	for _, p := range items {
		out = append(out, PathView(p))
	}
	return out
}

// viewTree flattens the nodes below root, depth first.
func viewTree(root *service.TreeNode) []TreeEntryView {
	out := []TreeEntryView{}
	var walk func(n *service.TreeNode, depth int)
	walk = func(n *service.TreeNode, depth int) {
		for _, c := range n.Children {
			out = append(out, TreeEntryView{
				Path:      c.Path,
				Depth:     depth,
				FactCount: c.FactCount,
				Here:      c.Here,
				Truncated: c.Truncated,
			})
			walk(c, depth+1)
		}
	}
	walk(root, 1)
	return out
}
