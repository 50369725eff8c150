// Package search layers path, tag and trust filters and token budgets on top
// of a storage driver's ranked full-text search.
package search

import (
	"context"
	"slices"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/factpath"
	"github.com/papercomputeco/meh/pkg/storage"
)

const (
	// DefaultLimit is used when Query.Limit is not positive.
	DefaultLimit = 20

	// overFetch widens the driver query when filters may discard hits.
	overFetch = 3

	// tokenOverhead approximates the id, status and framing shown per result.
	tokenOverhead = 20
)

// Query describes a search.
type Query struct {
	// Text is matched against path, title, content, summary and tags.
	Text string

	// PathPrefix restricts results to facts at or below this path.
	PathPrefix string

	// Tags must all be present on a result.
	Tags []string

	// MinTrust drops results scoring below it.
	MinTrust float64

	Limit int

	// TokenBudget caps the estimated tokens of all results. Zero disables it.
	TokenBudget int
}

// Result is one ranked fact.
type Result struct {
	Fact       *fact.Fact `json:"fact"`
	Relevance  float64    `json:"relevance"`
	TokenCount int        `json:"token_count"`
}

// Response is the outcome of Run.
type Response struct {
	Query       string   `json:"query"`
	Results     []Result `json:"results"`
	Count       int      `json:"count"`
	TotalTokens int      `json:"total_tokens"`

	// Truncated is set when the token budget cut results short.
	Truncated bool `json:"truncated"`
}

func (q Query) filtered() bool {
	return q.PathPrefix != "" || len(q.Tags) > 0 || q.MinTrust > 0
}

// Run executes q against driver.
func Run(ctx context.Context, driver storage.Driver, q Query) (*Response, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var prefix factpath.Path
	hasPrefix := false
	if q.PathPrefix != "" {
		p, _, err := storage.ParentPrefix(q.PathPrefix)
		if err != nil {
			return nil, err
		}
		prefix, hasPrefix = p, !p.IsRoot()
	}

	fetch := limit
	if q.filtered() {
		fetch = limit * overFetch
	}

	hits, err := driver.Search(ctx, q.Text, fetch)
	if err != nil {
		return nil, err
	}

	resp := &Response{Query: q.Text, Results: []Result{}}
	for _, hit := range hits {
		if len(resp.Results) == limit {
			break
		}
		if hasPrefix && !underPrefix(hit.Fact.Path, prefix) {
			continue
		}
		if !hasTags(hit.Fact, q.Tags) {
			continue
		}
		if hit.Fact.TrustScore < q.MinTrust {
			continue
		}

		tokens := EstimateTokens(hit.Fact)
		if q.TokenBudget > 0 && resp.TotalTokens+tokens > q.TokenBudget {
			resp.Truncated = true
			break
		}

		resp.TotalTokens += tokens
		resp.Results = append(resp.Results, Result{
			Fact:       hit.Fact,
			Relevance:  hit.Score,
			TokenCount: tokens,
		})
	}

	resp.Count = len(resp.Results)
	return resp, nil
}

// EstimateTokens approximates how many LLM tokens f costs to show: four
// characters per token plus a fixed overhead.
func EstimateTokens(f *fact.Fact) int {
	return len(f.Content)/4 + len(f.Title)/4 + len(f.Path)/4 + tokenOverhead
}

func underPrefix(path string, prefix factpath.Path) bool {
	p, err := factpath.Parse(path)
	if err != nil {
		return false
	}
	return p.StartsWith(prefix)
}

func hasTags(f *fact.Fact, tags []string) bool {
	for _, t := range tags {
		if !slices.Contains(f.Tags, t) {
			return false
		}
	}
	return true
}
