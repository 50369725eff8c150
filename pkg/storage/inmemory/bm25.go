package inmemory

import (
	"math"
	"strings"
	"unicode"

	"github.com/papercomputeco/meh/pkg/fact"
	"github.com/papercomputeco/meh/pkg/storage"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75

	// minIDF keeps terms that appear in most documents contributing a little.
	minIDF = 1e-6
)

// columnWeights mirror the SQLite ranking: path, title, content, summary, tags.
var columnWeights = [5]float64{10.0, 5.0, 1.0, 1.0, 1.0}

type document struct {
	fact    *fact.Fact
	columns [5][]string
	length  int
}

// ranker scores facts the way FTS5's bm25() does: each query token is a
// phrase, its term frequency is weighted per column, and scores add up over
// the phrases a document matches.
type ranker struct {
	docs   []document
	avgLen float64
}

func newRanker(facts []*fact.Fact) *ranker {
	r := &ranker{docs: make([]document, 0, len(facts))}

	total := 0
	for _, f := range facts {
		summary := ""
		if f.Summary != nil {
			summary = *f.Summary
		}

		doc := document{
			fact: f,
			columns: [5][]string{
				tokenize(f.Path),
				tokenize(f.Title),
				tokenize(f.Content),
				tokenize(summary),
				tokenize(strings.Join(f.Tags, " ")),
			},
		}
		for _, col := range doc.columns {
			doc.length += len(col)
		}
		total += doc.length
		r.docs = append(r.docs, doc)
	}

	if len(r.docs) > 0 {
		r.avgLen = float64(total) / float64(len(r.docs))
	}
	return r
}

func (r *ranker) rank(tokens []string) []*storage.SearchHit {
	scores := make([]float64, len(r.docs))
	matched := make([]bool, len(r.docs))
	n := float64(len(r.docs))

	for _, token := range tokens {
		phrase := tokenize(token)
		if len(phrase) == 0 {
			continue
		}

		freqs := make([]float64, len(r.docs))
		docFreq := 0
		for i, doc := range r.docs {
			for c, col := range doc.columns {
				freqs[i] += columnWeights[c] * float64(countPhrase(col, phrase))
			}
			if freqs[i] > 0 {
				docFreq++
			}
		}
		if docFreq == 0 {
			continue
		}

		idf := max(math.Log((n-float64(docFreq)+0.5)/(float64(docFreq)+0.5)), minIDF)

		for i, doc := range r.docs {
			tf := freqs[i]
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B
			if r.avgLen > 0 {
				norm += bm25B * float64(doc.length) / r.avgLen
			}
			scores[i] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
			matched[i] = true
		}
	}

	hits := []*storage.SearchHit{}
	for i, doc := range r.docs {
		if matched[i] {
			hits = append(hits, &storage.SearchHit{Fact: doc.fact, Score: scores[i]})
		}
	}
	return hits
}

// tokenize lower-cases s and splits it on anything that is not a letter or
// digit, like the unicode61 tokenizer.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countPhrase(terms, phrase []string) int {
	count := 0
	for i := 0; i+len(phrase) <= len(terms); i++ {
		match := true
		for j, p := range phrase {
			if terms[i+j] != p {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}
