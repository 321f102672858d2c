// Package parser turns free-text queries into weighted term vectors using
// the same normaliser as the index builder.
package parser

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/tokenizer"
)

// QueryPlan is the normalised form of one query. Terms lists each distinct
// term once, in ascending order; Counts holds how often each occurred.
type QueryPlan struct {
	RawQuery string
	Terms    []string
	Counts   map[string]int
	MaxCount int
}

// Parse normalises query. Queries without any indexable term produce a plan
// with no terms and a zero MaxCount.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Terms:    make([]string, 0),
		Counts:   make(map[string]int),
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	_, counts := tokenizer.Normalize(query)
	for term, c := range counts {
		plan.Terms = append(plan.Terms, term)
		if c > plan.MaxCount {
			plan.MaxCount = c
		}
	}
	sort.Strings(plan.Terms)
	plan.Counts = counts
	return plan
}

// IsEmpty reports whether the query has no terms left after normalisation.
func (p *QueryPlan) IsEmpty() bool {
	return len(p.Terms) == 0 || p.MaxCount == 0
}

// TF returns the query-side term frequency of term: its count divided by the
// largest count in the query.
func (p *QueryPlan) TF(term string) float64 {
	if p.MaxCount == 0 {
		return 0
	}
	return float64(p.Counts[term]) / float64(p.MaxCount)
}
