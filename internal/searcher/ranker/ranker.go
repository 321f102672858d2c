// Package ranker scores documents against a query vector by cosine
// similarity over TF-IDF weights.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/parser"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// RankParams bounds the result list: at most TopK documents, then only
// those whose similarity is at least Threshold.
type RankParams struct {
	TopK      int
	Threshold float64
}

// QueryWeight is the TF-IDF weight of one query term found in the index.
type QueryWeight struct {
	Term    string
	Weight  float64
	Posting *index.PostingList
}

// Weigh returns the weights of the plan's terms that exist in idx, in term
// order, and the Euclidean length of the query vector.
func Weigh(idx *index.InvertedIndex, plan *parser.QueryPlan) ([]QueryWeight, float64) {
	if plan.IsEmpty() {
		return nil, 0
	}
	weights := make([]QueryWeight, 0, len(plan.Terms))
	var sum float64
	for _, term := range plan.Terms {
		pl, ok := idx.Lookup(term)
		if !ok {
			continue
		}
		w := pl.IDF * plan.TF(term)
		sum += w * w
		weights = append(weights, QueryWeight{Term: term, Weight: w, Posting: pl})
	}
	return weights, math.Sqrt(sum)
}

// Score returns the cosine similarity of every document sharing a term with
// the query. A zero-length query scores nothing; documents with zero length
// are skipped.
func Score(idx *index.InvertedIndex, plan *parser.QueryPlan) []ScoredDoc {
	weights, queryLen := Weigh(idx, plan)
	if queryLen == 0 {
		return []ScoredDoc{}
	}
	dot := make(map[string]float64)
	docLen := make(map[string]float64)
	for _, qw := range weights {
		for _, p := range qw.Posting.OccList {
			if p.DocLen == 0 {
				continue
			}
			dot[p.DocID] += qw.Weight * qw.Posting.IDF * p.TF
			docLen[p.DocID] = p.DocLen
		}
	}
	scored := make([]ScoredDoc, 0, len(dot))
	for docID, s := range dot {
		scored = append(scored, ScoredDoc{
			DocID: docID,
			Score: s / (queryLen * docLen[docID]),
		})
	}
	return scored
}

// Rank scores the query, keeps the TopK best documents and drops those below
// Threshold. Results are ordered by descending similarity, ties by ascending
// doc id.
func Rank(idx *index.InvertedIndex, plan *parser.QueryPlan, params RankParams) []ScoredDoc {
	return Filter(SelectTop(Score(idx, plan), params.TopK), params.Threshold)
}

// Filter drops, in place, documents scoring below threshold.
func Filter(docs []ScoredDoc, threshold float64) []ScoredDoc {
	out := docs[:0]
	for _, d := range docs {
		if d.Score >= threshold {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders docs best first.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		return better(docs[i], docs[j])
	})
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}
