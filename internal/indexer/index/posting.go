// Package index defines the inverted index produced by the builder and read
// by the query engine. An InvertedIndex is immutable once built: callers
// must treat every value reachable from it as read-only.
package index

import (
	"math"
	"sort"
	"time"
)

// FormatVersion is bumped whenever the persisted layout changes.
const FormatVersion = 1

// Posting is one (term, document) association.
type Posting struct {
	DocID    string  `json:"record_num"`
	OccCount int     `json:"occ_count"`
	TF       float64 `json:"tf"`
	DocLen   float64 `json:"doc_len"`
}

// PostingList holds every posting of a term plus its corpus statistics.
type PostingList struct {
	OccList []Posting `json:"occ_list"`
	DF      int       `json:"df"`
	IDF     float64   `json:"idf"`
}

// InvertedIndex maps terms to posting lists. DocCount is N, the number of
// documents that contributed postings.
type InvertedIndex struct {
	Version  int                     `json:"version"`
	Analyzer string                  `json:"analyzer"`
	DocCount int                     `json:"doc_count"`
	BuiltAt  time.Time               `json:"built_at"`
	Terms    map[string]*PostingList `json:"terms"`
}

// Lookup returns the posting list of term.
func (idx *InvertedIndex) Lookup(term string) (*PostingList, bool) {
	pl, ok := idx.Terms[term]
	return pl, ok
}

// TermCount returns the number of distinct terms.
func (idx *InvertedIndex) TermCount() int {
	return len(idx.Terms)
}

// SortedTerms returns every term in ascending order.
func (idx *InvertedIndex) SortedTerms() []string {
	terms := make([]string, 0, len(idx.Terms))
	for t := range idx.Terms {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// DocLengths returns the vector length recorded for every indexed document.
func (idx *InvertedIndex) DocLengths() map[string]float64 {
	lengths := make(map[string]float64, idx.DocCount)
	for _, pl := range idx.Terms {
		for _, p := range pl.OccList {
			lengths[p.DocID] = p.DocLen
		}
	}
	return lengths
}

// IDF returns log2(n/df), the inverse document frequency of a term found in
// df of n documents.
func IDF(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return 0
	}
	return math.Log2(float64(n) / float64(df))
}
