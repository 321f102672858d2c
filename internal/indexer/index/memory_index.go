package index

import (
	"time"
)

// DocTerms is the phase-one output for a single document: its weighted term
// counts and the largest of them.
type DocTerms struct {
	DocID    string
	Counts   map[string]int
	MaxCount int
}

// MemoryIndex accumulates postings while a build is in progress. It is not
// safe for concurrent use; the builder merges phase-one records into it from
// a single goroutine.
type MemoryIndex struct {
	index    map[string]*PostingList
	docs     []DocTerms
	postings int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]*PostingList),
	}
}

// AddDocument appends one posting per term of doc with tf normalised by the
// document's own max count. Documents without terms are ignored.
func (m *MemoryIndex) AddDocument(doc DocTerms) bool {
	if doc.MaxCount <= 0 || len(doc.Counts) == 0 {
		return false
	}
	for _, term := range sortedKeys(doc.Counts) {
		count := doc.Counts[term]
		pl, exists := m.index[term]
		if !exists {
			pl = &PostingList{OccList: make([]Posting, 0, 4)}
			m.index[term] = pl
		}
		pl.OccList = append(pl.OccList, Posting{
			DocID:    doc.DocID,
			OccCount: count,
			TF:       float64(count) / float64(doc.MaxCount),
		})
		m.postings++
	}
	m.docs = append(m.docs, doc)
	return true
}

// Docs returns the merged documents in merge order.
func (m *MemoryIndex) Docs() []DocTerms {
	return m.docs
}

func (m *MemoryIndex) DocCount() int {
	return len(m.docs)
}

func (m *MemoryIndex) PostingCount() int {
	return m.postings
}

// ComputeIDF sets df and idf on every posting list. It must run after the
// last AddDocument.
func (m *MemoryIndex) ComputeIDF() map[string]float64 {
	n := len(m.docs)
	idf := make(map[string]float64, len(m.index))
	for term, pl := range m.index {
		pl.DF = len(pl.OccList)
		pl.IDF = IDF(n, pl.DF)
		idf[term] = pl.IDF
	}
	return idf
}

// SetDocLengths writes each document's vector length into all its postings.
func (m *MemoryIndex) SetDocLengths(lengths map[string]float64) {
	for _, pl := range m.index {
		for i := range pl.OccList {
			pl.OccList[i].DocLen = lengths[pl.OccList[i].DocID]
		}
	}
}

// Freeze hands the accumulated postings over as an InvertedIndex. The
// MemoryIndex must not be used afterwards.
func (m *MemoryIndex) Freeze(analyzer string, builtAt time.Time) *InvertedIndex {
	idx := &InvertedIndex{
		Version:  FormatVersion,
		Analyzer: analyzer,
		DocCount: len(m.docs),
		BuiltAt:  builtAt,
		Terms:    m.index,
	}
	m.index = nil
	m.docs = nil
	return idx
}
