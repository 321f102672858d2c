// Package weighting amplifies document fields before normalisation. A field
// with weight w contributes its terms w times, so weights interact with the
// per-document max-count normalisation exactly as if the field text had been
// repeated w times.
package weighting

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
)

// Weights holds the replication multiplier of each field.
type Weights struct {
	Title      int
	MajorTopic int
	MinorTopic int
	Extract    int
	Abstract   int
}

// DefaultWeights returns title 2, major topics 4, everything else 1.
func DefaultWeights() Weights {
	return FromConfig(config.Default().Weights)
}

// FromConfig converts the YAML weights section.
func FromConfig(c config.WeightsConfig) Weights {
	return Weights{
		Title:      c.Title,
		MajorTopic: c.MajorTopic,
		MinorTopic: c.MinorTopic,
		Extract:    c.Extract,
		Abstract:   c.Abstract,
	}
}

// FormatTopic lower-cases a subject heading, turns hyphens into spaces and
// keeps only the part before the first colon ("CYSTIC-FIBROSIS: co" becomes
// "cystic fibrosis"). A colon in the first position is left alone.
func FormatTopic(topic string) string {
	t := strings.ReplaceAll(strings.ToLower(topic), "-", " ")
	if i := strings.Index(t, ":"); i > 0 {
		t = t[:i]
	}
	return t
}

// Combine returns the single weighted text of doc: the title repeated
// Title times, then extract, abstract, major topics (as a block) repeated
// MajorTopic times, and minor topics repeated MinorTopic times.
func (w Weights) Combine(doc corpus.Document) string {
	parts := make([]string, 0, 8)
	parts = appendRepeated(parts, []string{doc.Title}, w.Title)
	parts = appendRepeated(parts, []string{doc.Extract}, w.Extract)
	parts = appendRepeated(parts, []string{doc.Abstract}, w.Abstract)
	parts = appendRepeated(parts, formatTopics(doc.MajorTopics), w.MajorTopic)
	parts = appendRepeated(parts, formatTopics(doc.MinorTopics), w.MinorTopic)
	return strings.Join(parts, " ")
}

// Counts returns the weighted term counts of doc. Each field is normalised
// once and its counts multiplied by the field weight, which gives the same
// result as normalising Combine(doc) without building the repeated text.
func (w Weights) Counts(doc corpus.Document) map[string]int {
	counts := make(map[string]int)
	add := func(text string, weight int) {
		if weight <= 0 || text == "" {
			return
		}
		for _, tok := range tokenizer.Tokenize(text) {
			counts[tok.Term] += weight
		}
	}
	add(doc.Title, w.Title)
	add(doc.Extract, w.Extract)
	add(doc.Abstract, w.Abstract)
	for _, topic := range doc.MajorTopics {
		add(FormatTopic(topic), w.MajorTopic)
	}
	for _, topic := range doc.MinorTopics {
		add(FormatTopic(topic), w.MinorTopic)
	}
	return counts
}

func formatTopics(topics []string) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = FormatTopic(t)
	}
	return out
}

func appendRepeated(dst, items []string, times int) []string {
	for i := 0; i < times; i++ {
		for _, item := range items {
			if item != "" {
				dst = append(dst, item)
			}
		}
	}
	return dst
}
