// Package tokenizer turns raw text into the canonical term sequence shared by
// index builds and queries. It NFKC-normalises and lower-cases input, strips
// punctuation, splits on word boundaries, drops stop-words and tokens without
// letters, and stems the rest with the Snowball English stemmer.
//
// Build and query must normalise identically, so the stop-word list and the
// stemmer are pinned under AnalyzerVersion, which is persisted with every
// index.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// AnalyzerVersion identifies the stop-word list and stemming algorithm. Bump
// it whenever either changes so older indexes are rejected at load time.
const AnalyzerVersion = "nltk-english-179/snowball-english/v1"

// stopWordList is the NLTK English stop-word corpus. Apostrophes are removed
// from the contracted forms when the set is built, matching how the
// normaliser strips them from input text.
var stopWordList = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
	"you're", "you've", "you'll", "you'd", "your", "yours", "yourself",
	"yourselves", "he", "him", "his", "himself", "she", "she's", "her",
	"hers", "herself", "it", "it's", "its", "itself", "they", "them",
	"their", "theirs", "themselves", "what", "which", "who", "whom", "this",
	"that", "that'll", "these", "those", "am", "is", "are", "was", "were",
	"be", "been", "being", "have", "has", "had", "having", "do", "does",
	"did", "doing", "a", "an", "the", "and", "but", "if", "or", "because",
	"as", "until", "while", "of", "at", "by", "for", "with", "about",
	"against", "between", "into", "through", "during", "before", "after",
	"above", "below", "to", "from", "up", "down", "in", "out", "on", "off",
	"over", "under", "again", "further", "then", "once", "here", "there",
	"when", "where", "why", "how", "all", "any", "both", "each", "few",
	"more", "most", "other", "some", "such", "no", "nor", "not", "only",
	"own", "same", "so", "than", "too", "very", "s", "t", "can", "will",
	"just", "don", "don't", "should", "should've", "now", "d", "ll", "m",
	"o", "re", "ve", "y", "ain", "aren", "aren't", "couldn", "couldn't",
	"didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn",
	"hasn't", "haven", "haven't", "isn", "isn't", "ma", "mightn",
	"mightn't", "mustn", "mustn't", "needn", "needn't", "shan", "shan't",
	"shouldn", "shouldn't", "wasn", "wasn't", "weren", "weren't", "won",
	"won't", "wouldn", "wouldn't",
}

var stopWords = buildStopWords(stopWordList)

func buildStopWords(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words)*2)
	for _, w := range words {
		set[w] = struct{}{}
		set[strings.ReplaceAll(w, "'", "")] = struct{}{}
	}
	return set
}

// Token represents a single normalised term and its position among the
// surviving terms of the original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into a slice of stemmed, lowercased Tokens with
// stop-words removed. Empty or fully filtered input yields an empty slice.
func Tokenize(text string) []Token {
	words := splitWords(text)
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		if !hasLetter(word) {
			continue
		}
		stemmed := stem(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Counts returns the raw occurrence count of every term in tokens.
func Counts(tokens []Token) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok.Term]++
	}
	return counts
}

// Normalize returns the ordered term sequence of text, duplicates retained,
// together with its term counts.
func Normalize(text string) ([]string, map[string]int) {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms, Counts(tokens)
}

// IsStopWord reports whether the lower-cased word is on the pinned list.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

// splitWords lower-cases text and splits it into words. Apostrophes are
// deleted so contractions and possessives stay one word; every other rune
// that is neither a letter nor a digit separates words.
func splitWords(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func hasLetter(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// stem applies the Snowball English (Porter2) stemmer to the given word.
func stem(word string) string {
	return english.Stem(word, true)
}
