package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func terms(text string) []string {
	out, _ := Normalize(text)
	return out
}

func TestNormalizeLowercasesAndStems(t *testing.T) {
	assert.Equal(t, terms("cat"), terms("Cats"))
	assert.Equal(t, []string{"run"}, terms("Running"))
	assert.Equal(t, terms("disease"), terms("DISEASES"))
}

func TestNormalizeDropsStopWords(t *testing.T) {
	assert.Equal(t, []string{"cat", "dog"}, terms("the cat and a dog"))
	assert.Empty(t, terms("The and of to IS"))
	assert.Empty(t, terms("don't you're"), "contractions are stop-words once apostrophes are stripped")
}

func TestNormalizeStripsPunctuation(t *testing.T) {
	assert.Equal(t, []string{"cat", "dog", "bird"}, terms("cat, dog; (bird)!"))
	assert.Equal(t, terms("patients"), terms("patient's"))
	assert.Equal(t, terms("cystic fibrosis"), terms("cystic-fibrosis"))
	assert.Len(t, terms("cystic-fibrosis"), 2)
}

func TestNormalizeDropsTokensWithoutLetters(t *testing.T) {
	assert.Empty(t, terms("1978 42 3.14 --- !!!"))
	assert.Equal(t, []string{"cf1"}, terms("CF1 1998"))
}

func TestNormalizeDegenerateInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t", "the of and"} {
		seq, counts := Normalize(in)
		assert.Empty(t, seq, "input %q", in)
		assert.Empty(t, counts, "input %q", in)
		assert.NotNil(t, counts)
	}
}

func TestNormalizeCountsRetainDuplicates(t *testing.T) {
	seq, counts := Normalize("cat dog dog")
	assert.Equal(t, []string{"cat", "dog", "dog"}, seq)
	assert.Equal(t, map[string]int{"cat": 1, "dog": 2}, counts)
}

func TestTokenizePositionsAreContiguous(t *testing.T) {
	tokens := Tokenize("the cat sat on the mat")
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	text := "Pseudomonas aeruginosa infections in cystic fibrosis patients"
	first := terms(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, terms(text))
	}
}

func TestNormalizeUnicode(t *testing.T) {
	assert.Equal(t, terms("fibrosis"), terms("ﬁbrosis"), "NFKC folds ligatures")
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("The"))
	assert.True(t, IsStopWord("dont"))
	assert.False(t, IsStopWord("cat"))
}
