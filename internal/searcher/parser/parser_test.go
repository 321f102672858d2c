package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/tokenizer"
)

func TestParseCountsAndOrder(t *testing.T) {
	plan := Parse("dog cat dog")
	require.False(t, plan.IsEmpty())
	assert.Equal(t, "dog cat dog", plan.RawQuery)
	assert.Equal(t, []string{"cat", "dog"}, plan.Terms)
	assert.Equal(t, map[string]int{"cat": 1, "dog": 2}, plan.Counts)
	assert.Equal(t, 2, plan.MaxCount)
	assert.InDelta(t, 0.5, plan.TF("cat"), 1e-12)
	assert.InDelta(t, 1.0, plan.TF("dog"), 1e-12)
	assert.Zero(t, plan.TF("bird"))
}

func TestParseEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "the of and", "?!...", "1984 2024"} {
		plan := Parse(q)
		assert.True(t, plan.IsEmpty(), "query %q", q)
		assert.Empty(t, plan.Terms)
		assert.Zero(t, plan.MaxCount)
	}
}

func TestParseMatchesIndexNormalisation(t *testing.T) {
	plan := Parse("What are the effects of Cystic-Fibrosis on children's lungs?")
	assert.NotContains(t, plan.Terms, "what")
	assert.NotContains(t, plan.Terms, "the")
	assert.Contains(t, plan.Terms, tokenizer.Tokenize("cystic")[0].Term)
	for _, term := range plan.Terms {
		assert.Equal(t, 1, plan.Counts[term])
	}
}
