package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
)

// BenchmarkQueryParse measures query normalisation latency for questions of
// varying length.
func BenchmarkQueryParse(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"short", "cystic fibrosis"},
		{"question", "What are the effects of calcium on the physical properties of mucus from CF patients?"},
		{"stopwords", "what is it that they have been doing"},
		{"long", "Can one distinguish between the effects of mucus hypersecretion and infection on the submucosal glands of the respiratory tract in CF?"},
	}

	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = parser.Parse(q.query)
			}
		})
	}
}

// BenchmarkRank measures cosine scoring, top-K selection and the threshold
// filter for different index sizes.
func BenchmarkRank(b *testing.B) {
	params := ranker.RankParams{TopK: 40, Threshold: 0.08}
	plan := parser.Parse("pseudomonas infection in cystic fibrosis lungs")
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			idx := buildIndex(b, n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ranker.Rank(idx, plan, params)
			}
		})
	}
}

// BenchmarkRankMultiTerm measures ranking with an increasing number of
// query terms.
func BenchmarkRankMultiTerm(b *testing.B) {
	idx := buildIndex(b, 5000)
	params := ranker.RankParams{TopK: 40, Threshold: 0.08}
	for _, tc := range []int{1, 3, 6, 12} {
		b.Run(fmt.Sprintf("terms_%d", tc), func(b *testing.B) {
			q := ""
			for t := 0; t < tc; t++ {
				q += vocabulary[t%len(vocabulary)] + " "
			}
			plan := parser.Parse(q)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ranker.Rank(idx, plan, params)
			}
		})
	}
}

// BenchmarkExecutorParallel measures concurrent end-to-end query throughput
// against one shared read-only index.
func BenchmarkExecutorParallel(b *testing.B) {
	idx := buildIndex(b, 5000)
	exec := executor.New(config.Default().Search, nil)
	questions := []string{
		"sweat chloride in children",
		"pancreatic enzymes therapy",
		"gene mutation and lung function",
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := exec.Execute(context.Background(), idx, questions[i%len(questions)]); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}
