package executor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/weighting"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/tracing"
)

func buildIndex(t *testing.T) *index.InvertedIndex {
	t.Helper()
	docs := []corpus.Document{
		{ID: "00001", Title: "Sweat chloride test", Extract: "Sweat testing for cystic fibrosis in infants.",
			MajorTopics: []string{"CYSTIC-FIBROSIS: di"}},
		{ID: "00002", Title: "Pancreatic enzymes", Abstract: "Enzyme replacement improves growth in children.",
			MajorTopics: []string{"PANCREAS"}, MinorTopics: []string{"CHILD"}},
		{ID: "00003", Title: "Pseudomonas lung infection", Abstract: "Chronic lung infection in cystic fibrosis patients.",
			MinorTopics: []string{"LUNG-DISEASES"}},
		{ID: "00004", Extract: "Growth of children with cystic fibrosis."},
	}
	b := indexer.NewBuilder(config.IndexerConfig{}, weighting.DefaultWeights(), nil)
	idx, err := b.Build(context.Background(), docs)
	require.NoError(t, err)
	return idx
}

func newExecutor(m *metrics.Metrics) *Executor {
	return New(config.Default().Search, m)
}

func TestExecuteDogScenario(t *testing.T) {
	b := indexer.NewBuilder(config.IndexerConfig{}, weighting.Weights{Extract: 1}, nil)
	idx, err := b.Build(context.Background(), []corpus.Document{
		{ID: "A", Extract: "cat dog dog"},
		{ID: "B", Extract: "cat cat bird"},
	})
	require.NoError(t, err)

	res, err := newExecutor(nil).Execute(context.Background(), idx, "dog")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.DocIDs())
	assert.InDelta(t, 1.0, res.Results[0].Score, 1e-12)

	res, err = newExecutor(nil).Execute(context.Background(), idx, "cat")
	require.NoError(t, err)
	assert.Empty(t, res.DocIDs())
}

func TestExecuteEmptyQuery(t *testing.T) {
	idx := buildIndex(t)
	for _, q := range []string{"", "what is the", "unicorn rainbow"} {
		res, err := newExecutor(nil).Execute(context.Background(), idx, q)
		require.NoError(t, err, "query %q", q)
		assert.NotNil(t, res.Results)
		assert.Empty(t, res.Results, "query %q", q)
	}
}

func TestExecuteRanksRelevantFirst(t *testing.T) {
	idx := buildIndex(t)
	res, err := newExecutor(nil).Execute(context.Background(), idx, "sweat chloride test")
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "00001", res.Results[0].DocID)
	assert.GreaterOrEqual(t, res.TotalHits, len(res.Results))
	for _, d := range res.Results {
		assert.GreaterOrEqual(t, d.Score, 0.08)
	}
}

func TestExecuteNoIndex(t *testing.T) {
	_, err := newExecutor(nil).Execute(context.Background(), nil, "dog")
	assert.ErrorIs(t, err, apperrors.ErrIndexNotLoaded)
}

func TestExecuteDeadline(t *testing.T) {
	cfg := config.Default().Search
	cfg.Timeout = time.Second
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := New(cfg, nil).Execute(ctx, buildIndex(t), "cystic fibrosis")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestExecuteSameResultsAfterReload(t *testing.T) {
	idx := buildIndex(t)
	for _, name := range []string{"index.json", "index.msgpack"} {
		t.Run(name, func(t *testing.T) {
			s := store.NewFileStore(filepath.Join(t.TempDir(), name))
			require.NoError(t, s.Save(context.Background(), idx))
			reloaded, err := s.Load(context.Background())
			require.NoError(t, err)

			for _, q := range []string{"cystic fibrosis", "lung infection children", "pancreatic enzyme growth"} {
				before, err := newExecutor(nil).Execute(context.Background(), idx, q)
				require.NoError(t, err)
				after, err := newExecutor(nil).Execute(context.Background(), reloaded, q)
				require.NoError(t, err)
				assert.Equal(t, before.Results, after.Results, "query %q", q)
			}
		})
	}
}

func TestExecuteRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := newExecutor(m)
	idx := buildIndex(t)

	_, err := e.Execute(context.Background(), idx, "cystic fibrosis")
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), idx, "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(ResultHits)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(ResultEmpty)))
}

func TestExecuteAttachesQuerySpan(t *testing.T) {
	ctx, root := tracing.StartSpan(context.Background(), "http.search", "req-1")
	res, err := newExecutor(nil).Execute(ctx, buildIndex(t), "cystic fibrosis in children")
	require.NoError(t, err)
	root.End()

	span := root.Find("search.query")
	require.NotNil(t, span)
	assert.Equal(t, "req-1", span.TraceID)
	candidates, ok := span.Attr("candidates")
	require.True(t, ok)
	assert.Equal(t, res.TotalHits, candidates)
}
