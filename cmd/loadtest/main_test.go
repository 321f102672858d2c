package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	assert.Equal(t, 50*time.Millisecond, percentile(sorted, 50))
	assert.Equal(t, 99*time.Millisecond, percentile(sorted, 99))
	assert.Equal(t, 1*time.Millisecond, percentile(sorted, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestReadQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.txt")
	require.NoError(t, os.WriteFile(path, []byte("is cf mucus abnormal?\n\n  sweat chloride  \n"), 0o644))

	qs, err := readQuestions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"is cf mucus abnormal?", "sweat chloride"}, qs)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = readQuestions(empty)
	assert.Error(t, err)
}

func TestRunLoadTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "none" {
			w.Write([]byte(`{"results":[]}`))
			return
		}
		w.Write([]byte(`{"results":[{"doc_id":"1","score":0.9},{"doc_id":"2","score":0.5}]}`))
	}))
	defer srv.Close()

	cfg := runConfig{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
		Questions:   []string{"mucus", "none"},
	}
	var out bytes.Buffer
	stats := runLoadTest(context.Background(), cfg, &out)

	require.Positive(t, stats.totalRequests.Load())
	assert.Zero(t, stats.errorCount.Load())
	assert.Positive(t, stats.emptyAnswers.Load())
	assert.Positive(t, stats.rankedDocs.Load())

	total := printReport(&out, stats, cfg.Duration)
	assert.Equal(t, stats.totalRequests.Load(), total)
	assert.Contains(t, out.String(), "200:")
}

func TestSearchURL(t *testing.T) {
	cfg := runConfig{BaseURL: "http://h"}
	assert.Equal(t, "http://h/api/v1/search?q=cf+mucus", searchURL(cfg, "cf mucus"))
	cfg.Limit = 5
	assert.Equal(t, "http://h/api/v1/search?q=cf+mucus&limit=5", searchURL(cfg, "cf mucus"))
}
