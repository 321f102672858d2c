package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/weighting"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/holder"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
)

type testServer struct {
	*httptest.Server
	holder *holder.Holder
	store  *store.FileStore
}

func newTestServer(t *testing.T, saveIndex bool) *testServer {
	t.Helper()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "vsm_inverted_index.json"))
	if saveIndex {
		b := indexer.NewBuilder(config.IndexerConfig{}, weighting.Weights{Extract: 1}, nil)
		idx, err := b.Build(context.Background(), []corpus.Document{
			{ID: "A", Extract: "cat dog dog"},
			{ID: "B", Extract: "cat cat bird"},
		})
		require.NoError(t, err)
		require.NoError(t, fs.Save(context.Background(), idx))
	}
	h := holder.New(fs, nil)
	mux := http.NewServeMux()
	New(executor.New(config.Default().Search, nil), h).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, holder: h, store: fs}
}

func getJSON(t *testing.T, method, url string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSearchBeforeLoad(t *testing.T) {
	srv := newTestServer(t, true)
	var body map[string]string
	code := getJSON(t, http.MethodGet, srv.URL+"/api/v1/search?q=dog", &body)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "index not loaded", body["error"])
}

func TestSearchAfterReload(t *testing.T) {
	srv := newTestServer(t, true)

	var stats holder.Stats
	code := getJSON(t, http.MethodPost, srv.URL+"/api/v1/index/reload", &stats)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, stats.Loaded)
	assert.Equal(t, 2, stats.DocCount)
	assert.Equal(t, 3, stats.TermCount)

	var result executor.SearchResult
	code = getJSON(t, http.MethodGet, srv.URL+"/api/v1/search?q=dog", &result)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dog", result.Query)
	assert.Equal(t, []string{"A"}, result.DocIDs())
	assert.InDelta(t, 1.0, result.Results[0].Score, 1e-12)

	code = getJSON(t, http.MethodGet, srv.URL+"/api/v1/search?q=cat", &result)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, result.Results)
}

func TestSearchLimit(t *testing.T) {
	srv := newTestServer(t, true)
	_, err := srv.holder.Reload(context.Background())
	require.NoError(t, err)

	var result executor.SearchResult
	code := getJSON(t, http.MethodGet, srv.URL+"/api/v1/search?q=dog+bird&limit=1", &result)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"A"}, result.DocIDs())
	assert.Equal(t, 2, result.TotalHits)
}

func TestSearchBadRequests(t *testing.T) {
	srv := newTestServer(t, true)
	for _, path := range []string{
		"/api/v1/search",
		"/api/v1/search?q=",
		"/api/v1/search?q=dog&limit=0",
		"/api/v1/search?q=dog&limit=abc",
	} {
		code := getJSON(t, http.MethodGet, srv.URL+path, nil)
		assert.Equal(t, http.StatusBadRequest, code, path)
	}
}

func TestReloadMissingIndex(t *testing.T) {
	srv := newTestServer(t, false)
	var body map[string]string
	code := getJSON(t, http.MethodPost, srv.URL+"/api/v1/index/reload", &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "index not found", body["error"])

	var stats holder.Stats
	code = getJSON(t, http.MethodGet, srv.URL+"/api/v1/index/stats", &stats)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, stats.Loaded)
}
