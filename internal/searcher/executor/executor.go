package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/tracing"
)

// Result types recorded in the search_queries_total metric.
const (
	ResultHits    = "hits"
	ResultEmpty   = "empty"
	ResultTimeout = "timeout"
	ResultError   = "error"
)

type SearchResult struct {
	Query     string             `json:"query"`
	Terms     []string           `json:"terms"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TookMs    float64            `json:"took_ms"`
}

// DocIDs returns the ranked document ids.
func (r *SearchResult) DocIDs() []string {
	ids := make([]string, len(r.Results))
	for i, d := range r.Results {
		ids[i] = d.DocID
	}
	return ids
}

type Executor struct {
	params  ranker.RankParams
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor. m may be nil.
func New(cfg config.SearchConfig, m *metrics.Metrics) *Executor {
	return &Executor{
		params:  ranker.RankParams{TopK: cfg.TopK, Threshold: cfg.Threshold},
		timeout: cfg.Timeout,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute ranks the documents of idx against text. Every call works on its
// own state; idx is only read.
func (e *Executor) Execute(ctx context.Context, idx *index.InvertedIndex, text string) (*SearchResult, error) {
	if idx == nil {
		return nil, apperrors.ErrIndexNotLoaded
	}
	start := time.Now()
	plan := parser.Parse(text)
	result := &SearchResult{
		Query:   text,
		Terms:   plan.Terms,
		Results: []ranker.ScoredDoc{},
	}
	if plan.IsEmpty() {
		e.record(ResultEmpty, start, 0)
		return result, nil
	}

	ctx, span := tracing.StartChildSpan(ctx, "search.query")
	defer func() {
		span.End()
		span.Log(ctx, e.logger, slog.LevelDebug)
	}()
	span.SetAttr("terms", len(plan.Terms))

	var total int
	err := resilience.WithTimeout(ctx, e.timeout, "search", func(ctx context.Context) error {
		scored := ranker.Score(idx, plan)
		if err := ctx.Err(); err != nil {
			return err
		}
		total = len(scored)
		result.Results = ranker.Filter(ranker.SelectTop(scored, e.params.TopK), e.params.Threshold)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.record(ResultTimeout, start, 0)
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		e.record(ResultError, start, 0)
		return nil, err
	}
	result.TotalHits = total
	span.SetAttr("candidates", total)
	span.SetAttr("results", len(result.Results))
	result.TookMs = float64(time.Since(start).Microseconds()) / 1000

	resultType := ResultHits
	if len(result.Results) == 0 {
		resultType = ResultEmpty
	}
	e.record(resultType, start, len(result.Results))
	e.logger.Debug("query executed",
		"query", text,
		"terms", plan.Terms,
		"candidates", total,
		"results", len(result.Results),
	)
	return result, nil
}

func (e *Executor) record(resultType string, start time.Time, results int) {
	e.metrics.RecordQuery(resultType, time.Since(start).Seconds(), results)
}
