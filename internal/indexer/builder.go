package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/weighting"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/tracing"
)

// Builder turns a corpus into an InvertedIndex in two phases. Phase one
// computes the weighted term counts of every document on a worker pool. The
// results are merged into posting lists in corpus order, after which phase
// two derives idf for every term and the vector length of every document.
type Builder struct {
	cfg     config.IndexerConfig
	weights weighting.Weights
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewBuilder creates a Builder. m may be nil.
func NewBuilder(cfg config.IndexerConfig, weights weighting.Weights, m *metrics.Metrics) *Builder {
	return &Builder{
		cfg:     cfg,
		weights: weights,
		metrics: m,
		logger:  slog.Default().With("component", "index-builder"),
		now:     time.Now,
	}
}

// BuildDir loads the corpus under dir and builds its index.
func (b *Builder) BuildDir(ctx context.Context, dir string) (*index.InvertedIndex, error) {
	docs, err := corpus.NewLoader(b.cfg.Workers).LoadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	return b.Build(ctx, docs)
}

// Build indexes docs. Document ids must be unique. Documents without any
// qualifying term produce no postings and are not counted in DocCount.
func (b *Builder) Build(ctx context.Context, docs []corpus.Document) (*index.InvertedIndex, error) {
	if err := checkUniqueIDs(docs); err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "index.build", "")
	defer func() {
		span.End()
		span.Log(ctx, b.logger, slog.LevelInfo)
	}()
	span.SetAttr("documents", len(docs))
	start := time.Now()

	records, err := b.countTerms(ctx, docs)
	if err != nil {
		return nil, err
	}

	_, mergeSpan := tracing.StartChildSpan(ctx, "index.merge")
	mergeStart := time.Now()
	mem := index.NewMemoryIndex()
	skipped := 0
	for _, rec := range records {
		if !mem.AddDocument(rec) {
			skipped++
			b.logger.Debug("document has no indexable terms, skipping", "doc_id", rec.DocID)
		}
	}
	mergeSpan.SetAttr("postings", mem.PostingCount())
	mergeSpan.End()
	b.metrics.ObservePhase("merge", time.Since(mergeStart).Seconds())

	if err := b.computeWeights(ctx, mem); err != nil {
		return nil, err
	}

	idx := mem.Freeze(tokenizer.AnalyzerVersion, b.now().UTC().Truncate(time.Microsecond))
	span.SetAttr("terms", idx.TermCount())
	span.SetAttr("skipped", skipped)
	b.metrics.RecordBuild(idx.DocCount, skipped, idx.TermCount())
	b.metrics.ObservePhase("total", time.Since(start).Seconds())
	b.logger.Info("index built",
		"documents", idx.DocCount,
		"skipped", skipped,
		"terms", idx.TermCount(),
		"duration", time.Since(start),
	)
	return idx, nil
}

// countTerms is phase one. Every document is handled independently; the
// output slice keeps corpus order regardless of completion order.
func (b *Builder) countTerms(ctx context.Context, docs []corpus.Document) ([]index.DocTerms, error) {
	_, span := tracing.StartChildSpan(ctx, "index.phase1")
	defer span.End()
	start := time.Now()

	pool, err := ants.NewPool(b.poolSize())
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	records := make([]index.DocTerms, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		doc := docs[i]
		submitErr := pool.Submit(func() {
			defer wg.Done()
			records[i] = b.docTerms(doc)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submitting document %s: %w", doc.ID, submitErr)
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span.SetAttr("workers", b.poolSize())
	b.metrics.ObservePhase("phase1", time.Since(start).Seconds())
	return records, nil
}

func (b *Builder) docTerms(doc corpus.Document) index.DocTerms {
	counts := b.weights.Counts(doc)
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	return index.DocTerms{DocID: doc.ID, Counts: counts, MaxCount: maxCount}
}

// computeWeights is phase two. idf needs the final df of every term, and
// doc_len needs every idf, so the two steps run strictly one after the other.
func (b *Builder) computeWeights(ctx context.Context, mem *index.MemoryIndex) error {
	ctx, span := tracing.StartChildSpan(ctx, "index.phase2")
	defer span.End()
	start := time.Now()

	idf := mem.ComputeIDF()

	docs := mem.Docs()
	lengths := make([]float64, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.poolSize())
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lengths[i] = docLength(docs[i], idf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byID := make(map[string]float64, len(docs))
	for i, d := range docs {
		byID[d.DocID] = lengths[i]
	}
	mem.SetDocLengths(byID)
	b.metrics.ObservePhase("phase2", time.Since(start).Seconds())
	return nil
}

// docLength returns sqrt(sum((idf*tf)^2)) over the terms of d, summed in term
// order so repeated builds agree to the last bit.
func docLength(d index.DocTerms, idf map[string]float64) float64 {
	var sum float64
	for _, term := range d.SortedTerms() {
		tf := float64(d.Counts[term]) / float64(d.MaxCount)
		w := idf[term] * tf
		sum += w * w
	}
	return math.Sqrt(sum)
}

func (b *Builder) poolSize() int {
	if b.cfg.Workers > 0 {
		return b.cfg.Workers
	}
	return defaultWorkers()
}

func checkUniqueIDs(docs []corpus.Document) error {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("%w: document without id", apperrors.ErrMalformedCorpus)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: duplicate document id %q", apperrors.ErrMalformedCorpus, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
