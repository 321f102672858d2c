package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/redis"
)

// hsetBatch bounds the number of fields sent in one HSET.
const hsetBatch = 1000

// RedisStore keeps the index header under <prefix>:meta and one JSON-encoded
// posting list per term in the hash <prefix>:terms.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: slog.Default().With("component", "redis-store"),
	}
}

func (s *RedisStore) Name() string { return "redis:" + s.prefix }

func (s *RedisStore) metaKey() string  { return s.prefix + ":meta" }
func (s *RedisStore) termsKey() string { return s.prefix + ":terms" }

func (s *RedisStore) Close() error { return s.client.Close() }

// Save replaces both keys inside one MULTI/EXEC block.
func (s *RedisStore) Save(ctx context.Context, idx *index.InvertedIndex) error {
	header, err := json.Marshal(metaOf(idx))
	if err != nil {
		return fmt.Errorf("encoding index header: %w", err)
	}
	fields := make([]any, 0, 2*hsetBatch)
	batches := make([][]any, 0, idx.TermCount()/hsetBatch+1)
	for _, term := range idx.SortedTerms() {
		data, err := json.Marshal(idx.Terms[term])
		if err != nil {
			return fmt.Errorf("encoding postings for %q: %w", term, err)
		}
		fields = append(fields, term, data)
		if len(fields) == 2*hsetBatch {
			batches = append(batches, fields)
			fields = make([]any, 0, 2*hsetBatch)
		}
	}
	if len(fields) > 0 {
		batches = append(batches, fields)
	}

	err = s.client.Tx(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.termsKey())
		for _, batch := range batches {
			pipe.HSet(ctx, s.termsKey(), batch...)
		}
		pipe.Set(ctx, s.metaKey(), header, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing index to redis: %w", err)
	}
	s.logger.Info("index saved",
		"prefix", s.prefix,
		"terms", idx.TermCount(),
		"documents", idx.DocCount,
	)
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*index.InvertedIndex, error) {
	raw, err := s.client.Get(ctx, s.metaKey())
	if err != nil {
		if redis.IsNilError(err) {
			return nil, fmt.Errorf("%w: redis key %s", apperrors.ErrIndexNotFound, s.metaKey())
		}
		return nil, fmt.Errorf("reading index header: %w", err)
	}
	var m meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: decoding index header: %v", apperrors.ErrIncompatibleIndex, err)
	}
	idx := &index.InvertedIndex{
		Version:  m.Version,
		Analyzer: m.Analyzer,
		DocCount: m.DocCount,
		BuiltAt:  m.BuiltAt,
	}
	if err := checkCompatible(idx); err != nil {
		return nil, err
	}

	fields, err := s.client.HGetAll(ctx, s.termsKey())
	if err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	idx.Terms = make(map[string]*index.PostingList, len(fields))
	for term, data := range fields {
		var pl index.PostingList
		if err := json.Unmarshal([]byte(data), &pl); err != nil {
			return nil, fmt.Errorf("%w: decoding postings for %q: %v", apperrors.ErrIncompatibleIndex, term, err)
		}
		idx.Terms[term] = &pl
	}
	s.logger.Info("index loaded",
		"prefix", s.prefix,
		"terms", idx.TermCount(),
		"documents", idx.DocCount,
	)
	return idx, nil
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx) }
