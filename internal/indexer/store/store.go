// Package store persists inverted indexes. A file backend (JSON or
// MessagePack) is the default; Redis and PostgreSQL backends let several
// search processes share one published index.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/redis"
)

// Store saves and loads a complete index. Save replaces whatever the backend
// held before; a failed Save leaves the previous index untouched.
type Store interface {
	Save(ctx context.Context, idx *index.InvertedIndex) error
	Load(ctx context.Context) (*index.InvertedIndex, error)
	Name() string
	Close() error
}

// meta is the index header shared by the Redis and PostgreSQL backends.
type meta struct {
	Version  int       `json:"version"`
	Analyzer string    `json:"analyzer"`
	DocCount int       `json:"doc_count"`
	BuiltAt  time.Time `json:"built_at"`
}

func metaOf(idx *index.InvertedIndex) meta {
	return meta{
		Version:  idx.Version,
		Analyzer: idx.Analyzer,
		DocCount: idx.DocCount,
		BuiltAt:  idx.BuiltAt,
	}
}

// Open returns the backend selected by cfg.Indexer.Store. path overrides
// cfg.Indexer.IndexPath for the file backend when non-empty.
func Open(cfg *config.Config, path string) (Store, error) {
	switch cfg.Indexer.Store {
	case config.StoreFile, "":
		if path == "" {
			path = cfg.Indexer.IndexPath
		}
		return NewFileStore(path), nil
	case config.StoreRedis:
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.KeyPrefix), nil
	case config.StorePostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		s := NewPostgresStore(client, cfg.Postgres.IndexName)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown index store %q", cfg.Indexer.Store)
	}
}

// checkCompatible rejects indexes written with another format version or
// analyzer: their terms would never match what the running binary produces
// from query text.
func checkCompatible(idx *index.InvertedIndex) error {
	if idx.Version != index.FormatVersion {
		return fmt.Errorf("%w: format version %d, expected %d",
			apperrors.ErrIncompatibleIndex, idx.Version, index.FormatVersion)
	}
	if idx.Analyzer != tokenizer.AnalyzerVersion {
		return fmt.Errorf("%w: analyzer %q, expected %q",
			apperrors.ErrIncompatibleIndex, idx.Analyzer, tokenizer.AnalyzerVersion)
	}
	if idx.Terms == nil {
		idx.Terms = make(map[string]*index.PostingList)
	}
	return nil
}
