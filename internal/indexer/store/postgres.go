package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vsm_index_meta (
		name      TEXT PRIMARY KEY,
		version   INTEGER NOT NULL,
		analyzer  TEXT NOT NULL,
		doc_count INTEGER NOT NULL,
		built_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vsm_terms (
		index_name TEXT NOT NULL,
		term       TEXT NOT NULL,
		df         INTEGER NOT NULL,
		idf        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (index_name, term)
	)`,
	`CREATE TABLE IF NOT EXISTS vsm_postings (
		index_name TEXT NOT NULL,
		term       TEXT NOT NULL,
		ord        INTEGER NOT NULL,
		record_num TEXT NOT NULL,
		occ_count  INTEGER NOT NULL,
		tf         DOUBLE PRECISION NOT NULL,
		doc_len    DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (index_name, term, ord)
	)`,
}

// PostgresStore keeps named indexes in three tables. ord preserves the
// corpus order of each posting list.
type PostgresStore struct {
	client *postgres.Client
	name   string
	logger *slog.Logger
}

func NewPostgresStore(client *postgres.Client, name string) *PostgresStore {
	return &PostgresStore{
		client: client,
		name:   name,
		logger: slog.Default().With("component", "postgres-store"),
	}
}

func (s *PostgresStore) Name() string { return "postgres:" + s.name }

func (s *PostgresStore) Close() error { return s.client.Close() }

// EnsureSchema creates the index tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if err := s.client.Exec(ctx, schema...); err != nil {
		return fmt.Errorf("creating index schema: %w", err)
	}
	return nil
}

// Save replaces the named index in one transaction, bulk-loading terms and
// postings with COPY.
func (s *PostgresStore) Save(ctx context.Context, idx *index.InvertedIndex) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"vsm_postings", "vsm_terms"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE index_name = $1`, s.name); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vsm_index_meta (name, version, analyzer, doc_count, built_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET
				version = EXCLUDED.version,
				analyzer = EXCLUDED.analyzer,
				doc_count = EXCLUDED.doc_count,
				built_at = EXCLUDED.built_at`,
			s.name, idx.Version, idx.Analyzer, idx.DocCount, idx.BuiltAt,
		)
		if err != nil {
			return fmt.Errorf("writing index header: %w", err)
		}

		terms := idx.SortedTerms()
		err = copyRows(ctx, tx, pq.CopyIn("vsm_terms", "index_name", "term", "df", "idf"),
			func(emit func(args ...any) error) error {
				for _, term := range terms {
					pl := idx.Terms[term]
					if err := emit(s.name, term, pl.DF, pl.IDF); err != nil {
						return err
					}
				}
				return nil
			})
		if err != nil {
			return fmt.Errorf("copying terms: %w", err)
		}

		err = copyRows(ctx, tx,
			pq.CopyIn("vsm_postings", "index_name", "term", "ord", "record_num", "occ_count", "tf", "doc_len"),
			func(emit func(args ...any) error) error {
				for _, term := range terms {
					for i, p := range idx.Terms[term].OccList {
						if err := emit(s.name, term, i, p.DocID, p.OccCount, p.TF, p.DocLen); err != nil {
							return err
						}
					}
				}
				return nil
			})
		if err != nil {
			return fmt.Errorf("copying postings: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("index saved",
		"name", s.name,
		"terms", idx.TermCount(),
		"documents", idx.DocCount,
	)
	return nil
}

func copyRows(ctx context.Context, tx *sql.Tx, query string, rows func(emit func(args ...any) error) error) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	emit := func(args ...any) error {
		_, err := stmt.ExecContext(ctx, args...)
		return err
	}
	if err := rows(emit); err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx)
	return err
}

func (s *PostgresStore) Load(ctx context.Context) (*index.InvertedIndex, error) {
	idx := &index.InvertedIndex{}
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT version, analyzer, doc_count, built_at FROM vsm_index_meta WHERE name = $1`, s.name,
	).Scan(&idx.Version, &idx.Analyzer, &idx.DocCount, &idx.BuiltAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: postgres index %q", apperrors.ErrIndexNotFound, s.name)
		}
		return nil, fmt.Errorf("reading index header: %w", err)
	}
	idx.BuiltAt = idx.BuiltAt.UTC()
	if err := checkCompatible(idx); err != nil {
		return nil, err
	}

	termRows, err := s.client.DB.QueryContext(ctx,
		`SELECT term, df, idf FROM vsm_terms WHERE index_name = $1`, s.name)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer termRows.Close()
	for termRows.Next() {
		var term string
		pl := &index.PostingList{}
		if err := termRows.Scan(&term, &pl.DF, &pl.IDF); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		pl.OccList = make([]index.Posting, 0, pl.DF)
		idx.Terms[term] = pl
	}
	if err := termRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating terms: %w", err)
	}

	postingRows, err := s.client.DB.QueryContext(ctx, `
		SELECT term, record_num, occ_count, tf, doc_len
		FROM vsm_postings WHERE index_name = $1
		ORDER BY term, ord`, s.name)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer postingRows.Close()
	for postingRows.Next() {
		var term string
		var p index.Posting
		if err := postingRows.Scan(&term, &p.DocID, &p.OccCount, &p.TF, &p.DocLen); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		pl, ok := idx.Terms[term]
		if !ok {
			return nil, fmt.Errorf("%w: posting for unknown term %q", apperrors.ErrIncompatibleIndex, term)
		}
		pl.OccList = append(pl.OccList, p)
	}
	if err := postingRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}
	s.logger.Info("index loaded",
		"name", s.name,
		"terms", idx.TermCount(),
		"documents", idx.DocCount,
	)
	return idx, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.client.Ping(ctx) }
