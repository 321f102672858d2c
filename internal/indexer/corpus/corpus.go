// Package corpus reads a directory of XML record collections into Documents
// ready for weighting and indexing. Each file holds RECORD elements with a
// RECORDNUM id and optional TITLE, EXTRACT, ABSTRACT, MAJORSUBJ/TOPIC and
// MINORSUBJ/TOPIC fields.
package corpus

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
)

// Document is one corpus record with its five weighted text fields. Missing
// fields are empty.
type Document struct {
	ID          string
	Title       string
	Extract     string
	Abstract    string
	MajorTopics []string
	MinorTopics []string
}

type xmlCollection struct {
	Records []xmlRecord `xml:"RECORD"`
}

type xmlRecord struct {
	RecordNum   []string `xml:"RECORDNUM"`
	Title       []string `xml:"TITLE"`
	Extract     []string `xml:"EXTRACT"`
	Abstract    []string `xml:"ABSTRACT"`
	MajorTopics []string `xml:"MAJORSUBJ>TOPIC"`
	MinorTopics []string `xml:"MINORSUBJ>TOPIC"`
}

// Loader reads corpus directories. Files are parsed concurrently but the
// returned documents always follow file-name order, then record order.
type Loader struct {
	workers int
	logger  *slog.Logger
}

// NewLoader returns a Loader parsing up to workers files at once. A
// non-positive value lets every file parse concurrently.
func NewLoader(workers int) *Loader {
	return &Loader{
		workers: workers,
		logger:  slog.Default().With("component", "corpus-loader"),
	}
}

// LoadDir parses every *.xml file directly under dir. Any structural problem
// (dir missing, unparsable XML, record without id, duplicate id) aborts the
// whole load with ErrMalformedCorpus.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedCorpus, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", apperrors.ErrMalformedCorpus, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading corpus directory: %v", apperrors.ErrMalformedCorpus, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	perFile := make([][]Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if l.workers > 0 {
		g.SetLimit(l.workers)
	}
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := l.loadFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			perFile[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []Document
	seen := make(map[string]string)
	for i, fileDocs := range perFile {
		for _, d := range fileDocs {
			if prev, dup := seen[d.ID]; dup {
				return nil, fmt.Errorf("%w: record %q appears in %s and %s",
					apperrors.ErrMalformedCorpus, d.ID, prev, files[i])
			}
			seen[d.ID] = files[i]
			docs = append(docs, d)
		}
	}
	l.logger.Info("corpus loaded",
		"dir", dir,
		"files", len(files),
		"documents", len(docs),
	)
	return docs, nil
}

func (l *Loader) loadFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", apperrors.ErrMalformedCorpus, path, err)
	}
	defer f.Close()
	docs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	l.logger.Debug("corpus file parsed", "file", path, "records", len(docs))
	return docs, nil
}

// Decode parses one XML record collection.
func Decode(r io.Reader) ([]Document, error) {
	var coll xmlCollection
	if err := xml.NewDecoder(r).Decode(&coll); err != nil {
		return nil, fmt.Errorf("%w: parsing xml: %v", apperrors.ErrMalformedCorpus, err)
	}
	docs := make([]Document, 0, len(coll.Records))
	for i, rec := range coll.Records {
		id := ""
		if len(rec.RecordNum) > 0 {
			id = strings.TrimSpace(rec.RecordNum[0])
		}
		if id == "" {
			return nil, fmt.Errorf("%w: record %d has no RECORDNUM", apperrors.ErrMalformedCorpus, i+1)
		}
		docs = append(docs, Document{
			ID:          id,
			Title:       strings.Join(rec.Title, " "),
			Extract:     strings.Join(rec.Extract, " "),
			Abstract:    strings.Join(rec.Abstract, " "),
			MajorTopics: rec.MajorTopics,
			MinorTopics: rec.MinorTopics,
		})
	}
	return docs, nil
}
