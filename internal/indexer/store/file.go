package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ugorji/go/codec"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
)

// Encoding selects the on-disk representation of a file index.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMsgpack
)

// EncodingFor picks MessagePack for .msgpack and .mpk paths and JSON for
// everything else.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return EncodingMsgpack
	default:
		return EncodingJSON
	}
}

var msgpackHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.Canonical = true
	return h
}()

// FileStore keeps the index in a single file.
type FileStore struct {
	path     string
	encoding Encoding
	logger   *slog.Logger
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		encoding: EncodingFor(path),
		logger:   slog.Default().With("component", "file-store"),
	}
}

func (s *FileStore) Name() string { return "file:" + s.path }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Close() error { return nil }

// Save writes the index to a temp file next to the target, syncs it and
// renames it into place, so the target is either the old or the new index.
func (s *FileStore) Save(ctx context.Context, idx *index.InvertedIndex) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	if err := encode(w, s.encoding, idx); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	committed = true
	s.logger.Info("index saved",
		"path", s.path,
		"terms", idx.TermCount(),
		"documents", idx.DocCount,
	)
	return nil
}

// Load reads and validates the index file.
func (s *FileStore) Load(ctx context.Context) (*index.InvertedIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, s.path)
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	idx, err := decode(bufio.NewReaderSize(f, 1<<20), s.encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", apperrors.ErrIncompatibleIndex, s.path, err)
	}
	if err := checkCompatible(idx); err != nil {
		return nil, err
	}
	s.logger.Info("index loaded",
		"path", s.path,
		"terms", idx.TermCount(),
		"documents", idx.DocCount,
	)
	return idx, nil
}

func encode(w io.Writer, enc Encoding, idx *index.InvertedIndex) error {
	if enc == EncodingMsgpack {
		return codec.NewEncoder(w, msgpackHandle).Encode(idx)
	}
	return json.NewEncoder(w).Encode(idx)
}

func decode(r io.Reader, enc Encoding) (*index.InvertedIndex, error) {
	var idx index.InvertedIndex
	if enc == EncodingMsgpack {
		if err := codec.NewDecoder(r, msgpackHandle).Decode(&idx); err != nil {
			return nil, err
		}
		return &idx, nil
	}
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return nil, err
	}
	return &idx, nil
}
