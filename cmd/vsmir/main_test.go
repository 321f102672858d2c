package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
)

const corpusXML = `<?xml version="1.0" encoding="UTF-8"?>
<root>
  <RECORD>
    <RECORDNUM>00001</RECORDNUM>
    <EXTRACT>cat dog dog</EXTRACT>
  </RECORD>
  <RECORD>
    <RECORDNUM>00002</RECORDNUM>
    <EXTRACT>cat cat bird</EXTRACT>
  </RECORD>
</root>`

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "corpus")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cf74.xml"), []byte(content), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"vsmir", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestCreateIndexAndQuery(t *testing.T) {
	for _, name := range []string{"vsm_inverted_index.json", "vsm_inverted_index.msgpack"} {
		t.Run(name, func(t *testing.T) {
			corpus := writeCorpus(t, corpusXML)
			work := t.TempDir()
			indexPath := filepath.Join(work, name)

			out, err := run(t, "create_index", "--output", indexPath, corpus)
			require.NoError(t, err)
			assert.Contains(t, out, "indexed 2 documents, 3 terms")
			require.FileExists(t, indexPath)

			results := filepath.Join(work, "ranked_query_docs.txt")
			_, err = run(t, "query", "--output", results, indexPath, "Where", "is", "the", "dog?")
			require.NoError(t, err)
			data, err := os.ReadFile(results)
			require.NoError(t, err)
			assert.Equal(t, "00001\n", string(data))

			_, err = run(t, "query", "--output", results, indexPath, "cat")
			require.NoError(t, err)
			data, err = os.ReadFile(results)
			require.NoError(t, err)
			assert.Empty(t, data)
		})
	}
}

func TestQueryToStdout(t *testing.T) {
	corpus := writeCorpus(t, corpusXML)
	indexPath := filepath.Join(t.TempDir(), "index.json")
	_, err := run(t, "create_index", "-o", indexPath, corpus)
	require.NoError(t, err)

	out, err := run(t, "query", "-o", "-", indexPath, "dog bird")
	require.NoError(t, err)
	assert.Equal(t, "00001\n00002\n", out)
}

func TestCreateIndexMalformedCorpus(t *testing.T) {
	corpus := writeCorpus(t, `<root><RECORD><TITLE>no id</TITLE></RECORD></root>`)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	_, err := run(t, "create_index", "--output", indexPath, corpus)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
	assert.NoFileExists(t, indexPath)
}

func TestQueryMissingIndex(t *testing.T) {
	_, err := run(t, "query", "--output", "-", filepath.Join(t.TempDir(), "missing.json"), "dog")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrIndexNotFound)
}

func TestUsageErrors(t *testing.T) {
	_, err := run(t, "create_index")
	assert.Error(t, err)
	_, err = run(t, "query", "only-index.json")
	assert.Error(t, err)
	_, err = run(t, "create_index", "--store", "s3", t.TempDir())
	assert.Error(t, err)
}
