package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<root>
  <RECORD>
    <PAPERNUM>PN74001</PAPERNUM>
    <RECORDNUM>00001 </RECORDNUM>
    <TITLE>Pseudomonas aeruginosa infection in cystic fibrosis.</TITLE>
    <MAJORSUBJ>
      <TOPIC>CYSTIC-FIBROSIS: co</TOPIC>
      <TOPIC>PSEUDOMONAS-INFECTIONS: co</TOPIC>
    </MAJORSUBJ>
    <MINORSUBJ>
      <TOPIC>HUMAN</TOPIC>
    </MINORSUBJ>
    <ABSTRACT>Serum antibodies were measured.</ABSTRACT>
  </RECORD>
  <RECORD>
    <RECORDNUM>00002</RECORDNUM>
    <TITLE>Sweat test evaluation</TITLE>
    <EXTRACT>An extract only record.</EXTRACT>
  </RECORD>
</root>`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDecode(t *testing.T) {
	docs, err := Decode(strings.NewReader(sampleXML))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	first := docs[0]
	assert.Equal(t, "00001", first.ID)
	assert.Equal(t, "Pseudomonas aeruginosa infection in cystic fibrosis.", first.Title)
	assert.Equal(t, []string{"CYSTIC-FIBROSIS: co", "PSEUDOMONAS-INFECTIONS: co"}, first.MajorTopics)
	assert.Equal(t, []string{"HUMAN"}, first.MinorTopics)
	assert.Equal(t, "Serum antibodies were measured.", first.Abstract)
	assert.Empty(t, first.Extract)

	second := docs[1]
	assert.Equal(t, "00002", second.ID)
	assert.Empty(t, second.Abstract)
	assert.Empty(t, second.MajorTopics)
	assert.Equal(t, "An extract only record.", second.Extract)
}

func TestDecodeMissingRecordNum(t *testing.T) {
	_, err := Decode(strings.NewReader(`<root><RECORD><TITLE>x</TITLE></RECORD></root>`))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
}

func TestDecodeUnparsable(t *testing.T) {
	_, err := Decode(strings.NewReader(`<root><RECORD><RECORDNUM>1</RECORD>`))
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
}

func TestLoadDirOrdersFilesAndIgnoresOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.xml", `<root><RECORD><RECORDNUM>3</RECORDNUM><TITLE>third</TITLE></RECORD></root>`)
	writeFile(t, dir, "a.xml", sampleXML)
	writeFile(t, dir, "notes.txt", "not xml at all <")

	docs, err := NewLoader(2).LoadDir(context.Background(), dir)
	require.NoError(t, err)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"00001", "00002", "3"}, ids)
}

func TestLoadDirMalformedFileAbortsLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xml", sampleXML)
	writeFile(t, dir, "b.xml", `<root><RECORD>`)

	docs, err := NewLoader(0).LoadDir(context.Background(), dir)
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
	assert.Nil(t, docs)
}

func TestLoadDirDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xml", sampleXML)
	writeFile(t, dir, "b.xml", `<root><RECORD><RECORDNUM>00002</RECORDNUM></RECORD></root>`)

	_, err := NewLoader(0).LoadDir(context.Background(), dir)
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
}

func TestLoadDirNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.xml", sampleXML)

	_, err := NewLoader(0).LoadDir(context.Background(), filepath.Join(dir, "a.xml"))
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)

	_, err = NewLoader(0).LoadDir(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, apperrors.ErrMalformedCorpus)
}
