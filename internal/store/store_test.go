package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/internal/indexer/index"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
	apperrors "github.com/sandeepstha184/IR-assignment123/pkg/errors"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(config.DataConfig{
		Dir:              filepath.Join(t.TempDir(), "data"),
		PersonsFile:      "faculty.json",
		PublicationsFile: "data.json",
		IndexFile:        "index.json",
	})
}

func sampleCorpus() ([]corpus.Person, *corpus.PublicationSet) {
	persons := []corpus.Person{
		{Name: "Ada Lovelace", PersonalURL: "https://example.org/en/persons/ada", Org: "Computing", Title: "Professor"},
		{Name: "Grace Hopper", PersonalURL: "https://example.org/en/persons/grace"},
	}
	date := "2020"
	pubs := corpus.NewPublicationSet()
	pubs.Add(corpus.Publication{Title: "Zeta Health", URL: "https://example.org/en/publications/zeta", Slug: "zeta", OurAuthors: []int{1}, PubDate: &date})
	pubs.Add(corpus.Publication{Title: "Alpha Cancer", URL: "https://example.org/en/publications/alpha", Slug: "alpha", OurAuthors: []int{0, 1}})
	return persons, pubs
}

func TestRoundTripSnapshot(t *testing.T) {
	s := newStore(t)
	assert.False(t, s.HasCorpus())
	assert.False(t, s.HasIndex())

	persons, pubs := sampleCorpus()
	require.NoError(t, s.SavePersons(persons))
	require.NoError(t, s.SavePublications(pubs))
	require.NoError(t, s.SaveIndex(index.ReverseIndex{"health": {0}, "cancer": {1, 1}}))
	assert.True(t, s.HasCorpus())
	assert.True(t, s.HasIndex())

	snap, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, persons, snap.Corpus.Persons)
	assert.Equal(t, pubs.List(), snap.Corpus.Publications.List())
	assert.Equal(t, []int{1, 1}, snap.Index.Lookup("cancer"))
	assert.Len(t, snap.Fingerprint, 16)

	first, ok := snap.Corpus.Publication(0)
	require.True(t, ok)
	assert.Equal(t, "zeta", first.Slug)
}

func TestFingerprintChangesWithIndex(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SaveIndex(index.ReverseIndex{"health": {0}}))
	a, err := s.IndexFingerprint()
	require.NoError(t, err)
	require.NoError(t, s.SaveIndex(index.ReverseIndex{"health": {0, 1}}))
	b, err := s.IndexFingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLoadMissingFile(t *testing.T) {
	s := newStore(t)
	_, err := s.LoadPersons()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "faculty.json")
}

func TestLoadMalformedIndex(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.IndexPath()), 0o755))

	for _, body := range []string{`{"health": [0,`, `{"health": "0"}`, `null`, `{} []`} {
		require.NoError(t, os.WriteFile(s.IndexPath(), []byte(body), 0o644))
		_, err := s.LoadIndex()
		require.Error(t, err, body)
		assert.ErrorIs(t, err, apperrors.ErrCorruptData, body)
		assert.Contains(t, err.Error(), "index.json")
	}
}

func TestLoadSnapshotRejectsOutOfRangeOrdinals(t *testing.T) {
	s := newStore(t)
	persons, pubs := sampleCorpus()
	require.NoError(t, s.SavePersons(persons))
	require.NoError(t, s.SavePublications(pubs))
	require.NoError(t, s.SaveIndex(index.ReverseIndex{"health": {5}}))

	_, err := s.LoadSnapshot()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCorruptData)
}

func TestLoadSnapshotRejectsUnknownAuthor(t *testing.T) {
	s := newStore(t)
	persons, pubs := sampleCorpus()
	require.NoError(t, s.SavePersons(persons[:1]))
	require.NoError(t, s.SavePublications(pubs))
	require.NoError(t, s.SaveIndex(index.ReverseIndex{}))

	_, err := s.LoadSnapshot()
	var verr *corpus.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "our_authors")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SaveIndex(nil))
	entries, err := os.ReadDir(filepath.Dir(s.IndexPath()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.json", entries[0].Name())

	idx, err := s.LoadIndex()
	require.NoError(t, err)
	assert.Empty(t, idx)
}
