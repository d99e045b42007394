// Package store persists the three flat JSON files the system works from:
// the faculty list, the publication map and the reverse index.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/internal/indexer/index"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
	apperrors "github.com/sandeepstha184/IR-assignment123/pkg/errors"
)

// Store reads and writes the data files under one directory.
type Store struct {
	dir              string
	personsPath      string
	publicationsPath string
	indexPath        string
	logger           *slog.Logger
}

func New(cfg config.DataConfig) *Store {
	return &Store{
		dir:              cfg.Dir,
		personsPath:      filepath.Join(cfg.Dir, cfg.PersonsFile),
		publicationsPath: filepath.Join(cfg.Dir, cfg.PublicationsFile),
		indexPath:        filepath.Join(cfg.Dir, cfg.IndexFile),
		logger:           slog.Default().With("component", "store"),
	}
}

func (s *Store) PersonsPath() string      { return s.personsPath }
func (s *Store) PublicationsPath() string { return s.publicationsPath }
func (s *Store) IndexPath() string        { return s.indexPath }

// HasCorpus reports whether both crawl outputs exist.
func (s *Store) HasCorpus() bool {
	return s.HasPersons() && s.HasPublications()
}

func (s *Store) HasPersons() bool      { return exists(s.personsPath) }
func (s *Store) HasPublications() bool { return exists(s.publicationsPath) }

// HasIndex reports whether the index file exists.
func (s *Store) HasIndex() bool {
	return exists(s.indexPath)
}

func (s *Store) SavePersons(persons []corpus.Person) error {
	if persons == nil {
		persons = []corpus.Person{}
	}
	return s.writeJSON(s.personsPath, persons)
}

func (s *Store) SavePublications(pubs *corpus.PublicationSet) error {
	return s.writeJSON(s.publicationsPath, pubs)
}

func (s *Store) SaveIndex(idx index.ReverseIndex) error {
	if idx == nil {
		idx = index.ReverseIndex{}
	}
	return s.writeJSON(s.indexPath, idx)
}

func (s *Store) LoadPersons() ([]corpus.Person, error) {
	var persons []corpus.Person
	err := s.read(s.personsPath, func(r io.Reader) error {
		var err error
		persons, err = corpus.DecodePersons(r)
		return err
	})
	return persons, err
}

// LoadPublications decodes the publication map, checking author ordinals
// against personCount when it is non-negative.
func (s *Store) LoadPublications(personCount int) (*corpus.PublicationSet, error) {
	var pubs *corpus.PublicationSet
	err := s.read(s.publicationsPath, func(r io.Reader) error {
		var err error
		pubs, err = corpus.DecodePublications(r, personCount)
		return err
	})
	return pubs, err
}

func (s *Store) LoadIndex() (index.ReverseIndex, error) {
	var idx index.ReverseIndex
	err := s.read(s.indexPath, func(r io.Reader) error {
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&idx); err != nil {
			return err
		}
		if dec.More() {
			return errors.New("unexpected data after top-level value")
		}
		return nil
	})
	if err == nil && idx == nil {
		err = fmt.Errorf("%s: %w: index is null", s.indexPath, apperrors.ErrCorruptData)
	}
	return idx, err
}

// Snapshot is everything a searcher needs, loaded and cross-checked.
type Snapshot struct {
	Corpus *corpus.Corpus
	Index  index.ReverseIndex
	// Fingerprint identifies the index file contents; cache keys include it
	// so a rebuilt index never serves stale results.
	Fingerprint string
}

// LoadSnapshot loads all three files and verifies that publications only
// reference known persons and that index ordinals are in range.
func (s *Store) LoadSnapshot() (*Snapshot, error) {
	persons, err := s.LoadPersons()
	if err != nil {
		return nil, err
	}
	pubs, err := s.LoadPublications(len(persons))
	if err != nil {
		return nil, err
	}
	idx, err := s.LoadIndex()
	if err != nil {
		return nil, err
	}
	if err := idx.CheckOrdinals(pubs.Len()); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", s.indexPath, apperrors.ErrCorruptData, err)
	}
	fp, err := s.IndexFingerprint()
	if err != nil {
		return nil, err
	}
	stats := idx.Stats()
	s.logger.Info("snapshot loaded",
		"persons", len(persons),
		"publications", pubs.Len(),
		"terms", stats.Terms,
		"postings", stats.Postings,
		"fingerprint", fp,
	)
	return &Snapshot{
		Corpus:      &corpus.Corpus{Persons: persons, Publications: pubs},
		Index:       idx,
		Fingerprint: fp,
	}, nil
}

// IndexFingerprint returns the first 16 hex digits of the index file's SHA-256.
func (s *Store) IndexFingerprint() (string, error) {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", s.indexPath, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

func (s *Store) read(path string, decode func(io.Reader) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w (run the crawl and index commands first)", path, err)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%s: %w: %w", path, apperrors.ErrCorruptData, err)
	}
	return nil
}

// writeJSON writes v to a temp file in the target directory, syncs it and
// renames it over path, so readers never see a partial file.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	s.logger.Info("data file written", "path", path, "bytes", len(data)+1)
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
