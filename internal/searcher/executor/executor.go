// Package executor runs parsed queries against an immutable corpus and index
// snapshot and resolves the ranked ordinals into displayable hits.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/internal/indexer/index"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/parser"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/ranker"
	apperrors "github.com/sandeepstha184/IR-assignment123/pkg/errors"
	"github.com/sandeepstha184/IR-assignment123/pkg/tracing"
)

// Author is an internal author of a publication.
type Author struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Hit is one ranked publication.
type Hit struct {
	Ordinal   int      `json:"ordinal"`
	Matches   int      `json:"matches"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Slug      string   `json:"slug"`
	PubDate   *string  `json:"pub_date"`
	Authors   []Author `json:"authors"`
	CoAuthors []string `json:"co_authors"`
}

type SearchResult struct {
	Query     string         `json:"query"`
	Keywords  []string       `json:"keywords"`
	TotalHits int            `json:"total_hits"`
	Hits      []Hit          `json:"hits"`
	TermStats map[string]int `json:"term_stats"`
}

// Executor is safe for concurrent use: it only reads its snapshot.
type Executor struct {
	corpus      *corpus.Corpus
	index       index.ReverseIndex
	fingerprint string
	mode        ranker.CountMode
	logger      *slog.Logger
}

func New(c *corpus.Corpus, idx index.ReverseIndex, fingerprint string, mode ranker.CountMode) *Executor {
	return &Executor{
		corpus:      c,
		index:       idx,
		fingerprint: fingerprint,
		mode:        mode,
		logger:      slog.Default().With("component", "query-executor"),
	}
}

// Fingerprint identifies the index the executor serves.
func (e *Executor) Fingerprint() string { return e.fingerprint }

func (e *Executor) CountMode() ranker.CountMode { return e.mode }

// Execute ranks q and resolves up to limit hits; limit <= 0 means all.
// TotalHits always counts every matching publication.
func (e *Executor) Execute(ctx context.Context, q *parser.Query, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Query:     q.Raw,
		Keywords:  q.Keywords,
		Hits:      []Hit{},
		TermStats: make(map[string]int),
	}
	if q.Empty() {
		return result, nil
	}
	for _, term := range q.DistinctTerms() {
		if postings := e.index.Lookup(term); len(postings) > 0 {
			result.TermStats[term] = len(postings)
		}
	}

	_, rankSpan := tracing.Start(ctx, "rank")
	matches := ranker.Rank(e.index, q, e.mode)
	rankSpan.SetAttr("matches", len(matches))
	rankSpan.End()

	result.TotalHits = len(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	_, resolveSpan := tracing.Start(ctx, "resolve")
	defer resolveSpan.End()
	for _, m := range matches {
		hit, err := e.hit(m.Ordinal)
		if err != nil {
			return nil, err
		}
		hit.Matches = m.Count
		result.Hits = append(result.Hits, hit)
	}

	e.logger.Debug("query executed",
		"query", q.Raw,
		"terms", q.Terms,
		"total_hits", result.TotalHits,
		"returned", len(result.Hits),
	)
	return result, nil
}

// Publication resolves a single ordinal.
func (e *Executor) Publication(ordinal int) (Hit, error) {
	return e.hit(ordinal)
}

// Stats describes the snapshot for health and status endpoints.
func (e *Executor) Stats() map[string]any {
	s := e.index.Stats()
	return map[string]any{
		"persons":      len(e.corpus.Persons),
		"publications": e.corpus.Publications.Len(),
		"terms":        s.Terms,
		"postings":     s.Postings,
		"fingerprint":  e.fingerprint,
		"count_mode":   string(e.mode),
	}
}

func (e *Executor) hit(ordinal int) (Hit, error) {
	pub, ok := e.corpus.Publication(ordinal)
	if !ok {
		return Hit{}, apperrors.Newf(apperrors.ErrPublicationNotFound, http.StatusNotFound, "no publication with ordinal %d", ordinal)
	}
	authors := make([]Author, 0, len(pub.OurAuthors))
	for _, pi := range pub.OurAuthors {
		person, ok := e.corpus.Person(pi)
		if !ok {
			return Hit{}, fmt.Errorf("publication %q: %w: person ordinal %d", pub.Slug, apperrors.ErrCorruptData, pi)
		}
		authors = append(authors, Author{Name: person.Name, URL: person.PersonalURL})
	}
	return Hit{
		Ordinal:   ordinal,
		Title:     pub.Title,
		URL:       pub.URL,
		Slug:      pub.Slug,
		PubDate:   pub.PubDate,
		Authors:   authors,
		CoAuthors: pub.CoAuthors,
	}, nil
}
