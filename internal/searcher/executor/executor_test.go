package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/internal/indexer/index"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/parser"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/ranker"
	apperrors "github.com/sandeepstha184/IR-assignment123/pkg/errors"
	"github.com/sandeepstha184/IR-assignment123/pkg/tracing"
)

func fixture() *Executor {
	persons := []corpus.Person{
		{Name: "Ada Lovelace", PersonalURL: "https://example.org/ada"},
		{Name: "Grace Hopper", PersonalURL: "https://example.org/grace"},
	}
	pubs := corpus.NewPublicationSet()
	pubs.Add(corpus.Publication{Title: "Health Systems", Slug: "p0", URL: "u0", OurAuthors: []int{0}})
	pubs.Add(corpus.Publication{Title: "Cancer Screening", Slug: "p1", URL: "u1", OurAuthors: []int{1}})
	pubs.Add(corpus.Publication{Title: "Health and Cancer", Slug: "p2", URL: "u2", OurAuthors: []int{0, 1}, CoAuthors: []string{"Smith, J."}})
	idx := index.ReverseIndex{"health": {0, 2}, "cancer": {1, 2}}
	return New(&corpus.Corpus{Persons: persons, Publications: pubs}, idx, "abc", ranker.CountOccurrences)
}

func TestExecute(t *testing.T) {
	ctx, root := tracing.Start(context.Background(), "search")
	res, err := fixture().Execute(ctx, parser.Parse("Health cancer"), 0)
	root.End()
	require.NoError(t, err)

	assert.Equal(t, []string{"Health", "cancer"}, res.Keywords)
	assert.Equal(t, 3, res.TotalHits)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, []int{2, 0, 1}, []int{res.Hits[0].Ordinal, res.Hits[1].Ordinal, res.Hits[2].Ordinal})
	assert.Equal(t, 2, res.Hits[0].Matches)
	assert.Equal(t, []Author{{"Ada Lovelace", "https://example.org/ada"}, {"Grace Hopper", "https://example.org/grace"}}, res.Hits[0].Authors)
	assert.Equal(t, map[string]int{"health": 2, "cancer": 2}, res.TermStats)
	assert.Len(t, root.Children(), 2)
}

func TestExecuteLimit(t *testing.T) {
	res, err := fixture().Execute(context.Background(), parser.Parse("health cancer"), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalHits)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 2, res.Hits[0].Ordinal)
}

func TestExecuteEmptyQuery(t *testing.T) {
	res, err := fixture().Execute(context.Background(), parser.Parse("   "), 0)
	require.NoError(t, err)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
	assert.Equal(t, []string{}, res.Keywords)
}

func TestPublicationNotFound(t *testing.T) {
	_, err := fixture().Publication(9)
	require.ErrorIs(t, err, apperrors.ErrPublicationNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatusCode(err))

	hit, err := fixture().Publication(1)
	require.NoError(t, err)
	assert.Equal(t, "Cancer Screening", hit.Title)
}

func TestExecuteCorruptAuthor(t *testing.T) {
	pubs := corpus.NewPublicationSet()
	pubs.Add(corpus.Publication{Title: "Orphan", Slug: "o", OurAuthors: []int{4}})
	e := New(&corpus.Corpus{Publications: pubs}, index.ReverseIndex{"orphan": {0}}, "", ranker.CountOccurrences)
	_, err := e.Execute(context.Background(), parser.Parse("orphan"), 0)
	require.ErrorIs(t, err, apperrors.ErrCorruptData)
}
