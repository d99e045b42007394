package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/internal/indexer/tagger"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
	"github.com/sandeepstha184/IR-assignment123/pkg/metrics"
)

// fixedTagger tags every word as a noun except those listed in other.
type fixedTagger struct {
	other map[string]bool
	err   error
}

func (f fixedTagger) Tag(text string) ([]tagger.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	var tokens []tagger.Token
	for _, w := range strings.Fields(text) {
		tag := "NN"
		if f.other[strings.ToLower(w)] {
			tag = "IN"
		}
		tokens = append(tokens, tagger.Token{Text: w, Tag: tag})
	}
	return tokens, nil
}

func pubs() []corpus.Publication {
	return []corpus.Publication{
		{Slug: "a", Title: "Health of Cities", CoLastnames: []string{"Smith"}},
		{Slug: "b", Title: "Cancer", CoLastnames: []string{}},
		{Slug: "c", Title: "Health and Cancer health", CoLastnames: []string{"Smith"}},
		{Slug: "d", Title: "of and", CoLastnames: nil},
	}
}

func TestBuildRecordsLowercaseNounsInOrdinalOrder(t *testing.T) {
	b := NewBuilderWithTagger(fixedTagger{other: map[string]bool{"of": true, "and": true}}, false, nil)
	idx, err := b.Build(context.Background(), pubs())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 2}, idx.Lookup("health"))
	assert.Equal(t, []int{1, 2}, idx.Lookup("cancer"))
	assert.Equal(t, []int{0}, idx.Lookup("cities"))
	assert.Equal(t, []int{0, 2}, idx.Lookup("smith"))
	assert.Nil(t, idx.Lookup("of"))
	assert.Nil(t, idx.Lookup("Health"))

	for word, postings := range idx {
		assert.Equal(t, strings.ToLower(word), word)
		for i := 1; i < len(postings); i++ {
			assert.LessOrEqual(t, postings[i-1], postings[i], word)
		}
	}
}

func TestBuildDedup(t *testing.T) {
	b := NewBuilderWithTagger(fixedTagger{other: map[string]bool{"of": true, "and": true}}, true, nil)
	idx, err := b.Build(context.Background(), pubs())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, idx.Lookup("health"))
}

func TestBuildEmptyCorpus(t *testing.T) {
	b := NewBuilderWithTagger(tagger.NewLexiconTagger(), false, nil)
	idx, err := b.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestBuildTaggerErrorAborts(t *testing.T) {
	boom := errors.New("model missing")
	b := NewBuilderWithTagger(fixedTagger{err: boom}, false, nil)
	_, err := b.Build(context.Background(), pubs())
	require.ErrorIs(t, err, boom)
}

func TestBuildHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBuilderWithTagger(tagger.NewLexiconTagger(), false, nil)
	_, err := b.Build(ctx, pubs())
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildWithLexiconTagger(t *testing.T) {
	b, err := NewBuilder(config.IndexerConfig{Tagger: "lexicon"}, nil)
	require.NoError(t, err)
	idx, err := b.Build(context.Background(), []corpus.Publication{
		{Slug: "x", Title: "The Impact of Exercise on Health", CoLastnames: []string{"Lovelace"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, idx.Lookup("exercise"))
	assert.Equal(t, []int{0}, idx.Lookup("lovelace"))
	assert.Nil(t, idx.Lookup("the"))
	assert.Nil(t, idx.Lookup("on"))
}

func TestBuildDeterministic(t *testing.T) {
	for _, name := range []string{"lexicon", "prose"} {
		t.Run(name, func(t *testing.T) {
			b, err := NewBuilder(config.IndexerConfig{Tagger: name}, nil)
			require.NoError(t, err)
			first, err := b.Build(context.Background(), pubs())
			require.NoError(t, err)
			require.NotEmpty(t, first)

			again, err := NewBuilder(config.IndexerConfig{Tagger: name}, nil)
			require.NoError(t, err)
			second, err := again.Build(context.Background(), pubs())
			require.NoError(t, err)
			assert.Equal(t, first, second)

			third, err := b.Build(context.Background(), pubs())
			require.NoError(t, err)
			assert.Equal(t, first, third)
		})
	}
}

func TestBuildUpdatesMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	b := NewBuilderWithTagger(fixedTagger{}, false, m)
	idx, err := b.Build(context.Background(), pubs())
	require.NoError(t, err)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.PubsIndexedTotal))
	assert.Equal(t, float64(len(idx)), testutil.ToFloat64(m.IndexTerms))
}

func TestNewBuilderUnknownTagger(t *testing.T) {
	_, err := NewBuilder(config.IndexerConfig{Tagger: "bogus"}, nil)
	require.Error(t, err)
}

func BenchmarkBuildLexicon(b *testing.B) {
	corpusPubs := make([]corpus.Publication, 0, 200)
	for i := 0; i < 200; i++ {
		corpusPubs = append(corpusPubs, corpus.Publication{
			Title:       "Machine learning approaches for the analysis of clinical health records",
			CoLastnames: []string{"Smith", "Jones", "Patel"},
		})
	}
	builder := NewBuilderWithTagger(tagger.NewLexiconTagger(), false, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(context.Background(), corpusPubs); err != nil {
			b.Fatal(err)
		}
	}
}
