// Package indexer builds the reverse index from crawled publications.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/internal/indexer/index"
	"github.com/sandeepstha184/IR-assignment123/internal/indexer/tagger"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
	"github.com/sandeepstha184/IR-assignment123/pkg/metrics"
)

const progressEvery = 500

type Builder struct {
	tagger  tagger.Tagger
	dedup   bool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewBuilder returns a Builder using the tagger named in cfg. m may be nil.
func NewBuilder(cfg config.IndexerConfig, m *metrics.Metrics) (*Builder, error) {
	tg, err := tagger.New(cfg.Tagger)
	if err != nil {
		return nil, fmt.Errorf("creating tagger: %w", err)
	}
	return NewBuilderWithTagger(tg, cfg.DedupPostings, m), nil
}

func NewBuilderWithTagger(tg tagger.Tagger, dedup bool, m *metrics.Metrics) *Builder {
	return &Builder{
		tagger:  tg,
		dedup:   dedup,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// Build tags each publication's title and co-author last names and records
// every noun, lowercased, against the publication's ordinal (its position in
// pubs). A tagger failure aborts the build.
func (b *Builder) Build(ctx context.Context, pubs []corpus.Publication) (index.ReverseIndex, error) {
	start := time.Now()
	idx := make(index.ReverseIndex)
	for i, pub := range pubs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("index build interrupted at publication %d: %w", i, err)
		}
		tokens, err := b.tagger.Tag(pub.SearchableText())
		if err != nil {
			return nil, fmt.Errorf("tagging publication %d (%s): %w", i, pub.Slug, err)
		}
		for _, tok := range tokens {
			if !tagger.IsNoun(tok.Tag) {
				continue
			}
			idx.Add(strings.ToLower(tok.Text), i, b.dedup)
		}
		if b.metrics != nil {
			b.metrics.PubsIndexedTotal.Inc()
		}
		if (i+1)%progressEvery == 0 {
			b.logger.Info("indexing progress", "indexed", i+1, "total", len(pubs))
		}
	}

	stats := idx.Stats()
	if b.metrics != nil {
		b.metrics.IndexTerms.Set(float64(stats.Terms))
		b.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	}
	b.logger.Info("reverse index built",
		"publications", len(pubs),
		"terms", stats.Terms,
		"postings", stats.Postings,
		"dedup", b.dedup,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return idx, nil
}
