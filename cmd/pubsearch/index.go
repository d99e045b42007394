package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/sandeepstha184/IR-assignment123/internal/indexer"
	"github.com/sandeepstha184/IR-assignment123/internal/store"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Build the reverse index from the crawled publications",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Rebuild even if the index file exists"},
			&cli.StringFlag{Name: "tagger", Usage: "Part-of-speech tagger: prose or lexicon"},
			&cli.BoolFlag{Name: "dedup", Usage: "Record each publication at most once per word"},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if c.IsSet("tagger") {
				cfg.Indexer.Tagger = c.String("tagger")
			}
			if c.IsSet("dedup") {
				cfg.Indexer.DedupPostings = c.Bool("dedup")
			}
			return buildIndex(c.Context, cfg, c.Bool("force"))
		},
	}
}

func buildIndex(ctx context.Context, cfg *config.Config, force bool) error {
	st := store.New(cfg.Data)
	if st.HasIndex() && !force {
		slog.Info("index file exists, skipping index build", "path", st.IndexPath())
		return nil
	}
	persons, err := st.LoadPersons()
	if err != nil {
		return err
	}
	pubs, err := st.LoadPublications(len(persons))
	if err != nil {
		return err
	}
	builder, err := indexer.NewBuilder(cfg.Indexer, nil)
	if err != nil {
		return err
	}
	idx, err := builder.Build(ctx, pubs.List())
	if err != nil {
		return err
	}
	return st.SaveIndex(idx)
}
