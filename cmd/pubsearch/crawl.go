package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/sandeepstha184/IR-assignment123/internal/corpus"
	"github.com/sandeepstha184/IR-assignment123/internal/crawler"
	"github.com/sandeepstha184/IR-assignment123/internal/store"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
)

func crawlCommand() *cli.Command {
	return &cli.Command{
		Name:  "crawl",
		Usage: "Crawl the faculty directory and publication lists",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Re-crawl even if the data files exist"},
			&cli.IntFlag{Name: "limit", Usage: "Stop after this many faculty members (0 = all)"},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if c.IsSet("limit") {
				cfg.Crawler.LimitFaculty = c.Int("limit")
			}
			return crawl(c.Context, cfg, c.Bool("force"))
		},
	}
}

// crawl produces whichever crawl output is missing, or both when force is
// set. An existing faculty file is reused for the publication crawl so the
// person ordinals stay stable.
func crawl(ctx context.Context, cfg *config.Config, force bool) error {
	st := store.New(cfg.Data)
	cr := crawler.New(cfg.Crawler, nil)
	log := slog.Default().With("component", "crawl")

	var (
		persons []corpus.Person
		err     error
	)
	if st.HasPersons() && !force {
		log.Info("faculty file exists, skipping name crawl", "path", st.PersonsPath())
		persons, err = st.LoadPersons()
	} else {
		persons, err = cr.CrawlPersons(ctx)
		if err == nil {
			err = st.SavePersons(persons)
		}
	}
	if err != nil {
		return err
	}

	if st.HasPublications() && !force {
		log.Info("publications file exists, skipping publication crawl", "path", st.PublicationsPath())
		return nil
	}
	pubs, err := cr.CrawlPublications(ctx, persons)
	if err != nil {
		return fmt.Errorf("crawling publications: %w", err)
	}
	if err := st.SavePublications(pubs); err != nil {
		return err
	}
	log.Info("crawl finished", "persons", len(persons), "publications", pubs.Len())
	return nil
}
