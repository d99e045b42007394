package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/sandeepstha184/IR-assignment123/internal/searcher/executor"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/parser"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/present"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/ranker"
	"github.com/sandeepstha184/IR-assignment123/internal/store"
	"github.com/sandeepstha184/IR-assignment123/pkg/config"
)

const prompt = "Enter query: "

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Search the index from the terminal",
		Flags: append(outputFlags(),
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Run one query and exit instead of prompting"},
		),
		Action: func(c *cli.Context) error {
			exec, err := loadExecutor(configFrom(c))
			if err != nil {
				return err
			}
			opts, limit := outputOptions(c)
			if c.IsSet("query") {
				return answer(c.Context, c.App.Writer, exec, c.String("query"), limit, opts)
			}
			return promptLoop(c.Context, c.App.Reader, c.App.Writer, exec, limit, opts)
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "no-color", Usage: "Do not highlight matched words"},
		&cli.BoolFlag{Name: "details", Usage: "Show URL, date and authors for each result"},
		&cli.IntFlag{Name: "limit", Usage: "Show at most this many results (0 = all)"},
	}
}

func outputOptions(c *cli.Context) (present.Options, int) {
	return present.Options{Color: !c.Bool("no-color"), Details: c.Bool("details")}, c.Int("limit")
}

func loadExecutor(cfg *config.Config) (*executor.Executor, error) {
	mode, err := ranker.ParseCountMode(cfg.Search.CountMode)
	if err != nil {
		return nil, err
	}
	snap, err := store.New(cfg.Data).LoadSnapshot()
	if err != nil {
		return nil, err
	}
	exec := executor.New(snap.Corpus, snap.Index, snap.Fingerprint, mode)
	slog.Info("search snapshot ready", "fingerprint", snap.Fingerprint, "count_mode", mode)
	return exec, nil
}

func answer(ctx context.Context, w io.Writer, exec *executor.Executor, query string, limit int, opts present.Options) error {
	res, err := exec.Execute(ctx, parser.Parse(query), limit)
	if err != nil {
		return err
	}
	return present.WriteText(w, res, opts)
}

// promptLoop answers queries line by line until EOF or cancellation.
func promptLoop(ctx context.Context, r io.Reader, w io.Writer, exec *executor.Executor, limit int, opts present.Options) error {
	scanner := bufio.NewScanner(r)
	for {
		if _, err := fmt.Fprint(w, prompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := answer(ctx, w, exec, scanner.Text(), limit, opts); err != nil {
			return err
		}
	}
}

// promptOnce reads a single query, as the end-to-end run does.
func promptOnce(ctx context.Context, r io.Reader, w io.Writer, exec *executor.Executor, limit int, opts present.Options) error {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return err
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return answer(ctx, w, exec, line, limit, opts)
}
