package main

import (
	"github.com/urfave/cli/v2"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Crawl and index if needed, then answer one query",
		Flags: outputFlags(),
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if err := crawl(c.Context, cfg, false); err != nil {
				return err
			}
			if err := buildIndex(c.Context, cfg, false); err != nil {
				return err
			}
			exec, err := loadExecutor(cfg)
			if err != nil {
				return err
			}
			opts, limit := outputOptions(c)
			return promptOnce(c.Context, c.App.Reader, c.App.Writer, exec, limit, opts)
		},
	}
}
