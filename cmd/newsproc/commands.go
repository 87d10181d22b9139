package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/poiesic/newsproc"
	"github.com/poiesic/newsproc/config"
	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/enrich"
	"github.com/poiesic/newsproc/fetch"
	"github.com/urfave/cli/v2"
)

func fetchCommand(c *cli.Context) error {
	cfg, err := loadConfig(c, func(cfg *config.Config) {
		if c.IsSet("query") {
			cfg.Source.Query = c.String("query")
		}
		if c.IsSet("max-pages") {
			cfg.Source.MaxPages = c.Int("max-pages")
		}
		if c.IsSet("page-size") {
			cfg.Source.PageSize = c.Int("page-size")
		}
		if c.Bool("dedupe") {
			cfg.Store.Dedupe = true
		}
		if c.Bool("attachments") {
			cfg.Source.Attachments = true
		}
	})
	if err != nil {
		return err
	}
	if cfg.Source.BaseURL == "" {
		return errors.New("source.baseUrl is required to fetch")
	}

	return withPipeline(c, cfg, func(ctx context.Context, p *newsproc.Pipeline) error {
		f, err := p.NewFetcher()
		if err != nil {
			return err
		}
		src := p.Config().Source
		res, err := f.Fetch(ctx, src.Query, src.MaxPages, src.PageSize)
		printFetchResult(c.App.Writer, "fetch", res)
		if err != nil {
			return fmt.Errorf("fetch stopped after %d page(s): %w", res.Pages, err)
		}
		return nil
	})
}

func importCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}
	cfg, err := loadConfig(c, func(cfg *config.Config) {
		if c.Bool("dedupe") {
			cfg.Store.Dedupe = true
		}
	})
	if err != nil {
		return err
	}

	return withPipeline(c, cfg, func(ctx context.Context, p *newsproc.Pipeline) error {
		f, err := p.NewFetcher()
		if err != nil {
			return err
		}
		var errs []error
		for _, path := range c.Args().Slice() {
			res, err := f.ImportFile(ctx, path)
			printFetchResult(c.App.Writer, path, res)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
			}
		}
		return errors.Join(errs...)
	})
}

func printFetchResult(w io.Writer, label string, res fetch.Result) {
	fmt.Fprintf(w, "%s: pages=%d received=%d enqueued=%d dropped=%d duplicates=%d\n",
		label, res.Pages, res.Received, res.Enqueued, res.Dropped, res.Duplicates)
}

func runStages(name string) cli.ActionFunc {
	return func(c *cli.Context) error {
		stages, err := enrich.StageSet(name)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(c, func(cfg *config.Config) {
			if c.IsSet("concurrency") {
				cfg.Worker.Concurrency = c.Int("concurrency")
			}
			if c.IsSet("max-attempts") {
				cfg.Worker.MaxAttempts = c.Int("max-attempts")
			}
			if c.IsSet("retry-delay") {
				cfg.Worker.RetryDelay = c.Duration("retry-delay")
			}
		})
		if err != nil {
			return err
		}

		return withPipeline(c, cfg, func(ctx context.Context, p *newsproc.Pipeline) error {
			var opts []enrich.Option
			if !c.Bool("no-progress") {
				opts = append(opts, enrich.WithProgress(c.App.ErrWriter, name))
			}
			w, err := p.NewWorker(stages, opts...)
			if err != nil {
				return err
			}
			defer w.Release()

			report, err := w.Run(ctx)
			fmt.Fprintf(c.App.Writer, "%s: listed=%d claimed=%d skipped=%d completed=%d failed=%d oracle_calls=%d\n",
				name, report.Listed, report.Claimed, report.Skipped, report.Completed, report.Failed, report.OracleCalls)
			return err
		})
	}
}

func requeueCommand(c *cli.Context) error {
	if c.Bool("failed") && c.IsSet("older-than") {
		return errors.New("--failed and --older-than are mutually exclusive")
	}
	if !c.Bool("failed") && c.NArg() > 0 {
		return errors.New("job IDs are only accepted with --failed")
	}
	cfg, err := loadConfig(c, func(cfg *config.Config) {
		if c.IsSet("older-than") {
			cfg.Store.StaleAfter = c.Duration("older-than")
		}
	})
	if err != nil {
		return err
	}

	return withPipeline(c, cfg, func(ctx context.Context, p *newsproc.Pipeline) error {
		var (
			ids  []string
			err  error
			from core.Zone
		)
		if c.Bool("failed") {
			from = core.ZoneFailed
			ids, err = p.Store().RequeueFailed(ctx, c.Args().Slice()...)
		} else {
			from = core.ZoneInProgress
			ids, err = p.Store().RequeueStale(ctx, p.Config().Store.StaleAfter)
		}
		for _, id := range ids {
			fmt.Fprintln(c.App.Writer, id)
		}
		fmt.Fprintf(c.App.Writer, "requeued %d job(s) from %s\n", len(ids), from)
		return err
	})
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c, nil)
	if err != nil {
		return err
	}
	// Report the seen index only when one was created by an earlier run.
	if _, err := os.Stat(cfg.IndexPath()); err == nil {
		cfg.Store.Dedupe = true
	}

	return withPipeline(c, cfg, func(ctx context.Context, p *newsproc.Pipeline) error {
		counts, err := p.Store().Counts(ctx)
		if err != nil {
			return err
		}
		w := c.App.Writer
		fmt.Fprintf(w, "store: %s\n", p.Config().Store.Root)
		for _, z := range core.Zones {
			fmt.Fprintf(w, "%-11s %d\n", z, counts[z])
		}
		if idx := p.SeenIndex(); idx != nil {
			n, err := idx.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-11s %d\n", "seen", n)
		}

		if !c.Bool("failures") {
			return nil
		}
		failed, err := p.Store().List(ctx, core.ZoneFailed)
		if err != nil {
			return err
		}
		for id := range failed {
			note, err := p.Store().FailureNote(ctx, id)
			if err != nil {
				fmt.Fprintf(w, "%s\t(no failure note: %v)\n", id, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", id, note.FailedAt.Format(time.RFC3339), note.Reason)
		}
		return nil
	})
}
