// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/newsproc"
	"github.com/poiesic/newsproc/config"
	"github.com/poiesic/newsproc/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

// openPipeline is replaced in tests to inject a mock oracle.
var openPipeline = newsproc.Open

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "newsproc",
		Usage: "Fetch news articles into a file-system job queue and enrich them with a language model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"NEWSPROC_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "store",
				Aliases: []string{"s"},
				Usage:   "Article store root directory (overrides config and ARTICLE_STORE_BASE)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address while the command runs",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Fetch articles from the news source into the queue",
				Action: fetchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Search query sent to the news source",
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Maximum number of pages to request",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Articles requested per page",
					},
					&cli.BoolFlag{
						Name:  "dedupe",
						Usage: "Skip articles whose URL was enqueued before",
					},
					&cli.BoolFlag{
						Name:  "attachments",
						Usage: "Download each article's image into its job folder",
					},
				},
			},
			{
				Name:      "import",
				Usage:     "Enqueue articles from local NewsAPI-shaped JSON files",
				ArgsUsage: "FILE...",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dedupe",
						Usage: "Skip articles whose URL was enqueued before",
					},
				},
			},
			enrichCommand("categorize", "Assign recommended and suggested categories to queued articles"),
			enrichCommand("reword", "Reword title, description and content of queued articles"),
			enrichCommand("headlines", "Generate alternative headlines for queued articles"),
			enrichCommand("enrich", "Run every enrichment stage on queued articles"),
			{
				Name:      "requeue",
				Usage:     "Move abandoned or failed jobs back to the queue",
				ArgsUsage: "[ID...]",
				Action:    requeueCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Requeue inprogress jobs claimed longer ago than this (default store.staleAfter)",
					},
					&cli.BoolFlag{
						Name:  "failed",
						Usage: "Requeue failed jobs (all, or the IDs given as arguments)",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show job counts per zone",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "failures",
						Usage: "List the failure reason of every failed job",
					},
				},
			},
		},
	}
}

func enrichCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:   name,
		Usage:  usage,
		Action: runStages(name),
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of jobs processed at once (default worker.concurrency)",
			},
			&cli.IntFlag{
				Name:  "max-attempts",
				Usage: "Attempts per oracle call before the field is given up",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not print a progress line",
			},
		},
	}
}

// loadConfig builds the configuration from the file, the environment and the
// global flags, then lets the command apply its own flags.
func loadConfig(c *cli.Context, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("store") {
		cfg.Store.Root = c.String("store")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withPipeline opens the pipeline, serves metrics when configured and runs fn
// with a context canceled on SIGINT or SIGTERM.
func withPipeline(c *cli.Context, cfg *config.Config, fn func(context.Context, *newsproc.Pipeline) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	opts := []newsproc.PipelineOption{newsproc.WithLogger(logger)}

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, newsproc.WithMetrics(metrics.New(reg)))

		srv := metrics.NewServer(cfg.Metrics.Addr, reg, logger)
		addr, err := srv.Start()
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("serving metrics", "addr", addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("error stopping metrics server", "err", err)
			}
		}()
	}

	p, err := openPipeline(cfg, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	return fn(ctx, p)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
