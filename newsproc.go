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


// Package newsproc wires the article store, the seen-URL index and the oracle into
// one Pipeline from which fetchers and enrichment workers are built.
package newsproc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/newsproc/ai"
	"github.com/poiesic/newsproc/ai/openai"
	"github.com/poiesic/newsproc/config"
	"github.com/poiesic/newsproc/enrich"
	"github.com/poiesic/newsproc/fetch"
	"github.com/poiesic/newsproc/metrics"
	"github.com/poiesic/newsproc/storage"
	"github.com/poiesic/newsproc/storage/badger"
	fsstore "github.com/poiesic/newsproc/storage/fs"
)

// Pipeline owns the long-lived resources of a newsproc process.
type Pipeline struct {
	cfg      *config.Config
	store    storage.Store
	index    storage.SeenIndex
	provider ai.AIProvider
	metrics  *metrics.Collectors
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	logger   *slog.Logger
	provider ai.AIProvider
	metrics  *metrics.Collectors
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// WithProvider replaces the OpenAI-compatible provider built from the config.
// The pipeline takes ownership and closes it.
func WithProvider(p ai.AIProvider) PipelineOption {
	return func(o *pipelineOptions) {
		o.provider = p
	}
}

// WithMetrics records pipeline activity on c.
func WithMetrics(c *metrics.Collectors) PipelineOption {
	return func(o *pipelineOptions) {
		o.metrics = c
	}
}

// Open validates cfg and opens the store, the seen index (when dedupe is enabled)
// and the oracle provider.
func Open(cfg *config.Config, opts ...PipelineOption) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := &pipelineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	store, err := fsstore.NewStore(cfg.Store.Root, options.logger)
	if err != nil {
		return nil, err
	}

	var index storage.SeenIndex
	if cfg.Store.Dedupe {
		index, err = badger.NewSeenIndex(cfg.IndexPath(), options.logger)
		if err != nil {
			return nil, fmt.Errorf("open seen index: %w", err)
		}
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			if index != nil {
				index.Close()
			}
			return nil, fmt.Errorf("create oracle provider: %w", err)
		}
	}

	return &Pipeline{
		cfg:      cfg,
		store:    store,
		index:    index,
		provider: provider,
		metrics:  options.metrics,
		logger:   options.logger,
	}, nil
}

// Close releases the provider and the seen index.
func (p *Pipeline) Close() error {
	var errs []error
	if err := p.provider.Close(); err != nil {
		p.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if p.index != nil {
		if err := p.index.Close(); err != nil {
			p.logger.Error("error closing seen index", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store returns the article store.
func (p *Pipeline) Store() storage.Store {
	return p.store
}

// SeenIndex returns the seen-URL index, or nil when dedupe is disabled.
func (p *Pipeline) SeenIndex() storage.SeenIndex {
	return p.index
}

// Config returns the configuration the pipeline was opened with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// NewFetcher builds a fetcher for the configured news source. When the source has
// no base URL the fetcher can still import local files.
func (p *Pipeline) NewFetcher(opts ...fetch.Option) (*fetch.Fetcher, error) {
	src := p.cfg.Source
	base := []fetch.Option{
		fetch.WithLogger(p.logger),
		fetch.WithMetrics(p.metrics),
	}
	if p.index != nil {
		base = append(base, fetch.WithSeenIndex(p.index))
	}

	var source fetch.Source
	if src.BaseURL != "" {
		client, err := fetch.NewClient(src.BaseURL, src.APIKey,
			fetch.WithTimeout(src.Timeout),
			fetch.WithClientLogger(p.logger),
		)
		if err != nil {
			return nil, err
		}
		source = client
		if src.Attachments {
			base = append(base, fetch.WithAttachments(client, src.MaxAttachmentBytes))
		}
	}
	return fetch.NewFetcher(p.store, source, append(base, opts...)...)
}

// NewWorker builds an enrichment worker running stages against the oracle. The
// caller must Release it.
func (p *Pipeline) NewWorker(stages []enrich.Stage, opts ...enrich.Option) (*enrich.Worker, error) {
	w := p.cfg.Worker
	base := []enrich.Option{
		enrich.WithStages(stages...),
		enrich.WithPoolSize(w.Concurrency),
		enrich.WithRetry(w.MaxAttempts, w.RetryDelay),
		enrich.WithCallTimeout(p.cfg.Oracle.CallTimeout),
		enrich.WithMetrics(p.metrics),
		enrich.WithLogger(p.logger),
	}
	return enrich.NewWorker(p.store, p.provider.Oracle(), append(base, opts...)...)
}
