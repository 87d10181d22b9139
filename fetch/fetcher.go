package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/metrics"
	"github.com/poiesic/newsproc/storage"
)

// Drop reasons reported to metrics.
const (
	dropUnusable  = "unusable"
	dropDuplicate = "duplicate"
	dropStore     = "store_error"
)

// Result summarises one fetch or import run. Counts reflect work done before
// any error, so a partially failed run still reports what it enqueued.
type Result struct {
	Pages       int
	Received    int
	Enqueued    int
	Dropped     int
	Duplicates  int
	StoreErrors int
	IDs         []string

	// Err is the error that stopped the run, if any.
	Err error
}

// Partial reports whether the run stopped early after enqueuing something.
func (r *Result) Partial() bool {
	return r.Err != nil && r.Enqueued > 0
}

// Fetcher pulls articles from a news source and enqueues them.
type Fetcher struct {
	store      storage.ArticleStore
	source     Source
	seen       storage.SeenIndex
	downloader Downloader
	maxBytes   int64
	metrics    *metrics.Collectors
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithSeenIndex enables URL deduplication against index.
func WithSeenIndex(index storage.SeenIndex) Option {
	return func(f *Fetcher) error {
		f.seen = index
		return nil
	}
}

// WithAttachments downloads each article's image with d, capped at maxBytes.
func WithAttachments(d Downloader, maxBytes int64) Option {
	return func(f *Fetcher) error {
		if maxBytes < 0 {
			return fmt.Errorf("negative attachment size cap %d", maxBytes)
		}
		f.downloader = d
		f.maxBytes = maxBytes
		return nil
	}
}

// WithMetrics records fetch activity on c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(f *Fetcher) error {
		f.metrics = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewFetcher creates a Fetcher writing into store. source may be nil when the
// fetcher is only used for imports.
func NewFetcher(store storage.ArticleStore, source Source, opts ...Option) (*Fetcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	f := &Fetcher{
		store:  store,
		source: source,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "fetcher")
	return f, nil
}

// Fetch requests pages 1..maxPages of query sequentially and enqueues every usable
// article. Pagination stops early on a short page. A failing page aborts the rest of
// the run; articles enqueued from earlier pages stay in the queue.
func (f *Fetcher) Fetch(ctx context.Context, query string, maxPages, pageSize int) (Result, error) {
	var result Result
	if f.source == nil {
		return result, ErrSourceRequired
	}
	if maxPages < 1 || pageSize < 1 {
		return result, fmt.Errorf("max pages (%d) and page size (%d) must be positive", maxPages, pageSize)
	}

	f.logger.Info("starting fetch", "query", query, "max_pages", maxPages, "page_size", pageSize)

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result, err
		}

		articles, err := f.source.FetchPage(ctx, query, page, pageSize)
		f.metrics.Page(err)
		if err != nil {
			if !errors.Is(err, ErrFetch) {
				err = fmt.Errorf("%w: page %d: %w", ErrFetch, page, err)
			}
			result.Err = err
			f.logger.Error("fetch aborted", "page", page, "enqueued", result.Enqueued, "error", err)
			return result, err
		}
		result.Pages++
		f.logger.Info("retrieved page", "page", page, "articles", len(articles))

		f.enqueueAll(ctx, articles, &result)

		if len(articles) < pageSize {
			break
		}
	}

	f.logger.Info("fetch finished",
		"pages", result.Pages,
		"received", result.Received,
		"enqueued", result.Enqueued,
		"dropped", result.Dropped,
		"duplicates", result.Duplicates)
	return result, nil
}

func (f *Fetcher) enqueueAll(ctx context.Context, articles []SourceArticle, result *Result) {
	for i := range articles {
		if ctx.Err() != nil {
			return
		}
		result.Received++
		f.enqueue(ctx, &articles[i], result)
	}
}

// enqueue converts one source article and writes it to the store. Every outcome
// is counted in result; none of them stop the run.
func (f *Fetcher) enqueue(ctx context.Context, src *SourceArticle, result *Result) {
	article := toArticle(src, f.now())
	if !article.Usable() {
		result.Dropped++
		f.metrics.Dropped(dropUnusable)
		f.logger.Debug("dropped article without title or url")
		return
	}

	if f.seen != nil && article.URL != "" {
		seen, err := f.seen.Seen(ctx, article.URL)
		if err != nil {
			f.logger.Warn("seen index lookup failed", "url", article.URL, "error", err)
		} else if seen {
			result.Duplicates++
			f.metrics.Dropped(dropDuplicate)
			f.logger.Debug("skipped duplicate article", "url", article.URL)
			return
		}
	}

	var attachments []core.Attachment
	if f.downloader != nil && article.URLToImage != "" {
		name, data, err := f.downloader.Download(ctx, article.URLToImage, f.maxBytes)
		if err != nil {
			f.logger.Warn("enqueuing without attachment", "url", article.URLToImage, "error", err)
		} else {
			article.Attachment = name
			attachments = append(attachments, core.Attachment{Name: name, Data: data})
		}
	}

	id, err := f.store.Enqueue(ctx, article, attachments...)
	if err != nil {
		result.StoreErrors++
		f.metrics.Dropped(dropStore)
		f.logger.Error("failed to enqueue article", "url", article.URL, "error", err)
		return
	}
	result.Enqueued++
	result.IDs = append(result.IDs, id)
	f.metrics.Enqueued()
	f.logger.Debug("enqueued article", "article_id", id, "title", article.Title)

	if f.seen != nil && article.URL != "" {
		entry := &core.SeenEntry{ArticleID: id, FetchedAt: article.FetchedAt}
		if err := f.seen.MarkSeen(ctx, article.URL, entry); err != nil {
			f.logger.Warn("failed to record seen url", "article_id", id, "error", err)
		}
	}
}

// toArticle copies the source fields verbatim and stamps the capture time.
func toArticle(src *SourceArticle, fetchedAt time.Time) *core.Article {
	return &core.Article{
		Title:       src.Title,
		Description: src.Description,
		Content:     src.Content,
		URL:         strings.TrimSpace(src.URL),
		URLToImage:  strings.TrimSpace(src.URLToImage),
		Author:      src.Author,
		Source:      core.Source{ID: src.Source.ID, Name: src.Source.Name},
		PublishedAt: src.PublishedAt,
		FetchedAt:   fetchedAt,
	}
}
