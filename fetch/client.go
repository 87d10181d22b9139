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


package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const userAgent = "newsproc/1.0"

// SourceArticle is one article as the news source returns it.
type SourceArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Page is the response envelope of the news source.
type Page struct {
	Status       string          `json:"status"`
	TotalResults int             `json:"totalResults"`
	Articles     []SourceArticle `json:"articles"`
	Code         string          `json:"code,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// Source returns one page of articles for a query. Pages are numbered from 1.
type Source interface {
	FetchPage(ctx context.Context, query string, page, pageSize int) ([]SourceArticle, error)
}

// Downloader fetches a binary asset referenced by an article.
type Downloader interface {
	Download(ctx context.Context, rawURL string, maxBytes int64) (name string, data []byte, err error)
}

// Client talks to a NewsAPI-compatible HTTP endpoint.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ Source     = (*Client)(nil)
	_ Downloader = (*Client)(nil)
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithClientLogger sets the logger. Default is slog.Default().
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient creates a client for the endpoint at baseURL, e.g.
// https://newsapi.org/v2/everything. The API key may be empty for endpoints that need none.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrBaseURLRequired
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme", baseURL)
	}

	c := &Client{
		baseURL:    u,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "news-client")
	return c, nil
}

// pageURL builds the request URL for one page.
func (c *Client) pageURL(query string, page, pageSize int) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("q", query)
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	if c.apiKey != "" {
		q.Set("apiKey", c.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// redactURL masks the API key in a request URL before it reaches an error or a log.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("apiKey") {
		return raw
	}
	q.Set("apiKey", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPage requests one page. Network failures, non-2xx statuses, malformed JSON
// and error envelopes all return errors wrapping ErrFetch.
func (c *Client) FetchPage(ctx context.Context, query string, page, pageSize int) ([]SourceArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(query, page, pageSize), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: build request: %w", ErrFetch, page, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactURL(uerr.URL)
		}
		return nil, fmt.Errorf("%w: page %d: %w", ErrFetch, page, err)
	}
	defer resp.Body.Close()

	c.logger.Info("fetched page", "page", page, "status", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: read body: %w", ErrFetch, page, err)
	}

	var envelope Page
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && envelope.Message != "" {
			return nil, fmt.Errorf("%w: page %d: status %d: %s", ErrFetch, page, resp.StatusCode, envelope.Message)
		}
		return nil, fmt.Errorf("%w: page %d: status %d", ErrFetch, page, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: page %d: malformed response: %w", ErrFetch, page, decodeErr)
	}
	if envelope.Status == "error" {
		return nil, fmt.Errorf("%w: page %d: %s: %s", ErrFetch, page, envelope.Code, envelope.Message)
	}

	c.logger.Debug("decoded page", "page", page, "articles", len(envelope.Articles), "total_results", envelope.TotalResults)
	return envelope.Articles, nil
}

// Download fetches rawURL, refusing bodies larger than maxBytes (0 means no cap).
// The returned name is derived from the URL path or the content type.
func (c *Client) Download(ctx context.Context, rawURL string, maxBytes int64) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrAttachment, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrAttachment, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("%w: %s returned %s", ErrAttachment, rawURL, resp.Status)
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return "", nil, fmt.Errorf("%w: %d bytes", ErrAttachmentTooLarge, resp.ContentLength)
	}

	reader := io.Reader(resp.Body)
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read body: %w", ErrAttachment, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", nil, fmt.Errorf("%w: more than %d bytes", ErrAttachmentTooLarge, maxBytes)
	}

	return attachmentName(rawURL, resp.Header.Get("Content-Type")), data, nil
}

// attachmentName picks "image" plus an extension taken from the URL path,
// falling back to the content type.
func attachmentName(rawURL, contentType string) string {
	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if !validExt(ext) {
		ext = ""
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
				ext = exts[0]
			}
		}
	}
	if !validExt(ext) {
		ext = ".bin"
	}
	return "image" + ext
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
