package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Import enqueues articles read from r. The input is either a news source page
// ({"articles": [...]}) or a bare JSON array of articles.
func (f *Fetcher) Import(ctx context.Context, r io.Reader) (Result, error) {
	var result Result

	data, err := io.ReadAll(r)
	if err != nil {
		result.Err = err
		return result, fmt.Errorf("read import: %w", err)
	}

	articles, err := decodeArticles(data)
	if err != nil {
		result.Err = err
		return result, err
	}

	f.enqueueAll(ctx, articles, &result)
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result, err
	}

	f.logger.Info("import finished",
		"received", result.Received,
		"enqueued", result.Enqueued,
		"dropped", result.Dropped,
		"duplicates", result.Duplicates)
	return result, nil
}

// ImportFile enqueues the articles in the JSON file at path.
func (f *Fetcher) ImportFile(ctx context.Context, path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{Err: err}, fmt.Errorf("open import file: %w", err)
	}
	defer file.Close()
	return f.Import(ctx, file)
}

func decodeArticles(data []byte) ([]SourceArticle, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var articles []SourceArticle
		if err := json.Unmarshal(trimmed, &articles); err != nil {
			return nil, fmt.Errorf("decode article list: %w", err)
		}
		return articles, nil
	}

	var page Page
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode article page: %w", err)
	}
	return page.Articles, nil
}
