// Package fetch pulls articles from a NewsAPI-compatible source and enqueues them
// into the article store.
//
// A run requests pages sequentially and stops at the first short page. When a page
// request fails the run stops and reports ErrFetch, but everything enqueued from
// earlier pages stays in the queue:
//
//	result, err := fetcher.Fetch(ctx, "bitcoin", 5, 20)
//	if errors.Is(err, fetch.ErrFetch) && result.Partial() {
//	    // result.Enqueued articles are still queued
//	}
//
// Records with neither title nor URL are dropped. With a seen index configured,
// URLs enqueued by earlier runs are skipped.
package fetch
