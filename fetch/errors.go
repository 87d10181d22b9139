package fetch

import "errors"

var (
	// ErrFetch indicates the news source could not be reached or returned an
	// unusable page. It aborts the remaining pagination of a run.
	ErrFetch = errors.New("fetch failed")

	// ErrAttachment indicates an attachment could not be downloaded.
	ErrAttachment = errors.New("attachment download failed")

	// ErrAttachmentTooLarge indicates an attachment exceeded the size cap.
	ErrAttachmentTooLarge = errors.New("attachment too large")

	// ErrStoreRequired is returned when creating a Fetcher without a store.
	ErrStoreRequired = errors.New("article store is required")

	// ErrSourceRequired is returned when creating a Fetcher without a source.
	ErrSourceRequired = errors.New("news source is required")

	// ErrBaseURLRequired is returned when creating a Client without a base URL.
	ErrBaseURLRequired = errors.New("news source base url is required")
)
