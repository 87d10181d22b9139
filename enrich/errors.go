package enrich

import "errors"

var (
	// ErrEnrichmentCall indicates one stage's oracle call failed after all retries.
	// The stage's field is omitted; the job continues with the remaining stages.
	ErrEnrichmentCall = errors.New("enrichment call failed")

	// ErrJobUnprocessable indicates a job was routed to the failed zone because it
	// had no usable content or every enrichment call failed.
	ErrJobUnprocessable = errors.New("job unprocessable")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrStoreRequired is returned when creating a Worker without a store.
	ErrStoreRequired = errors.New("article store is required")

	// ErrOracleRequired is returned when creating a Worker without an oracle.
	ErrOracleRequired = errors.New("oracle is required")

	// ErrNoStages is returned when creating a Worker with an empty stage list.
	ErrNoStages = errors.New("at least one enrichment stage is required")

	// ErrInvalidStage indicates a stage definition is incomplete or duplicated.
	ErrInvalidStage = errors.New("invalid enrichment stage")
)
