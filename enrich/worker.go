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


package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/newsproc/ai"
	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/metrics"
	"github.com/poiesic/newsproc/storage"
)

// Default tuning values.
const (
	DefaultConcurrency = 1
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
	DefaultCallTimeout = 60 * time.Second
)

// Failure reasons persisted next to failed jobs.
const (
	ReasonNoContent = "no content"
	ReasonNoInput   = "no stage had input text"
)

// Report summarises one worker run.
type Report struct {
	// Listed is the size of the queue snapshot.
	Listed int
	// Claimed counts jobs this run took ownership of.
	Claimed int
	// Skipped counts jobs another worker claimed first.
	Skipped int
	// Completed and Failed count terminal moves made by this run.
	Completed int
	Failed    int
	// Errors counts jobs that could not be claimed or released for reasons
	// other than a lost race.
	Errors int
	// OracleCalls counts every oracle request, retries included.
	OracleCalls int
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeError
)

// Worker claims queued jobs, enriches them through the oracle and routes each
// to completed or failed.
type Worker struct {
	store       storage.ArticleStore
	oracle      ai.Oracle
	stages      []Stage
	pool        *ants.Pool
	poolSize    int
	maxAttempts int
	retryDelay  time.Duration
	callTimeout time.Duration
	progress    io.Writer
	label       string
	metrics     *metrics.Collectors
	logger      *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker) error

// WithPoolSize sets how many jobs are processed concurrently.
// Default is 1, which processes jobs sequentially in queue order.
func WithPoolSize(size int) Option {
	return func(w *Worker) error {
		if size < 1 {
			size = 1
		}
		w.poolSize = size
		return nil
	}
}

// WithStages replaces the enrichment stages. Default is AllStages().
func WithStages(stages ...Stage) Option {
	return func(w *Worker) error {
		w.stages = stages
		return nil
	}
}

// WithRetry sets the attempt budget and base backoff delay for each oracle call.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(w *Worker) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		if baseDelay < 0 {
			return fmt.Errorf("negative retry delay %s", baseDelay)
		}
		w.maxAttempts = maxAttempts
		w.retryDelay = baseDelay
		return nil
	}
}

// WithCallTimeout bounds each oracle call. A timeout counts as a failed attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(w *Worker) error {
		if d <= 0 {
			return fmt.Errorf("call timeout must be positive, got %s", d)
		}
		w.callTimeout = d
		return nil
	}
}

// WithProgress writes a progress line to out while running, prefixed with label.
func WithProgress(out io.Writer, label string) Option {
	return func(w *Worker) error {
		w.progress = out
		w.label = label
		return nil
	}
}

// WithMetrics records job outcomes and oracle calls on c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(w *Worker) error {
		w.metrics = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWorker creates a worker. Call Release when done to free its pool.
func NewWorker(store storage.ArticleStore, oracle ai.Oracle, opts ...Option) (*Worker, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if oracle == nil {
		return nil, ErrOracleRequired
	}

	w := &Worker{
		store:       store,
		oracle:      oracle,
		stages:      AllStages(),
		poolSize:    DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		callTimeout: DefaultCallTimeout,
		label:       "Enriching articles",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	if len(w.stages) == 0 {
		return nil, ErrNoStages
	}
	fields := make(map[core.Field]struct{}, len(w.stages))
	for _, s := range w.stages {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := fields[s.Field]; dup {
			return nil, fmt.Errorf("%w: field %s produced by two stages", ErrInvalidStage, s.Field)
		}
		fields[s.Field] = struct{}{}
	}

	pool, err := ants.NewPool(w.poolSize)
	if err != nil {
		return nil, err
	}
	w.pool = pool
	w.logger = w.logger.With("component", "enrich-worker")
	return w, nil
}

// Release frees the worker pool.
func (w *Worker) Release() {
	if w.pool != nil {
		w.pool.Release()
	}
}

// Run processes a snapshot of the queue. Per-job problems never abort the run;
// they are counted in the report. Run returns an error only when the queue cannot
// be listed or ctx is canceled, in which case no further jobs are claimed and the
// report covers the jobs already started.
func (w *Worker) Run(ctx context.Context) (Report, error) {
	var report Report

	pending, err := w.store.ListPending(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending: %w", err)
	}
	ids := slices.Collect(pending)
	report.Listed = len(ids)

	w.logger.Info("starting enrichment run", "pending", len(ids), "stages", len(w.stages), "concurrency", w.poolSize)

	var tracker *ProgressTracker
	if w.progress != nil && len(ids) > 0 {
		tracker = NewProgressTracker(w.progress, w.label, len(ids))
		tracker.Start()
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		runErr  error
		started = time.Now()
	)
	record := func(o outcome, calls int) {
		mu.Lock()
		defer mu.Unlock()
		report.OracleCalls += calls
		switch o {
		case outcomeCompleted:
			report.Claimed++
			report.Completed++
			w.metrics.Job(metrics.OutcomeCompleted)
		case outcomeFailed:
			report.Claimed++
			report.Failed++
			w.metrics.Job(metrics.OutcomeFailed)
		case outcomeSkipped:
			report.Skipped++
			w.metrics.Job(metrics.OutcomeSkipped)
		case outcomeError:
			report.Errors++
		}
		if tracker != nil {
			tracker.Done(o)
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer wg.Done()
			o, calls := w.process(ctx, id)
			record(o, calls)
		})
		if submitErr != nil {
			wg.Done()
			runErr = fmt.Errorf("submit %s: %w", id, submitErr)
			break
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}
	w.metrics.RefreshZones(context.WithoutCancel(ctx), w.store, w.logger)

	w.logger.Info("enrichment run finished",
		"listed", report.Listed,
		"completed", report.Completed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"errors", report.Errors,
		"oracle_calls", report.OracleCalls,
		"elapsed", time.Since(started).Round(time.Millisecond))

	return report, runErr
}

// process drives one job through claim, enrichment and release.
// It never leaves a claimed job in inprogress unless the store itself refuses the move.
// A panic in a stage or the oracle fails the job instead of stranding it.
func (w *Worker) process(ctx context.Context, id string) (o outcome, calls int) {
	logger := w.logger.With("article_id", id)

	if _, err := w.store.Claim(ctx, id); err != nil {
		if errors.Is(err, storage.ErrAlreadyClaimed) {
			logger.Debug("lost claim race, skipping")
			return outcomeSkipped, 0
		}
		logger.Error("failed to claim article", "error", err)
		return outcomeError, 0
	}

	defer func() {
		if r := recover(); r != nil {
			o = w.fail(ctx, logger, id, fmt.Sprintf("panic: %v", r))
		}
	}()

	article, err := w.store.Read(ctx, core.ZoneInProgress, id)
	if err != nil {
		return w.fail(ctx, logger, id, fmt.Sprintf("read record: %v", err)), 0
	}

	if !article.HasContent() {
		return w.fail(ctx, logger, id, ReasonNoContent), 0
	}

	succeeded, calls, err := w.enrich(ctx, logger, article)
	if len(succeeded) == 0 {
		reason := ReasonNoInput
		if err != nil {
			reason = fmt.Sprintf("all enrichment calls failed: %v", err)
		}
		return w.fail(ctx, logger, id, reason), calls
	}

	if err := w.store.Complete(ctx, id, article, succeeded...); err != nil {
		return w.fail(ctx, logger, id, fmt.Sprintf("complete: %v", err)), calls
	}
	logger.Info("completed article", "fields", succeeded)
	return outcomeCompleted, calls
}

// enrich runs every stage with input text against the article. It returns the
// fields that were set, the number of oracle calls made, and the joined stage errors.
func (w *Worker) enrich(ctx context.Context, logger *slog.Logger, article *core.Article) ([]core.Field, int, error) {
	var (
		succeeded []core.Field
		errs      []error
		calls     int
	)
	for _, stage := range w.stages {
		input := stage.Input(article)
		if strings.TrimSpace(input) == "" {
			logger.Debug("skipping stage without input", "stage", stage.name())
			continue
		}

		value, n, err := w.call(ctx, stage, input)
		calls += n
		if err != nil {
			logger.Warn("enrichment stage failed", "stage", stage.name(), "error", err)
			errs = append(errs, err)
			continue
		}
		if err := article.SetEnrichment(stage.Field, value); err != nil {
			errs = append(errs, err)
			continue
		}
		succeeded = append(succeeded, stage.Field)
	}
	return succeeded, calls, errors.Join(errs...)
}

// call asks the oracle for one stage with retries; each attempt is bounded by the
// call timeout.
func (w *Worker) call(ctx context.Context, stage Stage, input string) (string, int, error) {
	var (
		value string
		calls int
	)
	err := RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
		defer cancel()

		calls++
		start := time.Now()
		answer, err := w.oracle.Complete(callCtx, stage.Instruction, input)
		if err == nil && stage.Parse != nil {
			answer, err = stage.Parse(answer)
		}
		if err == nil && strings.TrimSpace(answer) == "" {
			err = ai.ErrEmptyResponse
		}
		w.metrics.OracleCall(stage.name(), time.Since(start).Seconds(), err)
		if errors.Is(err, ai.ErrOracleClosed) {
			return Permanent(err)
		}
		if err != nil {
			return err
		}
		value = answer
		return nil
	}, w.maxAttempts, w.retryDelay)
	if err != nil {
		return "", calls, fmt.Errorf("%w: %s: %w", ErrEnrichmentCall, stage.name(), err)
	}
	return value, calls, nil
}

// fail routes a claimed job to the failed zone. It ignores ctx cancellation so a
// shutdown still releases the job.
func (w *Worker) fail(ctx context.Context, logger *slog.Logger, id, reason string) outcome {
	logger.Error("routing article to failed", "reason", reason, "error", ErrJobUnprocessable)
	if err := w.store.Fail(context.WithoutCancel(ctx), id, reason); err != nil {
		logger.Error("failed to move article to failed zone", "error", err)
		return outcomeError
	}
	return outcomeFailed
}
