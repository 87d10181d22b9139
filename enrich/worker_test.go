package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/newsproc/ai"
	"github.com/poiesic/newsproc/ai/mock"
	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/metrics"
	"github.com/poiesic/newsproc/storage"
	fsstore "github.com/poiesic/newsproc/storage/fs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := fsstore.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func enqueue(t *testing.T, store storage.Store, article *core.Article) string {
	t.Helper()
	id, err := store.Enqueue(context.Background(), article)
	require.NoError(t, err)
	return id
}

func newTestWorker(t *testing.T, store storage.Store, oracle ai.Oracle, opts ...Option) *Worker {
	t.Helper()
	opts = append([]Option{WithRetry(1, time.Millisecond)}, opts...)
	w, err := NewWorker(store, oracle, opts...)
	require.NoError(t, err)
	t.Cleanup(w.Release)
	return w
}

func zoneOf(t *testing.T, store storage.Store, id string) core.Zone {
	t.Helper()
	zone, err := store.Locate(context.Background(), id)
	require.NoError(t, err)
	return zone
}

func TestWorker_EchoEndToEnd(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{Title: "A", Description: "B", Content: "C"})

	oracle := mock.NewMockOracle()
	w := newTestWorker(t, store, oracle, WithStages(RewordStages()...))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Listed: 1, Claimed: 1, Completed: 1, OracleCalls: 3}, report)

	assert.Equal(t, core.ZoneCompleted, zoneOf(t, store, id))
	record, err := store.Read(context.Background(), core.ZoneCompleted, id)
	require.NoError(t, err)
	assert.Equal(t, "ENRICHED:A", record.RewordedTitle)
	assert.Equal(t, "ENRICHED:B", record.RewordedDescription)
	assert.Equal(t, "ENRICHED:C", record.RewordedContent)
	assert.Equal(t, "A", record.Title, "source fields are untouched")

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	for range pending {
		t.Fatal("queue should be empty")
	}
}

func TestWorker_NoContentFailsWithoutOracleCalls(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{})

	oracle := mock.NewMockOracle()
	w := newTestWorker(t, store, oracle)

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, oracle.CallCount())

	assert.Equal(t, core.ZoneFailed, zoneOf(t, store, id))
	note, err := store.FailureNote(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoContent, note.Reason)
}

func TestWorker_AllCallsFailRoutesToFailed(t *testing.T) {
	store := newTestStore(t)
	original := &core.Article{Title: "A", Description: "B", Content: "C"}
	id := enqueue(t, store, original)

	oracle := mock.NewMockOracle().WithCompleteFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("rate limited")
	})
	w := newTestWorker(t, store, oracle, WithRetry(2, time.Millisecond))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, len(AllStages())*2, oracle.CallCount(), "every stage is retried")
	assert.Equal(t, oracle.CallCount(), report.OracleCalls)

	assert.Equal(t, core.ZoneFailed, zoneOf(t, store, id))
	note, err := store.FailureNote(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, note.Reason, "all enrichment calls failed")
	assert.Contains(t, note.Reason, "rate limited")

	record, err := store.Read(context.Background(), core.ZoneFailed, id)
	require.NoError(t, err)
	assert.Empty(t, record.EnrichedFields())
}

func TestWorker_PanickingOracleRoutesToFailed(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{Title: "A", Description: "B", Content: "C"})

	oracle := mock.NewMockOracle().WithCompleteFunc(func(context.Context, string, string) (string, error) {
		panic("oracle client blew up")
	})
	w := newTestWorker(t, store, oracle, WithStages(RewordStages()...))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Claimed)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Errors)

	assert.Equal(t, core.ZoneFailed, zoneOf(t, store, id))
	note, err := store.FailureNote(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, note.Reason, "oracle client blew up")
}

func TestWorker_PartialSuccessKeepsOnlySucceededFields(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{Title: "A", Description: "B", Content: "C"})

	oracle := mock.NewMockOracle().WithCompleteFunc(func(_ context.Context, instruction, input string) (string, error) {
		if instruction == rewordDescriptionInstruction {
			return "", errors.New("model overloaded")
		}
		return "ENRICHED:" + input, nil
	})
	w := newTestWorker(t, store, oracle, WithStages(RewordStages()...))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)

	assert.Equal(t, core.ZoneCompleted, zoneOf(t, store, id))
	record, err := store.Read(context.Background(), core.ZoneCompleted, id)
	require.NoError(t, err)
	assert.Equal(t, []core.Field{core.FieldRewordedTitle, core.FieldRewordedContent}, record.EnrichedFields())
	assert.Empty(t, record.RewordedDescription)
}

func TestWorker_RetrySucceeds(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{Title: "A"})

	var attempts atomic.Int32
	oracle := mock.NewMockOracle().WithCompleteFunc(func(_ context.Context, _, input string) (string, error) {
		if attempts.Add(1) < 3 {
			return "", errors.New("transient")
		}
		return "Better " + input, nil
	})
	w := newTestWorker(t, store, oracle,
		WithStages(RewordStages()[0]),
		WithRetry(3, time.Millisecond))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 3, report.OracleCalls)

	record, err := store.Read(context.Background(), core.ZoneCompleted, id)
	require.NoError(t, err)
	assert.Equal(t, "Better A", record.RewordedTitle)
}

func TestWorker_CallTimeoutIsAFailure(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{Title: "A"})

	oracle := mock.NewMockOracle().WithCompleteFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	w := newTestWorker(t, store, oracle,
		WithStages(RewordStages()[0]),
		WithCallTimeout(20*time.Millisecond))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, core.ZoneFailed, zoneOf(t, store, id))

	note, err := store.FailureNote(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, note.Reason, "deadline exceeded")
}

func TestWorker_StageWithoutInputIsSkipped(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{Title: "Only a title"})

	oracle := mock.NewMockOracle()
	w := newTestWorker(t, store, oracle, WithStages(RewordStages()...))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, oracle.CallCount())

	record, err := store.Read(context.Background(), core.ZoneCompleted, id)
	require.NoError(t, err)
	assert.Equal(t, []core.Field{core.FieldRewordedTitle}, record.EnrichedFields())
}

func TestWorker_NoStageInputFails(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{Title: "T", Content: "only content"})

	w := newTestWorker(t, store, mock.NewMockOracle(), WithStages(RewordStages()[1]))

	report, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	note, err := store.FailureNote(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoInput, note.Reason)
}

func TestWorker_CategoriesAndHeadlines(t *testing.T) {
	store := newTestStore(t)
	id := enqueue(t, store, &core.Article{
		Title:   "Bitcoin hits record",
		Content: "<p>The price of bitcoin rose.</p> [+1200 chars]",
	})

	oracle := mock.NewMockOracle().WithCompleteFunc(func(_ context.Context, instruction, input string) (string, error) {
		assert.NotContains(t, input, "<p>")
		assert.NotContains(t, input, "chars]")
		switch instruction {
		case recommendedCategoryInstruction:
			return "crypto currency.", nil
		case suggestedCategoryInstruction:
			return "\"Digital Assets\"", nil
		case headlinesInstruction:
			return "1. Bitcoin soars\n2. Bitcoin soars\n- Crypto rally continues\n\n* Record day for BTC", nil
		}
		return "", fmt.Errorf("unexpected instruction %q", instruction)
	})
	w := newTestWorker(t, store, oracle, WithStages(append(CategoryStages(), HeadlineStages()...)...))

	_, err := w.Run(context.Background())
	require.NoError(t, err)

	record, err := store.Read(context.Background(), core.ZoneCompleted, id)
	require.NoError(t, err)
	assert.Equal(t, "Crypto Currency", record.RecommendedCategory)
	assert.Equal(t, "Digital Assets", record.SuggestedCategory)
	assert.Equal(t, []string{"Bitcoin soars", "Crypto rally continues", "Record day for BTC"}, record.Headlines)
}

func TestWorker_ConcurrentRunsClaimEachJobOnce(t *testing.T) {
	store := newTestStore(t)
	const jobs = 20
	for i := range jobs {
		enqueue(t, store, &core.Article{Title: fmt.Sprintf("T%d", i)})
	}

	oracle := mock.NewMockOracle().WithCompleteFunc(func(_ context.Context, _, input string) (string, error) {
		time.Sleep(time.Millisecond)
		return "ENRICHED:" + input, nil
	})

	w1 := newTestWorker(t, store, oracle, WithStages(RewordStages()[0]), WithPoolSize(4))
	w2 := newTestWorker(t, store, oracle, WithStages(RewordStages()[0]), WithPoolSize(4))

	reports := make(chan Report, 2)
	for _, w := range []*Worker{w1, w2} {
		go func() {
			r, err := w.Run(context.Background())
			assert.NoError(t, err)
			reports <- r
		}()
	}
	r1, r2 := <-reports, <-reports

	assert.Equal(t, jobs, r1.Completed+r2.Completed)
	assert.Equal(t, jobs, oracle.CallCount(), "no job is enriched twice")
	assert.Equal(t, r1.Listed+r2.Listed-jobs, r1.Skipped+r2.Skipped)

	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[core.Zone]int{core.ZoneCompleted: jobs, core.ZoneQueue: 0, core.ZoneInProgress: 0, core.ZoneFailed: 0}, counts)
}

func TestWorker_CanceledContextStopsClaiming(t *testing.T) {
	store := newTestStore(t)
	for i := range 3 {
		enqueue(t, store, &core.Article{Title: fmt.Sprintf("T%d", i)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oracle := mock.NewMockOracle()
	w := newTestWorker(t, store, oracle)
	_, err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, oracle.CallCount())
}

func TestWorker_MetricsAndProgress(t *testing.T) {
	store := newTestStore(t)
	enqueue(t, store, &core.Article{Title: "A"})
	enqueue(t, store, &core.Article{URL: "https://example.com/empty"})

	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)
	var out bytes.Buffer

	w := newTestWorker(t, store, mock.NewMockOracle(),
		WithStages(RewordStages()[0]),
		WithMetrics(collectors),
		WithProgress(&out, "Rewording articles"))

	_, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.Jobs.WithLabelValues(metrics.OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.Jobs.WithLabelValues(metrics.OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.OracleCalls.WithLabelValues(string(core.FieldRewordedTitle), metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.ZoneJobs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.ZoneJobs.WithLabelValues("failed")))

	assert.True(t, strings.Contains(out.String(), "Rewording articles: 2/2"), out.String())
}

func TestNewWorker_Validation(t *testing.T) {
	store := newTestStore(t)
	oracle := mock.NewMockOracle()

	_, err := NewWorker(nil, oracle)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewWorker(store, nil)
	assert.ErrorIs(t, err, ErrOracleRequired)

	_, err = NewWorker(store, oracle, WithStages())
	assert.ErrorIs(t, err, ErrNoStages)

	_, err = NewWorker(store, oracle, WithStages(RewordStages()[0], RewordStages()[0]))
	assert.ErrorIs(t, err, ErrInvalidStage)

	_, err = NewWorker(store, oracle, WithStages(Stage{Field: "sentiment", Instruction: "x", Input: func(*core.Article) string { return "" }}))
	assert.ErrorIs(t, err, ErrInvalidStage)

	_, err = NewWorker(store, oracle, WithRetry(0, time.Second))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = NewWorker(store, oracle, WithCallTimeout(0))
	assert.Error(t, err)
}
