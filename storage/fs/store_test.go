package fs

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := newStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func testArticle(id string) *core.Article {
	return &core.Article{
		ArticleID:   id,
		Title:       "Rates held steady",
		Description: "The central bank kept rates unchanged.",
		Content:     "Officials said inflation was easing.",
		URL:         "https://example.com/" + id,
		Source:      core.Source{ID: "wire", Name: "Wire"},
		PublishedAt: "2025-05-01T10:00:00Z",
		FetchedAt:   time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC),
	}
}

// zonesHolding reports every zone that contains a folder for id.
func zonesHolding(t *testing.T, s *Store, id string) []core.Zone {
	t.Helper()
	var zones []core.Zone
	for _, z := range core.Zones {
		if _, err := os.Stat(s.jobDir(z, id)); err == nil {
			zones = append(zones, z)
		}
	}
	return zones
}

func TestNewStore_CreatesLayout(t *testing.T) {
	root := t.TempDir()
	_, err := NewStore(root, nil)
	require.NoError(t, err)

	for _, z := range core.Zones {
		assert.DirExists(t, filepath.Join(root, string(z)))
	}
	assert.DirExists(t, filepath.Join(root, stagingDir))
}

func TestNewStore_EmptyRoot(t *testing.T) {
	_, err := NewStore("", nil)
	assert.ErrorIs(t, err, storage.ErrStoreWrite)
}

func TestEnqueue_AssignsIDAndPublishes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	article := testArticle("")
	id, err := s.Enqueue(ctx, article)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, article.ArticleID)

	assert.Equal(t, []core.Zone{core.ZoneQueue}, zonesHolding(t, s, id))
	assert.FileExists(t, filepath.Join(s.jobDir(core.ZoneQueue, id), id+".json"))

	staged, err := os.ReadDir(filepath.Join(s.root, stagingDir))
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestEnqueue_WithAttachment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	article := testArticle("a1")
	article.Attachment = "image.jpg"
	_, err := s.Enqueue(ctx, article, core.Attachment{Name: "image.jpg", Data: []byte{0xff, 0xd8}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.jobDir(core.ZoneQueue, "a1"), "image.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
}

func TestEnqueue_Rejects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		article     *core.Article
		attachments []core.Attachment
	}{
		{"nil article", nil, nil},
		{"bad id", testArticle("../x"), nil},
		{"attachment collides with record", testArticle("c1"), []core.Attachment{{Name: "c1.json"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Enqueue(ctx, tt.article, tt.attachments...)
			assert.ErrorIs(t, err, storage.ErrStoreWrite)
		})
	}

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[core.ZoneQueue])
}

func TestEnqueue_AcceptsRecordWithoutText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, &core.Article{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []core.Zone{core.ZoneQueue}, zonesHolding(t, s, id))

	record, err := s.Read(ctx, core.ZoneQueue, id)
	require.NoError(t, err)
	assert.False(t, record.HasContent())
}

func TestEnqueue_IDCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, testArticle("dup"))
	require.NoError(t, err)
	_, err = s.Claim(ctx, "dup")
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, testArticle("dup"))
	assert.ErrorIs(t, err, storage.ErrStoreWrite)
	assert.Equal(t, []core.Zone{core.ZoneInProgress}, zonesHolding(t, s, "dup"))
}

func TestListPending_Snapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.Enqueue(ctx, testArticle(id))
		require.NoError(t, err)
	}

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, testArticle("d"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, slices.Collect(pending))
}

func TestList_Zones(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		_, err := s.Enqueue(ctx, testArticle(id))
		require.NoError(t, err)
	}
	_, err := s.Claim(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, s.Fail(ctx, "a", "boom"))

	failed, err := s.List(ctx, core.ZoneFailed)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, slices.Collect(failed))

	queued, err := s.List(ctx, core.ZoneQueue)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, slices.Collect(queued))

	_, err = s.List(ctx, core.Zone("archive"))
	assert.ErrorIs(t, err, core.ErrInvalidZone)
}

func TestClaim_MovesAndMarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, testArticle("a1"))
	require.NoError(t, err)

	job, err := s.Claim(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", job.ID)
	assert.Equal(t, s.jobDir(core.ZoneInProgress, "a1"), job.Dir)
	assert.Equal(t, []core.Zone{core.ZoneInProgress}, zonesHolding(t, s, "a1"))
	assert.FileExists(t, filepath.Join(job.Dir, claimFile))

	_, err = s.Claim(ctx, "a1")
	assert.ErrorIs(t, err, storage.ErrAlreadyClaimed)

	_, err = s.Claim(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrAlreadyClaimed)
}

func TestClaim_ConcurrentExactlyOneWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, testArticle("race"))
	require.NoError(t, err)

	const claimers = 16
	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Claim(ctx, "race")
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, storage.ErrAlreadyClaimed):
				losses.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(claimers-1), losses.Load())
	assert.Equal(t, []core.Zone{core.ZoneInProgress}, zonesHolding(t, s, "race"))
}

func TestComplete_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := testArticle("a1")
	_, err := s.Enqueue(ctx, original)
	require.NoError(t, err)
	_, err = s.Claim(ctx, "a1")
	require.NoError(t, err)

	record, err := s.Read(ctx, core.ZoneInProgress, "a1")
	require.NoError(t, err)
	if diff := cmp.Diff(original, record); diff != "" {
		t.Fatalf("record changed by enqueue/claim (-want +got):\n%s", diff)
	}

	record.RewordedTitle = "Central bank holds rates"
	record.RecommendedCategory = "Finance"
	require.NoError(t, s.Complete(ctx, "a1", record, core.FieldRewordedTitle, core.FieldRecommendedCategory))

	assert.Equal(t, []core.Zone{core.ZoneCompleted}, zonesHolding(t, s, "a1"))
	assert.NoFileExists(t, filepath.Join(s.jobDir(core.ZoneCompleted, "a1"), claimFile))

	done, err := s.Read(ctx, core.ZoneCompleted, "a1")
	require.NoError(t, err)

	want := *original
	want.RewordedTitle = "Central bank holds rates"
	want.RecommendedCategory = "Finance"
	if diff := cmp.Diff(&want, done); diff != "" {
		t.Errorf("completed record mismatch (-want +got):\n%s", diff)
	}
}

func TestComplete_MoveFailureKeepsOriginalRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := testArticle("a1")
	_, err := s.Enqueue(ctx, original)
	require.NoError(t, err)
	_, err = s.Claim(ctx, "a1")
	require.NoError(t, err)

	// A non-empty folder at the destination makes the move fail.
	blocker := s.jobDir(core.ZoneCompleted, "a1")
	require.NoError(t, os.MkdirAll(blocker, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "stale"), []byte("x"), 0644))

	record, err := s.Read(ctx, core.ZoneInProgress, "a1")
	require.NoError(t, err)
	record.RewordedTitle = "Central bank holds rates"
	err = s.Complete(ctx, "a1", record, core.FieldRewordedTitle)
	assert.ErrorIs(t, err, storage.ErrStoreWrite)

	dir := s.jobDir(core.ZoneInProgress, "a1")
	assert.NoFileExists(t, filepath.Join(dir, pendingRecordName("a1")))
	kept, err := s.Read(ctx, core.ZoneInProgress, "a1")
	require.NoError(t, err)
	if diff := cmp.Diff(original, kept); diff != "" {
		t.Fatalf("inprogress record changed by failed complete (-want +got):\n%s", diff)
	}

	require.NoError(t, s.Fail(ctx, "a1", "complete failed"))
	failed, err := s.Read(ctx, core.ZoneFailed, "a1")
	require.NoError(t, err)
	if diff := cmp.Diff(original, failed); diff != "" {
		t.Errorf("failed record carries enrichment (-want +got):\n%s", diff)
	}
}

func TestComplete_IncompleteRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, testArticle("a1"))
	require.NoError(t, err)
	_, err = s.Claim(ctx, "a1")
	require.NoError(t, err)

	record, err := s.Read(ctx, core.ZoneInProgress, "a1")
	require.NoError(t, err)

	err = s.Complete(ctx, "a1", record)
	assert.ErrorIs(t, err, storage.ErrIncompleteRecord)

	record.RewordedTitle = "x"
	err = s.Complete(ctx, "a1", record, core.FieldRewordedTitle, core.FieldHeadlines)
	assert.ErrorIs(t, err, storage.ErrIncompleteRecord)

	assert.Equal(t, []core.Zone{core.ZoneInProgress}, zonesHolding(t, s, "a1"))
}

func TestComplete_NotOwned(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := testArticle("a1")
	_, err := s.Enqueue(ctx, record)
	require.NoError(t, err)

	record.RewordedTitle = "x"
	err = s.Complete(ctx, "a1", record, core.FieldRewordedTitle)
	assert.ErrorIs(t, err, storage.ErrNotOwned)
	assert.Equal(t, []core.Zone{core.ZoneQueue}, zonesHolding(t, s, "a1"))
}

func TestFail_WritesNoteAndKeepsRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := testArticle("a1")
	_, err := s.Enqueue(ctx, original)
	require.NoError(t, err)
	_, err = s.Claim(ctx, "a1")
	require.NoError(t, err)

	require.NoError(t, s.Fail(ctx, "a1", "no content"))
	assert.Equal(t, []core.Zone{core.ZoneFailed}, zonesHolding(t, s, "a1"))

	note, err := s.FailureNote(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", note.ArticleID)
	assert.Equal(t, "no content", note.Reason)
	assert.False(t, note.FailedAt.IsZero())

	record, err := s.Read(ctx, core.ZoneFailed, "a1")
	require.NoError(t, err)
	if diff := cmp.Diff(original, record); diff != "" {
		t.Errorf("failed record was modified (-want +got):\n%s", diff)
	}

	err = s.Fail(ctx, "a1", "again")
	assert.ErrorIs(t, err, storage.ErrNotOwned)
}

func TestRead_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Read(context.Background(), core.ZoneQueue, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Read(context.Background(), core.Zone("archive"), "nope")
	assert.ErrorIs(t, err, core.ErrInvalidZone)
}

func TestLocateAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"q1", "q2", "p1", "f1"} {
		_, err := s.Enqueue(ctx, testArticle(id))
		require.NoError(t, err)
	}
	_, err := s.Claim(ctx, "p1")
	require.NoError(t, err)
	_, err = s.Claim(ctx, "f1")
	require.NoError(t, err)
	require.NoError(t, s.Fail(ctx, "f1", "boom"))

	zone, err := s.Locate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, core.ZoneInProgress, zone)

	_, err = s.Locate(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[core.Zone]int{
		core.ZoneQueue:      2,
		core.ZoneInProgress: 1,
		core.ZoneCompleted:  0,
		core.ZoneFailed:     1,
	}, counts)
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Enqueue(ctx, testArticle("a1"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Claim(ctx, "a1")
	assert.ErrorIs(t, err, context.Canceled)
}
