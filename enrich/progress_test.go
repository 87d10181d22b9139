package enrich

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestProgressTracker_CountsOutcomes(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "reword", 4)
	tracker.now = fakeClock(time.Second)

	tracker.Start()
	tracker.Done(outcomeCompleted)
	tracker.Done(outcomeFailed)
	tracker.Done(outcomeSkipped)
	tracker.Done(outcomeCompleted)
	tracker.Finish()

	out := buf.String()
	assert.Contains(t, out, "reword: 4/4 done, 2 completed, 1 failed, 1 skipped")
	assert.Contains(t, out, "articles/s")
	assert.True(t, strings.HasSuffix(out, "\n"), "finish ends the line")
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

func TestProgressTracker_ThrottlesRedraws(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 10)
	tracker.now = fakeClock(time.Millisecond)
	tracker.Start()

	for range 5 {
		tracker.Done(outcomeCompleted)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "\r"), "only the first job redraws within the window")
}

func TestProgressTracker_DrawsWhenComplete(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 2)
	tracker.now = fakeClock(time.Millisecond)
	tracker.Start()

	tracker.Done(outcomeCompleted)
	tracker.Done(outcomeCompleted)
	lines := strings.Split(buf.String(), "\r")
	last := lines[len(lines)-1]
	assert.Contains(t, last, "2/2 done")
	assert.NotContains(t, last, "eta")
}

func TestProgressTracker_ETA(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 3)
	tracker.now = fakeClock(10 * time.Second)
	tracker.Start()

	tracker.Done(outcomeCompleted)
	assert.Contains(t, buf.String(), "eta 20s")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 0)

	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0 done")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 100)

	tracker.Done(outcomeCompleted)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}
