package enrich

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// redrawEvery throttles progress redraws; a terminal cannot show more anyway.
const redrawEvery = 200 * time.Millisecond

// ProgressTracker draws a single, repeatedly overwritten status line for a run.
type ProgressTracker struct {
	mu sync.Mutex

	out   io.Writer
	label string
	total int

	completed int
	failed    int
	skipped   int

	now       func() time.Time
	startedAt time.Time
	drawnAt   time.Time
	running   bool
}

// NewProgressTracker creates a tracker for total jobs. Nothing is written until Start.
func NewProgressTracker(out io.Writer, label string, total int) *ProgressTracker {
	return &ProgressTracker{
		out:   out,
		label: label,
		total: total,
		now:   time.Now,
	}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed, p.failed, p.skipped = 0, 0, 0
	p.startedAt = p.now()
	p.drawnAt = time.Time{}
	p.running = true
}

// Done records the outcome of one job and redraws when the last redraw is old
// enough or the run is complete.
func (p *ProgressTracker) Done(o outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	switch o {
	case outcomeCompleted:
		p.completed++
	case outcomeFailed:
		p.failed++
	default:
		p.skipped++
	}

	now := p.now()
	if p.finished() >= p.total || now.Sub(p.drawnAt) >= redrawEvery {
		p.draw(now)
	}
}

// Finish draws the final line and ends it with a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.draw(p.now())
	fmt.Fprintln(p.out)
	p.running = false
}

// Elapsed is the time since Start, or zero before Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		return 0
	}
	return p.now().Sub(p.startedAt)
}

func (p *ProgressTracker) finished() int {
	return p.completed + p.failed + p.skipped
}

// draw writes the status line. Callers hold mu.
func (p *ProgressTracker) draw(now time.Time) {
	p.drawnAt = now
	done := min(p.finished(), p.total)

	elapsed := now.Sub(p.startedAt)
	line := fmt.Sprintf("\r%s: %d/%d done, %d completed, %d failed", p.label, done, p.total, p.completed, p.failed)
	if p.skipped > 0 {
		line += fmt.Sprintf(", %d skipped", p.skipped)
	}
	if done > 0 && elapsed > 0 {
		rate := float64(done) / elapsed.Seconds()
		line += fmt.Sprintf(" (%.1f articles/s", rate)
		if left := p.total - done; left > 0 {
			eta := time.Duration(float64(left) / rate * float64(time.Second))
			line += fmt.Sprintf(", eta %s", eta.Round(time.Second))
		}
		line += ")"
	}
	fmt.Fprint(p.out, line)
}
