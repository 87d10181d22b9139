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
	"log/slog"
	"time"
)

// maxBackoff caps the delay between two oracle attempts.
const maxBackoff = 30 * time.Second

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so a retry loop gives up at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Backoff is an exponential retry policy: the n-th retry waits Base * 2^(n-1),
// never longer than Max.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// Delay returns the wait before attempt+1.
func (b Backoff) Delay(attempt int) time.Duration {
	limit := b.Max
	if limit <= 0 {
		limit = maxBackoff
	}
	d := b.Base
	for i := 1; i < attempt && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// Retry runs op until it succeeds, the attempts are used up, op returns a
// Permanent error, or ctx is done. The last error is returned; when ctx ends the
// wait, ctx's error is joined to it.
func (b Backoff) Retry(ctx context.Context, op func() error) error {
	if b.Attempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}

		if err = op(); err == nil {
			return nil
		}
		if perm := (*permanentError)(nil); errors.As(err, &perm) {
			return perm.err
		}
		if attempt == b.Attempts {
			return err
		}

		delay := b.Delay(attempt)
		slog.Debug("oracle attempt failed, retrying", "attempt", attempt, "of", b.Attempts, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// RetryWithBackoff runs op with up to maxAttempts attempts, doubling baseDelay
// between them.
func RetryWithBackoff(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration) error {
	return Backoff{Attempts: maxAttempts, Base: baseDelay}.Retry(ctx, op)
}
