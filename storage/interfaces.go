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


package storage

import (
	"context"
	"iter"
	"time"

	"github.com/poiesic/newsproc/core"
)

// Job is a handle on an article owned by one worker while it resides in the inprogress zone.
type Job struct {
	// ID is the article identifier, also the job folder name.
	ID string

	// Dir is the absolute path of the job folder inside the inprogress zone.
	Dir string

	// ClaimedAt is when the claim succeeded.
	ClaimedAt time.Time
}

// ArticleStore is the durable, zone-partitioned job store.
// Each article lives in exactly one zone at any instant; moving between zones is atomic.
type ArticleStore interface {
	// Enqueue writes a new job into the queue zone.
	// An empty ArticleID is replaced with a freshly generated one.
	// The job becomes visible only once the record and all attachments are written.
	// Returns the article ID, or an error wrapping ErrStoreWrite.
	Enqueue(ctx context.Context, article *core.Article, attachments ...core.Attachment) (string, error)

	// ListPending returns a snapshot of the article IDs in the queue zone.
	// Jobs enqueued after the snapshot is taken may not be yielded.
	ListPending(ctx context.Context) (iter.Seq[string], error)

	// List returns a snapshot of the article IDs in any zone.
	List(ctx context.Context, zone core.Zone) (iter.Seq[string], error)

	// Claim moves a job from queue to inprogress, granting exclusive ownership.
	// Returns ErrAlreadyClaimed if the job is no longer in the queue zone.
	Claim(ctx context.Context, id string) (*Job, error)

	// Read loads the record of a job from the given zone.
	// Returns ErrNotFound if the job is not in that zone.
	Read(ctx context.Context, zone core.Zone, id string) (*core.Article, error)

	// Complete overwrites the record of an inprogress job and moves it to completed.
	// Every field in fields must be present in the record, and at least one must be named;
	// otherwise ErrIncompleteRecord is returned and the job stays where it is.
	Complete(ctx context.Context, id string, article *core.Article, fields ...core.Field) error

	// Fail moves an inprogress job to failed, leaving its record untouched,
	// and persists reason next to it.
	Fail(ctx context.Context, id string, reason string) error

	// Locate returns the zone currently holding the job.
	// Returns ErrNotFound if no zone holds it.
	Locate(ctx context.Context, id string) (core.Zone, error)

	// Counts returns the number of jobs in each zone.
	Counts(ctx context.Context) (map[core.Zone]int, error)
}

// Maintainer exposes the operator-driven recovery operations of a store.
// These are never invoked by the worker loop.
type Maintainer interface {
	// RequeueStale moves inprogress jobs claimed longer ago than olderThan back to queue.
	// Returns the IDs that were moved.
	RequeueStale(ctx context.Context, olderThan time.Duration) ([]string, error)

	// RequeueFailed moves the given failed jobs back to queue, or every failed job
	// when no IDs are given. Returns the IDs that were moved.
	RequeueFailed(ctx context.Context, ids ...string) ([]string, error)

	// FailureNote returns the reason recorded when a job was failed.
	// Returns ErrNotFound if the job is not in the failed zone.
	FailureNote(ctx context.Context, id string) (*core.FailureNote, error)
}

// Store is an ArticleStore that also supports operator recovery.
type Store interface {
	ArticleStore
	Maintainer
}

// SeenIndex remembers which source URLs have already been enqueued.
type SeenIndex interface {
	// Seen reports whether url was marked before.
	Seen(ctx context.Context, url string) (bool, error)

	// Lookup returns the entry recorded for url.
	// Returns ErrNotFound if url was never marked.
	Lookup(ctx context.Context, url string) (*core.SeenEntry, error)

	// MarkSeen records that url was enqueued as entry.ArticleID.
	MarkSeen(ctx context.Context, url string, entry *core.SeenEntry) error

	// Count returns the number of URLs recorded.
	Count(ctx context.Context) (int, error)

	// Close releases the index.
	Close() error
}
