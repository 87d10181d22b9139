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


package fs

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/storage"
)

const (
	stagingDir = ".staging"
	claimFile  = ".claim"
)

// claimMarker is written into a job folder once it has been claimed.
type claimMarker struct {
	ClaimedAt time.Time `json:"claimed_at"`
	Host      string    `json:"host"`
	PID       int       `json:"pid"`
}

// Store implements storage.Store on a directory tree:
//
//	<root>/queue/<id>/<id>.json
//	<root>/inprogress/<id>/<id>.json, .claim
//	<root>/completed/<id>/<id>.json
//	<root>/failed/<id>/<id>.json, failure.json
//	<root>/.staging/<id>/
type Store struct {
	root   string
	logger *slog.Logger
	host   string
	pid    int
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore opens the store rooted at root, creating the zone directories if needed.
func NewStore(root string, logger *slog.Logger) (storage.Store, error) {
	return newStore(root, logger)
}

func newStore(root string, logger *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty store root", storage.ErrStoreWrite)
	}
	if logger == nil {
		logger = slog.Default()
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, zone := range core.Zones {
		if err := os.MkdirAll(filepath.Join(root, string(zone)), 0755); err != nil {
			return nil, fmt.Errorf("create zone %s: %w", zone, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0755); err != nil {
		return nil, fmt.Errorf("create staging area: %w", err)
	}

	host, _ := os.Hostname()
	return &Store{
		root:   root,
		logger: logger.With("component", "store"),
		host:   host,
		pid:    os.Getpid(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Root returns the absolute path of the store.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) zoneDir(zone core.Zone) string {
	return filepath.Join(s.root, string(zone))
}

func (s *Store) jobDir(zone core.Zone, id string) string {
	return filepath.Join(s.root, string(zone), id)
}

func recordName(id string) string {
	return id + ".json"
}

// pendingRecordName holds an enriched record until its job has left inprogress.
func pendingRecordName(id string) string {
	return "." + id + ".json.pending"
}

// Enqueue stages the record and attachments, then publishes the folder into the queue zone.
func (s *Store) Enqueue(ctx context.Context, article *core.Article, attachments ...core.Attachment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if article == nil {
		return "", fmt.Errorf("%w: %w", storage.ErrStoreWrite, core.ErrInvalidArticle)
	}
	if article.ArticleID == "" {
		article.ArticleID = uuid.NewString()
	}
	id := article.ArticleID

	if err := core.ValidateArticle(article); err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
	}
	for _, a := range attachments {
		if err := core.ValidateAttachmentName(a.Name, id); err != nil {
			return "", fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
		}
	}

	if zone, err := s.Locate(ctx, id); err == nil {
		return "", fmt.Errorf("%w: article %s already exists in %s", storage.ErrStoreWrite, id, zone)
	}

	staged := filepath.Join(s.root, stagingDir, id)
	// Mkdir (not MkdirAll) fails if another enqueue of the same id is in flight.
	if err := os.Mkdir(staged, 0755); err != nil {
		return "", fmt.Errorf("%w: stage %s: %w", storage.ErrStoreWrite, id, err)
	}

	if err := s.stage(staged, article, attachments); err != nil {
		os.RemoveAll(staged)
		return "", fmt.Errorf("%w: stage %s: %w", storage.ErrStoreWrite, id, err)
	}

	if err := os.Rename(staged, s.jobDir(core.ZoneQueue, id)); err != nil {
		os.RemoveAll(staged)
		return "", fmt.Errorf("%w: publish %s: %w", storage.ErrStoreWrite, id, err)
	}

	s.logger.Debug("enqueued article", "article_id", id, "attachments", len(attachments))
	return id, nil
}

func (s *Store) stage(dir string, article *core.Article, attachments []core.Attachment) error {
	for _, a := range attachments {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Data, 0644); err != nil {
			return err
		}
	}
	return writeJSONAtomic(filepath.Join(dir, recordName(article.ArticleID)), article)
}

// ListPending takes one snapshot of the queue zone and yields its IDs in lexical order.
func (s *Store) ListPending(ctx context.Context) (iter.Seq[string], error) {
	return s.List(ctx, core.ZoneQueue)
}

// List returns a snapshot of the article IDs in zone, in lexical order.
func (s *Store) List(ctx context.Context, zone core.Zone) (iter.Seq[string], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := core.ValidateZone(zone); err != nil {
		return nil, err
	}
	ids, err := listJobs(s.zoneDir(zone))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", zone, err)
	}
	return func(yield func(string) bool) {
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}, nil
}

// Claim moves queue/<id> to inprogress/<id>. The rename is the claim: when two
// claimers race, the loser finds the source gone and gets ErrAlreadyClaimed.
func (s *Store) Claim(ctx context.Context, id string) (*storage.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := core.ValidateArticleID(id); err != nil {
		return nil, err
	}

	dst := s.jobDir(core.ZoneInProgress, id)
	if err := os.Rename(s.jobDir(core.ZoneQueue, id), dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrAlreadyClaimed, id)
		}
		return nil, fmt.Errorf("claim %s: %w", id, err)
	}

	job := &storage.Job{ID: id, Dir: dst, ClaimedAt: s.now()}
	marker := claimMarker{ClaimedAt: job.ClaimedAt, Host: s.host, PID: s.pid}
	if err := writeJSONAtomic(filepath.Join(dst, claimFile), &marker); err != nil {
		// Ownership is already held; stale detection falls back to the folder mtime.
		s.logger.Warn("failed to write claim marker", "article_id", id, "error", err)
	}

	s.logger.Debug("claimed article", "article_id", id)
	return job, nil
}

// Read loads the record of a job from zone.
func (s *Store) Read(ctx context.Context, zone core.Zone, id string) (*core.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := core.ValidateZone(zone); err != nil {
		return nil, err
	}
	if err := core.ValidateArticleID(id); err != nil {
		return nil, err
	}

	var article core.Article
	err := readJSON(filepath.Join(s.jobDir(zone, id), recordName(id)), &article)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", storage.ErrNotFound, id, zone)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return &article, nil
}

// Complete moves an inprogress job to completed and replaces its record with
// article. If the move fails the job keeps its original record.
func (s *Store) Complete(ctx context.Context, id string, article *core.Article, fields ...core.Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if article == nil {
		return fmt.Errorf("%w: nil record", storage.ErrIncompleteRecord)
	}
	if article.ArticleID != id {
		return fmt.Errorf("complete %s: record carries article id %q", id, article.ArticleID)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields named", storage.ErrIncompleteRecord)
	}
	var missing []core.Field
	for _, f := range fields {
		if _, ok := article.EnrichmentValue(f); !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", storage.ErrIncompleteRecord, missing)
	}

	dir, err := s.ownedJobDir(id)
	if err != nil {
		return err
	}
	pending := filepath.Join(dir, pendingRecordName(id))
	if err := writeJSONAtomic(pending, article); err != nil {
		return fmt.Errorf("%w: write %s: %w", storage.ErrStoreWrite, id, err)
	}
	if err := s.release(id, dir, core.ZoneCompleted); err != nil {
		os.Remove(pending)
		return err
	}

	done := s.jobDir(core.ZoneCompleted, id)
	if err := os.Rename(filepath.Join(done, pendingRecordName(id)), filepath.Join(done, recordName(id))); err != nil {
		return fmt.Errorf("%w: publish record %s: %w", storage.ErrStoreWrite, id, err)
	}
	return nil
}

// Fail records reason in failure.json and moves an inprogress job to failed.
func (s *Store) Fail(ctx context.Context, id string, reason string) error {
	// Failing must succeed during shutdown, so a canceled ctx is not checked here.
	dir, err := s.ownedJobDir(id)
	if err != nil {
		return err
	}

	note := core.FailureNote{ArticleID: id, Reason: reason, FailedAt: s.now()}
	if err := writeJSONAtomic(filepath.Join(dir, core.FailureNoteFile), &note); err != nil {
		return fmt.Errorf("%w: write failure note %s: %w", storage.ErrStoreWrite, id, err)
	}
	return s.release(id, dir, core.ZoneFailed)
}

// ownedJobDir returns inprogress/<id> if it exists.
func (s *Store) ownedJobDir(id string) (string, error) {
	if err := core.ValidateArticleID(id); err != nil {
		return "", err
	}
	dir := s.jobDir(core.ZoneInProgress, id)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", storage.ErrNotOwned, id)
		}
		return "", err
	}
	return dir, nil
}

// release drops the claim marker and moves an inprogress job to a terminal zone.
func (s *Store) release(id, dir string, to core.Zone) error {
	if err := os.Remove(filepath.Join(dir, claimFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove claim marker", "article_id", id, "error", err)
	}
	if err := os.Rename(dir, s.jobDir(to, id)); err != nil {
		return fmt.Errorf("%w: move %s to %s: %w", storage.ErrStoreWrite, id, to, err)
	}
	s.logger.Debug("moved article", "article_id", id, "zone", to)
	return nil
}

// Locate returns the zone currently holding id.
func (s *Store) Locate(ctx context.Context, id string) (core.Zone, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := core.ValidateArticleID(id); err != nil {
		return "", err
	}
	for _, zone := range core.Zones {
		if _, err := os.Stat(s.jobDir(zone, id)); err == nil {
			return zone, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", storage.ErrNotFound, id)
}

// Counts returns the number of jobs in each zone.
func (s *Store) Counts(ctx context.Context) (map[core.Zone]int, error) {
	counts := make(map[core.Zone]int, len(core.Zones))
	for _, zone := range core.Zones {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err := listJobs(s.zoneDir(zone))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", zone, err)
		}
		counts[zone] = len(ids)
	}
	return counts, nil
}
