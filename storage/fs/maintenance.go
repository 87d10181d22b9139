package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/storage"
)

// RequeueStale moves inprogress jobs claimed more than olderThan ago back to queue.
// A job whose claim marker is missing or unreadable is aged by its folder mtime.
func (s *Store) RequeueStale(ctx context.Context, olderThan time.Duration) ([]string, error) {
	if olderThan < 0 {
		return nil, fmt.Errorf("negative stale threshold %s", olderThan)
	}
	ids, err := listJobs(s.zoneDir(core.ZoneInProgress))
	if err != nil {
		return nil, fmt.Errorf("list inprogress: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	var moved []string
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		dir := s.jobDir(core.ZoneInProgress, id)
		claimedAt, err := s.claimedAt(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if !claimedAt.Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(dir, claimFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if err := os.Rename(dir, s.jobDir(core.ZoneQueue, id)); err != nil {
			// Finished between listing and rename.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		s.logger.Info("requeued stale article", "article_id", id, "claimed_at", claimedAt)
		moved = append(moved, id)
	}
	return moved, errors.Join(errs...)
}

func (s *Store) claimedAt(dir string) (time.Time, error) {
	var marker claimMarker
	if err := readJSON(filepath.Join(dir, claimFile), &marker); err == nil && !marker.ClaimedAt.IsZero() {
		return marker.ClaimedAt, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// RequeueFailed moves failed jobs back to queue and discards their failure notes.
// With no ids, every failed job is requeued.
func (s *Store) RequeueFailed(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		var err error
		ids, err = listJobs(s.zoneDir(core.ZoneFailed))
		if err != nil {
			return nil, fmt.Errorf("list failed: %w", err)
		}
	}

	var moved []string
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		if err := core.ValidateArticleID(id); err != nil {
			errs = append(errs, err)
			continue
		}
		dir := s.jobDir(core.ZoneFailed, id)
		if _, err := os.Stat(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf("%w: %s in %s", storage.ErrNotFound, id, core.ZoneFailed)
			}
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(filepath.Join(dir, core.FailureNoteFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if err := os.Rename(dir, s.jobDir(core.ZoneQueue, id)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		s.logger.Info("requeued failed article", "article_id", id)
		moved = append(moved, id)
	}
	return moved, errors.Join(errs...)
}

// FailureNote returns the failure note of a job in the failed zone.
func (s *Store) FailureNote(ctx context.Context, id string) (*core.FailureNote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := core.ValidateArticleID(id); err != nil {
		return nil, err
	}
	var note core.FailureNote
	err := readJSON(filepath.Join(s.jobDir(core.ZoneFailed, id), core.FailureNoteFile), &note)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failure note for %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}
