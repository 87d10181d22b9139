package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newsproc/core"
	"github.com/poiesic/newsproc/storage"
)

// SeenIndex implements storage.SeenIndex for BadgerDB.
type SeenIndex struct {
	backend *Backend
	logger  *slog.Logger
	closed  atomic.Bool
}

var _ storage.SeenIndex = (*SeenIndex)(nil)

// NewSeenIndex opens (or creates) a seen-URL index in the directory at path.
func NewSeenIndex(path string, logger *slog.Logger) (storage.SeenIndex, error) {
	backend, err := OpenBackend(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open seen index: %w", err)
	}
	return newSeenIndex(backend, logger), nil
}

// newSeenIndex wraps an open backend. The index owns the backend and closes it.
func newSeenIndex(backend *Backend, logger *slog.Logger) *SeenIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeenIndex{
		backend: backend,
		logger:  logger.With("component", "seen-index"),
	}
}

// Seen reports whether url was marked before.
func (s *SeenIndex) Seen(ctx context.Context, url string) (bool, error) {
	_, err := s.Lookup(ctx, url)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Lookup returns the entry recorded for url.
func (s *SeenIndex) Lookup(ctx context.Context, url string) (*core.SeenEntry, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry *core.SeenEntry
	err := s.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSeenURLKey(url))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = storage.UnmarshalSeenEntry(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// MarkSeen records that url was enqueued as entry.ArticleID.
// Marking an already seen URL overwrites its entry.
func (s *SeenIndex) MarkSeen(ctx context.Context, url string, entry *core.SeenEntry) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: nil seen entry", storage.ErrSerializationFailed)
	}

	return s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeSeenURLKey(url), storage.MarshalSeenEntry(entry))
	})
}

// Count returns the number of URLs in the index.
func (s *SeenIndex) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	return s.backend.CountPrefix(ctx, []byte(seenURLPrefix+":"))
}

// Close closes the underlying database. Closing twice is a no-op.
func (s *SeenIndex) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.backend.Close()
}
