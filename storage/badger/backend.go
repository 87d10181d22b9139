package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Backend owns one BadgerDB instance.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes badger's printf-style logging into slog.
// Badger reports flushes and compactions at info level, which is noise for a
// CLI, so info is demoted to debug.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) logf(level slog.Level, format string, args ...any) {
	a.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Errorf(format string, args ...any) { a.logf(slog.LevelError, format, args...) }

func (a *slogAdapter) Warningf(format string, args ...any) { a.logf(slog.LevelWarn, format, args...) }

func (a *slogAdapter) Infof(format string, args ...any) { a.logf(slog.LevelDebug, format, args...) }

func (a *slogAdapter) Debugf(format string, args ...any) { a.logf(slog.LevelDebug, format, args...) }

// OpenBackend opens the database in dir, creating the directory when missing.
// An empty dir opens an in-memory database. A nil logger uses slog.Default().
func OpenBackend(dir string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badger")

	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	opts.Logger = &slogAdapter{logger: logger}
	// Values are a few dozen bytes; compression costs more than it saves.
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened badger database", "dir", dir, "in_memory", dir == "")
	return &Backend{db: db, logger: logger}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed reports whether Close was called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// View runs fn in a read-only transaction.
func (b *Backend) View(fn func(tx *badger.Txn) error) error {
	return b.db.View(fn)
}

// Update runs fn in a read-write transaction and commits it when fn succeeds.
// Nothing is written when fn returns an error.
func (b *Backend) Update(fn func(tx *badger.Txn) error) error {
	return b.db.Update(fn)
}

// CountPrefix counts the keys that start with prefix without reading values.
func (b *Backend) CountPrefix(ctx context.Context, prefix []byte) (int, error) {
	count := 0
	err := b.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
