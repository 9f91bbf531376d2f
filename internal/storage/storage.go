// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package storage implements the persistence boundary over BadgerDB.
//
// Each entity has its own store type constructed against a shared,
// explicitly lifetimed *DB; there is no package-level connection
// handle. Documents are stored as JSON values under typed key prefixes;
// conditional mutations run inside Badger's serializable transactions,
// which is what gives the view deduplicator and the live hub their
// atomic upsert-with-condition semantics.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rookery-social/rookery/internal/logging"
)

// Sentinel errors for the error taxonomy. Callers match with errors.Is.
var (
	// ErrNotFound indicates the referenced document does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrUnavailable indicates the store could not complete the
	// operation; the caller may retry with backoff.
	ErrUnavailable = errors.New("storage: unavailable")
)

// conflictRetries is how many times a serializable transaction is
// retried after a write conflict before giving up as unavailable.
const conflictRetries = 3

// nowFunc is swapped in tests that need a fixed clock.
var nowFunc = time.Now

// Options configures the storage layer.
type Options struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without disk persistence.
	InMemory bool

	// GCInterval is how often value-log GC runs; zero disables it.
	GCInterval time.Duration
}

// DB wraps the Badger handle and owns its lifecycle.
type DB struct {
	badger     *badger.DB
	gcInterval time.Duration
}

// Open opens (or creates) the store.
func Open(opts Options) (*DB, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(badgerLogger{})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}

	return &DB{badger: db, gcInterval: opts.GCInterval}, nil
}

// Close releases the underlying Badger handle.
func (d *DB) Close() error {
	return d.badger.Close()
}

// RunGC runs periodic value-log garbage collection until the context is
// canceled. Intended to be supervised as a background service.
func (d *DB) RunGC(ctx context.Context) error {
	if d.gcInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(d.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Badger asks for repeated calls while there is garbage to
			// rewrite; ErrNoRewrite means nothing left to do.
			for {
				if err := d.badger.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logging.Warn().Err(err).Msg("badger value log GC failed")
					}
					break
				}
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (d *DB) String() string {
	return "storage-gc"
}

// Serve implements suture.Service by delegating to RunGC.
func (d *DB) Serve(ctx context.Context) error {
	return d.RunGC(ctx)
}

// view runs fn in a read-only transaction, honoring ctx cancellation
// and mapping Badger failures to the storage error taxonomy.
func (d *DB) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.badger.View(fn); err != nil {
		return mapErr(err)
	}
	return nil
}

// update runs fn in a serializable read-write transaction, retrying a
// bounded number of times on write conflicts. This is the primitive
// behind every conditional upsert in the core.
func (d *DB) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = d.badger.Update(fn)
		if err == nil || !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// mapErr translates Badger errors into the storage taxonomy. Not-found
// is a distinct, expected condition; everything else is retryable
// unavailability.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// getJSON loads and unmarshals the document at key into out.
func getJSON(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// setJSON marshals doc and stores it at key.
func setJSON(txn *badger.Txn, key []byte, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", doc, err)
	}
	return txn.Set(key, data)
}

// countPrefix counts the keys under prefix without loading values.
func countPrefix(txn *badger.Txn, prefix []byte) int64 {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var n int64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n
}

// badgerLogger routes Badger's internal log lines through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}
