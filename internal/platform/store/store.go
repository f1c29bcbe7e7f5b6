// Package store defines the document-store capability the ledgers are built
// on: get/set by key plus a per-document transactional read-modify-write.
// Two implementations exist, a Postgres JSONB store and a process-local map;
// callers pick one at construction time.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrUnavailable means the backing store cannot be reached. Read paths
	// degrade to documented defaults; write paths surface the failure.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrConflict is the transaction layer's concurrent-modification signal
	// after bounded retries were exhausted.
	ErrConflict = errors.New("store: concurrent modification")
)

// MutateFunc receives the current document bytes (nil raw, exists=false when
// the document is absent) and returns the full replacement document. The
// function may run more than once on conflict retry; it must be free of side
// effects.
type MutateFunc func(raw json.RawMessage, exists bool) (any, error)

// Document is a raw listing result.
type Document struct {
	Key  string
	Data json.RawMessage
}

// Page is the explicit paging state threaded between List calls: start after
// Cursor, return at most Size documents.
type Page struct {
	Cursor string
	Size   int
}

// Store is the per-key transactional document store contract.
type Store interface {
	// Get unmarshals the document into out and reports whether it exists.
	Get(ctx context.Context, collection, key string, out any) (bool, error)
	// Set writes the document unconditionally.
	Set(ctx context.Context, collection, key string, doc any) error
	// Mutate runs fn inside a single-document transaction: concurrent
	// mutations of the same key serialize, and conflicts are retried a
	// bounded number of times before ErrConflict.
	Mutate(ctx context.Context, collection, key string, fn MutateFunc) error
	// List returns one key-ordered page of a collection. The returned
	// cursor is empty once the collection is exhausted.
	List(ctx context.Context, collection string, page Page) ([]Document, string, error)
}
