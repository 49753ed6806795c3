package model

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.ByID when no record carries the
// requested id.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator. All calls are synchronous;
// failures surface as errors with no retry at this layer.
type Store interface {
	// Entity resolves an internal entity name to its metadata.
	Entity(name string) (Entity, bool)
	// ByID fetches a single record, ErrNotFound when absent.
	ByID(ctx context.Context, entity string, id int64) (Record, error)
	// New returns a fresh unsaved record (id 0) of the entity type.
	New(entity string) (Record, error)
	// Query seeds an empty query over the entity type.
	Query(entity string) Query
	// Save persists the record, assigning an id on first write.
	// flushRelations forces join-table writes even when no scalar
	// field changed.
	Save(ctx context.Context, rec Record, flushRelations bool) error
	Delete(ctx context.Context, rec Record) error
}

// Query is the accumulating query builder owned by the store. Methods
// return the builder for chaining; nothing executes until Run. The core
// never inspects builder state except HasLimit, used to apply the
// configured default limit exactly once.
type Query interface {
	// Filter adds a predicate on column. mod is one of the filter
	// modifiers; ModNone and ModExact mean equality.
	Filter(column string, mod Modifier, value string) Query
	// Sort orders by column; empty column sorts by id. direction is
	// "asc" or "desc".
	Sort(column, direction string) Query
	// SortRand orders randomly, deterministically for a given seed.
	SortRand(seed string) Query
	Limit(count, offset int) Query
	HasLimit() bool
	Run(ctx context.Context) ([]Record, error)
}
