package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates no generation holds the requested key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Storage holds named cache generations.
type Storage interface {
	// Open returns the named generation, creating it if absent.
	Open(ctx context.Context, name string) (Cache, error)

	// Keys lists generation names in creation order.
	Keys(ctx context.Context) ([]string, error)

	// Delete drops a generation and all its entries. It reports whether the
	// generation existed.
	Delete(ctx context.Context, name string) (bool, error)

	// Match looks key up in every generation, in creation order, and
	// returns the first entry found or ErrCacheMiss.
	Match(ctx context.Context, key Key) (*Entry, error)
}

// Cache is a single generation.
type Cache interface {
	Name() string

	// Match returns the entry stored under key or ErrCacheMiss.
	Match(ctx context.Context, key Key) (*Entry, error)

	// Put stores entry under key, replacing any previous entry.
	Put(ctx context.Context, key Key, entry *Entry) error

	// PutAll stores every entry in a single write: either all are stored
	// or none are.
	PutAll(ctx context.Context, entries map[Key]*Entry) error

	// Keys lists the stored keys in no particular order.
	Keys(ctx context.Context) ([]Key, error)
}
