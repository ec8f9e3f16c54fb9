package domain

import (
	"context"
	"errors"
)

var (
	// ErrLoad marks a fatal catalog load failure: document unreachable or
	// not parseable as the expected structure.
	ErrLoad = errors.New("catalog: load failed")

	// ErrNotFound marks a lookup for an id the loaded set does not contain.
	ErrNotFound = errors.New("catalog: not found")
)

// CatalogSource fetches the catalog document. One shot: a failed or
// malformed fetch fails initialization, there is no retry at this level.
type CatalogSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Cache is a read-through cache for rendered query results.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ProximityWatcher reports when a registered target nears the viewport.
// Watch returns a channel that fires each time the target crosses the
// preload margin, plus a release func. A runtime without proximity
// observation is represented by a nil watcher: callers fall back to
// immediate loading.
type ProximityWatcher interface {
	Watch(targetID string) (<-chan struct{}, func())
}
