// Package lazyimg defers image fetches until a unit nears the viewport.
package lazyimg

import (
	"context"
	"sync"

	"lodge_catalog/internal/adapters/observability"
	"lodge_catalog/internal/domain"
)

// FetchFunc retrieves one image source. A non-nil error downgrades the
// unit instead of propagating.
type FetchFunc func(ctx context.Context, src string) error

// Loader tracks registered image placeholders. Each unit activates its
// real source exactly once, on the first proximity signal; the watch is
// released right after so margin re-crossings never re-trigger. With a
// nil watcher (proximity observation unavailable) the real source loads
// immediately, trading laziness for correctness.
type Loader struct {
	mu      sync.Mutex
	watcher domain.ProximityWatcher
	fetch   FetchFunc
	units   map[string]*unit
}

type unit struct {
	src     string
	state   string
	release func()
	done    bool
}

func NewLoader(w domain.ProximityWatcher, fetch FetchFunc) *Loader {
	return &Loader{watcher: w, fetch: fetch, units: map[string]*unit{}}
}

// Register adds a placeholder for id. A unit with no source is marked
// missing and never watched. Re-registering an id is a no-op.
func (ld *Loader) Register(ctx context.Context, id, src string) {
	ld.mu.Lock()
	if _, ok := ld.units[id]; ok {
		ld.mu.Unlock()
		return
	}
	u := &unit{src: src, state: domain.ImagePending}
	ld.units[id] = u
	if src == "" {
		u.state = domain.ImageMissing
		u.done = true
		ld.mu.Unlock()
		return
	}
	if ld.watcher == nil {
		ld.mu.Unlock()
		observability.ObserveImage("immediate")
		ld.activate(ctx, id)
		return
	}
	ch, release := ld.watcher.Watch(id)
	u.release = release
	ld.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			ld.releaseUnit(id)
		case _, ok := <-ch:
			if !ok {
				ld.releaseUnit(id)
				return
			}
			ld.activate(ctx, id)
		}
	}()
}

// activate swaps in the real source once. Fetch failure marks the unit
// degraded; the placeholder stays up either way.
func (ld *Loader) activate(ctx context.Context, id string) {
	ld.mu.Lock()
	u, ok := ld.units[id]
	if !ok || u.done {
		ld.mu.Unlock()
		return
	}
	u.done = true
	release := u.release
	u.release = nil
	src := u.src
	ld.mu.Unlock()

	if release != nil {
		release()
	}

	var err error
	if ld.fetch != nil {
		err = ld.fetch(ctx, src)
	}

	ld.mu.Lock()
	if err != nil {
		u.state = domain.ImageDegraded
	} else {
		u.state = domain.ImageLoaded
	}
	ld.mu.Unlock()

	if err != nil {
		observability.ObserveImage("degraded")
	} else {
		observability.ObserveImage("loaded")
	}
}

func (ld *Loader) releaseUnit(id string) {
	ld.mu.Lock()
	u, ok := ld.units[id]
	if !ok {
		ld.mu.Unlock()
		return
	}
	release := u.release
	u.release = nil
	ld.mu.Unlock()
	if release != nil {
		release()
	}
}

// State reports a unit's image state, or pending for unknown ids.
func (ld *Loader) State(id string) string {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if u, ok := ld.units[id]; ok {
		return u.state
	}
	return domain.ImagePending
}

// Annotate overlays the loader's view onto an ImageRef: degraded units
// keep the placeholder with the alt text marked unavailable.
func (ld *Loader) Annotate(id string, ref domain.ImageRef) domain.ImageRef {
	switch ld.State(id) {
	case domain.ImageLoaded:
		ref.State = domain.ImageLoaded
	case domain.ImageDegraded:
		ref.State = domain.ImageDegraded
		ref.Src = ""
		ref.Alt = ref.Alt + " (image unavailable)"
	}
	return ref
}

// Close releases every outstanding watch.
func (ld *Loader) Close() {
	ld.mu.Lock()
	ids := make([]string, 0, len(ld.units))
	for id := range ld.units {
		ids = append(ids, id)
	}
	ld.mu.Unlock()
	for _, id := range ids {
		ld.releaseUnit(id)
	}
}
