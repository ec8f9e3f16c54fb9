// Package engine drives one browsing session: it owns the filter
// configuration, coalesces rapid input, and re-renders on every change.
package engine

import (
	"time"

	"lodge_catalog/internal/adapters/observability"
	"lodge_catalog/internal/announce"
	"lodge_catalog/internal/catalog"
	"lodge_catalog/internal/domain"
	"lodge_catalog/internal/render"
)

// Windows are the per-channel quiescence windows. Free text settles
// slower than a range drag; zone and amenity changes are discrete and
// never debounced.
type Windows struct {
	Search time.Duration
	Price  time.Duration
}

func DefaultWindows() Windows {
	return Windows{Search: 300 * time.Millisecond, Price: 150 * time.Millisecond}
}

// Update is one completed recomputation pushed to the subscriber.
type Update struct {
	Trigger      string              `json:"trigger"`
	Config       domain.FilterConfig `json:"config"`
	Active       bool                `json:"active"` // any constraint narrowing the set
	Page         render.Page         `json:"page"`
	Announcement string              `json:"announcement"`
}

type kind int

const (
	evSearch kind = iota
	evPrice
	evZone
	evAmenity
)

type event struct {
	kind kind
	text string
	num  float64
}

// Session runs all filter mutation and recomputation on one goroutine,
// so recomputes never overlap and the latest committed configuration
// always wins. A fresh event on a debounced channel cancels and restarts
// that channel's pending timer; a superseded timer never fires.
type Session struct {
	store   *catalog.Store
	rend    *render.Renderer
	live    *announce.LiveRegion
	windows Windows

	cfg     domain.FilterConfig
	in      chan event
	updates chan Update
	done    chan struct{}
	stopped chan struct{}
}

// New starts a session over an already-loaded store and emits an initial
// full render.
func New(store *catalog.Store, rend *render.Renderer, live *announce.LiveRegion, w Windows) *Session {
	if w.Search <= 0 || w.Price <= 0 {
		w = DefaultWindows()
	}
	s := &Session{
		store:   store,
		rend:    rend,
		live:    live,
		windows: w,
		cfg:     domain.DefaultFilter(store.MaxRate()),
		in:      make(chan event, 16),
		updates: make(chan Update, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Updates delivers completed recomputations. The channel holds only the
// most recent update; a slow reader observes the latest state, never a
// stale backlog.
func (s *Session) Updates() <-chan Update { return s.updates }

func (s *Session) SetSearchText(q string) { s.send(event{kind: evSearch, text: q}) }
func (s *Session) SetMaxPrice(p float64)  { s.send(event{kind: evPrice, num: p}) }
func (s *Session) SetZone(z string)       { s.send(event{kind: evZone, text: z}) }

// ToggleAmenity adds tag to the required set, or removes it if present.
func (s *Session) ToggleAmenity(tag string) { s.send(event{kind: evAmenity, text: tag}) }

// Close stops the loop and cancels any pending debounce timer.
func (s *Session) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
}

func (s *Session) send(ev event) {
	select {
	case s.in <- ev:
	case <-s.done:
	}
}

func (s *Session) loop() {
	defer close(s.stopped)

	var (
		searchTimer, priceTimer *time.Timer
		searchC, priceC         <-chan time.Time
		pendingSearch           string
		pendingPrice            float64
	)
	stop := func(t *time.Timer) {
		if t != nil {
			t.Stop()
		}
	}
	defer stop(searchTimer)
	defer stop(priceTimer)

	s.recompute("init")

	for {
		select {
		case <-s.done:
			return

		case ev := <-s.in:
			switch ev.kind {
			case evSearch:
				pendingSearch = ev.text
				stop(searchTimer)
				searchTimer = time.NewTimer(s.windows.Search)
				searchC = searchTimer.C
			case evPrice:
				pendingPrice = ev.num
				stop(priceTimer)
				priceTimer = time.NewTimer(s.windows.Price)
				priceC = priceTimer.C
			case evZone:
				s.cfg.MacroZone = ev.text
				s.recompute("zone")
			case evAmenity:
				s.cfg.RequiredAmenities = toggle(s.cfg.RequiredAmenities, ev.text)
				s.recompute("amenity")
			}

		case <-searchC:
			searchTimer, searchC = nil, nil
			s.cfg.SearchText = pendingSearch
			s.recompute("search")

		case <-priceC:
			priceTimer, priceC = nil, nil
			s.cfg.MaxPrice = pendingPrice
			s.recompute("price")
		}
	}
}

func (s *Session) recompute(trigger string) {
	subset := s.store.Refilter(s.cfg)
	page := s.rend.Render(subset)
	observability.ObserveFilter(trigger, page.Count)
	if s.live != nil {
		s.live.Announce(page.Header)
	}
	s.publish(Update{
		Trigger:      trigger,
		Config:       s.cfg,
		Active:       s.cfg.Active(s.store.MaxRate()),
		Page:         page,
		Announcement: page.Header,
	})
}

// publish replaces any undelivered update so the subscriber always sees
// the newest state.
func (s *Session) publish(u Update) {
	for {
		select {
		case s.updates <- u:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

func toggle(set []string, tag string) []string {
	for i, t := range set {
		if t == tag {
			return append(set[:i:i], set[i+1:]...)
		}
	}
	return append(set, tag)
}
