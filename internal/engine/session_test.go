package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lodge_catalog/internal/catalog"
	"lodge_catalog/internal/engine"
	"lodge_catalog/internal/render"
)

type memSource struct{ doc []byte }

func (m memSource) Fetch(context.Context) ([]byte, error) { return m.doc, nil }

const doc = `[
  {"id":"a","name":"Cabaña Austral","location":"Coyhaique","macroZone":"South",
   "description":"river cabin near the Andes","nightlyRate":100,"rating":4.2,"rooms":2,"amenities":["wifi","spa"]},
  {"id":"b","name":"Hostal Andino","location":"La Serena","macroZone":"North",
   "description":"valley views","nightlyRate":300,"rating":4.8,"rooms":5,"amenities":["pool"]},
  {"id":"c","name":"Lodge Cordillera","location":"Santiago","macroZone":"Central",
   "description":"city access","nightlyRate":500,"rating":3.9,"rooms":8,"amenities":["spa"]}
]`

func newSession(t *testing.T) *engine.Session {
	t.Helper()
	store := catalog.New(zerolog.Nop())
	if err := store.Load(context.Background(), memSource{doc: []byte(doc)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	s := engine.New(store, render.New(render.Options{}), nil,
		engine.Windows{Search: 40 * time.Millisecond, Price: 25 * time.Millisecond})
	t.Cleanup(s.Close)
	return s
}

func waitUpdate(t *testing.T, s *engine.Session, d time.Duration) engine.Update {
	t.Helper()
	select {
	case u := <-s.Updates():
		return u
	case <-time.After(d):
		t.Fatalf("no update within %v", d)
		return engine.Update{}
	}
}

func assertQuiet(t *testing.T, s *engine.Session, d time.Duration) {
	t.Helper()
	select {
	case u := <-s.Updates():
		t.Fatalf("unexpected update: trigger=%s", u.Trigger)
	case <-time.After(d):
	}
}

func TestSession_InitialRender(t *testing.T) {
	s := newSession(t)
	u := waitUpdate(t, s, time.Second)
	if u.Trigger != "init" || u.Page.Count != 3 {
		t.Fatalf("initial update = trigger %q count %d, want init/3", u.Trigger, u.Page.Count)
	}
	if u.Active {
		t.Fatalf("default configuration must not be active")
	}
}

func TestSession_DebounceCoalesces(t *testing.T) {
	s := newSession(t)
	waitUpdate(t, s, time.Second) // init

	s.SetSearchText("a")
	s.SetSearchText("an")
	s.SetSearchText("andes")

	u := waitUpdate(t, s, time.Second)
	if u.Trigger != "search" {
		t.Fatalf("trigger = %q, want search", u.Trigger)
	}
	if u.Config.SearchText != "andes" {
		t.Fatalf("config reflects %q, want the last value", u.Config.SearchText)
	}
	if u.Page.Count != 1 || u.Page.Cards[0].ID != "a" {
		t.Fatalf("page = %d cards, want the Andes record only", u.Page.Count)
	}

	// the three rapid events settle into exactly one recomputation
	assertQuiet(t, s, 150*time.Millisecond)
}

func TestSession_DiscreteChannelIsImmediate(t *testing.T) {
	s := newSession(t)
	waitUpdate(t, s, time.Second)

	start := time.Now()
	s.SetZone("North")
	u := waitUpdate(t, s, time.Second)
	if u.Trigger != "zone" || u.Page.Count != 1 || u.Page.Cards[0].ID != "b" {
		t.Fatalf("zone update = %q/%d", u.Trigger, u.Page.Count)
	}
	if !u.Active {
		t.Fatalf("a zone constraint must mark the configuration active")
	}
	if elapsed := time.Since(start); elapsed > 30*time.Millisecond {
		t.Fatalf("zone change must not debounce, took %v", elapsed)
	}
}

func TestSession_AmenityToggle(t *testing.T) {
	s := newSession(t)
	waitUpdate(t, s, time.Second)

	s.ToggleAmenity("spa")
	u := waitUpdate(t, s, time.Second)
	if u.Page.Count != 2 {
		t.Fatalf("spa filter count = %d, want 2", u.Page.Count)
	}

	s.ToggleAmenity("spa")
	u = waitUpdate(t, s, time.Second)
	if u.Page.Count != 3 {
		t.Fatalf("toggling off must restore the full set, got %d", u.Page.Count)
	}
}

func TestSession_SupersededTimerNeverFires(t *testing.T) {
	s := newSession(t)
	waitUpdate(t, s, time.Second)

	s.SetMaxPrice(100)
	time.Sleep(10 * time.Millisecond) // inside the 25ms price window
	s.SetMaxPrice(300)

	u := waitUpdate(t, s, time.Second)
	if u.Config.MaxPrice != 300 || u.Page.Count != 2 {
		t.Fatalf("update = max %v / %d results, want 300/2", u.Config.MaxPrice, u.Page.Count)
	}
	assertQuiet(t, s, 100*time.Millisecond)
}

func TestSession_LatestConfigWins(t *testing.T) {
	s := newSession(t)
	waitUpdate(t, s, time.Second)

	s.SetSearchText("andes") // debounced, still pending
	s.SetZone("South")       // immediate

	u := waitUpdate(t, s, time.Second)
	if u.Trigger != "zone" || u.Config.SearchText != "" {
		t.Fatalf("zone recompute must not see the unsettled search text: %+v", u.Config)
	}

	u = waitUpdate(t, s, time.Second)
	if u.Trigger != "search" || u.Config.SearchText != "andes" || u.Config.MacroZone != "South" {
		t.Fatalf("settled recompute must carry both constraints: %+v", u.Config)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := newSession(t)
	waitUpdate(t, s, time.Second)
	s.Close()
	s.Close()
	s.SetZone("North") // no panic after close
}
