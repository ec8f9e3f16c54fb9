package httpserver

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"lodge_catalog/internal/engine"
)

// sessionRegistry tracks live browsing sessions. A session that sees no
// input or stream activity within idle is closed by the janitor.
type sessionRegistry struct {
	mu   sync.Mutex
	m    map[string]*liveSession
	idle time.Duration
}

type liveSession struct {
	eng      *engine.Session
	lastSeen time.Time
}

func newSessionRegistry(idle time.Duration) *sessionRegistry {
	r := &sessionRegistry{m: map[string]*liveSession{}, idle: idle}
	go r.janitor()
	return r
}

func (r *sessionRegistry) put(eng *engine.Session) string {
	id := newSessionID()
	r.mu.Lock()
	r.m[id] = &liveSession{eng: eng, lastSeen: time.Now()}
	r.mu.Unlock()
	return id
}

func (r *sessionRegistry) get(id string) (*engine.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.m[id]
	if !ok {
		return nil, false
	}
	ls.lastSeen = time.Now()
	return ls.eng, true
}

func (r *sessionRegistry) drop(id string) {
	r.mu.Lock()
	ls, ok := r.m[id]
	delete(r.m, id)
	r.mu.Unlock()
	if ok {
		ls.eng.Close()
	}
}

func (r *sessionRegistry) janitor() {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for range t.C {
		cutoff := time.Now().Add(-r.idle)
		r.mu.Lock()
		var stale []*liveSession
		for id, ls := range r.m {
			if ls.lastSeen.Before(cutoff) {
				stale = append(stale, ls)
				delete(r.m, id)
			}
		}
		r.mu.Unlock()
		for _, ls := range stale {
			ls.eng.Close()
		}
	}
}

func newSessionID() string {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b[:])
}

// ---- handlers ----

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	eng := engine.New(h.Store, h.Rend, h.Live, h.Windows)
	id := h.sessions.put(eng)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

type sessionInputBody struct {
	Channel string `json:"channel"` // search|price|zone|amenity
	Value   string `json:"value"`
}

func (h *Handlers) sessionInput(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	eng, ok := h.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown session")
		return
	}
	var body sessionInputBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected {channel, value}")
		return
	}
	switch body.Channel {
	case "search":
		eng.SetSearchText(body.Value)
	case "price":
		f, err := strconv.ParseFloat(body.Value, 64)
		if err != nil || f < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid Value", "price must be a non-negative number")
			return
		}
		eng.SetMaxPrice(f)
	case "zone":
		eng.SetZone(body.Value)
	case "amenity":
		eng.ToggleAmenity(body.Value)
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid Channel", "channel must be search, price, zone, or amenity")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.drop(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// sessionStream pushes completed recomputations as server-sent events.
// One consumer per session; the client reconnects with the same id.
func (h *Handlers) sessionStream(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	eng, ok := h.sessions.get(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown session")
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming Unsupported", "response writer cannot flush")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			fl.Flush()
			h.sessions.get(id) // refresh lastSeen while the stream is open
		case u := <-eng.Updates():
			b, err := json.Marshal(u)
			if err != nil {
				log.Error().Err(err).Msg("marshal session update failed")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: update\ndata: %s\n\n", b); err != nil {
				return
			}
			fl.Flush()
		}
	}
}
