package httpserver_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	server "lodge_catalog/internal/adapters/http_server"
	"lodge_catalog/internal/announce"
	"lodge_catalog/internal/catalog"
	"lodge_catalog/internal/domain"
	"lodge_catalog/internal/engine"
	"lodge_catalog/internal/render"
)

type memSource struct{ doc []byte }

func (m memSource) Fetch(context.Context) ([]byte, error) { return m.doc, nil }

const doc = `[
  {"id":"a","name":"Cabaña Austral","location":"Coyhaique","macroZone":"South",
   "description":"river cabin near the Andes","nightlyRate":100,"rating":4.2,"rooms":2,
   "amenities":["wifi","spa"],"image":"https://img.example/a.jpg"},
  {"id":"b","name":"Hostal Andino","location":"La Serena","macroZone":"North",
   "description":"valley views","nightlyRate":300,"rating":4.8,"rooms":5,"amenities":["pool"]},
  {"id":"evil","name":"<script>alert(1)</script>","location":"Nowhere","macroZone":"Central",
   "description":"markup in every field <b>bold</b>","nightlyRate":500,"rating":3.0,"rooms":1,
   "amenities":["<img src=x>"]}
]`

type fakeCache struct {
	mu         sync.Mutex
	store      map[string][]byte
	gets, sets int
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, _ := json.Marshal(v)
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func newTestServer(t *testing.T, cache domain.Cache, loadErr error) *httptest.Server {
	t.Helper()
	store := catalog.New(zerolog.Nop())
	if loadErr == nil {
		if err := store.Load(context.Background(), memSource{doc: []byte(doc)}); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	h, err := server.NewHandlers(server.Handlers{
		Store:   store,
		Rend:    render.New(render.Options{ContactEmail: "stay@lodge.example", AmenityPreview: 4}),
		Live:    announce.New(time.Minute),
		Cache:   cache,
		TTL:     time.Minute,
		Windows: engine.Windows{Search: 30 * time.Millisecond, Price: 20 * time.Millisecond},
		LoadErr: loadErr,
	})
	if err != nil {
		t.Fatalf("handlers: %v", err)
	}
	srv := server.New()
	srv.MountHandlers(h)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, dst any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestListLodgings_PriceFilter(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var page render.Page
	resp := getJSON(t, ts.URL+"/v1/lodgings?max_price=300", &page)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if page.Count != 2 || page.Cards[0].ID != "a" || page.Cards[1].ID != "b" {
		t.Fatalf("page = %+v, want a,b in order", page)
	}
	if page.Header != "2 lodgings found" {
		t.Fatalf("header = %q", page.Header)
	}
}

func TestListLodgings_ETagShortCircuit(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp := getJSON(t, ts.URL+"/v1/lodgings", nil)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req, _ := http.NewRequest("GET", ts.URL+"/v1/lodgings", nil)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional GET: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", resp2.StatusCode)
	}
}

func TestListLodgings_CacheReadThrough(t *testing.T) {
	fc := &fakeCache{}
	ts := newTestServer(t, fc, nil)

	getJSON(t, ts.URL+"/v1/lodgings?zone=North", nil)
	getJSON(t, ts.URL+"/v1/lodgings?zone=North", nil)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.sets != 1 {
		t.Fatalf("sets = %d, want the first miss to populate once", fc.sets)
	}
	if fc.gets != 2 {
		t.Fatalf("gets = %d, want both requests to consult the cache", fc.gets)
	}
}

func TestGetLodging_Detail(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var dv domain.DetailView
	resp := getJSON(t, ts.URL+"/v1/lodgings/a", &dv)
	if resp.StatusCode != 200 || dv.Name != "Cabaña Austral" {
		t.Fatalf("detail = %d %+v", resp.StatusCode, dv)
	}
	if !strings.HasPrefix(dv.ContactURL, "mailto:stay@lodge.example?") {
		t.Fatalf("contact url = %q", dv.ContactURL)
	}

	resp = getJSON(t, ts.URL+"/v1/lodgings/zzz", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("problem content type = %q", ct)
	}
}

func readBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.String()
}

func TestPage_MountPointsPresent(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	status, body := readBody(t, ts.URL+"/")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	for _, id := range []string{
		`id="search-input"`, `id="zone-select"`, `id="price-range"`,
		`id="amenities-box"`, `id="result-count"`, `id="results-grid"`,
		`id="zone-shortcuts"`, `id="loading"`, `id="live-region"`,
	} {
		if !strings.Contains(body, id) {
			t.Fatalf("page missing mount point %s", id)
		}
	}
}

func TestPage_EscapesRecordMarkup(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	_, body := readBody(t, ts.URL+"/?search=markup")
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("record markup reached the page unescaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Fatalf("escaped record name not rendered")
	}
}

func TestPage_DetailOverlay(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	_, body := readBody(t, ts.URL+"/?detail=a")
	if !strings.Contains(body, `id="detail-overlay"`) || !strings.Contains(body, "overlay-close") {
		t.Fatalf("detail overlay with close control not rendered")
	}
	_, body = readBody(t, ts.URL+"/")
	if strings.Contains(body, `id="detail-overlay"`) {
		t.Fatalf("overlay rendered without a selection")
	}
}

func TestPage_EmptyState(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	_, body := readBody(t, ts.URL+"/?search=nothing-matches-this")
	if !strings.Contains(body, `id="empty-state"`) {
		t.Fatalf("empty state not shown for zero results")
	}
	if !strings.Contains(body, "No lodgings match your search") {
		t.Fatalf("zero-result header missing")
	}
}

func TestCardsFragment(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	status, body := readBody(t, ts.URL+"/fragments/cards?amenities=spa")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, `id="results-grid"`) || !strings.Contains(body, "Cabaña Austral") {
		t.Fatalf("fragment = %q", body)
	}
	if strings.Contains(body, "Hostal Andino") {
		t.Fatalf("fragment must honor the filter")
	}
}

func TestUnavailableState(t *testing.T) {
	ts := newTestServer(t, nil, errors.New("catalog: load failed: no such file"))

	status, body := readBody(t, ts.URL+"/")
	if status != http.StatusServiceUnavailable || !strings.Contains(body, "could not be loaded") {
		t.Fatalf("page = %d %q, want a visible unavailable message", status, body)
	}

	resp := getJSON(t, ts.URL+"/v1/lodgings", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("api status = %d, want 503", resp.StatusCode)
	}
}

// ---- live session flow ----

func readSSEUpdate(t *testing.T, br *bufio.Reader, deadline time.Duration) engine.Update {
	t.Helper()
	type result struct {
		u   engine.Update
		err error
	}
	ch := make(chan result, 1)
	go func() {
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				ch <- result{err: err}
				return
			}
			if strings.HasPrefix(line, "data: ") {
				var u engine.Update
				err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &u)
				ch <- result{u: u, err: err}
				return
			}
		}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("read SSE update: %v", r.err)
		}
		return r.u
	case <-time.After(deadline):
		t.Fatalf("no SSE update within %v", deadline)
		return engine.Update{}
	}
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	// create
	resp, err := http.Post(ts.URL+"/v1/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.ID == "" {
		t.Fatalf("create = %d %q", resp.StatusCode, created.ID)
	}

	// attach the stream
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/v1/sessions/"+created.ID+"/stream", nil)
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer stream.Body.Close()
	br := bufio.NewReader(stream.Body)

	u := readSSEUpdate(t, br, 2*time.Second)
	if u.Trigger != "init" || u.Page.Count != 3 {
		t.Fatalf("first update = %q/%d, want init/3", u.Trigger, u.Page.Count)
	}

	// push a discrete input
	body := strings.NewReader(`{"channel":"zone","value":"North"}`)
	resp, err = http.Post(ts.URL+"/v1/sessions/"+created.ID+"/input", "application/json", body)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("input status = %d", resp.StatusCode)
	}

	u = readSSEUpdate(t, br, 2*time.Second)
	if u.Trigger != "zone" || u.Page.Count != 1 || u.Page.Cards[0].ID != "b" {
		t.Fatalf("zone update = %q/%d", u.Trigger, u.Page.Count)
	}
	if u.Announcement != "1 lodging found" {
		t.Fatalf("announcement = %q", u.Announcement)
	}
}

func TestSessionInput_Validation(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	resp, _ := http.Post(ts.URL+"/v1/sessions/unknown/input", "application/json",
		strings.NewReader(`{"channel":"zone","value":"North"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", resp.StatusCode)
	}

	created := struct {
		ID string `json:"id"`
	}{}
	r, _ := http.Post(ts.URL+"/v1/sessions", "application/json", nil)
	_ = json.NewDecoder(r.Body).Decode(&created)
	r.Body.Close()

	resp, _ = http.Post(ts.URL+"/v1/sessions/"+created.ID+"/input", "application/json",
		strings.NewReader(`{"channel":"bogus","value":"x"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad channel status = %d", resp.StatusCode)
	}

	resp, _ = http.Post(ts.URL+"/v1/sessions/"+created.ID+"/input", "application/json",
		strings.NewReader(`{"channel":"price","value":"not-a-number"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad price status = %d", resp.StatusCode)
	}
}
