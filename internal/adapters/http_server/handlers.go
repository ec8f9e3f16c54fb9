package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	redisad "lodge_catalog/internal/adapters/redis"
	"lodge_catalog/internal/announce"
	"lodge_catalog/internal/catalog"
	"lodge_catalog/internal/domain"
	"lodge_catalog/internal/engine"
	"lodge_catalog/internal/render"
)

type Handlers struct {
	Store   *catalog.Store
	Rend    *render.Renderer
	Live    *announce.LiveRegion
	Cache   domain.Cache
	TTL     time.Duration
	Windows engine.Windows

	// LoadErr switches every catalog route to a visible unavailable
	// state instead of a blank page.
	LoadErr error

	tpl      *template.Template
	sessions *sessionRegistry
}

// NewHandlers parses the page templates up front; a missing render
// target fails here, before any route is mounted.
func NewHandlers(h Handlers) (*Handlers, error) {
	tpl, err := newTemplates()
	if err != nil {
		return nil, err
	}
	h.tpl = tpl
	h.sessions = newSessionRegistry(5 * time.Minute)
	return &h, nil
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(15 * time.Second))
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
		r.Get("/", h.page)
		r.Get("/fragments/cards", h.cardsFragment)
		r.Get("/fragments/detail/{id}", h.detailFragment)
		r.Get("/v1/lodgings", h.listLodgings)
		r.Get("/v1/lodgings/{id}", h.getLodging)
		r.Get("/v1/meta", h.getMeta)
		r.Post("/v1/sessions", h.createSession)
		r.Post("/v1/sessions/{id}/input", h.sessionInput)
		r.Delete("/v1/sessions/{id}", h.deleteSession)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	})
	// the event stream outlives the request timeout
	s.mux.Get("/v1/sessions/{id}/stream", h.sessionStream)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// unavailable reports the load failure as plain text instead of a blank
// screen. Returns true when the request was handled.
func (h *Handlers) unavailable(w http.ResponseWriter, r *http.Request) bool {
	if h.LoadErr == nil {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/v1/") {
		writeProblem(w, http.StatusServiceUnavailable, "Catalog Unavailable", h.LoadErr.Error())
		return true
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("The lodging catalog could not be loaded. Please try again later.\n"))
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// filterFromQuery builds a configuration from the request. Unparseable
// numbers fall back to the wide-open default rather than erroring: the
// filter form is a browsing surface, not an API contract.
func (h *Handlers) filterFromQuery(q url.Values) domain.FilterConfig {
	cfg := domain.DefaultFilter(h.Store.MaxRate())
	cfg.SearchText = q.Get("search")
	cfg.MacroZone = q.Get("zone")
	if v := q.Get("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.MaxPrice = f
		}
	}
	for _, v := range q["amenities"] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				cfg.RequiredAmenities = append(cfg.RequiredAmenities, tag)
			}
		}
	}
	return cfg
}

// renderPage scans and renders for cfg, with a cache in front when one
// is configured.
func (h *Handlers) renderPage(r *http.Request, cfg domain.FilterConfig) render.Page {
	key := redisad.ResultKey(cfg)
	if h.Cache != nil {
		var cached render.Page
		if ok, _ := h.Cache.Get(r.Context(), key, &cached); ok {
			return cached
		}
	}
	page := h.Rend.Render(h.Store.Scan(cfg))
	if h.Cache != nil {
		_ = h.Cache.Set(r.Context(), key, page, int(h.TTL.Seconds()))
	}
	return page
}

// ---- HTML surface ----

type pageData struct {
	Meta       domain.FilterMeta
	Cfg        domain.FilterConfig
	Page       render.Page
	Live       []string
	Detail     *domain.DetailView
	PriceLabel string
}

func (d pageData) HasAmenity(tag string) bool {
	for _, t := range d.Cfg.RequiredAmenities {
		if t == tag {
			return true
		}
	}
	return false
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	cfg := h.filterFromQuery(r.URL.Query())
	data := pageData{
		Meta:       h.Store.Meta(),
		Cfg:        cfg,
		Page:       h.renderPage(r, cfg),
		PriceLabel: h.Rend.PriceLabel(cfg.MaxPrice),
	}
	if h.Live != nil {
		data.Live = h.Live.Messages()
	}
	if id := r.URL.Query().Get("detail"); id != "" {
		if l, err := h.Store.Get(id); err == nil {
			dv := h.Rend.Detail(l)
			data.Detail = &dv
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tpl.ExecuteTemplate(w, "page", data); err != nil {
		log.Error().Err(err).Msg("render page failed")
	}
}

func (h *Handlers) cardsFragment(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	page := h.renderPage(r, h.filterFromQuery(r.URL.Query()))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tpl.ExecuteTemplate(w, "cards", page); err != nil {
		log.Error().Err(err).Msg("render cards fragment failed")
	}
}

func (h *Handlers) detailFragment(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	l, err := h.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "lodging not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tpl.ExecuteTemplate(w, "detail", h.Rend.Detail(l)); err != nil {
		log.Error().Err(err).Msg("render detail fragment failed")
	}
}

// ---- JSON surface ----

func (h *Handlers) listLodgings(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	page := h.renderPage(r, h.filterFromQuery(r.URL.Query()))

	etag, body := calcETagAndBody(page)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listLodgings body")
	}
}

func (h *Handlers) getLodging(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	l, err := h.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "lodging not found")
		return
	}
	resp := h.Rend.Detail(l)

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getLodging body")
	}
}

func (h *Handlers) getMeta(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Store.Meta()); err != nil {
		log.Error().Err(err).Msg("failed to write meta body")
	}
}
