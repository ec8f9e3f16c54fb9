package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"lodge_catalog/internal/domain"
)

// Store owns the full record set and the current filtered subset.
//
// The full set is written exactly once, at load completion, and is
// read-only afterwards. Filtering is a full linear scan of the set on
// every change; the expected catalog is small and no index is built,
// which is a documented scaling limit of this store.
type Store struct {
	mu       sync.RWMutex
	all      []domain.Lodging
	filtered []domain.Lodging
	cfg      domain.FilterConfig
	maxRate  float64
	loaded   bool

	validate *validator.Validate
	log      zerolog.Logger
}

func New(log zerolog.Logger) *Store {
	return &Store{validate: validator.New(), log: log}
}

// rawLodging accepts the legacy "region" field name as an alias for
// "macroZone".
type rawLodging struct {
	domain.Lodging
	Region string `json:"region"`
}

// Load fetches and decodes the catalog document. A transport or
// top-level parse failure is fatal (wrapped domain.ErrLoad); an
// individually malformed record is skipped with a warning so the rest of
// the set still renders. Duplicate ids keep the first record.
func (s *Store) Load(ctx context.Context, src domain.CatalogSource) error {
	doc, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(doc, &raws); err != nil {
		return fmt.Errorf("%w: decode document: %v", domain.ErrLoad, err)
	}

	seen := make(map[string]struct{}, len(raws))
	all := make([]domain.Lodging, 0, len(raws))
	maxRate := 0.0
	for i, rm := range raws {
		var r rawLodging
		if err := json.Unmarshal(rm, &r); err != nil {
			s.log.Warn().Int("index", i).Err(err).Msg("skipping malformed record")
			continue
		}
		l := r.Lodging
		if l.MacroZone == "" {
			l.MacroZone = r.Region
		}
		if err := s.validate.Struct(l); err != nil {
			s.log.Warn().Int("index", i).Str("id", l.ID).Err(err).Msg("skipping invalid record")
			continue
		}
		if _, dup := seen[l.ID]; dup {
			s.log.Warn().Str("id", l.ID).Msg("skipping duplicate record id")
			continue
		}
		seen[l.ID] = struct{}{}
		l.Amenities = dedupe(l.Amenities)
		if l.NightlyRate > maxRate {
			maxRate = l.NightlyRate
		}
		all = append(all, l)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return fmt.Errorf("%w: catalog already loaded", domain.ErrLoad)
	}
	s.all = all
	s.maxRate = maxRate
	s.cfg = domain.DefaultFilter(maxRate)
	s.filtered = append([]domain.Lodging(nil), all...)
	s.loaded = true
	s.log.Info().Int("records", len(all)).Int("skipped", len(raws)-len(all)).Msg("catalog loaded")
	return nil
}

// All returns a copy of the full record set, in document order.
func (s *Store) All() []domain.Lodging {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Lodging(nil), s.all...)
}

// Filtered returns a copy of the current filtered subset.
func (s *Store) Filtered() []domain.Lodging {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Lodging(nil), s.filtered...)
}

// Scan evaluates cfg against the full set without touching the stored
// subset. Order of the full set is preserved.
func (s *Store) Scan(cfg domain.FilterConfig) []domain.Lodging {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Lodging, 0, len(s.all))
	for _, l := range s.all {
		if Matches(l, cfg) {
			out = append(out, l)
		}
	}
	return out
}

// Refilter recomputes the owned subset from scratch against cfg and
// returns it.
func (s *Store) Refilter(cfg domain.FilterConfig) []domain.Lodging {
	sub := s.Scan(cfg)
	s.mu.Lock()
	s.cfg = cfg
	s.filtered = sub
	s.mu.Unlock()
	return append([]domain.Lodging(nil), sub...)
}

// Get looks a record up by id.
func (s *Store) Get(id string) (domain.Lodging, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.all {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Lodging{}, domain.ErrNotFound
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}

// MaxRate is the price ceiling observed at load; the default filter's
// MaxPrice starts here.
func (s *Store) MaxRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxRate
}

// Meta derives the filter-control metadata from the loaded set.
func (s *Store) Meta() domain.FilterMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zones := map[string]struct{}{}
	amen := map[string]struct{}{}
	minRate := 0.0
	for i, l := range s.all {
		if l.MacroZone != "" {
			zones[l.MacroZone] = struct{}{}
		}
		for _, a := range l.Amenities {
			amen[a] = struct{}{}
		}
		if i == 0 || l.NightlyRate < minRate {
			minRate = l.NightlyRate
		}
	}
	m := domain.FilterMeta{
		Zones:     sortedKeys(zones),
		Amenities: sortedKeys(amen),
		MinRate:   minRate,
		MaxRate:   s.maxRate,
	}
	return m
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// dedupe drops repeated tags, keeping first-occurrence order.
func dedupe(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0:0]
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
