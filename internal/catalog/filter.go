package catalog

import (
	"strings"

	"lodge_catalog/internal/domain"
)

// Matches reports whether l passes every active constraint in cfg. Pure
// and total: absent optional fields count as empty, never as failures.
//
// Constraint families compose with AND; within the amenity family the
// record's set must be a superset of the required set. Text search is a
// case-insensitive substring match over name, location, zone,
// description, and nearby attractions.
func Matches(l domain.Lodging, cfg domain.FilterConfig) bool {
	if q := strings.ToLower(strings.TrimSpace(cfg.SearchText)); q != "" {
		if !strings.Contains(haystack(l), q) {
			return false
		}
	}
	if cfg.MacroZone != "" && l.MacroZone != cfg.MacroZone {
		return false
	}
	if l.NightlyRate > cfg.MaxPrice {
		return false
	}
	for _, want := range cfg.RequiredAmenities {
		if !hasAmenity(l.Amenities, want) {
			return false
		}
	}
	return true
}

func haystack(l domain.Lodging) string {
	parts := []string{l.Name, l.Location, l.MacroZone, l.Description}
	parts = append(parts, l.NearbyAttractions...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func hasAmenity(have []string, want string) bool {
	for _, a := range have {
		if a == want {
			return true
		}
	}
	return false
}
