package domain

// Lodging is one catalog entry. Immutable once loaded.
type Lodging struct {
	ID                string   `json:"id" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	Location          string   `json:"location"`
	MacroZone         string   `json:"macroZone"`
	Description       string   `json:"description"`
	NightlyRate       float64  `json:"nightlyRate" validate:"gte=0"`
	Rating            float64  `json:"rating" validate:"gte=0,lte=5"`
	Rooms             int      `json:"rooms" validate:"gte=0"`
	Amenities         []string `json:"amenities"`
	NearbyAttractions []string `json:"nearbyAttractions,omitempty"`
	Image             string   `json:"image,omitempty"`
}

// FilterConfig holds the active constraints for one browsing session.
// Empty text/zone and an empty amenity set mean "no constraint";
// MaxPrice is an inclusive upper bound.
type FilterConfig struct {
	SearchText        string   `json:"searchText"`
	MacroZone         string   `json:"macroZone"`
	MaxPrice          float64  `json:"maxPrice"`
	RequiredAmenities []string `json:"requiredAmenities"`
}

// DefaultFilter returns the session-start configuration: no text, no zone,
// the price ceiling wide open, no required amenities.
func DefaultFilter(priceCeiling float64) FilterConfig {
	return FilterConfig{MaxPrice: priceCeiling}
}

// Active reports whether any constraint narrows the catalog relative to
// the given ceiling.
func (c FilterConfig) Active(priceCeiling float64) bool {
	return c.SearchText != "" || c.MacroZone != "" ||
		c.MaxPrice < priceCeiling || len(c.RequiredAmenities) > 0
}

// FilterMeta describes the filter controls derivable from a loaded set:
// the zone choices, the amenity universe, and the rate range.
type FilterMeta struct {
	Zones     []string `json:"zones"`
	Amenities []string `json:"amenities"`
	MinRate   float64  `json:"minRate"`
	MaxRate   float64  `json:"maxRate"`
}
