package domain

// Image load states carried on a card.
const (
	ImagePending  = "pending"  // placeholder shown, real source not fetched
	ImageLoaded   = "loaded"   // real source active
	ImageDegraded = "degraded" // real source failed, placeholder retained
	ImageMissing  = "missing"  // record had no image at all
)

// ImageRef is the lazy-load pair for one card: the placeholder that is
// always safe to show and the real source swapped in near the viewport.
type ImageRef struct {
	Placeholder string `json:"placeholder"`
	Src         string `json:"src,omitempty"`
	State       string `json:"state"`
	Alt         string `json:"alt"`
}

// CardView is the display unit for one lodging in the results grid.
type CardView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	MacroZone     string   `json:"macroZone"`
	Description   string   `json:"description"`
	Rating        float64  `json:"rating"`
	PriceLabel    string   `json:"priceLabel"`
	Amenities     []string `json:"amenities"`
	MoreAmenities int      `json:"moreAmenities"`
	Image         ImageRef `json:"image"`
	ContactURL    string   `json:"contactUrl"`
}

// DetailView backs the overlay opened from a card.
type DetailView struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Location          string   `json:"location"`
	MacroZone         string   `json:"macroZone"`
	Description       string   `json:"description"`
	Rating            float64  `json:"rating"`
	Rooms             int      `json:"rooms"`
	PriceLabel        string   `json:"priceLabel"`
	Amenities         []string `json:"amenities"`
	NearbyAttractions []string `json:"nearbyAttractions,omitempty"`
	Image             ImageRef `json:"image"`
	ContactURL        string   `json:"contactUrl"`
}
