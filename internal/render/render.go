package render

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"lodge_catalog/internal/domain"
)

const (
	defaultAmenityPreview = 4
	defaultDescLimit      = 180
	placeholderSrc        = "/static/placeholder.svg"
)

// Options configure one Renderer. Zero values pick sane defaults.
type Options struct {
	ContactEmail   string
	AmenityPreview int // max tags on a card before "+N more"
	DescLimit      int // card description rune cap
}

// Renderer projects filtered records into display units. Render is a
// pure projection: calling it twice with the same subset yields
// identical descriptors (idempotent full replace, no diffing).
//
// Descriptor fields are plain text; the HTML layer is responsible for
// contextual escaping, so no markup is ever assembled here.
type Renderer struct {
	p       *message.Printer
	contact string
	preview int
	limit   int
}

func New(opts Options) *Renderer {
	if opts.AmenityPreview <= 0 {
		opts.AmenityPreview = defaultAmenityPreview
	}
	if opts.DescLimit <= 0 {
		opts.DescLimit = defaultDescLimit
	}
	return &Renderer{
		p:       message.NewPrinter(language.English),
		contact: opts.ContactEmail,
		preview: opts.AmenityPreview,
		limit:   opts.DescLimit,
	}
}

// Page is one full projection of a filtered subset.
type Page struct {
	Header string            `json:"header"`
	Count  int               `json:"count"`
	Empty  bool              `json:"empty"`
	Cards  []domain.CardView `json:"cards"`
}

// Render replaces the whole card list from subset. Order is preserved.
func (r *Renderer) Render(subset []domain.Lodging) Page {
	cards := make([]domain.CardView, 0, len(subset))
	for _, l := range subset {
		cards = append(cards, r.Card(l))
	}
	return Page{
		Header: r.Header(len(subset)),
		Count:  len(subset),
		Empty:  len(subset) == 0,
		Cards:  cards,
	}
}

// Header phrases the result count: empty state at zero, singular at one,
// plural with the literal count otherwise.
func (r *Renderer) Header(count int) string {
	switch count {
	case 0:
		return "No lodgings match your search"
	case 1:
		return "1 lodging found"
	default:
		return r.p.Sprintf("%v lodgings found", number.Decimal(count))
	}
}

func (r *Renderer) Card(l domain.Lodging) domain.CardView {
	preview := l.Amenities
	more := 0
	if len(preview) > r.preview {
		more = len(preview) - r.preview
		preview = preview[:r.preview]
	}
	return domain.CardView{
		ID:            l.ID,
		Name:          l.Name,
		Location:      l.Location,
		MacroZone:     l.MacroZone,
		Description:   truncate(l.Description, r.limit),
		Rating:        l.Rating,
		PriceLabel:    r.PriceLabel(l.NightlyRate),
		Amenities:     append([]string(nil), preview...),
		MoreAmenities: more,
		Image:         imageRef(l),
		ContactURL:    r.MailtoURL(l),
	}
}

func (r *Renderer) Detail(l domain.Lodging) domain.DetailView {
	return domain.DetailView{
		ID:                l.ID,
		Name:              l.Name,
		Location:          l.Location,
		MacroZone:         l.MacroZone,
		Description:       l.Description,
		Rating:            l.Rating,
		Rooms:             l.Rooms,
		PriceLabel:        r.PriceLabel(l.NightlyRate),
		Amenities:         append([]string(nil), l.Amenities...),
		NearbyAttractions: append([]string(nil), l.NearbyAttractions...),
		Image:             imageRef(l),
		ContactURL:        r.MailtoURL(l),
	}
}

// PriceLabel formats a nightly rate with thousands separators.
func (r *Renderer) PriceLabel(rate float64) string {
	return r.p.Sprintf("$%v / night", number.Decimal(rate))
}

// MailtoURL composes the card's call to action: a mail deep link naming
// the record. No network request is ever made here.
func (r *Renderer) MailtoURL(l domain.Lodging) string {
	if r.contact == "" {
		return ""
	}
	q := url.Values{}
	q.Set("subject", "Booking inquiry: "+l.Name)
	q.Set("body", "Hello,\n\nI would like to ask about availability at "+l.Name+" ("+l.Location+").\n")
	// mailto bodies expect %20, not '+', for spaces
	return "mailto:" + r.contact + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

func imageRef(l domain.Lodging) domain.ImageRef {
	ref := domain.ImageRef{
		Placeholder: placeholderSrc,
		Alt:         "Photo of " + l.Name,
	}
	if l.Image == "" {
		ref.State = domain.ImageMissing
		ref.Alt = "No photo available for " + l.Name
		return ref
	}
	ref.Src = l.Image
	ref.State = domain.ImagePending
	return ref
}

// truncate cuts s at limit runes on a space where possible, appending an
// ellipsis when anything was dropped.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
