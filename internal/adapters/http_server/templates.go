package httpserver

import (
	"errors"
	"fmt"
	"html/template"
)

// ErrMountMissing is the fatal startup condition for a missing render
// target: the page cannot be served without its named mount points.
var ErrMountMissing = errors.New("render target missing")

// requiredTemplates are the named render targets the page feature needs.
var requiredTemplates = []string{"page", "cards", "card", "detail"}

// newTemplates parses the page markup and verifies every mount point is
// present. All record text flows through html/template's contextual
// escaping; no field is ever spliced into markup by hand.
func newTemplates() (*template.Template, error) {
	t, err := template.New("lodge").Parse(pageMarkup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMountMissing, err)
	}
	for _, name := range requiredTemplates {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("%w: template %q", ErrMountMissing, name)
		}
	}
	return t, nil
}

const pageMarkup = `
{{define "page"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Lodge Catalog</title>
<link rel="stylesheet" href="/static/app.css">
</head>
<body>
<header class="site-header">
  <h1>Lodge Catalog</h1>
</header>

<form id="filters" method="get" action="/">
  <input id="search-input" type="search" name="search" value="{{.Cfg.SearchText}}"
         placeholder="Search lodgings" aria-label="Search lodgings">
  <select id="zone-select" name="zone" aria-label="Zone">
    <option value="">All zones</option>
    {{range .Meta.Zones}}<option value="{{.}}" {{if eq . $.Cfg.MacroZone}}selected{{end}}>{{.}}</option>{{end}}
  </select>
  <label id="price-label" for="price-range">Max price: {{.PriceLabel}}</label>
  <input id="price-range" type="range" name="max_price" min="{{.Meta.MinRate}}" max="{{.Meta.MaxRate}}"
         value="{{.Cfg.MaxPrice}}" step="10">
  <fieldset id="amenities-box">
    <legend>Amenities</legend>
    {{range .Meta.Amenities}}
    <label><input type="checkbox" name="amenities" value="{{.}}" {{if $.HasAmenity .}}checked{{end}}> {{.}}</label>
    {{end}}
  </fieldset>
  <button type="submit">Apply</button>
</form>

<nav id="zone-shortcuts" aria-label="Popular zones">
  {{range .Meta.Zones}}<a class="zone-chip" href="/?zone={{.}}">{{.}}</a>{{end}}
</nav>

<p id="result-count" role="status">{{.Page.Header}}</p>
<div id="live-region" aria-live="polite" class="visually-hidden">
  {{range .Live}}<span>{{.}}</span>{{end}}
</div>

<div id="loading" class="loading" hidden>Loading…</div>

{{if .Page.Empty}}
<div id="empty-state" class="empty-state">
  <p>No lodgings match the current filters. Try widening your search.</p>
</div>
{{else}}
{{template "cards" .Page}}
{{end}}

{{if .Detail}}
<div id="detail-overlay" class="overlay" role="dialog" aria-modal="true" aria-label="{{.Detail.Name}}">
  {{template "detail" .Detail}}
</div>
{{end}}
</body>
</html>{{end}}

{{define "cards"}}<div id="results-grid" class="grid">
{{range .Cards}}{{template "card" .}}{{end}}
</div>{{end}}

{{define "card"}}<article class="card" data-id="{{.ID}}">
  <img class="card-img {{.Image.State}}" src="{{.Image.Placeholder}}"
       {{if .Image.Src}}data-src="{{.Image.Src}}"{{end}} alt="{{.Image.Alt}}" loading="lazy">
  <h2 class="card-name">{{.Name}}</h2>
  <p class="card-location">{{.Location}}{{if .MacroZone}} · {{.MacroZone}}{{end}}</p>
  <p class="card-desc">{{.Description}}</p>
  <ul class="card-amenities">
    {{range .Amenities}}<li>{{.}}</li>{{end}}
    {{if gt .MoreAmenities 0}}<li class="more">+{{.MoreAmenities}} more</li>{{end}}
  </ul>
  <p class="card-price">{{.PriceLabel}}</p>
  <a class="card-detail" role="button" href="/?detail={{.ID}}">Details</a>
  {{if .ContactURL}}<a class="card-cta" role="button" href="{{.ContactURL}}">Contact</a>{{end}}
</article>{{end}}

{{define "detail"}}<div class="detail">
  <a class="overlay-close" role="button" href="/" aria-label="Close">×</a>
  <img class="detail-img" src="{{.Image.Placeholder}}" {{if .Image.Src}}data-src="{{.Image.Src}}"{{end}} alt="{{.Image.Alt}}">
  <h2>{{.Name}}</h2>
  <p>{{.Location}}{{if .MacroZone}} · {{.MacroZone}}{{end}}</p>
  <p>{{.Description}}</p>
  <p>Rating {{.Rating}} · {{.Rooms}} rooms · {{.PriceLabel}}</p>
  <ul>{{range .Amenities}}<li>{{.}}</li>{{end}}</ul>
  {{if .NearbyAttractions}}
  <h3>Nearby</h3>
  <ul>{{range .NearbyAttractions}}<li>{{.}}</li>{{end}}</ul>
  {{end}}
  {{if .ContactURL}}<a role="button" href="{{.ContactURL}}">Contact</a>{{end}}
</div>{{end}}
`
