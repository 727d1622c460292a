package views

import "time"

// Site holds site-wide settings every page needs.
type Site struct {
	Name        string         // SITE_NAME  (default "spacetraveling")
	URL         string         // SITE_URL   (default "http://localhost:3000")
	Description string         // SITE_DESCRIPTION
	Location    *time.Location // dates are shown in this zone (default UTC)
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image
	JSONLD      string
}
