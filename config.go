package spacetraveling

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/eringen/spacetraveling/comments"
	"github.com/eringen/spacetraveling/listing"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string // Site name (default "spacetraveling")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Timezone    string // IANA zone used to display dates (default "America/Sao_Paulo")

	Addr string // Listen address (default ":3000")

	PageSize          int           // Posts on the first listing page (default 2)
	ListingRevalidate time.Duration // Listing cache TTL (default 60s)
	PostRevalidate    time.Duration // Post page cache TTL (default 1h)

	Comments comments.Config // utterances widget; disabled when Repo is empty

	SessionSecret string // Required: preview session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	LoadMoreRate  rate.Limit // Load-more requests per second per IP (default 2)
	LoadMoreBurst int        // Load-more burst per IP (default 5)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.PageSize <= 0 {
		c.PageSize = listing.DefaultPageSize
	}
	if c.ListingRevalidate == 0 {
		c.ListingRevalidate = time.Minute
	}
	if c.PostRevalidate == 0 {
		c.PostRevalidate = time.Hour
	}
	if c.LoadMoreRate == 0 {
		c.LoadMoreRate = 2
	}
	if c.LoadMoreBurst <= 0 {
		c.LoadMoreBurst = 5
	}
}

// location resolves Timezone, falling back to UTC when the zone database
// does not know it.
func (c SiteConfig) location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithViews replaces the default page components.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}
