// Package spacetraveling is a blog front-end over a headless content API,
// built with Go, Echo, and templ. It renders a paginated listing, post pages
// with reading time and chronological neighbours, a preview mode, and an
// utterances comment widget. The same pages can be exported as static HTML.
//
// Content is read through a content.Repository supplied by the caller, so the
// app runs against the Prismic API or against a local SQLite store alike.
package spacetraveling

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/detail"
	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/views"
)

// ViewFuncs holds the page components the handlers render. DefaultViews
// returns the built-in set; WithViews swaps in custom ones.
type ViewFuncs struct {
	Home           func(site views.Site, page listing.Page) templ.Component
	PostItems      func(site views.Site, page listing.Page) templ.Component
	LoadMoreFailed func(cursor string) templ.Component
	Post           func(site views.Site, d detail.Detail, comments templ.Component) templ.Component
	NotFound       func(site views.Site) templ.Component
	ServerError    func(site views.Site) templ.Component
}

// DefaultViews returns the components of the views package.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           views.Home,
		PostItems:      views.PostItems,
		LoadMoreFailed: views.LoadMoreFailed,
		Post:           views.Post,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
	}
}

// App is the central application. It wires together the content repository,
// cache, handlers, middleware, and page components.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Repo    content.Repository
	Cache   *ContentCache
	Details *detail.Assembler
	Views   ViewFuncs
	Site    views.Site

	loadMoreLimiter *VisitorLimiter
	customRoutes    []func(*App)
	staticDir       string
}

// New creates an App reading content from repo. Middleware and routes are
// registered immediately, so a.Echo can serve requests in tests without Start.
func New(cfg SiteConfig, repo content.Repository, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Repo:      repo,
		Views:     DefaultViews(),
		staticDir: "public",
		Site: views.Site{
			Name:        cfg.Name,
			URL:         cfg.URL,
			Description: cfg.Description,
			Location:    cfg.location(),
		},
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	a.Details = detail.NewAssembler(repo)
	a.Cache = NewContentCache(repo, a.Details, CacheConfig{
		PageSize:   cfg.PageSize,
		ListingTTL: cfg.ListingRevalidate,
		PostTTL:    cfg.PostRevalidate,
	})
	a.loadMoreLimiter = NewVisitorLimiter(cfg.LoadMoreRate, cfg.LoadMoreBurst)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a
}

// Start validates the configuration and serves HTTP until the server is closed.
func (a *App) Start() error {
	if a.Repo == nil {
		return errors.New("spacetraveling: content repository is required")
	}
	if a.Config.SessionSecret == "" {
		return errors.New("spacetraveling: SessionSecret is required")
	}
	if a.Config.Comments.Enabled() {
		if err := a.Config.Comments.Validate(); err != nil {
			return fmt.Errorf("spacetraveling: comments: %w", err)
		}
	}

	a.Echo.Logger.Infof("serving %s on %s", a.Config.Name, a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are served under /public/ ahead of the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	for _, name := range embeddedAssetNames {
		e.GET("/public/"+name, echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	}

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.GET("/post/:uid", a.handlePost)

	api := e.Group("/api")
	api.GET("/posts", a.handleLoadMore, a.loadMoreLimiter.Middleware())
	api.GET("/preview", a.handlePreview)
	api.GET("/exit-preview", a.handleExitPreview)
}

// Close releases background resources. The repository is owned by the caller.
func (a *App) Close() error {
	a.loadMoreLimiter.Stop()
	return a.Echo.Close()
}
