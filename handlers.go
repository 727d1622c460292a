package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/comments"
	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/detail"
	"github.com/eringen/spacetraveling/listing"
)

// HeaderNextPage carries the cursor of the following page on load-more responses.
const HeaderNextPage = "X-Next-Page"

// feedSize is the number of posts listed in feed.xml.
const feedSize = 20

// cursorChecker is implemented by repositories that can tell whether a
// cursor was issued by them before following it.
type cursorChecker interface {
	CheckCursor(cursor string) error
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		first content.Response
		err   error
	)
	if ref := PreviewRef(c); ref != "" {
		first, err = listing.FirstPage(ctx, a.Repo, a.Config.PageSize, ref)
	} else {
		first, err = a.Cache.FirstPage(ctx)
	}
	if err != nil {
		return err
	}
	w := listing.NewWalker(a.Repo, first)
	return Render(c, a.Views.Home(a.Site, listing.PageOf(w)))
}

func (a *App) handleLoadMore(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if cursor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing cursor")
	}
	if checker, ok := a.Repo.(cursorChecker); ok {
		if err := checker.CheckCursor(cursor); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor").SetInternal(err)
		}
	}

	w := listing.ResumeWalker(a.Repo, cursor)
	if err := w.LoadNext(c.Request().Context()); err != nil {
		c.Logger().Warnf("load more: %v", err)
		return RenderStatus(c, http.StatusBadGateway, a.Views.LoadMoreFailed(cursor))
	}
	c.Response().Header().Set(HeaderNextPage, w.NextPage())
	return Render(c, a.Views.PostItems(a.Site, listing.PageOf(w)))
}

func (a *App) handlePost(c echo.Context) error {
	uid := c.Param("uid")
	ctx := c.Request().Context()

	var (
		d   detail.Detail
		err error
	)
	if ref := PreviewRef(c); ref != "" {
		d, err = a.Details.Load(ctx, uid, ref)
	} else {
		d, err = a.Cache.Post(ctx, uid)
	}
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Site))
		}
		return err
	}

	var widget templ.Component = templ.NopComponent
	if !d.Preview {
		widget = comments.Widget(a.Config.Comments)
	}
	return Render(c, a.Views.Post(a.Site, d, widget))
}

// handlePreview enters preview mode for the release in token and sends the
// visitor to the previewed document.
func (a *App) handlePreview(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing preview token")
	}
	target := "/"
	if id := c.QueryParam("documentId"); id != "" {
		q := content.Query{
			Predicates: []content.Predicate{content.At("document.id", id)},
			PageSize:   1,
			Ref:        token,
		}
		resp, err := a.Repo.Query(c.Request().Context(), q)
		if err != nil {
			return err
		}
		if len(resp.Results) > 0 && resp.Results[0].Type == content.DocumentType {
			target = resp.Results[0].Link()
		}
	}
	if err := setPreviewSession(c, token); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, target)
}

func (a *App) handleExitPreview(c echo.Context) error {
	if err := clearPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

func (a *App) handleSitemap(c echo.Context) error {
	uids, err := a.Cache.UIDs(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return writeSitemap(c.Response(), a.Config.URL, uids)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.Recent(c.Request().Context(), feedSize)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return writeRSS(c.Response(), a.Config, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, robotsTxt(a.Config.URL))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.Site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
