package folio

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/imageset"
	"github.com/eringen/folio/seo"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

// parseID reads the :id path parameter. Anything but a positive integer is
// a validation error.
func parseID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid id: "+raw, "id")
	}
	return id, nil
}

// queryInt reads an integer query parameter, returning def when it is
// missing or malformed.
func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}

// queryBool reads a tri-state boolean query parameter.
func queryBool(c echo.Context, name string) *bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &v
}

// pageOffset turns ?page= into an offset for limit, defaulting to page 1.
func pageOffset(c echo.Context, limit int) int {
	return (max(queryInt(c, "page", 1), 1) - 1) * limit
}

// listWindow reads ?limit= with ?offset= or ?page= for API lists.
func listWindow(c echo.Context) (limit, offset int) {
	limit = queryInt(c, "limit", store.DefaultLimit)
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	limit = min(limit, store.MaxLimit)
	if o := queryInt(c, "offset", -1); o >= 0 {
		return limit, o
	}
	return limit, pageOffset(c, limit)
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitList splits a comma-separated form field.
func splitList(s string) []string {
	return FilterEmpty(strings.Split(s, ","))
}

// splitLines splits a textarea into one entry per non-empty line.
func splitLines(s string) []string {
	return FilterEmpty(strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n"))
}

func (a *App) siteInfo() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		Twitter:     a.Config.Twitter,
	}
}

// seoConfig is the site-wide part of every page's meta tags.
func (a *App) seoConfig() seo.Config {
	return seo.Config{
		Description:   a.Config.Description,
		Author:        a.Config.Author,
		SiteURL:       a.Config.URL,
		SiteName:      a.Config.Name,
		TwitterHandle: a.Config.Twitter,
	}
}

// profile returns the editable site config row, cached.
func (a *App) profile(ctx context.Context) store.SiteConfig {
	if a.Store == nil || a.Cache == nil {
		return store.SiteConfig{}
	}
	p, err := Load(ctx, a.Cache, keySite, a.Store.Site.Get)
	if err != nil {
		log.Warn().Err(err).Msg("load site config")
	}
	return p
}

// page builds the common page data with default meta for title.
func (a *App) page(c echo.Context, title ...string) views.Page {
	cfg := a.seoConfig()
	if len(title) > 0 {
		cfg.Title = title[0]
	}
	path := c.Request().URL.Path
	cfg.Canonical = seo.CanonicalURL(path, a.Config.URL)
	return views.Page{
		Site:    a.siteInfo(),
		Profile: a.profile(c.Request().Context()),
		Meta:    seo.Generate(cfg),
		Path:    path,
		CSRF:    CsrfToken(c),
	}
}

// picture returns the responsive markup data for a local upload, or nil
// for empty and external images.
func (a *App) picture(src, alt string) *imageset.PictureConfig {
	if !strings.HasPrefix(src, "/uploads/") || a.Images == nil {
		return nil
	}
	p := imageset.Picture(src, alt, imageset.Options{
		Breakpoints: a.Images.Breakpoints,
		Formats:     a.Images.Formats,
	})
	return &p
}
