package folio

import (
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/seo"
	"github.com/eringen/folio/store"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type staticPage struct {
	path       string
	changeFreq string
	priority   string
}

var sitemapPages = []staticPage{
	{"/", "monthly", "1.0"},
	{"/about/", "monthly", "0.8"},
	{"/projects/", "weekly", "0.9"},
	{"/blog/", "weekly", "0.9"},
	{"/privacy/", "yearly", "0.3"},
	{"/terms/", "yearly", "0.3"},
}

// fallbackPages is served when the database cannot be read.
var fallbackPages = []staticPage{
	{"/", "monthly", "1.0"},
	{"/about/", "monthly", "0.8"},
	{"/projects/", "weekly", "0.9"},
	{"/blog/", "weekly", "0.9"},
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func (a *App) sitemapURLs(ctx context.Context) ([]sitemapURL, error) {
	posts, err := a.Store.Posts.List(ctx, store.BlogPostFilter{Published: true, Limit: store.MaxLimit})
	if err != nil {
		return nil, err
	}
	// List caps at MaxLimit; page through the rest.
	all := posts.Data
	for p := posts; p.HasNext; {
		p, err = a.Store.Posts.List(ctx, store.BlogPostFilter{Published: true, Limit: store.MaxLimit, Offset: len(all)})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
	}
	projects, err := a.Store.Projects.All(ctx)
	if err != nil {
		return nil, err
	}

	today := lastMod(time.Now())
	urls := make([]sitemapURL, 0, len(sitemapPages)+len(all)+len(projects))
	for _, sp := range sitemapPages {
		urls = append(urls, sitemapURL{
			Loc:        seo.CanonicalURL(sp.path, a.Config.URL),
			LastMod:    today,
			ChangeFreq: sp.changeFreq,
			Priority:   sp.priority,
		})
	}
	for _, p := range all {
		urls = append(urls, sitemapURL{
			Loc:        seo.CanonicalURL(p.Link(), a.Config.URL),
			LastMod:    lastMod(p.LastModified()),
			ChangeFreq: "monthly",
			Priority:   "0.7",
		})
	}
	for _, p := range projects {
		urls = append(urls, sitemapURL{
			Loc:        seo.CanonicalURL(p.Link(), a.Config.URL),
			LastMod:    lastMod(p.LastModified()),
			ChangeFreq: "monthly",
			Priority:   "0.8",
		})
	}
	return urls, nil
}

func (a *App) handleSitemap(c echo.Context) error {
	urls, err := a.sitemapURLs(c.Request().Context())
	maxAge := "public, max-age=3600"
	if err != nil {
		a.logger.Error().Err(err).Msg("sitemap: falling back to static pages")
		maxAge = "public, max-age=300"
		urls = urls[:0]
		for _, sp := range fallbackPages {
			urls = append(urls, sitemapURL{
				Loc:        seo.CanonicalURL(sp.path, a.Config.URL),
				ChangeFreq: sp.changeFreq,
				Priority:   sp.priority,
			})
		}
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set("Cache-Control", maxAge)
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}

// robotsTxt allows everything but the admin and the API and points at the
// sitemap.
func (a *App) robotsTxt() string {
	return "User-agent: *\n" +
		"Allow: /\n" +
		"Disallow: /admin/\n" +
		"Disallow: /api/\n\n" +
		"Sitemap: " + a.Config.URL + "/sitemap.xml\n"
}
