package folio

import (
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/seo"
)

const feedItems = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

func (a *App) buildFeed(ctx context.Context) (rssXML, error) {
	posts, err := a.Store.Posts.Recent(ctx, feedItems)
	if err != nil {
		return rssXML{}, err
	}
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	var newest time.Time
	for _, p := range posts {
		pubDate := ""
		if p.PublishedAt != nil {
			pubDate = p.PublishedAt.UTC().Format(time.RFC1123Z)
			if p.PublishedAt.After(newest) {
				newest = *p.PublishedAt
			}
		}
		postURL := seo.CanonicalURL(p.Link(), base)
		desc := p.Excerpt
		if desc == "" {
			desc = seo.ExtractExcerpt(p.Content, 200)
		}
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: desc,
			PubDate:     pubDate,
			GUID:        postURL,
			Categories:  p.TagNames(),
		})
	}
	feed := rssXML{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: a.Config.Description,
			Language:    "en",
			AtomLink: atomLink{
				Href: base + "/feed.xml",
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
	if !newest.IsZero() {
		feed.Channel.LastBuildDate = newest.UTC().Format(time.RFC1123Z)
	}
	return feed, nil
}

func (a *App) handleFeed(c echo.Context) error {
	feed, err := Load(c.Request().Context(), a.Cache, keyFeed, a.buildFeed)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
