// Package seo builds page meta tags, JSON-LD structured data and content
// reports for search engines.
package seo

import (
	"html"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/folio/store"
)

// Page types.
const (
	TypeWebsite = "website"
	TypeArticle = "article"
	TypeProfile = "profile"
)

// Length limits used by TruncateDescription, SEOTitle and Validate.
const (
	TitleMin       = 30
	TitleMax       = 60
	DescriptionMin = 120
	DescriptionMax = 160
	KeywordsMax    = 10
)

// DefaultSiteName is used when Config.SiteName is empty.
var DefaultSiteName = "Portfolio"

// Config describes one page.
type Config struct {
	Title         string
	Description   string
	Keywords      []string
	Author        string
	SiteURL       string
	Image         string
	ImageAlt      string
	Type          string
	Locale        string
	SiteName      string
	TwitterHandle string
	PublishedTime time.Time
	ModifiedTime  time.Time
	Canonical     string
}

// Tag is one meta entry. Name is "title", "canonical", a plain meta name or
// an og:/twitter:/article: property.
type Tag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Meta is an ordered list of tags.
type Meta []Tag

// Get returns the content of the first tag called name.
func (m Meta) Get(name string) string {
	for _, t := range m {
		if t.Name == name {
			return t.Content
		}
	}
	return ""
}

func (m *Meta) add(name, content string) {
	if content != "" {
		*m = append(*m, Tag{Name: name, Content: content})
	}
}

// HTML renders the tags for a document head.
func (m Meta) HTML() string {
	var b strings.Builder
	for i, t := range m {
		if i > 0 {
			b.WriteByte('\n')
		}
		v := html.EscapeString(t.Content)
		switch {
		case t.Name == "title":
			b.WriteString("<title>" + v + "</title>")
		case t.Name == "canonical":
			b.WriteString(`<link rel="canonical" href="` + v + `">`)
		case strings.HasPrefix(t.Name, "og:"), strings.HasPrefix(t.Name, "twitter:"), strings.HasPrefix(t.Name, "article:"):
			b.WriteString(`<meta property="` + t.Name + `" content="` + v + `">`)
		default:
			b.WriteString(`<meta name="` + t.Name + `" content="` + v + `">`)
		}
	}
	return b.String()
}

// Component wraps HTML for use in a templ head.
func (m Meta) Component() templ.Component {
	return templ.Raw(m.HTML())
}

// Generate builds the full tag list for cfg.
func Generate(cfg Config) Meta {
	if cfg.Type == "" {
		cfg.Type = TypeWebsite
	}
	if cfg.Locale == "" {
		cfg.Locale = "en_US"
	}
	if cfg.SiteName == "" {
		cfg.SiteName = DefaultSiteName
	}
	description := TruncateDescription(cfg.Description, DescriptionMax)
	canonical := cfg.Canonical
	if canonical == "" {
		canonical = cfg.SiteURL
	}

	var m Meta
	m.add("title", FormatTitle(cfg.Title, cfg.SiteName))
	m.add("description", description)
	m.add("keywords", strings.Join(cfg.Keywords, ", "))
	m.add("author", cfg.Author)
	m.add("canonical", canonical)

	m.add("og:type", cfg.Type)
	m.add("og:title", cfg.Title)
	m.add("og:description", description)
	m.add("og:site_name", cfg.SiteName)
	m.add("og:locale", cfg.Locale)

	m.add("twitter:card", "summary_large_image")
	m.add("twitter:title", cfg.Title)
	m.add("twitter:description", description)

	m.add("og:url", canonical)
	m.add("twitter:url", canonical)

	if cfg.Image != "" {
		img := ResolveImageURL(cfg.Image, cfg.SiteURL)
		m.add("og:image", img)
		m.add("twitter:image", img)
		m.add("og:image:alt", cfg.ImageAlt)
		m.add("twitter:image:alt", cfg.ImageAlt)
	}

	if h := strings.TrimSpace(cfg.TwitterHandle); h != "" {
		if !strings.HasPrefix(h, "@") {
			h = "@" + h
		}
		m.add("twitter:creator", h)
		m.add("twitter:site", h)
	}

	if cfg.Type == TypeArticle {
		if !cfg.PublishedTime.IsZero() {
			m.add("article:published_time", cfg.PublishedTime.UTC().Format(time.RFC3339))
		}
		if !cfg.ModifiedTime.IsZero() {
			m.add("article:modified_time", cfg.ModifiedTime.UTC().Format(time.RFC3339))
		}
		m.add("article:author", cfg.Author)
	}
	return m
}

// ForBlogPost builds article tags for post. site carries the site-wide
// fields (SiteURL, SiteName, Author, TwitterHandle).
func ForBlogPost(post store.BlogPost, site Config) Meta {
	cfg := site
	cfg.Title = post.Title
	cfg.Description = post.Excerpt
	if cfg.Description == "" {
		cfg.Description = ExtractExcerpt(post.Content, DescriptionMax)
	}
	cfg.Type = TypeArticle
	cfg.Keywords = post.TagNames()
	cfg.Image = post.FeaturedImage
	cfg.ImageAlt = post.Title
	if post.PublishedAt != nil {
		cfg.PublishedTime = *post.PublishedAt
	}
	cfg.ModifiedTime = post.UpdatedAt
	if site.SiteURL != "" {
		cfg.Canonical = CanonicalURL(post.Link(), site.SiteURL)
	}
	return Generate(cfg)
}

// ForProject builds tags for a project page; the technologies become the
// keywords.
func ForProject(p store.Project, site Config) Meta {
	cfg := site
	cfg.Title = p.Title
	cfg.Description = p.MetaDescription
	if cfg.Description == "" {
		cfg.Description = p.Description
	}
	cfg.Type = TypeWebsite
	cfg.Keywords = p.Technologies
	cfg.Image = p.ImageURL
	cfg.ImageAlt = p.Title
	if site.SiteURL != "" {
		cfg.Canonical = CanonicalURL(p.Link(), site.SiteURL)
	}
	return Generate(cfg)
}

// RobotsOptions selects robots directives. The zero value is index, follow.
type RobotsOptions struct {
	NoIndex      bool
	NoFollow     bool
	NoArchive    bool
	NoSnippet    bool
	NoImageIndex bool
}

// Robots returns the content of a robots meta tag.
func Robots(o RobotsOptions) string {
	d := []string{"index", "follow"}
	if o.NoIndex {
		d[0] = "noindex"
	}
	if o.NoFollow {
		d[1] = "nofollow"
	}
	if o.NoArchive {
		d = append(d, "noarchive")
	}
	if o.NoSnippet {
		d = append(d, "nosnippet")
	}
	if o.NoImageIndex {
		d = append(d, "noimageindex")
	}
	return strings.Join(d, ", ")
}
