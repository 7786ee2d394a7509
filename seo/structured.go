package seo

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/eringen/folio/store"
)

const schemaContext = "https://schema.org"

// StructuredData is a JSON-LD object.
type StructuredData map[string]any

// set stores v unless it is an empty value.
func (d StructuredData) set(key string, v any) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return
		}
	case []string:
		if len(x) == 0 {
			return
		}
	case int:
		if x == 0 {
			return
		}
	case nil:
		return
	}
	d[key] = v
}

func newData(typ string) StructuredData {
	return StructuredData{"@context": schemaContext, "@type": typ}
}

func person(name string) map[string]string {
	return map[string]string{"@type": "Person", "name": name}
}

// WebsiteInfo feeds Website.
type WebsiteInfo struct {
	Name        string
	URL         string
	Description string
	Author      string
	Logo        string
	SameAs      []string
}

// Website returns WebSite structured data.
func Website(w WebsiteInfo) StructuredData {
	d := newData("WebSite")
	d.set("name", w.Name)
	d.set("url", w.URL)
	d.set("description", w.Description)
	if w.Author != "" {
		d["author"] = person(w.Author)
	}
	d.set("logo", w.Logo)
	d.set("sameAs", w.SameAs)
	return d
}

// PersonInfo feeds Person.
type PersonInfo struct {
	Name        string
	JobTitle    string
	URL         string
	Email       string
	SameAs      []string
	WorksFor    string
	Description string
}

// Person returns Person structured data.
func Person(p PersonInfo) StructuredData {
	d := newData("Person")
	d.set("name", p.Name)
	d.set("jobTitle", p.JobTitle)
	d.set("url", p.URL)
	d.set("email", p.Email)
	d.set("sameAs", p.SameAs)
	if p.WorksFor != "" {
		d["worksFor"] = map[string]string{"@type": "Organization", "name": p.WorksFor}
	}
	d.set("description", p.Description)
	return d
}

// BlogPosting returns BlogPosting structured data for post. dateModified
// falls back to the publish date.
func BlogPosting(post store.BlogPost, siteURL, author string) StructuredData {
	d := newData("BlogPosting")
	postURL := CanonicalURL(post.Link(), siteURL)
	d.set("headline", post.Title)
	desc := post.Excerpt
	if desc == "" {
		desc = ExtractExcerpt(post.Content, DescriptionMax)
	}
	d.set("description", desc)
	d.set("url", postURL)
	d["mainEntityOfPage"] = map[string]string{"@type": "WebPage", "@id": postURL}
	published := post.CreatedAt
	if post.PublishedAt != nil {
		published = *post.PublishedAt
	}
	d.set("datePublished", formatDate(published))
	modified := formatDate(post.UpdatedAt)
	if modified == "" {
		modified = formatDate(published)
	}
	d.set("dateModified", modified)
	if author != "" {
		d["author"] = person(author)
	}
	if post.FeaturedImage != "" {
		d["image"] = ResolveImageURL(post.FeaturedImage, siteURL)
	}
	d.set("keywords", post.TagNames())
	d.set("wordCount", Analyze(post.Content).WordCount)
	return d
}

// Crumb is one breadcrumb entry.
type Crumb struct {
	Name string
	URL  string
}

// Breadcrumbs returns BreadcrumbList structured data; positions start at 1.
func Breadcrumbs(items []Crumb) StructuredData {
	d := newData("BreadcrumbList")
	list := make([]map[string]any, len(items))
	for i, it := range items {
		list[i] = map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.URL,
		}
	}
	d["itemListElement"] = list
	return d
}

// JSONLD serializes v for a <script type="application/ld+json"> block.
// HTML-significant characters are escaped; on failure it returns "{}".
func JSONLD(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
