package seo

import (
	"strings"
	"testing"
	"time"

	"github.com/eringen/folio/store"
)

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		page, site, want string
	}{
		{"", "Folio", "Folio"},
		{"About", "Folio", "About | Folio"},
		{"Folio", "Folio", "Folio"},
		{"Welcome to Folio", "Folio", "Welcome to Folio"},
		{"About", "", "About | " + DefaultSiteName},
	}
	for _, tt := range tests {
		if got := FormatTitle(tt.page, tt.site); got != tt.want {
			t.Errorf("FormatTitle(%q, %q) = %q, want %q", tt.page, tt.site, got, tt.want)
		}
	}
}

func TestSEOTitle(t *testing.T) {
	if got := SEOTitle("# **Hello**", 60, "Site"); got != "Hello | Site" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("word ", 20)
	got := SEOTitle(long, 30, "")
	if len([]rune(got)) > 30 {
		t.Errorf("title too long: %q", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("title ends with space: %q", got)
	}
	if got := SEOTitle(strings.Repeat("a", 58), 60, "Site"); strings.Contains(got, "|") {
		t.Errorf("suffix should not fit: %q", got)
	}
}

func TestTruncateDescription(t *testing.T) {
	if got := TruncateDescription("Short **text**.", 160); got != "Short text." {
		t.Errorf("got %q", got)
	}

	sentence := strings.Repeat("a", 85) + ". " + strings.Repeat("b", 30)
	if got := TruncateDescription(sentence, 100); got != strings.Repeat("a", 85)+"." {
		t.Errorf("sentence cut: got %q", got)
	}

	words := strings.Repeat("abcd ", 30)
	got := TruncateDescription(words, 100)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("word cut: expected ellipsis, got %q", got)
	}
	if strings.HasSuffix(strings.TrimSuffix(got, "..."), " ") {
		t.Errorf("word cut left trailing space: %q", got)
	}

	solid := strings.Repeat("x", 120)
	if got := TruncateDescription(solid, 100); got != strings.Repeat("x", 100)+"..." {
		t.Errorf("hard cut: got %q", got)
	}

	uni := strings.Repeat("é", 50)
	if got := TruncateDescription(uni, 50); got != uni {
		t.Errorf("runes should be counted, got %q", got)
	}
}

func TestExtractExcerpt(t *testing.T) {
	md := "# Title\n\nSome **bold** and *italic* with `code` and [a link](http://x.com).\n\nSecond paragraph."
	if got := ExtractExcerpt(md, 160); got != "Title" {
		t.Errorf("got %q", got)
	}

	md = "Some **bold** and *italic* with `code` and [a link](http://x.com).\n\nSecond paragraph."
	want := "Some bold and italic with code and a link."
	if got := ExtractExcerpt(md, 160); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCanonicalAndImageURL(t *testing.T) {
	if got := CanonicalURL("/blog/x/", "https://example.com/"); got != "https://example.com/blog/x/" {
		t.Errorf("got %q", got)
	}
	if got := CanonicalURL("about", "https://example.com"); got != "https://example.com/about" {
		t.Errorf("got %q", got)
	}
	if got := ResolveImageURL("https://cdn.com/a.png", "https://example.com"); got != "https://cdn.com/a.png" {
		t.Errorf("got %q", got)
	}
	if got := ResolveImageURL("/img/a.png", "https://example.com"); got != "https://example.com/img/a.png" {
		t.Errorf("got %q", got)
	}
	if got := ResolveImageURL("/img/a.png", ""); got != "/img/a.png" {
		t.Errorf("got %q", got)
	}
}

func TestShareURLs(t *testing.T) {
	s := ShareURLs("https://example.com/blog/x/", "Hello World", "Desc", "@me")
	if !strings.Contains(s.Twitter, "text=Hello%20World") {
		t.Errorf("twitter: %q", s.Twitter)
	}
	if !strings.HasSuffix(s.Twitter, "&via=me") {
		t.Errorf("twitter via: %q", s.Twitter)
	}
	if !strings.Contains(s.Facebook, "u=https%3A%2F%2Fexample.com%2Fblog%2Fx%2F") {
		t.Errorf("facebook: %q", s.Facebook)
	}
	if !strings.HasPrefix(s.Email, "mailto:?subject=Hello%20World") {
		t.Errorf("email: %q", s.Email)
	}
}

func TestGenerate(t *testing.T) {
	m := Generate(Config{
		Title:         "Post",
		Description:   "A description",
		SiteURL:       "https://example.com",
		SiteName:      "Folio",
		Image:         "/img/a.png",
		TwitterHandle: "me",
		Type:          TypeArticle,
		PublishedTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	checks := map[string]string{
		"title":                  "Post | Folio",
		"og:title":               "Post",
		"og:type":                "article",
		"og:image":               "https://example.com/img/a.png",
		"twitter:creator":        "@me",
		"canonical":              "https://example.com",
		"article:published_time": "2024-01-02T03:04:05Z",
		"og:locale":              "en_US",
	}
	for name, want := range checks {
		if got := m.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if m.Get("article:modified_time") != "" {
		t.Error("zero modified time should be omitted")
	}

	out := m.HTML()
	for _, want := range []string{
		"<title>Post | Folio</title>",
		`<link rel="canonical" href="https://example.com">`,
		`<meta property="og:title" content="Post">`,
		`<meta name="description" content="A description">`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q\n%s", want, out)
		}
	}
}

func TestMetaHTMLEscapes(t *testing.T) {
	m := Generate(Config{Title: `"quoted" <b>`})
	if strings.Contains(m.HTML(), "<b>") {
		t.Error("expected content to be escaped")
	}
}

func TestForBlogPost(t *testing.T) {
	pub := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	post := store.BlogPost{
		Title:       "Go Tips",
		Slug:        "go-tips",
		Content:     "Useful **tips** for Go.",
		PublishedAt: &pub,
		Tags:        []store.Tag{{Name: "go"}, {Name: "tips"}},
	}
	m := ForBlogPost(post, Config{SiteURL: "https://example.com", SiteName: "Folio"})
	if got := m.Get("canonical"); got != "https://example.com/blog/go-tips/" {
		t.Errorf("canonical = %q", got)
	}
	if got := m.Get("description"); got != "Useful tips for Go." {
		t.Errorf("description = %q", got)
	}
	if got := m.Get("keywords"); got != "go, tips" {
		t.Errorf("keywords = %q", got)
	}
	if got := m.Get("og:type"); got != TypeArticle {
		t.Errorf("og:type = %q", got)
	}
}

func TestForProject(t *testing.T) {
	p := store.Project{
		Title:        "Folio",
		Slug:         "folio",
		Description:  "Portfolio engine",
		Technologies: store.StringList{"Go", "SQLite"},
	}
	m := ForProject(p, Config{SiteURL: "https://example.com"})
	if got := m.Get("canonical"); got != "https://example.com/projects/folio/" {
		t.Errorf("canonical = %q", got)
	}
	if got := m.Get("keywords"); got != "Go, SQLite" {
		t.Errorf("keywords = %q", got)
	}
	if got := m.Get("description"); got != "Portfolio engine" {
		t.Errorf("description = %q", got)
	}
}

func TestRobots(t *testing.T) {
	if got := Robots(RobotsOptions{}); got != "index, follow" {
		t.Errorf("got %q", got)
	}
	if got := Robots(RobotsOptions{NoIndex: true, NoFollow: true, NoArchive: true}); got != "noindex, nofollow, noarchive" {
		t.Errorf("got %q", got)
	}
}

func TestStructuredData(t *testing.T) {
	w := Website(WebsiteInfo{Name: "Folio", URL: "https://example.com"})
	if _, ok := w["description"]; ok {
		t.Error("empty description should be omitted")
	}
	if w["@type"] != "WebSite" {
		t.Errorf("@type = %v", w["@type"])
	}

	pub := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bp := BlogPosting(store.BlogPost{Title: "T", Slug: "t", Content: "one two three", PublishedAt: &pub}, "https://example.com", "Ann")
	if bp["dateModified"] != "2024-05-01T00:00:00Z" {
		t.Errorf("dateModified = %v", bp["dateModified"])
	}
	if bp["wordCount"] != 3 {
		t.Errorf("wordCount = %v", bp["wordCount"])
	}
	if _, ok := bp["keywords"]; ok {
		t.Error("no tags should omit keywords")
	}

	bc := Breadcrumbs([]Crumb{{"Home", "/"}, {"Blog", "/blog/"}})
	items := bc["itemListElement"].([]map[string]any)
	if len(items) != 2 || items[1]["position"] != 2 {
		t.Errorf("breadcrumbs = %v", items)
	}

	js := JSONLD(map[string]string{"x": "</script>"})
	if strings.Contains(js, "</script>") {
		t.Errorf("JSONLD should escape html: %s", js)
	}
}

func TestValidate(t *testing.T) {
	r := Validate(Config{})
	if r.Valid || len(r.Errors) != 2 {
		t.Errorf("empty config: %+v", r)
	}
	r = Validate(Config{
		Title:       "Short",
		Description: strings.Repeat("d", 130),
		Keywords:    make([]string, 11),
		Image:       "/a.png",
	})
	if !r.Valid {
		t.Errorf("expected valid: %+v", r)
	}
	if len(r.Warnings) != 3 {
		t.Errorf("warnings = %v", r.Warnings)
	}
}

func TestAnalyze(t *testing.T) {
	md := "# Title\n\n## Sub\n\nSee [home](/) and [go](https://go.dev)."
	a := Analyze(md)
	if len(a.Headings) != 2 || a.Headings[0].Level != 1 || a.Headings[1].Text != "Sub" {
		t.Errorf("headings = %+v", a.Headings)
	}
	if a.InternalLinks != 1 || a.ExternalLinks != 1 {
		t.Errorf("links = %d/%d", a.InternalLinks, a.ExternalLinks)
	}
	if a.ReadingTime != 1 {
		t.Errorf("reading time = %d", a.ReadingTime)
	}
	if len(a.Recommendations) != 1 {
		t.Errorf("recommendations = %v", a.Recommendations)
	}

	if got := ReadingTime(401); got != 3 {
		t.Errorf("ReadingTime(401) = %d", got)
	}
	if got := ReadingTime(0); got != 0 {
		t.Errorf("ReadingTime(0) = %d", got)
	}
}
