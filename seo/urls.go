package seo

import (
	"net/url"
	"strings"
)

// ResolveImageURL makes path absolute against base. Absolute URLs and
// paths with no base are returned unchanged.
func ResolveImageURL(path, base string) string {
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case base == "":
		return path
	}
	return CanonicalURL(path, base)
}

// CanonicalURL joins base and path with exactly one slash between them.
func CanonicalURL(path, base string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

// ShareLinks holds social sharing URLs for one page.
type ShareLinks struct {
	Twitter    string `json:"twitter"`
	Facebook   string `json:"facebook"`
	LinkedIn   string `json:"linkedin"`
	Reddit     string `json:"reddit"`
	HackerNews string `json:"hackernews"`
	Email      string `json:"email"`
}

// ShareURLs builds sharing links for pageURL. via is an optional twitter
// account without the "@".
func ShareURLs(pageURL, title, description, via string) ShareLinks {
	u, t, d := encodeComponent(pageURL), encodeComponent(title), encodeComponent(description)
	tw := "https://twitter.com/intent/tweet?url=" + u + "&text=" + t
	if via != "" {
		tw += "&via=" + encodeComponent(strings.TrimPrefix(via, "@"))
	}
	return ShareLinks{
		Twitter:    tw,
		Facebook:   "https://www.facebook.com/sharer/sharer.php?u=" + u,
		LinkedIn:   "https://www.linkedin.com/sharing/share-offsite/?url=" + u,
		Reddit:     "https://reddit.com/submit?url=" + u + "&title=" + t,
		HackerNews: "https://news.ycombinator.com/submitlink?u=" + u + "&t=" + t,
		Email:      "mailto:?subject=" + t + "&body=" + d + "%0A%0A" + u,
	}
}

// encodeComponent escapes s for a query value, with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
