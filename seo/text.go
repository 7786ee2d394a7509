package seo

import (
	"regexp"
	"strings"
)

var (
	reTitleMarkup = regexp.MustCompile("[#*_`~]")
	reDescMarkup  = regexp.MustCompile("[#*_`~\\[\\]]")
	reHeaderLine  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBoldText    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reItalicText  = regexp.MustCompile(`\*(.*?)\*`)
	reCodeText    = regexp.MustCompile("`(.*?)`")
	reLinkText    = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
)

// FormatTitle joins a page title and the site name as "page | site",
// unless the page title already contains the site name.
func FormatTitle(page, site string) string {
	if site == "" {
		site = DefaultSiteName
	}
	switch {
	case page == "":
		return site
	case strings.Contains(page, site):
		return page
	}
	return page + " | " + site
}

// SEOTitle derives a title from content: markup characters are removed,
// the text is cut to max runes (at a word boundary when one falls in the
// last 20%) and suffix is appended as " | suffix" when it still fits.
func SEOTitle(content string, max int, suffix string) string {
	if max <= 0 {
		max = TitleMax
	}
	title := reTitleMarkup.ReplaceAllString(strings.TrimSpace(content), "")
	if r := []rune(title); len(r) > max {
		title = strings.TrimSpace(string(r[:max]))
		if i := lastRuneIndex(title, ' '); float64(i) > float64(max)*0.8 {
			title = string([]rune(title)[:i])
		}
	}
	if suffix != "" && runeLen(title)+runeLen(suffix)+3 <= max {
		title += " | " + suffix
	}
	return title
}

// TruncateDescription strips Markdown markup and shortens s to at most max
// runes. It prefers ending at a sentence, then at a word boundary, when
// either falls in the last 20% of the limit.
func TruncateDescription(s string, max int) string {
	if max <= 0 {
		max = DescriptionMax
	}
	s = reDescMarkup.ReplaceAllString(strings.TrimSpace(s), "")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max])
	threshold := float64(max) * 0.8
	if i := lastRuneIndex(cut, '.'); float64(i) > threshold {
		return string([]rune(cut)[:i+1])
	}
	if i := lastRuneIndex(cut, ' '); float64(i) > threshold {
		return string([]rune(cut)[:i]) + "..."
	}
	return cut + "..."
}

// ExtractExcerpt returns the first paragraph of md without Markdown markup,
// truncated with TruncateDescription.
func ExtractExcerpt(md string, max int) string {
	s := reHeaderLine.ReplaceAllString(md, "")
	s = reBoldText.ReplaceAllString(s, "$1")
	s = reItalicText.ReplaceAllString(s, "$1")
	s = reCodeText.ReplaceAllString(s, "$1")
	s = reLinkText.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if first, _, ok := strings.Cut(s, "\n\n"); ok && first != "" {
		s = first
	}
	return TruncateDescription(s, max)
}

func runeLen(s string) int { return len([]rune(s)) }

// lastRuneIndex is strings.LastIndexRune counted in runes; -1 when absent.
func lastRuneIndex(s string, ch rune) int {
	r := []rune(s)
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ch {
			return i
		}
	}
	return -1
}
