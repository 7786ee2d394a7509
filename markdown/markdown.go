// Package markdown renders Markdown to HTML. Input is HTML-escaped before any
// formatting is applied, so the output only contains tags the renderer emits.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`_([^_]+)_`)
	reStrike           = regexp.MustCompile(`~~(.+?)~~`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reImg              = regexp.MustCompile(`\!\[(.*?)\]\((.*?)\)`)
	reOrderedList      = regexp.MustCompile(`^(\d+)\.\s`)
	reHeading          = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reTag              = regexp.MustCompile(`<[^>]*>`)
	reSpace            = regexp.MustCompile(`\s+`)
	reAnchor           = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderMarkdown(&buf, content)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// ToHTML renders md and returns the HTML as a string.
func ToHTML(md string) string {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	RenderMarkdown(&buf, md)
	return buf.String()
}

// PlainText renders md, strips the tags and decodes entities. When max > 0
// and the text is longer, it is cut to max runes and "..." is appended.
func PlainText(md string, max int) string {
	if md == "" {
		return ""
	}
	text := reTag.ReplaceAllString(ToHTML(md), " ")
	text = html.UnescapeString(text)
	text = strings.TrimSpace(reSpace.ReplaceAllString(text, " "))
	if max > 0 && utf8.RuneCountInString(text) > max {
		r := []rune(text)
		return strings.TrimSpace(string(r[:max])) + "..."
	}
	return text
}

// Anchor turns heading text into an id: lowercased, with every run of
// characters other than letters, digits and underscores collapsed to "-".
func Anchor(text string) string {
	a := reAnchor.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
	return strings.Trim(a, "-")
}

type block int

const (
	blockNone block = iota
	blockPara
	blockBullets
	blockNumbered
	blockQuote
	blockTable
)

var blockTags = map[block][2]string{
	blockPara:     {"<p>", "</p>"},
	blockBullets:  {"<ul>", "</ul>"},
	blockNumbered: {"<ol>", "</ol>"},
	blockQuote:    {"<blockquote>", "</blockquote>"},
	blockTable:    {"<table>", "</table>"},
}

// renderer tracks the open block while RenderMarkdown walks the lines.
// At most one block is open at a time, and never while inside a fence.
type renderer struct {
	buf       *bytes.Buffer
	open      block
	tableBody bool
	fenced    bool
}

// enter makes b the open block, closing any other. It reports whether b
// was opened by this call.
func (r *renderer) enter(b block) bool {
	if r.open == b {
		return false
	}
	r.close()
	r.buf.WriteString(blockTags[b][0])
	r.open = b
	return true
}

func (r *renderer) close() {
	if r.open == blockNone {
		return
	}
	if r.open == blockTable && r.tableBody {
		r.buf.WriteString("</tbody>")
	}
	r.buf.WriteString(blockTags[r.open][1])
	r.open, r.tableBody = blockNone, false
}

func (r *renderer) fence(info string) {
	if r.fenced {
		r.buf.WriteString("</code></pre>")
		r.fenced = false
		return
	}
	r.close()
	lang := strings.TrimSpace(info)
	if lang == "" {
		lang = "text"
	}
	r.buf.WriteString(`<pre class="code-block"><code class="language-` + html.EscapeString(lang) + `">`)
	r.fenced = true
}

func (r *renderer) cells(tag, line string) {
	r.buf.WriteString("<tr>")
	for _, cell := range parseTableCells(line) {
		r.buf.WriteString("<" + tag + ">" + FormatInline(cell) + "</" + tag + ">")
	}
	r.buf.WriteString("</tr>")
}

// tableRow writes the first row of a table as its header and the rest as
// body rows. Separator rows only open the body.
func (r *renderer) tableRow(line string) {
	if r.enter(blockTable) {
		r.buf.WriteString("<thead>")
		r.cells("th", line)
		r.buf.WriteString("</thead>")
		return
	}
	if !r.tableBody {
		r.buf.WriteString("<tbody>")
		r.tableBody = true
	}
	if !isTableSeparator(line) {
		r.cells("td", line)
	}
}

func (r *renderer) item(b block, text string) {
	r.enter(b)
	r.buf.WriteString("<li>" + FormatInline(strings.TrimSpace(text)) + "</li>")
}

// continued writes text into block b, separated by sep when b was
// already open.
func (r *renderer) continued(b block, sep, text string) {
	if !r.enter(b) {
		r.buf.WriteString(sep)
	}
	r.buf.WriteString(FormatInline(strings.TrimSpace(text)))
}

func (r *renderer) line(line string) {
	if strings.HasPrefix(line, "```") {
		r.fence(line[3:])
		return
	}
	if r.fenced {
		r.buf.WriteString(html.EscapeString(line) + "\n")
		return
	}
	switch {
	case strings.TrimSpace(line) == "":
		r.close()
	case isRule(line):
		r.close()
		r.buf.WriteString("<hr/>")
	case reHeading.MatchString(line):
		r.close()
		m := reHeading.FindStringSubmatch(line)
		writeHeading(r.buf, len(m[1]), strings.TrimSpace(strings.TrimRight(m[2], "#")))
	case strings.HasPrefix(line, "|"):
		r.tableRow(line)
	case isBullet(line):
		r.item(blockBullets, line[2:])
	case reOrderedList.MatchString(line):
		r.item(blockNumbered, reOrderedList.ReplaceAllString(line, ""))
	case strings.HasPrefix(line, ">"):
		r.continued(blockQuote, "<br>", strings.TrimPrefix(line, ">"))
	default:
		r.continued(blockPara, "<br>\n", line)
	}
}

// RenderMarkdown writes the HTML representation of md to buf. An
// unterminated fence runs to the end of the input.
func RenderMarkdown(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf}
	for _, raw := range strings.Split(md, "\n") {
		r.line(strings.TrimRight(raw, "\r"))
	}
	r.close()
	if r.fenced {
		r.fence("")
	}
}

func writeHeading(buf *bytes.Buffer, level int, text string) {
	inner := FormatInline(text)
	id := Anchor(html.UnescapeString(reTag.ReplaceAllString(inner, "")))
	n := strconv.Itoa(level)
	buf.WriteString("<h" + n + ` id="` + id + `">`)
	buf.WriteString(`<a href="#` + id + `" class="anchor-link">` + inner + `</a>`)
	buf.WriteString("</h" + n + ">")
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "+ ")
}

func isRule(line string) bool {
	t := strings.TrimSpace(line)
	if len(t) < 3 {
		return false
	}
	for _, ch := range []string{"-", "*", "_"} {
		if strings.Trim(strings.ReplaceAll(t, " ", ""), ch) == "" {
			return true
		}
	}
	return false
}

func parseTableCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isTableSeparator(line string) bool {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "|")
	for _, cell := range strings.Split(line, "|") {
		cell = strings.TrimSpace(cell)
		cleaned := strings.ReplaceAll(strings.ReplaceAll(cell, "-", ""), ":", "")
		if cleaned != "" {
			return false
		}
	}
	return true
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags,
// so that formatting regexes never touch URLs inside href attributes, etc.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// splitTitle separates `url "title"` into its parts.
func splitTitle(target string) (string, string) {
	target = strings.TrimSpace(target)
	if i := strings.Index(target, " &#34;"); i > 0 && strings.HasSuffix(target, "&#34;") {
		return target[:i], strings.TrimSuffix(target[i+len(" &#34;"):], "&#34;")
	}
	return target, ""
}

// FormatInline applies inline formatting (code, bold, italic, links, images)
// to a single line of Markdown.
func FormatInline(s string) string {
	escaped := html.EscapeString(s)

	// Inline code is swapped for placeholders first so nothing inside
	// backticks is formatted.
	var inlineCodeBlocks []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reInlineCode.FindStringSubmatch(m)
		placeholder := "\x00IC" + strconv.Itoa(len(inlineCodeBlocks)) + "\x00"
		inlineCodeBlocks = append(inlineCodeBlocks, "<code>"+match[1]+"</code>")
		return placeholder
	})

	escaped = reImg.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		target, title := splitTitle(match[2])
		src := SafeURL(target)
		if src == "" {
			return match[1]
		}
		attrs := ""
		if title != "" {
			attrs = ` title="` + title + `"`
		}
		return `<img src="` + src + `" alt="` + match[1] + `"` + attrs + ` loading="lazy"/>`
	})
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		target, title := splitTitle(match[2])
		href := SafeURL(target)
		if href == "" {
			return match[1]
		}
		attrs := ""
		if title != "" {
			attrs += ` title="` + title + `"`
		}
		if isExternal(href) {
			attrs += ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>` + match[1] + `</a>`
	})
	// Bold and italic only run outside tags so URLs in attributes survive.
	escaped = ApplyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "<em>$1</em>")
		seg = reStrike.ReplaceAllString(seg, "<s>$1</s>")
		return seg
	})
	for i, code := range inlineCodeBlocks {
		escaped = strings.Replace(escaped, "\x00IC"+strconv.Itoa(i)+"\x00", code, 1)
	}
	return escaped
}

func isExternal(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}

// SafeURL validates and sanitizes a URL for use in HTML attributes. Relative
// URLs and the http, https, mailto and tel schemes are allowed; anything else
// yields "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") || strings.HasPrefix(val, "./") ||
		strings.HasPrefix(val, "../") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" {
		// Bare relative paths like "images/a.png"; a colon before the first
		// slash would be an unparsed scheme.
		if strings.Contains(strings.SplitN(val, "/", 2)[0], ":") {
			return ""
		}
		return html.EscapeString(val)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
