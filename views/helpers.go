package views

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eringen/folio/store"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PathEscape wraps url.PathEscape for use in templ expressions.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	base := "inline-flex items-center rounded border border-ink dark:border-white/30 bg-stone-100 dark:bg-neutral-700 px-2.5 py-1 text-[11px] font-semibold uppercase tracking-[0.12em] hover:-translate-y-0.5 hover:shadow-sm transition"
	if active {
		base += " bg-ink dark:bg-white text-white dark:text-ink"
	}
	return base
}

// StatusClass returns the badge classes for a post, project or contact
// status.
func StatusClass(status string) string {
	switch status {
	case store.StatusPublished, store.ProjectCompleted, store.ContactReplied:
		return "badge badge-success"
	case store.StatusDraft, store.ProjectPlanning, store.ContactNew:
		return "badge badge-info"
	case store.ProjectInProgress, store.ContactRead:
		return "badge badge-warning"
	default:
		return "badge badge-muted"
	}
}

// JoinTags formats tag names as a comma-separated string for form fields.
func JoinTags(tags []store.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// JoinLines formats a list as one entry per line for textareas.
func JoinLines(items []string) string {
	return strings.Join(items, "\n")
}

// FormatDate renders t as "Jan 2, 2006"; nil or zero gives "".
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// InputDate renders t for an <input type="date">.
func InputDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// FormatSize renders a byte count as B, KB, MB or GB.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMG"[exp])
}

// ProficiencyPercent maps a 1-5 proficiency onto a bar width.
func ProficiencyPercent(level int) int {
	return min(max(level, 0), 5) * 20
}

// PageURL returns path with the page query parameter set, keeping the
// other parameters in q.
func PageURL(path string, q url.Values, page int) string {
	v := url.Values{}
	for k, vals := range q {
		v[k] = vals
	}
	if page <= 1 {
		v.Del("page")
	} else {
		v.Set("page", fmt.Sprint(page))
	}
	if enc := v.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}
