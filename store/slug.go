package store

import (
	"context"
	"fmt"
	"strings"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// slugTaken reports whether slug is used in table by a row other than
// excludeID.
func slugTaken(ctx context.Context, q queryer, table, slug string, excludeID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE slug = ? AND id != ?`, table),
		slug, excludeID).Scan(&n)
	if err != nil {
		return false, dbErr(err)
	}
	return n > 0, nil
}

// uniqueSlug slugifies title and appends -2, -3, ... until the slug is free.
func uniqueSlug(ctx context.Context, q queryer, table, title string, excludeID int64) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "untitled"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := slugTaken(ctx, q, table, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
