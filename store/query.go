package store

import (
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the page size used when none is given.
	DefaultLimit = 20
	// MaxLimit caps any requested page size.
	MaxLimit = 100
)

// Page is one page of a list query.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPage computes the pagination fields for data drawn at offset/limit
// out of total rows.
func NewPage[T any](data []T, total, limit, offset int) Page[T] {
	limit, offset = clampLimit(limit), max(offset, 0)
	if data == nil {
		data = []T{}
	}
	page := offset/limit + 1
	totalPages := (total + limit - 1) / limit
	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// orderClause validates by against the allowed columns and returns an
// ORDER BY fragment, falling back to def.
func orderClause(by, dir string, allowed map[string]string, def string) string {
	col, ok := allowed[strings.ToLower(strings.TrimSpace(by))]
	if !ok {
		return def
	}
	d := "DESC"
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		d = "ASC"
	}
	return fmt.Sprintf("%s %s", col, d)
}

// where accumulates AND-ed predicates and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func likePattern(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
