package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/eringen/folio/apperr"
)

// StringList is a string slice stored as a JSON array in a TEXT column.
// A nil list is written as "[]" and always reads back as an empty,
// non-nil slice, so values round-trip exactly.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: cannot scan %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

// MarshalJSON encodes a nil list as [].
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

const timeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

// formatTime renders t the way SQLite's CURRENT_TIMESTAMP does, so stored
// values compare correctly as text.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func parseTime(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case int64:
		return time.Unix(v, 0).UTC(), true, nil
	case []byte:
		return parseTimeString(string(v))
	case string:
		return parseTimeString(v)
	}
	return time.Time{}, false, fmt.Errorf("cannot scan %T into time", src)
}

func parseTimeString(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized time %q", s)
}

// timeScanner scans a DATETIME column whether the driver hands back a
// time.Time or the raw text.
type timeScanner struct{ dst *time.Time }

func (s timeScanner) Scan(src any) error {
	t, _, err := parseTime(src)
	if err != nil {
		return err
	}
	*s.dst = t
	return nil
}

type nullTimeScanner struct{ dst **time.Time }

func (s nullTimeScanner) Scan(src any) error {
	t, ok, err := parseTime(src)
	if err != nil {
		return err
	}
	if !ok {
		*s.dst = nil
		return nil
	}
	*s.dst = &t
	return nil
}

func scanTime(dst *time.Time) sql.Scanner      { return timeScanner{dst} }
func scanNullTime(dst **time.Time) sql.Scanner { return nullTimeScanner{dst} }
func scanNullInt(dst **int) sql.Scanner        { return nullIntScanner{dst} }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type nullIntScanner struct{ dst **int }

func (s nullIntScanner) Scan(src any) error {
	var n sql.NullInt64
	if err := n.Scan(src); err != nil {
		return err
	}
	if !n.Valid {
		*s.dst = nil
		return nil
	}
	v := int(n.Int64)
	*s.dst = &v
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// dbErr maps driver errors onto the package sentinels and the apperr
// hierarchy.
func dbErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperr.FromDB(err)
}
