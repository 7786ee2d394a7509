package apperr

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// APIError is the wire form of an error inside the response envelope.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToAPIError converts any error to its wire form. In production, internal
// and unknown errors lose their message and details.
func ToAPIError(err error, production bool) APIError {
	var out APIError
	switch ae, ok := As(err); {
	case ok:
		details := map[string]any{"statusCode": ae.Status}
		for k, v := range ae.Context {
			details[k] = v
		}
		out = APIError{Code: ae.Code, Message: ae.Message, Details: details, Timestamp: ae.Timestamp}
	case err != nil:
		out = APIError{
			Code:      CodeInternal,
			Message:   err.Error(),
			Details:   map[string]any{"name": fmt.Sprintf("%T", err)},
			Timestamp: now().UTC(),
		}
	default:
		out = APIError{
			Code:      CodeUnknown,
			Message:   "An unknown error occurred",
			Timestamp: now().UTC(),
		}
	}
	if production && (out.Code == CodeInternal || out.Code == CodeUnknown) {
		out.Message = "An internal error occurred"
		out.Details = nil
	}
	return out
}

var (
	reTable      = regexp.MustCompile(`(?i)table (\w+)`)
	reConstraint = regexp.MustCompile(`constraint failed: (\w+)\.(\w+)`)
)

// FromDB maps a SQLite driver error onto the hierarchy. UNIQUE violations
// become conflicts; everything else is a DatabaseError with a user-safe
// message. Application errors pass through unchanged.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	msg := err.Error()
	var table, column string
	if m := reConstraint.FindStringSubmatch(msg); m != nil {
		table, column = m[1], m[2]
	} else if m := reTable.FindStringSubmatch(msg); m != nil {
		table = m[1]
	}
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		c := Conflict("A record with this information already exists", column)
		c.Err = err
		if table != "" {
			c.With("table", table)
		}
		return c
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return Database("Cannot perform this operation due to related data", "", table, err)
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return Database("Required field is missing", "", table, err)
	}
	return Database("Database operation failed", "", table, err)
}

// FromValidation converts ozzo-validation errors into a ValidationError.
// Internal validator failures are reported as internal errors.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return Wrap(err, "validation failed", CodeInternal, 500)
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return Validation(err.Error(), "")
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	perField := make(map[string]string, len(errs))
	for _, f := range fields {
		perField[f] = errs[f].Error()
	}
	v := Validation(errs.Error(), fields[0], fields...)
	v.With("errors", perField)
	return v
}

// WithRetry runs op up to attempts times, sleeping delay*attempt between
// tries. It gives up early when ctx is done.
func WithRetry[T any](ctx context.Context, attempts int, delay time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 1; i <= attempts; i++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		last = err
		if i == attempts {
			break
		}
		t := time.NewTimer(delay * time.Duration(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
	e := Wrap(last, fmt.Sprintf("Operation failed after %d attempts", attempts), CodeMaxRetries, 500)
	e.With("attempts", attempts)
	return zero, e
}
