// Package apperr defines the application error hierarchy shared by the
// store, the HTTP API and the CLI. Every error carries a stable code and an
// HTTP status so handlers can turn it into a response envelope without
// inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes exposed to API clients.
const (
	CodeUnknown      = "UNKNOWN_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeDatabase     = "DATABASE_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeRateLimit    = "RATE_LIMIT_EXCEEDED"
	CodeMaxRetries   = "MAX_RETRIES_EXCEEDED"
)

var now = time.Now

// AppError is the base of the hierarchy. The typed errors below embed it.
type AppError struct {
	Code        string
	Status      int
	Message     string
	Operational bool
	Timestamp   time.Time
	Context     map[string]any
	Err         error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) base() *AppError { return e }

type appError interface {
	error
	base() *AppError
}

// New returns an operational AppError. An empty code means UNKNOWN_ERROR and a
// zero status means 500.
func New(message, code string, status int) *AppError {
	if code == "" {
		code = CodeUnknown
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:        code,
		Status:      status,
		Message:     message,
		Operational: true,
		Timestamp:   now().UTC(),
	}
}

// Wrap is New with an underlying cause.
func Wrap(err error, message, code string, status int) *AppError {
	e := New(message, code, status)
	e.Err = err
	return e
}

// With attaches a context value and returns e.
func (e *AppError) With(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// As reports whether err's chain contains an application error and returns
// its base.
func As(err error) (*AppError, bool) {
	var ae appError
	if errors.As(err, &ae) {
		return ae.base(), true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err, or 500 when err is not an
// application error.
func StatusOf(err error) int {
	if ae, ok := As(err); ok {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// ValidationError reports invalid input. Field names the first offending
// field; Fields lists all of them.
type ValidationError struct {
	*AppError
	Field  string
	Fields []string
}

// Validation builds a ValidationError for field.
func Validation(message, field string, fields ...string) *ValidationError {
	e := New(message, CodeValidation, http.StatusBadRequest)
	if field != "" {
		e.With("field", field)
	}
	if len(fields) > 0 {
		e.With("fields", fields)
	}
	return &ValidationError{AppError: e, Field: field, Fields: fields}
}

// DatabaseError wraps a driver failure.
type DatabaseError struct {
	*AppError
	Query string
	Table string
}

// Database builds a DatabaseError.
func Database(message, query, table string, err error) *DatabaseError {
	e := Wrap(err, message, CodeDatabase, http.StatusInternalServerError)
	if table != "" {
		e.With("table", table)
	}
	return &DatabaseError{AppError: e, Query: query, Table: table}
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	*AppError
	Resource string
	ID       any
}

// NotFound builds a NotFoundError. A nil or empty id is omitted from the
// message.
func NotFound(resource string, id any) *NotFoundError {
	return NotFoundBy(resource, "id", id)
}

// NotFoundBy is NotFound for a lookup on another key, such as a slug.
func NotFoundBy(resource, key string, value any) *NotFoundError {
	msg := resource + " not found"
	if value != nil && fmt.Sprint(value) != "" {
		msg = fmt.Sprintf("%s with %s '%v' not found", resource, key, value)
	}
	e := New(msg, CodeNotFound, http.StatusNotFound).With("resource", resource)
	if value != nil {
		e.With(key, value)
	}
	return &NotFoundError{AppError: e, Resource: resource, ID: value}
}

// UnauthorizedError reports missing or invalid credentials.
type UnauthorizedError struct{ *AppError }

func Unauthorized(message string) *UnauthorizedError {
	if message == "" {
		message = "Unauthorized access"
	}
	return &UnauthorizedError{New(message, CodeUnauthorized, http.StatusUnauthorized)}
}

// ForbiddenError reports an authenticated caller without permission.
type ForbiddenError struct{ *AppError }

func Forbidden(message string) *ForbiddenError {
	if message == "" {
		message = "Forbidden access"
	}
	return &ForbiddenError{New(message, CodeForbidden, http.StatusForbidden)}
}

// ConflictError reports a uniqueness clash.
type ConflictError struct {
	*AppError
	Field string
}

func Conflict(message, field string) *ConflictError {
	e := New(message, CodeConflict, http.StatusConflict)
	if field != "" {
		e.With("field", field)
	}
	return &ConflictError{AppError: e, Field: field}
}

// RateLimitError reports a caller over its request budget.
type RateLimitError struct {
	*AppError
	Limit   int
	Window  time.Duration
	ResetAt time.Time
}

func RateLimit(limit int, window time.Duration, resetAt time.Time) *RateLimitError {
	e := New("Too many requests", CodeRateLimit, http.StatusTooManyRequests).
		With("limit", limit).
		With("window_ms", window.Milliseconds())
	if !resetAt.IsZero() {
		e.With("reset_at", resetAt.UTC().Format(time.RFC3339))
	}
	return &RateLimitError{AppError: e, Limit: limit, Window: window, ResetAt: resetAt}
}
