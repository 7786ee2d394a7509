package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsFindsTypedErrorsThroughWrapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", Validation("title is required", "title"), CodeValidation, http.StatusBadRequest},
		{"not found", NotFound("Blog post", 7), CodeNotFound, http.StatusNotFound},
		{"unauthorized", Unauthorized(""), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden(""), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("slug taken", "slug"), CodeConflict, http.StatusConflict},
		{"rate limit", RateLimit(5, time.Minute, time.Time{}), CodeRateLimit, http.StatusTooManyRequests},
		{"database", Database("boom", "", "projects", errors.New("disk")), CodeDatabase, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			ae, ok := As(wrapped)
			require.True(t, ok)
			assert.Equal(t, tt.code, ae.Code)
			assert.Equal(t, tt.status, StatusOf(wrapped))
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Project with id '3' not found", NotFound("Project", 3).Message)
	assert.Equal(t, "Project not found", NotFound("Project", nil).Message)

	bySlug := NotFoundBy("Blog post", "slug", "later")
	assert.Equal(t, "Blog post with slug 'later' not found", bySlug.Message)
	assert.Equal(t, "later", bySlug.Context["slug"])
	assert.NotContains(t, bySlug.Context, "id")
}

func TestStatusOfPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
}

func TestToAPIErrorSanitizesInProduction(t *testing.T) {
	plain := errors.New("near \"SELEC\": syntax error")

	dev := ToAPIError(plain, false)
	assert.Equal(t, CodeInternal, dev.Code)
	assert.Contains(t, dev.Message, "syntax error")
	assert.NotNil(t, dev.Details)

	prod := ToAPIError(plain, true)
	assert.Equal(t, "An internal error occurred", prod.Message)
	assert.Nil(t, prod.Details)

	// Operational errors keep their message in production.
	nf := ToAPIError(NotFound("Blog post", 1), true)
	assert.Equal(t, CodeNotFound, nf.Code)
	assert.Equal(t, "Blog post with id '1' not found", nf.Message)
	assert.Equal(t, http.StatusNotFound, nf.Details["statusCode"])
	assert.Equal(t, "Blog post", nf.Details["resource"])
}

func TestToAPIErrorNil(t *testing.T) {
	out := ToAPIError(nil, false)
	assert.Equal(t, CodeUnknown, out.Code)
}

func TestFromDB(t *testing.T) {
	err := FromDB(errors.New("constraint failed: UNIQUE constraint failed: blog_posts.slug (2067)"))
	var c *ConflictError
	require.ErrorAs(t, err, &c)
	assert.Equal(t, "slug", c.Field)
	assert.Equal(t, "blog_posts", c.Context["table"])

	err = FromDB(errors.New("FOREIGN KEY constraint failed"))
	var d *DatabaseError
	require.ErrorAs(t, err, &d)
	assert.Equal(t, "Cannot perform this operation due to related data", d.Message)

	err = FromDB(errors.New("no such table: widgets"))
	require.ErrorAs(t, err, &d)
	assert.Equal(t, "Database operation failed", d.Message)

	assert.NoError(t, FromDB(nil))

	nf := NotFound("Tag", 1)
	assert.Same(t, nf, FromDB(nf))
}

type loginForm struct {
	Email    string
	Password string
}

func TestFromValidation(t *testing.T) {
	f := loginForm{}
	verr := validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required),
		validation.Field(&f.Password, validation.Required),
	)
	require.Error(t, verr)

	err := FromValidation(verr)
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "Email", v.Field)
	assert.Equal(t, []string{"Email", "Password"}, v.Fields)
	assert.Equal(t, http.StatusBadRequest, v.Status)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	v, err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("busy")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)

	_, err = WithRetry(context.Background(), 2, time.Millisecond, func(context.Context) (int, error) {
		return 0, errors.New("still busy")
	})
	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeMaxRetries, ae.Code)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithRetry(ctx, 5, time.Hour, func(context.Context) (string, error) {
		return "", errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
