package folio

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

func isAPIPath(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// toAppError maps any handler error onto the apperr hierarchy.
func toAppError(err error) *apperr.AppError {
	if ae, ok := apperr.As(err); ok {
		return ae
	}
	var he *echo.HTTPError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Resource", nil).AppError
	case errors.Is(err, store.ErrInvalidCredentials):
		return apperr.Unauthorized("Invalid email or password").AppError
	case errors.As(err, &he):
		msg := fmt.Sprint(he.Message)
		if he.Internal != nil && he.Code >= 500 {
			return apperr.Wrap(he.Internal, msg, codeForStatus(he.Code), he.Code)
		}
		return apperr.New(msg, codeForStatus(he.Code), he.Code)
	}
	return apperr.Wrap(err, "Internal server error", apperr.CodeInternal, http.StatusInternalServerError)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperr.CodeValidation
	case http.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.CodeNotFound
	case http.StatusConflict:
		return apperr.CodeConflict
	case http.StatusTooManyRequests:
		return apperr.CodeRateLimit
	}
	return apperr.CodeInternal
}

// notFound turns a store miss into a NotFoundError naming resource and id.
func notFound(err error, resource string, id any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(resource, id)
	}
	return err
}

// notFoundSlug is notFound for lookups by slug.
func notFoundSlug(err error, resource, slug string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFoundBy(resource, "slug", slug)
	}
	return err
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	ae := toAppError(err)
	code := ae.Status

	if code >= 500 {
		a.logger.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Msg("server error")
	}

	if isAPIPath(c) {
		apiErr := apperr.ToAPIError(ae, a.Config.Production())
		_ = c.JSON(code, ErrorEnvelope{Success: false, Error: apiErr})
		return
	}

	page := views.ErrorPage{Page: a.page(c), Status: code, Message: ae.Message}
	switch {
	case code == http.StatusNotFound:
		page.Message = "Page not found"
		_ = renderView(c, code, a.Views.NotFound, page)
	case code >= 500:
		page.Message = "Something went wrong"
		_ = renderView(c, code, a.Views.ServerError, page)
	default:
		a.Echo.DefaultHTTPErrorHandler(echo.NewHTTPError(code, ae.Message), c)
	}
}
