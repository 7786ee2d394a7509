package folio

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
)

// Envelope is the body of every successful API response.
type Envelope struct {
	Success bool  `json:"success"`
	Data    any   `json:"data"`
	Meta    *Meta `json:"meta,omitempty"`
}

// ErrorEnvelope is the body of every failed API response.
type ErrorEnvelope struct {
	Success bool            `json:"success"`
	Error   apperr.APIError `json:"error"`
}

// Meta carries the paging of a list response.
type Meta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func metaOf[T any](p store.Page[T]) *Meta {
	return &Meta{
		Total:      p.Total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func created(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func successPage[T any](c echo.Context, p store.Page[T]) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: p.Data, Meta: metaOf(p)})
}
