package folio

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
)

func (a *App) apiListMedia(c echo.Context) error {
	limit, offset := listWindow(c)
	files, err := a.Store.Media.List(c.Request().Context(), store.MediaFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Type:   c.QueryParam("type"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	return successPage(c, files)
}

func (a *App) apiMediaStats(c echo.Context) error {
	stats, err := a.Store.Media.StorageStats(c.Request().Context())
	if err != nil {
		return err
	}
	return success(c, stats)
}

func (a *App) apiGetMedia(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := a.Store.Media.GetByID(c.Request().Context(), id)
	if err != nil {
		return notFound(err, "Media file", id)
	}
	return success(c, m)
}

// apiUploadMedia stores every file of the multipart field "files". A file
// that fails does not fail the request; its entry carries the error.
func (a *App) apiUploadMedia(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return apperr.Validation("No files provided", "files")
	}
	results, _ := a.uploadFiles(c.Request().Context(), form)
	return success(c, results)
}

func (a *App) apiUpdateMedia(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req mediaPatchRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.empty() {
		return apperr.Validation("No valid fields to update", "")
	}
	m, err := a.Store.Media.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Media file", id)
	}
	m, err = a.updateMedia(ctx, m, req)
	if err != nil {
		return notFound(err, "Media file", id)
	}
	return success(c, m)
}

func (a *App) apiDeleteMedia(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := a.deleteMedia(c.Request().Context(), []int64{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Media file", id)
	}
	return success(c, map[string]any{"id": id, "deleted": true})
}

func (a *App) apiDeleteMediaBatch(c echo.Context) error {
	var req mediaDeleteRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if len(req.IDs) == 0 {
		return apperr.Validation("Invalid or missing file IDs", "ids")
	}
	n, err := a.deleteMedia(c.Request().Context(), req.IDs)
	if err != nil {
		return err
	}
	return success(c, map[string]int{
		"deletedCount":   n,
		"totalRequested": len(req.IDs),
	})
}
