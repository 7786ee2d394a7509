package folio

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
)

func (a *App) apiListProjects(c echo.Context) error {
	limit, offset := listWindow(c)
	f := store.ProjectFilter{
		Featured:   queryBool(c, "featured"),
		Skill:      strings.TrimSpace(c.QueryParam("skill")),
		Technology: strings.TrimSpace(c.QueryParam("technology")),
		Search:     strings.TrimSpace(c.QueryParam("search")),
		Limit:      limit,
		Offset:     offset,
		OrderBy:    c.QueryParam("order_by"),
		OrderDir:   c.QueryParam("order"),
	}
	if s := c.QueryParam("status"); s != "" {
		status, ok := store.NormalizeProjectStatus(s)
		if !ok {
			return apperr.Validation("status must be one of "+strings.Join(store.ProjectStatuses, ", "), "status")
		}
		f.Status = status
	}
	projects, err := a.Store.Projects.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return successPage(c, projects)
}

func (a *App) apiGetProject(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := a.Store.Projects.GetByID(c.Request().Context(), id)
	if err != nil {
		return notFound(err, "Project", id)
	}
	return success(c, p)
}

func (a *App) apiProjectBySlug(c echo.Context) error {
	slug := c.Param("slug")
	p, err := a.Store.Projects.GetBySlug(c.Request().Context(), slug)
	if err != nil {
		return notFoundSlug(err, "Project", slug)
	}
	return success(c, p)
}

func (a *App) apiProjectStats(c echo.Context) error {
	stats, err := a.Store.Projects.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return success(c, stats)
}

func (a *App) apiCreateProject(c echo.Context) error {
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := req.Validate(true); err != nil {
		return apperr.FromValidation(err)
	}
	p, err := a.Store.Projects.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	a.invalidate(c.Request().Context())
	return created(c, p)
}

func (a *App) apiUpdateProject(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := req.Validate(false); err != nil {
		return apperr.FromValidation(err)
	}
	p, err := a.Store.Projects.Update(c.Request().Context(), id, req.patch())
	if err != nil {
		return notFound(err, "Project", id)
	}
	a.invalidate(c.Request().Context())
	return success(c, p)
}

func (a *App) apiDeleteProject(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ok, err := a.Store.Projects.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Project", id)
	}
	a.invalidate(c.Request().Context())
	return success(c, map[string]any{"id": id, "deleted": true})
}
