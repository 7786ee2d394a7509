package folio

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
)

func (a *App) allSkills(ctx context.Context) ([]store.Skill, error) {
	return a.Store.Skills.List(ctx, store.SkillFilter{})
}

func (a *App) apiListSkills(c echo.Context) error {
	ctx := c.Request().Context()
	f := store.SkillFilter{
		Category:       strings.TrimSpace(c.QueryParam("category")),
		MinProficiency: queryInt(c, "min_proficiency", 0),
		Search:         strings.TrimSpace(c.QueryParam("search")),
	}
	if f.MinProficiency < 0 || f.MinProficiency > 5 {
		return apperr.Validation("min_proficiency must be between 1 and 5", "min_proficiency")
	}
	var (
		skills []store.Skill
		err    error
	)
	if f == (store.SkillFilter{}) {
		skills, err = Load(ctx, a.Cache, keySkills, a.allSkills)
	} else {
		skills, err = a.Store.Skills.List(ctx, f)
	}
	if err != nil {
		return err
	}
	return success(c, skills)
}

func (a *App) apiSkillCategories(c echo.Context) error {
	cats, err := a.Store.Skills.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return success(c, cats)
}

func (a *App) apiListTags(c echo.Context) error {
	tags, err := Load(c.Request().Context(), a.Cache, keyTags, a.Store.Tags.WithCounts)
	if err != nil {
		return err
	}
	return success(c, tags)
}

func (a *App) apiSearch(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apperr.Validation("Search query is required", "q")
	}
	limit := queryInt(c, "limit", searchResults)
	if limit <= 0 {
		limit = searchResults
	}
	results, err := a.Store.SearchContent(c.Request().Context(), q, min(limit, store.MaxLimit))
	if err != nil {
		return err
	}
	return success(c, results)
}

func (a *App) apiStats(c echo.Context) error {
	stats, err := a.Store.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return success(c, stats)
}

func (a *App) apiContact(c echo.Context) error {
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	sub, err := a.submitContact(c, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: map[string]any{
		"id":         sub.ID,
		"created_at": sub.CreatedAt,
	}})
}

func (a *App) apiGetSite(c echo.Context) error {
	cfg, err := Load(c.Request().Context(), a.Cache, keySite, a.Store.Site.Get)
	if err != nil {
		return notFound(err, "Site config", nil)
	}
	return success(c, cfg)
}

func (a *App) apiUpdateSite(c echo.Context) error {
	var req siteRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return apperr.FromValidation(err)
	}
	cfg, err := a.Store.Site.Update(c.Request().Context(), req.SiteConfigPatch)
	if err != nil {
		return err
	}
	a.invalidate(c.Request().Context())
	return success(c, cfg)
}
