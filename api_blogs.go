package folio

import (
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
)

const (
	defaultRelated = 3
	maxRelated     = 20
)

func (a *App) apiListBlogs(c echo.Context) error {
	limit, offset := listWindow(c)
	f := store.BlogPostFilter{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		TagSlug:  strings.TrimSpace(c.QueryParam("tag")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Featured: queryBool(c, "featured"),
		Limit:    limit,
		Offset:   offset,
		OrderBy:  c.QueryParam("order_by"),
		OrderDir: c.QueryParam("order"),
	}
	status := c.QueryParam("status")
	if status != "" && !slices.Contains(store.PostStatuses, status) {
		return apperr.Validation("status must be one of "+strings.Join(store.PostStatuses, ", "), "status")
	}
	if a.authenticated(c) {
		f.Status = status
	} else {
		if status != "" && status != store.StatusPublished {
			return apperr.Unauthorized("Authentication required to list " + status + " posts")
		}
		f.Published = true
	}
	posts, err := a.Store.Posts.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return successPage(c, posts)
}

func (a *App) apiGetBlog(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	post, err := a.Store.Posts.GetByID(c.Request().Context(), id)
	if err != nil {
		return notFound(err, "Blog post", id)
	}
	if !post.IsPublished(time.Now()) && !a.authenticated(c) {
		return apperr.NotFound("Blog post", id)
	}
	return success(c, post)
}

func (a *App) apiBlogBySlug(c echo.Context) error {
	slug := c.Param("slug")
	post, err := a.Store.Posts.GetPublishedBySlug(c.Request().Context(), slug)
	if err != nil {
		return notFoundSlug(err, "Blog post", slug)
	}
	return success(c, post)
}

func (a *App) apiRelatedBlogs(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	post, err := a.Store.Posts.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return notFoundSlug(err, "Blog post", slug)
	}
	limit := queryInt(c, "limit", defaultRelated)
	if limit <= 0 {
		limit = defaultRelated
	}
	related, err := a.Store.Posts.Related(ctx, post.ID, min(limit, maxRelated))
	if err != nil {
		return err
	}
	return success(c, related)
}

func (a *App) apiBlogStats(c echo.Context) error {
	stats, err := a.Store.Posts.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return success(c, stats)
}

func (a *App) apiCreateBlog(c echo.Context) error {
	var req blogRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := req.Validate(true); err != nil {
		return apperr.FromValidation(err)
	}
	post, err := a.Store.Posts.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	a.invalidate(c.Request().Context())
	return created(c, post)
}

func (a *App) apiUpdateBlog(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req blogRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := req.Validate(false); err != nil {
		return apperr.FromValidation(err)
	}
	post, err := a.Store.Posts.Update(c.Request().Context(), id, req.patch())
	if err != nil {
		return notFound(err, "Blog post", id)
	}
	a.invalidate(c.Request().Context())
	return success(c, post)
}

func (a *App) apiDeleteBlog(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ok, err := a.Store.Posts.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Blog post", id)
	}
	a.invalidate(c.Request().Context())
	return success(c, map[string]any{"id": id, "deleted": true})
}
