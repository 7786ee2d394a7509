package folio

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

const (
	adminPageSize      = 20
	dashboardPosts     = 5
	dashboardContacts  = 5
	adminMediaPageSize = 48
)

// login checks credentials against the users table under the per-IP login
// limiter. Both the admin form and POST /api/auth/login go through it.
func (a *App) login(c echo.Context, req loginRequest) (store.User, error) {
	if err := req.Validate(); err != nil {
		return store.User{}, apperr.FromValidation(err)
	}
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return store.User{}, apperr.RateLimit(a.loginLimiter.Max(), a.loginLimiter.Window(), a.loginLimiter.RetryAt(ip))
	}
	user, err := a.Store.Users.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			a.loginLimiter.Record(ip)
			a.logger.Warn().Str("ip", ip).Msg("failed login")
			return store.User{}, apperr.Unauthorized("Invalid email or password")
		}
		return store.User{}, err
	}
	a.loginLimiter.Reset(ip)
	return user, nil
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return renderView(c, http.StatusOK, a.Views.AdminLogin, views.AdminLoginPage{Page: a.page(c, "Sign in")})
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	user, err := a.login(c, req)
	if err != nil {
		ae := toAppError(err)
		if ae.Status >= 500 {
			return err
		}
		return renderView(c, ae.Status, a.Views.AdminLogin, views.AdminLoginPage{
			Page:  a.page(c, "Sign in"),
			Email: req.Email,
			Error: ae.Message,
		})
	}
	if err := setAdminSession(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	user, err := a.Store.Users.GetByID(ctx, sessionUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The account was removed while the session was live.
			_ = clearAdminSession(c)
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return err
	}
	stats, err := a.Store.Stats(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Store.Posts.List(ctx, store.BlogPostFilter{Limit: dashboardPosts, OrderBy: "updated_at", OrderDir: "desc"})
	if err != nil {
		return err
	}
	contacts, err := a.Store.Contacts.List(ctx, store.ContactFilter{Status: store.ContactNew, Limit: dashboardContacts})
	if err != nil {
		return err
	}
	return renderView(c, http.StatusOK, a.Views.AdminDashboard, views.AdminDashboardPage{
		Page:        a.page(c, "Dashboard"),
		User:        user,
		Stats:       stats,
		RecentPosts: posts.Data,
		NewContacts: contacts.Data,
		Message:     msg,
	})
}

// formBool reads a checkbox.
func formBool(c echo.Context, name string) *bool {
	v := c.FormValue(name)
	b := v != "" && v != "false" && v != "0"
	return &b
}

// formString returns a pointer to the trimmed form value.
func formString(c echo.Context, name string) *string {
	v := strings.TrimSpace(c.FormValue(name))
	return &v
}

// formOptional is formString with an empty value read as absent.
func formOptional(c echo.Context, name string) *string {
	if v := formString(c, name); *v != "" {
		return v
	}
	return nil
}

// formID reads the hidden id field of an edit form; zero means create.
func formID(c echo.Context) (int64, error) {
	raw := strings.TrimSpace(c.FormValue("id"))
	if raw == "" || raw == "0" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid id: "+raw, "id")
	}
	return id, nil
}

// Posts

func (a *App) handleAdminPosts(c echo.Context) error {
	return a.renderAdminPosts(c, c.QueryParam("msg"))
}

func (a *App) renderAdminPosts(c echo.Context, msg string) error {
	status := c.QueryParam("status")
	posts, err := a.Store.Posts.List(c.Request().Context(), store.BlogPostFilter{
		Status:   status,
		Search:   strings.TrimSpace(c.QueryParam("q")),
		Limit:    adminPageSize,
		Offset:   pageOffset(c, adminPageSize),
		OrderBy:  "updated_at",
		OrderDir: "desc",
	})
	if err != nil {
		return err
	}
	return renderView(c, http.StatusOK, a.Views.AdminPosts, views.AdminPostsPage{
		Page:       a.page(c, "Posts"),
		Posts:      posts.Data,
		Status:     status,
		Pagination: views.PaginationOf(posts),
		Message:    msg,
	})
}

func (a *App) handleAdminPostForm(c echo.Context) error {
	ctx := c.Request().Context()
	var post store.BlogPost
	if c.Param("id") != "" {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if post, err = a.Store.Posts.GetByID(ctx, id); err != nil {
			return notFound(err, "Blog post", id)
		}
	} else {
		post.Status = store.StatusDraft
	}
	return a.renderPostForm(c, http.StatusOK, post, nil)
}

func (a *App) renderPostForm(c echo.Context, code int, post store.BlogPost, errs map[string]string) error {
	categories, err := a.Store.Posts.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	title := "New post"
	if post.ID != 0 {
		title = "Edit " + post.Title
	}
	return renderView(c, code, a.Views.AdminPostForm, views.AdminPostFormPage{
		Page:       a.page(c, title),
		Post:       post,
		Categories: categories,
		Errors:     errs,
	})
}

func postFormRequest(c echo.Context) blogRequest {
	tags := splitList(c.FormValue("tags"))
	if tags == nil {
		tags = []string{}
	}
	return blogRequest{
		Title:         formString(c, "title"),
		Slug:          formString(c, "slug"),
		Content:       formString(c, "content"),
		Excerpt:       formString(c, "excerpt"),
		FeaturedImage: formString(c, "featured_image"),
		Category:      formString(c, "category"),
		Status:        formOptional(c, "status"),
		Featured:      formBool(c, "featured"),
		PublishedAt:   formString(c, "published_at"),
		Tags:          tags,
	}
}

// draftPost rebuilds the submitted form as a post so a rejected form can
// be shown again with the user's input.
func draftPost(id int64, req blogRequest) store.BlogPost {
	in := req.input()
	post := store.BlogPost{
		ID:            id,
		Title:         in.Title,
		Slug:          in.Slug,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		FeaturedImage: in.FeaturedImage,
		Category:      in.Category,
		Status:        in.Status,
		Featured:      in.Featured,
		PublishedAt:   in.PublishedAt,
	}
	for _, t := range in.Tags {
		post.Tags = append(post.Tags, store.Tag{Name: t})
	}
	return post
}

func (a *App) handleAdminPostSave(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := formID(c)
	if err != nil {
		return err
	}
	req := postFormRequest(c)
	if err := req.Validate(id == 0); err != nil {
		return a.renderPostForm(c, http.StatusUnprocessableEntity, draftPost(id, req), fieldErrors(apperr.FromValidation(err)))
	}

	if id == 0 {
		_, err = a.Store.Posts.Create(ctx, req.input())
	} else {
		_, err = a.Store.Posts.Update(ctx, id, req.patch())
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(err, "Blog post", id)
		}
		if ae, ok := apperr.As(err); ok && ae.Status < 500 {
			return a.renderPostForm(c, ae.Status, draftPost(id, req), fieldErrors(err))
		}
		return err
	}
	a.invalidate(ctx)
	return c.Redirect(http.StatusSeeOther, "/admin/posts/?msg=saved")
}

func (a *App) handleAdminPostDelete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ok, err := a.Store.Posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Blog post", id)
	}
	a.invalidate(ctx)
	return a.renderAdminPosts(c, "deleted")
}

// Projects

func (a *App) handleAdminProjects(c echo.Context) error {
	return a.renderAdminProjects(c, c.QueryParam("msg"))
}

func (a *App) renderAdminProjects(c echo.Context, msg string) error {
	projects, err := a.Store.Projects.All(c.Request().Context())
	if err != nil {
		return err
	}
	return renderView(c, http.StatusOK, a.Views.AdminProjects, views.AdminProjectsPage{
		Page:     a.page(c, "Projects"),
		Projects: projects,
		Message:  msg,
	})
}

func (a *App) handleAdminProjectForm(c echo.Context) error {
	ctx := c.Request().Context()
	var p store.Project
	if c.Param("id") != "" {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if p, err = a.Store.Projects.GetByID(ctx, id); err != nil {
			return notFound(err, "Project", id)
		}
	} else {
		p.Status = store.ProjectPlanning
	}
	return a.renderProjectForm(c, http.StatusOK, p, nil)
}

func (a *App) renderProjectForm(c echo.Context, code int, p store.Project, errs map[string]string) error {
	skills, err := a.Store.Skills.List(c.Request().Context(), store.SkillFilter{})
	if err != nil {
		return err
	}
	title := "New project"
	if p.ID != 0 {
		title = "Edit " + p.Title
	}
	return renderView(c, code, a.Views.AdminProjectForm, views.AdminProjectFormPage{
		Page:    a.page(c, title),
		Project: p,
		Skills:  skills,
		Errors:  errs,
	})
}

func projectFormRequest(c echo.Context) (projectRequest, error) {
	lines := func(name string) *[]string {
		v := splitLines(c.FormValue(name))
		if v == nil {
			v = []string{}
		}
		return &v
	}
	techs := splitList(c.FormValue("technologies"))
	if techs == nil {
		techs = []string{}
	}
	req := projectRequest{
		Title:              formString(c, "title"),
		Slug:               formString(c, "slug"),
		Description:        formString(c, "description"),
		LongDescription:    formString(c, "long_description"),
		ImageURL:           formString(c, "image_url"),
		Technologies:       &techs,
		GithubURL:          formString(c, "github_url"),
		DemoURL:            formString(c, "demo_url"),
		Status:             formOptional(c, "status"),
		Featured:           formBool(c, "featured"),
		StartDate:          formString(c, "start_date"),
		CompletionDate:     formString(c, "completion_date"),
		Challenges:         lines("challenges"),
		Solutions:          lines("solutions"),
		SkillsDemonstrated: lines("skills_demonstrated"),
		MetaDescription:    formString(c, "meta_description"),
		SkillIDs:           []int64{},
	}
	if raw := strings.TrimSpace(c.FormValue("sort_order")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, apperr.Validation("sort_order must be a number", "sort_order")
		}
		req.SortOrder = &n
	}
	form, err := c.FormParams()
	if err != nil {
		return req, err
	}
	for _, raw := range form["skill_ids"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, apperr.Validation("Invalid skill id: "+raw, "skill_ids")
		}
		req.SkillIDs = append(req.SkillIDs, id)
	}
	return req, nil
}

func draftProject(id int64, req projectRequest) store.Project {
	in := req.input()
	return store.Project{
		ID:                 id,
		Title:              in.Title,
		Slug:               in.Slug,
		Description:        in.Description,
		LongDescription:    in.LongDescription,
		ImageURL:           in.ImageURL,
		Technologies:       in.Technologies,
		GithubURL:          in.GithubURL,
		DemoURL:            in.DemoURL,
		Status:             in.Status,
		Featured:           in.Featured,
		StartDate:          in.StartDate,
		CompletionDate:     in.CompletionDate,
		Challenges:         in.Challenges,
		Solutions:          in.Solutions,
		SkillsDemonstrated: in.SkillsDemonstrated,
		MetaDescription:    in.MetaDescription,
		SortOrder:          in.SortOrder,
	}
}

func (a *App) handleAdminProjectSave(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := formID(c)
	if err != nil {
		return err
	}
	req, err := projectFormRequest(c)
	if err != nil {
		return a.renderProjectForm(c, http.StatusUnprocessableEntity, draftProject(id, req), fieldErrors(err))
	}
	if err := req.Validate(id == 0); err != nil {
		return a.renderProjectForm(c, http.StatusUnprocessableEntity, draftProject(id, req), fieldErrors(apperr.FromValidation(err)))
	}

	if id == 0 {
		_, err = a.Store.Projects.Create(ctx, req.input())
	} else {
		_, err = a.Store.Projects.Update(ctx, id, req.patch())
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(err, "Project", id)
		}
		if ae, ok := apperr.As(err); ok && ae.Status < 500 {
			return a.renderProjectForm(c, ae.Status, draftProject(id, req), fieldErrors(err))
		}
		return err
	}
	a.invalidate(ctx)
	return c.Redirect(http.StatusSeeOther, "/admin/projects/?msg=saved")
}

func (a *App) handleAdminProjectDelete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ok, err := a.Store.Projects.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Project", id)
	}
	a.invalidate(ctx)
	return a.renderAdminProjects(c, "deleted")
}

// Media

func (a *App) handleAdminMedia(c echo.Context) error {
	return a.renderAdminMedia(c, c.QueryParam("msg"))
}

func (a *App) renderAdminMedia(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	search := strings.TrimSpace(c.QueryParam("q"))
	typ := c.QueryParam("type")
	files, err := a.Store.Media.List(ctx, store.MediaFilter{
		Search: search,
		Type:   typ,
		Limit:  adminMediaPageSize,
		Offset: pageOffset(c, adminMediaPageSize),
	})
	if err != nil {
		return err
	}
	stats, err := a.Store.Media.StorageStats(ctx)
	if err != nil {
		return err
	}
	return renderView(c, http.StatusOK, a.Views.AdminMedia, views.AdminMediaPage{
		Page:       a.page(c, "Media"),
		Files:      files.Data,
		Stats:      stats,
		Search:     search,
		Type:       typ,
		Pagination: views.PaginationOf(files),
		Message:    msg,
	})
}

func (a *App) handleAdminMediaUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return apperr.Validation("No files provided", "files")
	}
	results, saved := a.uploadFiles(c.Request().Context(), form)
	msg := strconv.Itoa(saved) + " of " + strconv.Itoa(len(results)) + " files uploaded"
	for _, r := range results {
		if f, ok := r.(uploadFailure); ok {
			msg += "; " + f.Filename + ": " + f.Error
		}
	}
	return a.renderAdminMedia(c, msg)
}

// handleAdminMediaUpdate saves the alt text and, when changed, the
// filename of a media file.
func (a *App) handleAdminMediaUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := a.Store.Media.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Media file", id)
	}
	if _, err := a.updateMedia(ctx, m, mediaPatchRequest{
		AltText:  formString(c, "alt_text"),
		Filename: formString(c, "filename"),
	}); err != nil {
		if ae, ok := apperr.As(err); ok && ae.Status < 500 {
			return a.renderAdminMedia(c, ae.Message)
		}
		return err
	}
	return a.renderAdminMedia(c, "saved")
}

// updateMedia applies a patch: a new filename renames the file, the rest
// is metadata.
func (a *App) updateMedia(ctx context.Context, m store.MediaFile, req mediaPatchRequest) (store.MediaFile, error) {
	if err := req.Validate(); err != nil {
		return m, apperr.FromValidation(err)
	}
	var err error
	if req.Filename != nil && *req.Filename != m.Filename {
		if m, err = a.renameMedia(ctx, m, *req.Filename); err != nil {
			return m, err
		}
	}
	if req.AltText != nil || req.OriginalFilename != nil {
		if m, err = a.Store.Media.Update(ctx, m.ID, store.MediaPatch{
			AltText:          req.AltText,
			OriginalFilename: req.OriginalFilename,
		}); err != nil {
			return m, err
		}
		a.invalidate(ctx)
	}
	return m, nil
}

func (a *App) handleAdminMediaDelete(c echo.Context) error {
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
	return a.renderAdminMedia(c, "deleted")
}

// Contacts

func (a *App) handleAdminContacts(c echo.Context) error {
	ctx := c.Request().Context()
	status := c.QueryParam("status")
	contacts, err := a.Store.Contacts.List(ctx, store.ContactFilter{
		Status: status,
		Limit:  adminPageSize,
		Offset: pageOffset(c, adminPageSize),
	})
	if err != nil {
		return err
	}
	counts, err := a.Store.Contacts.CountByStatus(ctx)
	if err != nil {
		return err
	}
	return renderView(c, http.StatusOK, a.Views.AdminContacts, views.AdminContactsPage{
		Page:       a.page(c, "Messages"),
		Contacts:   contacts.Data,
		Status:     status,
		Counts:     counts,
		Pagination: views.PaginationOf(contacts),
	})
}

func (a *App) handleAdminContactStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := a.Store.Contacts.UpdateStatus(c.Request().Context(), id, c.FormValue("status")); err != nil {
		return notFound(err, "Contact submission", id)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/contacts/")
}
