package folio

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/analytics"
	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/seo"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

const (
	blogPageSize  = 10
	homePosts     = 3
	homeProjects  = 6
	relatedPosts  = 3
	searchResults = 20
)

type homeData struct {
	FeaturedProjects []store.Project    `json:"featured_projects"`
	RecentPosts      []store.BlogPost   `json:"recent_posts"`
	Skills           []store.SkillGroup `json:"skills"`
}

func (a *App) loadHome(ctx context.Context) (homeData, error) {
	var d homeData
	var err error
	if d.FeaturedProjects, err = a.Store.Projects.Featured(ctx, homeProjects); err != nil {
		return d, err
	}
	if d.RecentPosts, err = a.Store.Posts.Recent(ctx, homePosts); err != nil {
		return d, err
	}
	if d.Skills, err = a.Store.Skills.ByCategory(ctx); err != nil {
		return d, err
	}
	return d, nil
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	data, err := Load(ctx, a.Cache, keyHome, a.loadHome)
	if err != nil {
		return err
	}
	page := a.page(c)
	page.JSONLD = seo.JSONLD([]seo.StructuredData{
		seo.Website(seo.WebsiteInfo{
			Name:        a.Config.Name,
			URL:         a.Config.URL,
			Description: a.Config.Description,
			Author:      a.Config.Author,
		}),
		seo.Person(seo.PersonInfo{
			Name:        page.Profile.AuthorName,
			URL:         a.Config.URL,
			Email:       page.Profile.AuthorEmail,
			Description: page.Profile.AuthorBio,
			SameAs:      FilterEmpty([]string{page.Profile.SocialGithub, page.Profile.SocialLinkedIn, page.Profile.SocialTwitter}),
		}),
	})
	return renderView(c, http.StatusOK, a.Views.Home, views.HomePage{
		Page:             page,
		FeaturedProjects: data.FeaturedProjects,
		RecentPosts:      data.RecentPosts,
		Skills:           data.Skills,
	})
}

func (a *App) handleBlogList(c echo.Context) error {
	ctx := c.Request().Context()
	tag := strings.TrimSpace(c.QueryParam("tag"))
	q := strings.TrimSpace(c.QueryParam("q"))

	posts, err := a.Store.Posts.List(ctx, store.BlogPostFilter{
		Published: true,
		TagSlug:   tag,
		Search:    q,
		Limit:     blogPageSize,
		Offset:    pageOffset(c, blogPageSize),
	})
	if err != nil {
		return err
	}
	tags, err := Load(ctx, a.Cache, keyTags, a.Store.Tags.WithCounts)
	if err != nil {
		return err
	}
	return renderView(c, http.StatusOK, a.Views.BlogList, views.BlogListPage{
		Page:       a.page(c, "Blog"),
		Posts:      posts.Data,
		Tags:       tags,
		ActiveTag:  tag,
		Query:      q,
		Pagination: views.PaginationOf(posts),
	})
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	post, err := a.Store.Posts.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return notFoundSlug(err, "Blog post", slug)
	}
	related, err := a.Store.Posts.Related(ctx, post.ID, relatedPosts)
	if err != nil {
		return err
	}

	if _, err := a.Tracker.Track(ctx, post.ID, c.RealIP(), c.Request().UserAgent()); err != nil {
		a.logger.Warn().Err(err).Int64("post_id", post.ID).Msg("count view")
	}

	page := a.page(c)
	page.Meta = seo.ForBlogPost(post, a.seoConfig())
	postURL := seo.CanonicalURL(post.Link(), a.Config.URL)
	page.JSONLD = seo.JSONLD([]seo.StructuredData{
		seo.BlogPosting(post, a.Config.URL, a.Config.Author),
		seo.Breadcrumbs([]seo.Crumb{
			{Name: "Home", URL: seo.CanonicalURL("/", a.Config.URL)},
			{Name: "Blog", URL: seo.CanonicalURL("/blog/", a.Config.URL)},
			{Name: post.Title, URL: postURL},
		}),
	})

	analysis := seo.Analyze(post.Content)
	return renderView(c, http.StatusOK, a.Views.Post, views.PostPage{
		Page:        page,
		Post:        post,
		HTML:        markdown.ToHTML(post.Content),
		Related:     related,
		ReadingTime: analysis.ReadingTime,
		Headings:    analysis.Headings,
		Share:       seo.ShareURLs(postURL, post.Title, post.Excerpt, a.Config.Twitter),
		Image:       a.picture(post.FeaturedImage, post.Title),
	})
}

func (a *App) handleProjects(c echo.Context) error {
	ctx := c.Request().Context()
	all, err := Load(ctx, a.Cache, keyProjects, a.Store.Projects.All)
	if err != nil {
		return err
	}
	status := ""
	if s := c.QueryParam("status"); s != "" {
		norm, ok := store.NormalizeProjectStatus(s)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown project status")
		}
		status = norm
	}

	projects := make([]store.Project, 0, len(all))
	var techs []string
	for _, p := range all {
		for _, t := range p.Technologies {
			if !slices.Contains(techs, t) {
				techs = append(techs, t)
			}
		}
		if status == "" || p.Status == status {
			projects = append(projects, p)
		}
	}
	slices.Sort(techs)

	return renderView(c, http.StatusOK, a.Views.Projects, views.ProjectsPage{
		Page:         a.page(c, "Projects"),
		Projects:     projects,
		Status:       status,
		Technologies: techs,
	})
}

func (a *App) handleProject(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	p, err := a.Store.Projects.GetBySlug(ctx, slug)
	if err != nil {
		return notFoundSlug(err, "Project", slug)
	}
	page := a.page(c)
	page.Meta = seo.ForProject(p, a.seoConfig())
	page.JSONLD = seo.JSONLD(seo.Breadcrumbs([]seo.Crumb{
		{Name: "Home", URL: seo.CanonicalURL("/", a.Config.URL)},
		{Name: "Projects", URL: seo.CanonicalURL("/projects/", a.Config.URL)},
		{Name: p.Title, URL: seo.CanonicalURL(p.Link(), a.Config.URL)},
	}))

	body := p.LongDescription
	if body == "" {
		body = p.Description
	}
	return renderView(c, http.StatusOK, a.Views.Project, views.ProjectPage{
		Page:    page,
		Project: p,
		HTML:    markdown.ToHTML(body),
		Image:   a.picture(p.ImageURL, p.Title),
	})
}

func (a *App) handleSearch(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	results := []store.SearchResult{}
	if q != "" {
		var err error
		results, err = a.Store.SearchContent(c.Request().Context(), q, searchResults)
		if err != nil {
			return err
		}
	}
	return renderView(c, http.StatusOK, a.Views.Search, views.SearchPage{
		Page:    a.page(c, "Search"),
		Query:   q,
		Results: results,
	})
}

func (a *App) handleContactForm(c echo.Context) error {
	return renderView(c, http.StatusOK, a.Views.Contact, views.ContactPage{Page: a.page(c, "Contact")})
}

func (a *App) handleContact(c echo.Context) error {
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	data := views.ContactPage{Page: a.page(c, "Contact")}
	if _, err := a.submitContact(c, req); err != nil {
		ae := toAppError(err)
		if ae.Status >= 500 {
			return err
		}
		data.Errors = fieldErrors(err)
		return renderView(c, ae.Status, a.Views.Contact, data)
	}
	data.Sent = true
	return renderView(c, http.StatusOK, a.Views.Contact, data)
}

// submitContact validates, rate-limits and stores a contact message. The
// client IP is stored hashed.
func (a *App) submitContact(c echo.Context, req contactRequest) (store.ContactSubmission, error) {
	if err := req.Validate(); err != nil {
		return store.ContactSubmission{}, apperr.FromValidation(err)
	}
	ip := c.RealIP()
	if !a.contactLimiter.Allow(ip) {
		return store.ContactSubmission{}, apperr.RateLimit(a.contactLimiter.Max(), a.contactLimiter.Window(), a.contactLimiter.RetryAt(ip))
	}
	sub, err := a.Store.Contacts.Create(c.Request().Context(), store.ContactInput{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		IPHash:    analytics.HashIP(ip),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return sub, err
	}
	a.logger.Info().Int64("id", sub.ID).Msg("contact submission received")
	return sub, nil
}

// fieldErrors flattens a validation error into field -> message for form
// views. Other errors land under "form".
func fieldErrors(err error) map[string]string {
	ae, ok := apperr.As(err)
	if !ok {
		return map[string]string{"form": err.Error()}
	}
	if perField, ok := ae.Context["errors"].(map[string]string); ok {
		return perField
	}
	if field, ok := ae.Context["field"].(string); ok && field != "" {
		return map[string]string{field: ae.Message}
	}
	return map[string]string{"form": ae.Message}
}

func (a *App) handleFavicon(c echo.Context) error {
	return a.serveStaticOrEmbedded(c, "favicon.svg")
}

