// Package folio is a portfolio site engine built with Go, Echo, and templ.
// It provides a blog, a project showcase, an admin CMS, a REST JSON API,
// RSS and a sitemap on top of a single SQLite database.
//
// Users provide their own templ templates via the ViewFuncs struct, and
// folio handles the handler logic, middleware, and database operations.
// A nil view makes the route answer with its page data as JSON.
package folio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/folio/analytics"
	"github.com/eringen/folio/auth"
	"github.com/eringen/folio/imageset"
	"github.com/eringen/folio/store"
	"github.com/eringen/folio/views"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages.
type ViewFuncs struct {
	Home     func(views.HomePage) templ.Component
	BlogList func(views.BlogListPage) templ.Component
	Post     func(views.PostPage) templ.Component
	Projects func(views.ProjectsPage) templ.Component
	Project  func(views.ProjectPage) templ.Component
	Search   func(views.SearchPage) templ.Component
	Contact  func(views.ContactPage) templ.Component

	AdminLogin       func(views.AdminLoginPage) templ.Component
	AdminDashboard   func(views.AdminDashboardPage) templ.Component
	AdminPosts       func(views.AdminPostsPage) templ.Component
	AdminPostForm    func(views.AdminPostFormPage) templ.Component
	AdminProjects    func(views.AdminProjectsPage) templ.Component
	AdminProjectForm func(views.AdminProjectFormPage) templ.Component
	AdminMedia       func(views.AdminMediaPage) templ.Component
	AdminContacts    func(views.AdminContactsPage) templ.Component

	NotFound    func(views.ErrorPage) templ.Component
	ServerError func(views.ErrorPage) templ.Component
}

// App is the central folio application. It wires together the store,
// cache, handlers, middleware, and user-provided templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *store.Store
	Cache   *ContentCache
	Views   ViewFuncs
	Tokens  *auth.TokenManager
	Tracker *analytics.Tracker
	Images  *imageset.Generator
	Metrics *Metrics

	logger         zerolog.Logger
	loginLimiter   *LoginLimiter
	contactLimiter *LoginLimiter
	customRoutes   []func(*App)
	staticDir      string
	ownStore       bool
	initialized    bool
	stop           context.CancelFunc
}

// New creates a new folio App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     views,
		logger:    log.Logger,
		staticDir: "public",
		ownStore:  true,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and cache, starts the background workers and
// registers middleware and routes. Start calls it when needed; tests call
// it directly and drive a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("folio: SessionSecret is required")
	}
	if a.Config.JWTSecret == "" {
		return errors.New("folio: JWTSecret is required")
	}

	if a.Store == nil {
		s, err := store.Open(ctx, store.Options{
			Path:          a.Config.DatabasePath,
			Seed:          a.Config.SeedContent,
			AdminEmail:    a.Config.AdminEmail,
			AdminName:     a.Config.AdminName,
			AdminPassword: a.Config.AdminPassword,
		})
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.Store = s
		a.ownStore = true
	}

	if err := analytics.InitSalt(ctx, a.Store.Settings); err != nil {
		return fmt.Errorf("folio: init analytics salt: %w", err)
	}

	if a.Config.MetricsEnabled {
		a.Metrics = NewMetrics()
	}
	a.Cache = NewContentCache(ctx, a.Config.RedisAddr, a.Config.CacheTTL, a.Metrics)
	a.Tokens = auth.NewTokenManager(a.Config.JWTSecret, a.Config.TokenTTL)

	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.contactLimiter = NewLoginLimiter(5, time.Hour)

	a.Tracker = analytics.NewTracker(a.Store.Posts, analytics.DefaultWindow)
	a.Tracker.OnView = func(int64) { a.Metrics.ObserveView() }

	a.Images = imageset.NewGenerator(a.Config.UploadDir)

	runCtx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	go a.Tracker.Run(runCtx)
	go a.loginLimiter.Run(runCtx)
	go a.contactLimiter.Run(runCtx)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	return nil
}

// Start initializes the app if needed and serves until the server is shut
// down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.logger.Info().Str("addr", a.Config.Addr).Str("env", a.Config.Env).Msg("folio listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets and uploads
	e.Static("/public", a.staticDir)
	e.Static("/uploads", filepath.Join(a.Config.UploadDir, uploadsSubdir))
	e.Static(imageset.OptimizedPrefix, filepath.Join(a.Config.UploadDir, filepath.FromSlash(imageset.OptimizedPrefix)))
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Feeds
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Public pages
	e.GET("/", a.handleHome)
	e.GET("/blog/", a.handleBlogList)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/projects/", a.handleProjects)
	e.GET("/projects/:slug/", a.handleProject)
	e.GET("/search/", a.handleSearch)
	e.GET("/contact/", a.handleContactForm)
	e.POST("/contact/", a.handleContact)

	// Admin
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", a.requireAdmin)
	admin.GET("/posts/", a.handleAdminPosts)
	admin.GET("/posts/new/", a.handleAdminPostForm)
	admin.GET("/posts/:id/", a.handleAdminPostForm)
	admin.POST("/posts/save/", a.handleAdminPostSave)
	admin.DELETE("/posts/:id/", a.handleAdminPostDelete)
	admin.GET("/projects/", a.handleAdminProjects)
	admin.GET("/projects/new/", a.handleAdminProjectForm)
	admin.GET("/projects/:id/", a.handleAdminProjectForm)
	admin.POST("/projects/save/", a.handleAdminProjectSave)
	admin.DELETE("/projects/:id/", a.handleAdminProjectDelete)
	admin.GET("/media/", a.handleAdminMedia)
	admin.POST("/media/upload/", a.handleAdminMediaUpload)
	admin.POST("/media/:id/", a.handleAdminMediaUpdate)
	admin.DELETE("/media/:id/", a.handleAdminMediaDelete)
	admin.GET("/contacts/", a.handleAdminContacts)
	admin.POST("/contacts/:id/status/", a.handleAdminContactStatus)

	if a.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()), a.requireAdmin)
	}

	a.setupAPIRoutes()
}

func (a *App) setupAPIRoutes() {
	api := a.Echo.Group("/api", a.apiRateLimiter())
	write := a.requireToken

	api.POST("/auth/login", a.apiLogin)

	api.GET("/blogs", a.apiListBlogs)
	api.POST("/blogs", a.apiCreateBlog, write)
	api.GET("/blogs/stats", a.apiBlogStats)
	api.GET("/blogs/slug/:slug", a.apiBlogBySlug)
	api.GET("/blogs/slug/:slug/related", a.apiRelatedBlogs)
	api.GET("/blogs/:id", a.apiGetBlog)
	api.PUT("/blogs/:id", a.apiUpdateBlog, write)
	api.DELETE("/blogs/:id", a.apiDeleteBlog, write)

	api.GET("/projects", a.apiListProjects)
	api.POST("/projects", a.apiCreateProject, write)
	api.GET("/projects/stats", a.apiProjectStats)
	api.GET("/projects/slug/:slug", a.apiProjectBySlug)
	api.GET("/projects/:id", a.apiGetProject)
	api.PUT("/projects/:id", a.apiUpdateProject, write)
	api.DELETE("/projects/:id", a.apiDeleteProject, write)

	media := api.Group("/media", write)
	media.GET("", a.apiListMedia)
	media.POST("", a.apiUploadMedia)
	media.DELETE("", a.apiDeleteMediaBatch)
	media.GET("/stats", a.apiMediaStats)
	media.GET("/:id", a.apiGetMedia)
	media.PATCH("/:id", a.apiUpdateMedia)
	media.DELETE("/:id", a.apiDeleteMedia)

	api.GET("/skills", a.apiListSkills)
	api.GET("/skills/categories", a.apiSkillCategories)
	api.GET("/tags", a.apiListTags)
	api.GET("/search", a.apiSearch)
	api.GET("/stats", a.apiStats, write)
	api.POST("/contact", a.apiContact)
	api.GET("/site", a.apiGetSite)
	api.PUT("/site", a.apiUpdateSite, write)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stop != nil {
		a.stop()
	}
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Store != nil && a.ownStore {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatal().Str("key", key).Msg("folio: required environment variable is not set")
	}
	return v
}
