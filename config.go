package folio

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/folio/store"
)

// DefaultDatabasePath is used when DatabasePath is empty.
const DefaultDatabasePath = "./data/portfolio.db"

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string // Site name (default "Portfolio")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD
	Twitter     string // Twitter handle for card tags

	Addr     string // Listen address (default ":3000")
	Env      string // "development" or "production"
	LogLevel string

	DatabasePath string // SQLite path (default "./data/portfolio.db")
	UploadDir    string // Upload root, served at /uploads (default "static")

	AdminEmail    string // Seeded admin account
	AdminName     string
	AdminPassword string

	SessionSecret string // Required: admin cookie signing secret
	JWTSecret     string // Required: API token signing secret
	TokenTTL      time.Duration
	CookieSecure  bool // Set true for HTTPS

	CacheTTL  time.Duration // Content cache TTL (default 5min)
	RedisAddr string        // Optional; memory cache when empty or unreachable

	APIRateLimit float64 // Requests per second per IP on /api (default 20)

	SeedContent    bool // Seed sample content into empty tables
	MetricsEnabled bool // Serve /metrics to admins
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.UploadDir == "" {
		c.UploadDir = "static"
	}
	if c.AdminEmail == "" {
		c.AdminEmail = "admin@example.com"
	}
	if c.AdminName == "" {
		c.AdminName = "Admin"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 12 * time.Hour
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.APIRateLimit == 0 {
		c.APIRateLimit = 20
	}
}

// Production reports whether the site runs with production error output.
func (c SiteConfig) Production() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// ConfigFromEnv reads a SiteConfig from the environment. The two secrets
// are required.
func ConfigFromEnv() SiteConfig {
	return SiteConfig{
		Name:           EnvOr("SITE_NAME", ""),
		URL:            EnvOr("SITE_URL", ""),
		Description:    EnvOr("SITE_DESCRIPTION", ""),
		Author:         EnvOr("SITE_AUTHOR", ""),
		Twitter:        EnvOr("SITE_TWITTER", ""),
		Addr:           EnvOr("ADDR", ""),
		Env:            EnvOr("APP_ENV", "development"),
		LogLevel:       EnvOr("LOG_LEVEL", "info"),
		DatabasePath:   EnvOr("DATABASE_PATH", ""),
		UploadDir:      EnvOr("UPLOAD_DIR", ""),
		AdminEmail:     EnvOr("ADMIN_EMAIL", ""),
		AdminName:      EnvOr("ADMIN_NAME", ""),
		AdminPassword:  EnvOr("ADMIN_PASSWORD", ""),
		SessionSecret:  MustEnv("SESSION_SECRET"),
		JWTSecret:      MustEnv("JWT_SECRET"),
		TokenTTL:       envDuration("TOKEN_TTL"),
		CookieSecure:   envBool("COOKIE_SECURE", false),
		CacheTTL:       envDuration("CACHE_TTL"),
		RedisAddr:      EnvOr("REDIS_ADDR", ""),
		APIRateLimit:   envFloat("API_RATE_LIMIT"),
		SeedContent:    envBool("SEED_CONTENT", true),
		MetricsEnabled: envBool("METRICS_ENABLED", false),
	}
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string) time.Duration {
	d, _ := time.ParseDuration(EnvOr(key, ""))
	return d
}

func envFloat(key string) float64 {
	f, _ := strconv.ParseFloat(EnvOr(key, ""), 64)
	return f
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the global logger used by the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithStore uses an already opened store instead of opening DatabasePath.
// The caller keeps ownership and closes it.
func WithStore(s *store.Store) Option {
	return func(a *App) {
		a.Store = s
		a.ownStore = false
	}
}
