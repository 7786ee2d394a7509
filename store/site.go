package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// SiteConfigDAO reads and writes the single site_config row.
type SiteConfigDAO struct {
	db  *sql.DB
	now func() time.Time
}

// NewSiteConfigDAO creates a SiteConfigDAO over db.
func NewSiteConfigDAO(db *sql.DB) *SiteConfigDAO {
	return &SiteConfigDAO{db: db, now: time.Now}
}

// SiteConfigPatch updates site settings; nil fields are left alone.
type SiteConfigPatch struct {
	SiteTitle       *string `json:"site_title"`
	SiteDescription *string `json:"site_description"`
	SiteURL         *string `json:"site_url"`
	AuthorName      *string `json:"author_name"`
	AuthorEmail     *string `json:"author_email"`
	AuthorBio       *string `json:"author_bio"`
	SocialGithub    *string `json:"social_github"`
	SocialLinkedIn  *string `json:"social_linkedin"`
	SocialTwitter   *string `json:"social_twitter"`
	AnalyticsID     *string `json:"analytics_id"`
}

// Get returns the site configuration. A missing row yields ErrNotFound.
func (d *SiteConfigDAO) Get(ctx context.Context) (SiteConfig, error) {
	var c SiteConfig
	err := d.db.QueryRowContext(ctx, `
		SELECT site_title, site_description, site_url, author_name, author_email, author_bio,
			social_github, social_linkedin, social_twitter, analytics_id, updated_at
		FROM site_config WHERE id = 1`).Scan(&c.SiteTitle, &c.SiteDescription, &c.SiteURL,
		&c.AuthorName, &c.AuthorEmail, &c.AuthorBio, &c.SocialGithub, &c.SocialLinkedIn,
		&c.SocialTwitter, &c.AnalyticsID, scanTime(&c.UpdatedAt))
	if err != nil {
		return SiteConfig{}, dbErr(err)
	}
	return c, nil
}

// Update applies patch, creating the row if needed.
func (d *SiteConfigDAO) Update(ctx context.Context, patch SiteConfigPatch) (SiteConfig, error) {
	current, err := d.Get(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return SiteConfig{}, err
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	apply(&current.SiteTitle, patch.SiteTitle)
	apply(&current.SiteDescription, patch.SiteDescription)
	apply(&current.SiteURL, patch.SiteURL)
	apply(&current.AuthorName, patch.AuthorName)
	apply(&current.AuthorEmail, patch.AuthorEmail)
	apply(&current.AuthorBio, patch.AuthorBio)
	apply(&current.SocialGithub, patch.SocialGithub)
	apply(&current.SocialLinkedIn, patch.SocialLinkedIn)
	apply(&current.SocialTwitter, patch.SocialTwitter)
	apply(&current.AnalyticsID, patch.AnalyticsID)

	if err := d.put(ctx, d.db, current); err != nil {
		return SiteConfig{}, err
	}
	return d.Get(ctx)
}

func (d *SiteConfigDAO) put(ctx context.Context, q queryer, c SiteConfig) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO site_config (id, site_title, site_description, site_url, author_name, author_email,
			author_bio, social_github, social_linkedin, social_twitter, analytics_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			site_title = excluded.site_title,
			site_description = excluded.site_description,
			site_url = excluded.site_url,
			author_name = excluded.author_name,
			author_email = excluded.author_email,
			author_bio = excluded.author_bio,
			social_github = excluded.social_github,
			social_linkedin = excluded.social_linkedin,
			social_twitter = excluded.social_twitter,
			analytics_id = excluded.analytics_id,
			updated_at = excluded.updated_at`,
		c.SiteTitle, c.SiteDescription, c.SiteURL, c.AuthorName, c.AuthorEmail, c.AuthorBio,
		c.SocialGithub, c.SocialLinkedIn, c.SocialTwitter, c.AnalyticsID, formatTime(d.now()))
	return dbErr(err)
}

// SettingsDAO is a key/value store for internal settings.
type SettingsDAO struct {
	db *sql.DB
}

// NewSettingsDAO creates a SettingsDAO over db.
func NewSettingsDAO(db *sql.DB) *SettingsDAO {
	return &SettingsDAO{db: db}
}

// Get returns the value for key, or ErrNotFound.
func (d *SettingsDAO) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	return v, dbErr(err)
}

// Set stores value under key.
func (d *SettingsDAO) Set(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return dbErr(err)
}
