// Package store is the SQLite persistence layer: connection setup, embedded
// migrations, seed content and one DAO per entity.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidCredentials is returned by UserDAO.Authenticate.
	ErrInvalidCredentials = errors.New("store: invalid credentials")
)

// Options configures Open.
type Options struct {
	Path string
	// Seed inserts sample content into empty tables.
	Seed          bool
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// Store owns the database handle and the DAOs built on it.
type Store struct {
	db *sql.DB

	Posts    *BlogPostDAO
	Projects *ProjectDAO
	Skills   *SkillDAO
	Tags     *TagDAO
	Users    *UserDAO
	Media    *MediaDAO
	Contacts *ContactDAO
	Site     *SiteConfigDAO
	Settings *SettingsDAO
}

// Open opens (or creates) the SQLite database at opts.Path, applies
// migrations and, when enabled, seeds empty tables.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("store: empty database path")
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	// foreign_keys and busy_timeout are per connection, so they go in the
	// DSN and apply to every pooled connection.
	dsn := opts.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if opts.Seed {
		if err := s.Seed(ctx, opts); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// New wraps an already opened database. It does not run migrations.
func New(db *sql.DB) *Store {
	tags := NewTagDAO(db)
	return &Store{
		db:       db,
		Posts:    NewBlogPostDAO(db),
		Projects: NewProjectDAO(db),
		Skills:   NewSkillDAO(db),
		Tags:     tags,
		Users:    NewUserDAO(db),
		Media:    NewMediaDAO(db),
		Contacts: NewContactDAO(db),
		Site:     NewSiteConfigDAO(db),
		Settings: NewSettingsDAO(db),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// MigrationResult reports one applied migration.
type MigrationResult struct {
	Version int64
	Path    string
}

// Migrate applies all pending migrations and then the column additions
// older databases may need.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.migrate(ctx)
	return err
}

// MigrateVerbose is Migrate, returning what was applied.
func (s *Store) MigrateVerbose(ctx context.Context) ([]MigrationResult, error) {
	return s.migrate(ctx)
}

func (s *Store) migrate(ctx context.Context) ([]MigrationResult, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, sub)
	if err != nil {
		return nil, fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	var applied []MigrationResult
	for _, r := range results {
		if r.Source == nil {
			continue
		}
		applied = append(applied, MigrationResult{Version: r.Source.Version, Path: r.Source.Path})
		log.Info().Int64("version", r.Source.Version).Str("path", r.Source.Path).Msg("migration applied")
	}
	if err := s.ensureColumns(ctx); err != nil {
		return applied, err
	}
	return applied, nil
}

// legacyColumns are added with ALTER TABLE so databases created before they
// existed keep working.
var legacyColumns = []struct {
	table, column, ddl string
}{
	{"blog_posts", "category", "TEXT NOT NULL DEFAULT ''"},
	{"blog_posts", "featured", "INTEGER NOT NULL DEFAULT 0"},
	{"blog_posts", "view_count", "INTEGER NOT NULL DEFAULT 0"},
	{"projects", "meta_description", "TEXT NOT NULL DEFAULT ''"},
}

func (s *Store) ensureColumns(ctx context.Context) error {
	for _, c := range legacyColumns {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.ddl)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
				log.Debug().Str("table", c.table).Str("column", c.column).Msg("column already present")
				continue
			}
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_blog_posts_featured ON blog_posts(featured);
		CREATE INDEX IF NOT EXISTS idx_blog_posts_category ON blog_posts(category);
	`)
	return err
}

// Check runs the SQLite integrity and foreign key checks.
func (s *Store) Check(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	rows, err := s.db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return errors.New("foreign key violations found")
	}
	return rows.Err()
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
