package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eringen/folio/auth"
)

// Seed fills empty tables with the default site config, skills, sample
// projects and posts, and the admin account. Tables that already hold rows
// are left untouched.
func (s *Store) Seed(ctx context.Context, opts Options) error {
	steps := []struct {
		table string
		fn    func(context.Context, *sql.Tx) error
	}{
		{"site_config", seedSiteConfig},
		{"skills", seedSkills},
		{"projects", seedProjects},
		{"blog_posts", seedPosts},
	}
	for _, step := range steps {
		empty, err := s.isEmpty(ctx, step.table)
		if err != nil {
			return err
		}
		if !empty {
			continue
		}
		if err := withTx(ctx, s.db, func(tx *sql.Tx) error { return step.fn(ctx, tx) }); err != nil {
			return fmt.Errorf("seed %s: %w", step.table, err)
		}
		log.Info().Str("table", step.table).Msg("seeded")
	}
	return s.seedAdmin(ctx, opts)
}

func (s *Store) isEmpty(ctx context.Context, table string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return false, dbErr(err)
	}
	return n == 0, nil
}

func (s *Store) seedAdmin(ctx context.Context, opts Options) error {
	empty, err := s.isEmpty(ctx, "users")
	if err != nil || !empty {
		return err
	}
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		log.Warn().Msg("no admin credentials configured, skipping admin user seed")
		return nil
	}
	if err := auth.CheckStrength(opts.AdminPassword); err != nil {
		log.Warn().Err(err).Msg("admin password is weak")
	}
	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}
	name := opts.AdminName
	if name == "" {
		name = "Admin User"
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, name, role, is_active) VALUES (?, ?, ?, ?, 1)`,
		normalizeEmail(opts.AdminEmail), hash, name, RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", dbErr(err))
	}
	log.Info().Str("email", normalizeEmail(opts.AdminEmail)).Msg("admin user created")
	return nil
}

func seedSiteConfig(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO site_config (id, site_title, site_description, site_url, author_name, author_bio)
		VALUES (1, ?, ?, ?, ?, ?)`,
		"Portfolio",
		"Portfolio of a developer building web applications",
		"http://localhost:3000",
		"Site Owner",
		"A developer with experience in web technologies, focused on clean, efficient and usable applications.")
	return err
}

var defaultSkills = []SkillInput{
	{Name: "JavaScript", Category: "frontend", Proficiency: 5, Description: "Modern JavaScript (ES6+) with deep understanding of language features"},
	{Name: "TypeScript", Category: "frontend", Proficiency: 5, Description: "Type-safe JavaScript development with advanced type system knowledge"},
	{Name: "SvelteKit", Category: "frontend", Proficiency: 4, Description: "Full-stack web framework with SSR/SSG capabilities"},
	{Name: "Node.js", Category: "backend", Proficiency: 4, Description: "Server-side JavaScript runtime for building scalable applications"},
	{Name: "SQLite", Category: "database", Proficiency: 4, Description: "Lightweight, serverless database for web applications"},
	{Name: "Git", Category: "tool", Proficiency: 5, Description: "Version control system for tracking code changes and collaboration"},
	{Name: "CSS/SCSS", Category: "frontend", Proficiency: 4, Description: "Modern styling with preprocessors and responsive design"},
	{Name: "HTML", Category: "frontend", Proficiency: 5, Description: "Semantic markup and web standards"},
}

func seedSkills(ctx context.Context, tx *sql.Tx) error {
	for _, sk := range defaultSkills {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO skills (name, category, proficiency, description) VALUES (?, ?, ?, ?)`,
			sk.Name, sk.Category, sk.Proficiency, sk.Description); err != nil {
			return err
		}
	}
	return nil
}

var sampleProjects = []ProjectInput{
	{
		Title:           "E-commerce Dashboard",
		Slug:            "e-commerce-dashboard",
		Description:     "A comprehensive admin dashboard for managing e-commerce operations with real-time analytics.",
		LongDescription: "This dashboard provides a complete solution for e-commerce management including inventory, orders, customers, and analytics. Features real-time updates, responsive design, and comprehensive reporting.",
		Technologies:    []string{"SvelteKit", "TypeScript", "Tailwind CSS", "Chart.js", "SQLite"},
		Status:          ProjectCompleted,
		Featured:        true,
		Skills:          []string{"SvelteKit", "TypeScript", "SQLite"},
	},
	{
		Title:           "Task Management System",
		Slug:            "task-management-system",
		Description:     "A modern task management application with team collaboration features.",
		LongDescription: "Full-featured task management system with drag-and-drop interface, team collaboration, file attachments, and project tracking.",
		Technologies:    []string{"React", "Node.js", "Express", "MongoDB", "Socket.io"},
		Status:          ProjectCompleted,
		Featured:        true,
		Skills:          []string{"JavaScript", "Node.js"},
	},
	{
		Title:           "Weather Analytics Platform",
		Slug:            "weather-analytics-platform",
		Description:     "Advanced weather data visualization and analytics platform with predictive modeling.",
		LongDescription: "Weather analytics platform that aggregates data from multiple sources, provides interactive visualizations, and uses machine learning for weather predictions.",
		Technologies:    []string{"Python", "FastAPI", "React", "D3.js", "PostgreSQL", "Docker"},
		Status:          ProjectInProgress,
		Challenges:      []string{"Merging inconsistent upstream data feeds"},
		Solutions:       []string{"A normalization stage with per-source adapters"},
	},
	{
		Title:           "Portfolio Website",
		Slug:            "portfolio-website",
		Description:     "Personal portfolio website with blog and admin interface.",
		LongDescription: "Portfolio website featuring a blog system, admin interface, and media management. Includes authentication, CRUD operations, and responsive design.",
		Technologies:    []string{"Go", "SQLite", "templ"},
		Status:          ProjectCompleted,
		Featured:        true,
		Skills:          []string{"SQLite", "HTML", "CSS/SCSS", "Git"},
	},
}

func seedProjects(ctx context.Context, tx *sql.Tx) error {
	for i, p := range sampleProjects {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO projects (title, slug, description, long_description, technologies, status, featured,
				challenges, solutions, skills_demonstrated, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Title, p.Slug, p.Description, p.LongDescription, StringList(p.Technologies), p.Status,
			boolInt(p.Featured), StringList(p.Challenges), StringList(p.Solutions),
			StringList(p.SkillsDemonstrated), i)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := setProjectSkills(ctx, tx, id, p.Skills, nil); err != nil {
			return err
		}
	}
	return nil
}

var samplePosts = []BlogPostInput{
	{
		Title:    "Getting Started with SvelteKit",
		Slug:     "getting-started-with-sveltekit",
		Excerpt:  "Discover the fundamentals of SvelteKit and learn why it's becoming the go-to framework for modern web development.",
		Category: "Frontend Development",
		Tags:     []string{"SvelteKit", "JavaScript", "Web Development", "Tutorial"},
		Content: "# Getting Started with SvelteKit\n\nSvelteKit is the official application framework for Svelte.\n\n" +
			"## What is SvelteKit?\n\n- **File-based routing**\n- **Server-side rendering**\n- **API routes**\n\n" +
			"```bash\nnpm create sveltekit@latest my-app\n```\n",
	},
	{
		Title:    "Advanced TypeScript Patterns for Better Code",
		Slug:     "advanced-typescript-patterns",
		Excerpt:  "Explore advanced TypeScript patterns including conditional types, template literals, and mapped types to write better, more type-safe code.",
		Category: "Programming Languages",
		Tags:     []string{"TypeScript", "Programming", "Best Practices", "Advanced"},
		Content: "# Advanced TypeScript Patterns for Better Code\n\n## 1. Conditional Types\n\n" +
			"```typescript\ntype ApiResponse<T> = T extends string ? { message: T } : { data: T };\n```\n\n" +
			"## Best Practices\n\n1. **Use strict mode**\n2. **Leverage type guards**\n",
	},
	{
		Title:    "Building Scalable Web Applications",
		Slug:     "building-scalable-web-applications",
		Excerpt:  "Learn the essential principles and strategies for building web applications that can scale to handle growing user bases and increased complexity.",
		Category: "Full Stack Development",
		Tags:     []string{"Architecture", "Scalability", "Performance", "Best Practices"},
		Content: "# Building Scalable Web Applications\n\n## Architecture Principles\n\n" +
			"### Separation of Concerns\n\n- **Frontend**: presentation\n- **Backend**: business logic\n\n" +
			"## Database Scaling Strategies\n\n1. **Vertical Scaling**\n2. **Horizontal Scaling**\n3. **Read Replicas**\n",
	},
}

var samplePublishDates = []time.Time{
	time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC),
	time.Date(2024, 1, 5, 9, 15, 0, 0, time.UTC),
}

func seedPosts(ctx context.Context, tx *sql.Tx) error {
	for i, p := range samplePosts {
		published := samplePublishDates[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO blog_posts (title, slug, content, excerpt, category, status, featured, published_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Title, p.Slug, p.Content, p.Excerpt, p.Category, StatusPublished, boolInt(i == 0), formatTime(published))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := setPostTags(ctx, tx, id, p.Tags); err != nil {
			return err
		}
	}
	return nil
}
