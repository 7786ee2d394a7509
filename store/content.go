package store

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SearchResult is one hit of a cross-content search.
type SearchResult struct {
	Type    string `json:"type"`
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

// SearchContent searches published posts and projects. Posts get 70% of
// limit and projects 30%; title matches rank first within each.
func (s *Store) SearchContent(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	postLimit := max(limit*7/10, 1)
	projectLimit := max(limit*3/10, 1)

	var posts []BlogPost
	var projects []Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.Posts.Search(gctx, q, postLimit)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = s.Projects.Search(gctx, q, projectLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(posts)+len(projects))
	for _, p := range posts {
		results = append(results, SearchResult{
			Type: "blog", ID: p.ID, Title: p.Title, Slug: p.Slug, Excerpt: p.Excerpt, URL: p.Link(),
		})
	}
	for _, p := range projects {
		results = append(results, SearchResult{
			Type: "project", ID: p.ID, Title: p.Title, Slug: p.Slug, Excerpt: p.Description, URL: p.Link(),
		})
	}
	return results, nil
}

// DatabaseStats is the dashboard summary.
type DatabaseStats struct {
	Posts       PostStats      `json:"blog_posts"`
	Projects    ProjectStats   `json:"projects"`
	Skills      SkillStats     `json:"skills"`
	Tags        int            `json:"tags"`
	Media       StorageStats   `json:"media"`
	Contacts    map[string]int `json:"contact_submissions"`
	NewContacts int            `json:"new_contacts"`
}

// SkillStats counts skills overall and per category.
type SkillStats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}

// Stats gathers the dashboard summary, running the independent counts
// concurrently.
func (s *Store) Stats(ctx context.Context) (DatabaseStats, error) {
	var st DatabaseStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.Posts, err = s.Posts.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.Projects, err = s.Projects.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.Skills, err = s.skillStats(gctx)
		return err
	})
	g.Go(func() error {
		return dbErr(s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM tags`).Scan(&st.Tags))
	})
	g.Go(func() (err error) {
		st.Media, err = s.Media.StorageStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.Contacts, err = s.Contacts.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DatabaseStats{}, err
	}
	st.NewContacts = st.Contacts[ContactNew]
	return st, nil
}

func (s *Store) skillStats(ctx context.Context) (SkillStats, error) {
	st := SkillStats{ByCategory: map[string]int{}}
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM skills GROUP BY category`)
	if err != nil {
		return st, dbErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return st, dbErr(err)
		}
		st.ByCategory[cat] = n
		st.Total += n
	}
	return st, dbErr(rows.Err())
}
