package store

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/eringen/folio/apperr"
)

// BlogPostDAO reads and writes blog posts and their tag links.
type BlogPostDAO struct {
	db  *sql.DB
	now func() time.Time
}

// NewBlogPostDAO creates a BlogPostDAO over db.
func NewBlogPostDAO(db *sql.DB) *BlogPostDAO {
	return &BlogPostDAO{db: db, now: time.Now}
}

// BlogPostFilter narrows List. Zero values mean "any".
type BlogPostFilter struct {
	Status string
	// Published restricts to posts with status published whose
	// published_at is not in the future.
	Published bool
	Featured  *bool
	Category  string
	TagSlug   string
	Search    string
	Limit     int
	Offset    int
	OrderBy   string
	OrderDir  string
}

// BlogPostInput creates a post. An empty Slug is derived from Title.
type BlogPostInput struct {
	Title         string
	Slug          string
	Content       string
	Excerpt       string
	FeaturedImage string
	Category      string
	Status        string
	Featured      bool
	PublishedAt   *time.Time
	Tags          []string
}

// BlogPostPatch updates a post. Nil fields are left alone; a nil Tags keeps
// the current tags and a non-nil one replaces them.
type BlogPostPatch struct {
	Title         *string
	Slug          *string
	Content       *string
	Excerpt       *string
	FeaturedImage *string
	Category      *string
	Status        *string
	Featured      *bool
	PublishedAt   *time.Time
	Tags          []string
}

// PostStats summarizes posts by status.
type PostStats struct {
	Total      int   `json:"total"`
	Published  int   `json:"published"`
	Draft      int   `json:"draft"`
	Archived   int   `json:"archived"`
	Featured   int   `json:"featured"`
	TotalViews int64 `json:"total_views"`
}

const postColumns = `p.id, p.title, p.slug, p.content, p.excerpt, p.featured_image, p.category,
	p.status, p.featured, p.published_at, p.view_count, p.created_at, p.updated_at`

var postOrder = map[string]string{
	"created_at":   "p.created_at",
	"updated_at":   "p.updated_at",
	"published_at": "p.published_at",
	"title":        "p.title",
	"view_count":   "p.view_count",
}

const postDefaultOrder = "COALESCE(p.published_at, p.created_at) DESC"

func scanPost(sc interface{ Scan(...any) error }) (BlogPost, error) {
	var p BlogPost
	var featured int
	err := sc.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.FeaturedImage, &p.Category,
		&p.Status, &featured, scanNullTime(&p.PublishedAt), &p.ViewCount,
		scanTime(&p.CreatedAt), scanTime(&p.UpdatedAt))
	p.Featured = featured == 1
	p.Tags = []Tag{}
	return p, err
}

func (d *BlogPostDAO) publishedClause(w *where) {
	w.add("p.status = ? AND p.published_at IS NOT NULL AND p.published_at <= ?",
		StatusPublished, formatTime(d.now()))
}

func (d *BlogPostDAO) filterWhere(f BlogPostFilter) *where {
	w := &where{}
	if f.Published {
		d.publishedClause(w)
	} else if f.Status != "" {
		w.add("p.status = ?", f.Status)
	}
	if f.Featured != nil {
		w.add("p.featured = ?", boolInt(*f.Featured))
	}
	if f.Category != "" {
		w.add("p.category = ?", f.Category)
	}
	if f.TagSlug != "" {
		w.add(`EXISTS (SELECT 1 FROM blog_post_tags bpt JOIN tags t ON t.id = bpt.tag_id
			WHERE bpt.blog_post_id = p.id AND t.slug = ?)`, strings.ToLower(strings.TrimSpace(f.TagSlug)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := likePattern(s)
		w.add("(p.title LIKE ? OR p.excerpt LIKE ? OR p.content LIKE ?)", pat, pat, pat)
	}
	return w
}

// List returns one page of posts matching f, each with its tags.
func (d *BlogPostDAO) List(ctx context.Context, f BlogPostFilter) (Page[BlogPost], error) {
	limit, offset := clampLimit(f.Limit), max(f.Offset, 0)
	w := d.filterWhere(f)

	var total int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_posts p`+w.String(), w.args...).Scan(&total); err != nil {
		return Page[BlogPost]{}, dbErr(err)
	}
	order := orderClause(f.OrderBy, f.OrderDir, postOrder, postDefaultOrder)
	posts, err := d.query(ctx, `SELECT `+postColumns+` FROM blog_posts p`+w.String()+
		` ORDER BY `+order+`, p.id DESC LIMIT ? OFFSET ?`, append(w.args, limit, offset)...)
	if err != nil {
		return Page[BlogPost]{}, err
	}
	return NewPage(posts, total, limit, offset), nil
}

// query runs a post SELECT and attaches tags with one batched query.
func (d *BlogPostDAO) query(ctx context.Context, q string, args ...any) ([]BlogPost, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	posts := []BlogPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	if err := attachPostTags(ctx, d.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func attachPostTags(ctx context.Context, q queryer, posts []BlogPost) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	rows, err := q.QueryContext(ctx, `
		SELECT bpt.blog_post_id, t.id, t.name, t.slug, t.description, t.created_at
		FROM blog_post_tags bpt
		JOIN tags t ON t.id = bpt.tag_id
		WHERE bpt.blog_post_id IN (`+placeholders(len(ids))+`)
		ORDER BY t.name`, int64Args(ids)...)
	if err != nil {
		return dbErr(err)
	}
	defer rows.Close()

	byPost := make(map[int64][]Tag, len(posts))
	for rows.Next() {
		var postID int64
		var t Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug, &t.Description, scanTime(&t.CreatedAt)); err != nil {
			return dbErr(err)
		}
		byPost[postID] = append(byPost[postID], t)
	}
	if err := rows.Err(); err != nil {
		return dbErr(err)
	}
	for i := range posts {
		if tags, ok := byPost[posts[i].ID]; ok {
			posts[i].Tags = tags
		}
	}
	return nil
}

func (d *BlogPostDAO) getOne(ctx context.Context, clause string, arg any) (BlogPost, error) {
	posts, err := d.query(ctx, `SELECT `+postColumns+` FROM blog_posts p WHERE `+clause+` LIMIT 1`, arg)
	if err != nil {
		return BlogPost{}, err
	}
	if len(posts) == 0 {
		return BlogPost{}, ErrNotFound
	}
	return posts[0], nil
}

// GetByID returns the post with id regardless of status.
func (d *BlogPostDAO) GetByID(ctx context.Context, id int64) (BlogPost, error) {
	return d.getOne(ctx, "p.id = ?", id)
}

// GetBySlug returns the post with slug regardless of status.
func (d *BlogPostDAO) GetBySlug(ctx context.Context, slug string) (BlogPost, error) {
	return d.getOne(ctx, "p.slug = ?", slug)
}

// GetPublishedBySlug returns the post with slug only if it is published.
func (d *BlogPostDAO) GetPublishedBySlug(ctx context.Context, slug string) (BlogPost, error) {
	p, err := d.GetBySlug(ctx, slug)
	if err != nil {
		return BlogPost{}, err
	}
	if !p.IsPublished(d.now()) {
		return BlogPost{}, ErrNotFound
	}
	return p, nil
}

// Create inserts a post and links its tags, creating missing tags by name.
func (d *BlogPostDAO) Create(ctx context.Context, in BlogPostInput) (BlogPost, error) {
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if in.Status == StatusPublished && in.PublishedAt == nil {
		t := d.now()
		in.PublishedAt = &t
	}
	var id int64
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		slug := strings.TrimSpace(in.Slug)
		if slug == "" {
			var err error
			if slug, err = uniqueSlug(ctx, tx, "blog_posts", in.Title, 0); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO blog_posts (title, slug, content, excerpt, featured_image, category, status, featured, published_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Title, slug, in.Content, in.Excerpt, in.FeaturedImage, in.Category, in.Status,
			boolInt(in.Featured), nullableTime(in.PublishedAt))
		if err != nil {
			return dbErr(err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return setPostTags(ctx, tx, id, in.Tags)
	})
	if err != nil {
		return BlogPost{}, err
	}
	return d.GetByID(ctx, id)
}

// Update applies patch to the post with id. When nothing changes no
// statement is run.
func (d *BlogPostDAO) Update(ctx context.Context, id int64, patch BlogPostPatch) (BlogPost, error) {
	if patch.Status != nil && !slices.Contains(PostStatuses, *patch.Status) {
		return BlogPost{}, apperr.Validation("invalid post status: "+*patch.Status, "status")
	}
	current, err := d.GetByID(ctx, id)
	if err != nil {
		return BlogPost{}, err
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Slug != nil {
		set("slug", strings.TrimSpace(*patch.Slug))
	}
	if patch.Content != nil {
		set("content", *patch.Content)
	}
	if patch.Excerpt != nil {
		set("excerpt", *patch.Excerpt)
	}
	if patch.FeaturedImage != nil {
		set("featured_image", *patch.FeaturedImage)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Featured != nil {
		set("featured", boolInt(*patch.Featured))
	}
	switch {
	case patch.PublishedAt != nil:
		set("published_at", nullableTime(patch.PublishedAt))
	case patch.Status != nil && *patch.Status == StatusPublished && current.PublishedAt == nil:
		t := d.now()
		set("published_at", nullableTime(&t))
	}

	if len(sets) == 0 && patch.Tags == nil {
		return current, nil
	}
	if len(sets) > 0 {
		set("updated_at", formatTime(d.now()))
	}
	err = withTx(ctx, d.db, func(tx *sql.Tx) error {
		if len(sets) > 0 {
			args := append(args, id)
			if _, err := tx.ExecContext(ctx, `UPDATE blog_posts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
				return dbErr(err)
			}
		}
		if patch.Tags != nil {
			return setPostTags(ctx, tx, id, patch.Tags)
		}
		return nil
	})
	if err != nil {
		return BlogPost{}, err
	}
	return d.GetByID(ctx, id)
}

// setPostTags replaces the tag links of a post.
func setPostTags(ctx context.Context, tx *sql.Tx, postID int64, names []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_post_tags WHERE blog_post_id = ?`, postID); err != nil {
		return dbErr(err)
	}
	ids, err := ensureTags(ctx, tx, names)
	if err != nil {
		return err
	}
	for _, tagID := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO blog_post_tags (blog_post_id, tag_id) VALUES (?, ?)`, postID, tagID); err != nil {
			return dbErr(err)
		}
	}
	return nil
}

// Delete removes a post and its tag links.
func (d *BlogPostDAO) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blog_post_tags WHERE blog_post_id = ?`, id); err != nil {
			return dbErr(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
		if err != nil {
			return dbErr(err)
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// IncrementViewCount adds one view to the post.
func (d *BlogPostDAO) IncrementViewCount(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE blog_posts SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *BlogPostDAO) publishedList(ctx context.Context, extra, order string, limit int, args ...any) ([]BlogPost, error) {
	w := &where{}
	d.publishedClause(w)
	if extra != "" {
		w.add(extra, args...)
	}
	return d.query(ctx, `SELECT `+postColumns+` FROM blog_posts p`+w.String()+
		` ORDER BY `+order+` LIMIT ?`, append(w.args, clampLimit(limit))...)
}

// Featured returns published featured posts, newest first.
func (d *BlogPostDAO) Featured(ctx context.Context, limit int) ([]BlogPost, error) {
	return d.publishedList(ctx, "p.featured = 1", "p.published_at DESC, p.id DESC", limit)
}

// Recent returns the newest published posts.
func (d *BlogPostDAO) Recent(ctx context.Context, limit int) ([]BlogPost, error) {
	return d.publishedList(ctx, "", "p.published_at DESC, p.id DESC", limit)
}

// MostViewed returns published posts by view count.
func (d *BlogPostDAO) MostViewed(ctx context.Context, limit int) ([]BlogPost, error) {
	return d.publishedList(ctx, "", "p.view_count DESC, p.published_at DESC", limit)
}

// ByStatus returns every post with status, newest first.
func (d *BlogPostDAO) ByStatus(ctx context.Context, status string) ([]BlogPost, error) {
	return d.query(ctx, `SELECT `+postColumns+` FROM blog_posts p WHERE p.status = ?
		ORDER BY `+postDefaultOrder+`, p.id DESC`, status)
}

// Search matches published posts by title, excerpt, content or tag name.
func (d *BlogPostDAO) Search(ctx context.Context, q string, limit int) ([]BlogPost, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []BlogPost{}, nil
	}
	pat := likePattern(q)
	return d.publishedList(ctx, `(p.title LIKE ? OR p.excerpt LIKE ? OR p.content LIKE ? OR EXISTS (
			SELECT 1 FROM blog_post_tags bpt JOIN tags t ON t.id = bpt.tag_id
			WHERE bpt.blog_post_id = p.id AND t.name LIKE ?))`,
		"CASE WHEN p.title LIKE ? THEN 0 ELSE 1 END, p.published_at DESC", limit,
		pat, pat, pat, pat, pat)
}

// IsSlugAvailable reports whether slug is unused by any post other than
// excludeID.
func (d *BlogPostDAO) IsSlugAvailable(ctx context.Context, slug string, excludeID int64) (bool, error) {
	taken, err := slugTaken(ctx, d.db, "blog_posts", slug, excludeID)
	return !taken, err
}

// UniqueSlug derives a free slug from title.
func (d *BlogPostDAO) UniqueSlug(ctx context.Context, title string, excludeID int64) (string, error) {
	return uniqueSlug(ctx, d.db, "blog_posts", title, excludeID)
}

// Related returns published posts sharing tags with the post, most shared
// tags first. With no shared tags it falls back to the same category.
func (d *BlogPostDAO) Related(ctx context.Context, id int64, limit int) ([]BlogPost, error) {
	current, err := d.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}
	now := formatTime(d.now())
	posts, err := d.query(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts p
		JOIN (
			SELECT other.blog_post_id AS post_id, COUNT(*) AS shared
			FROM blog_post_tags mine
			JOIN blog_post_tags other ON other.tag_id = mine.tag_id AND other.blog_post_id != mine.blog_post_id
			WHERE mine.blog_post_id = ?
			GROUP BY other.blog_post_id
		) r ON r.post_id = p.id
		WHERE p.status = ? AND p.published_at IS NOT NULL AND p.published_at <= ?
		ORDER BY r.shared DESC, p.published_at DESC
		LIMIT ?`, id, StatusPublished, now, limit)
	if err != nil {
		return nil, err
	}
	if len(posts) > 0 || current.Category == "" {
		return posts, nil
	}
	return d.publishedList(ctx, "p.category = ? AND p.id != ?", "p.published_at DESC", limit, current.Category, id)
}

// Stats counts posts by status.
func (d *BlogPostDAO) Stats(ctx context.Context) (PostStats, error) {
	var s PostStats
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(status = 'published'), 0),
			COALESCE(SUM(status = 'draft'), 0),
			COALESCE(SUM(status = 'archived'), 0),
			COALESCE(SUM(featured = 1), 0),
			COALESCE(SUM(view_count), 0)
		FROM blog_posts`).Scan(&s.Total, &s.Published, &s.Draft, &s.Archived, &s.Featured, &s.TotalViews)
	return s, dbErr(err)
}

// Categories returns the distinct non-empty categories of published posts.
func (d *BlogPostDAO) Categories(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM blog_posts
		WHERE category != '' AND status = ?
		ORDER BY category`, StatusPublished)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, dbErr(err)
		}
		out = append(out, c)
	}
	return out, dbErr(rows.Err())
}
