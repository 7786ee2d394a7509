package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TagDAO reads and writes tags.
type TagDAO struct {
	db  *sql.DB
	now func() time.Time
}

// NewTagDAO creates a TagDAO over db.
func NewTagDAO(db *sql.DB) *TagDAO {
	return &TagDAO{db: db, now: time.Now}
}

// TagInput creates a tag. An empty Slug is derived from Name.
type TagInput struct {
	Name        string
	Slug        string
	Description string
}

// TagPatch updates a tag; nil fields are left alone.
type TagPatch struct {
	Name        *string
	Slug        *string
	Description *string
}

const tagColumns = `id, name, slug, description, created_at`

func scanTag(sc interface{ Scan(...any) error }) (Tag, error) {
	var t Tag
	err := sc.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, scanTime(&t.CreatedAt))
	return t, err
}

func (d *TagDAO) query(ctx context.Context, q string, args ...any) ([]Tag, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()
	tags := []Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		tags = append(tags, t)
	}
	return tags, dbErr(rows.Err())
}

// List returns every tag by name.
func (d *TagDAO) List(ctx context.Context) ([]Tag, error) {
	return d.query(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name`)
}

// WithCounts returns tags used by at least one published post, with the
// number of such posts, most used first.
func (d *TagDAO) WithCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.description, t.created_at, COUNT(p.id) AS post_count
		FROM tags t
		JOIN blog_post_tags bpt ON bpt.tag_id = t.id
		JOIN blog_posts p ON p.id = bpt.blog_post_id
		WHERE p.status = ? AND p.published_at IS NOT NULL AND p.published_at <= ?
		GROUP BY t.id
		ORDER BY post_count DESC, t.name ASC`, StatusPublished, formatTime(d.now()))
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()
	out := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Slug, &tc.Description, scanTime(&tc.CreatedAt), &tc.PostCount); err != nil {
			return nil, dbErr(err)
		}
		out = append(out, tc)
	}
	return out, dbErr(rows.Err())
}

func (d *TagDAO) getOne(ctx context.Context, clause string, arg any) (Tag, error) {
	t, err := scanTag(d.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE `+clause, arg))
	if err != nil {
		return Tag{}, dbErr(err)
	}
	return t, nil
}

// GetByID returns the tag with id.
func (d *TagDAO) GetByID(ctx context.Context, id int64) (Tag, error) {
	return d.getOne(ctx, "id = ?", id)
}

// GetBySlug returns the tag with slug.
func (d *TagDAO) GetBySlug(ctx context.Context, slug string) (Tag, error) {
	return d.getOne(ctx, "slug = ?", strings.ToLower(strings.TrimSpace(slug)))
}

// Create inserts a tag.
func (d *TagDAO) Create(ctx context.Context, in TagInput) (Tag, error) {
	name := strings.TrimSpace(in.Name)
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	res, err := d.db.ExecContext(ctx, `INSERT INTO tags (name, slug, description) VALUES (?, ?, ?)`,
		name, slug, in.Description)
	if err != nil {
		return Tag{}, dbErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Tag{}, err
	}
	return d.GetByID(ctx, id)
}

// Update applies patch to the tag with id.
func (d *TagDAO) Update(ctx context.Context, id int64, patch TagPatch) (Tag, error) {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*patch.Name))
	}
	if patch.Slug != nil {
		sets = append(sets, "slug = ?")
		args = append(args, strings.TrimSpace(*patch.Slug))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if len(sets) == 0 {
		return d.GetByID(ctx, id)
	}
	res, err := d.db.ExecContext(ctx, `UPDATE tags SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return Tag{}, dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Tag{}, ErrNotFound
	}
	return d.GetByID(ctx, id)
}

// Delete removes a tag; its post links go with it.
func (d *TagDAO) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blog_post_tags WHERE tag_id = ?`, id); err != nil {
			return dbErr(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return dbErr(err)
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// ensureTags finds or creates a tag for each name, matching by slug, and
// returns their ids in input order without duplicates.
func ensureTags(ctx context.Context, tx *sql.Tx, names []string) ([]int64, error) {
	seen := make(map[string]bool, len(names))
	var ids []int64
	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE slug = ?`, slug).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `INSERT INTO tags (name, slug) VALUES (?, ?)`, name, slug)
			if err != nil {
				return nil, dbErr(err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, dbErr(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
