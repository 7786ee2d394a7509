package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// SkillDAO reads and writes skills.
type SkillDAO struct {
	db  *sql.DB
	now func() time.Time
}

// NewSkillDAO creates a SkillDAO over db.
func NewSkillDAO(db *sql.DB) *SkillDAO {
	return &SkillDAO{db: db, now: time.Now}
}

// SkillFilter narrows List.
type SkillFilter struct {
	Category       string
	MinProficiency int
	Search         string
	OrderBy        string
	OrderDir       string
}

// SkillInput creates a skill.
type SkillInput struct {
	Name        string
	Category    string
	Proficiency int
	Description string
	IconURL     string
}

// SkillPatch updates a skill; nil fields are left alone.
type SkillPatch struct {
	Name        *string
	Category    *string
	Proficiency *int
	Description *string
	IconURL     *string
}

// SkillGroup is the skills of one category.
type SkillGroup struct {
	Category string  `json:"category"`
	Skills   []Skill `json:"skills"`
}

func skillColumnsAs(alias string) string {
	cols := []string{"id", "name", "category", "proficiency", "description", "icon_url", "created_at", "updated_at"}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

var skillColumns = skillColumnsAs("s")

var skillOrder = map[string]string{
	"name":        "s.name",
	"category":    "s.category",
	"proficiency": "s.proficiency",
	"created_at":  "s.created_at",
}

func scanSkill(sc interface{ Scan(...any) error }) (Skill, error) {
	var s Skill
	err := sc.Scan(&s.ID, &s.Name, &s.Category, &s.Proficiency, &s.Description, &s.IconURL,
		scanTime(&s.CreatedAt), scanTime(&s.UpdatedAt))
	return s, err
}

func (d *SkillDAO) query(ctx context.Context, q string, args ...any) ([]Skill, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()
	skills := []Skill{}
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		skills = append(skills, s)
	}
	return skills, dbErr(rows.Err())
}

// List returns skills matching f, by name unless ordered otherwise.
func (d *SkillDAO) List(ctx context.Context, f SkillFilter) ([]Skill, error) {
	w := &where{}
	if f.Category != "" {
		w.add("s.category = ?", f.Category)
	}
	if f.MinProficiency > 0 {
		w.add("s.proficiency >= ?", f.MinProficiency)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := likePattern(s)
		w.add("(s.name LIKE ? OR s.description LIKE ?)", pat, pat)
	}
	order := "s.name ASC"
	if f.OrderBy != "" {
		dir := f.OrderDir
		if dir == "" {
			dir = "ASC"
		}
		order = orderClause(f.OrderBy, dir, skillOrder, order)
	}
	return d.query(ctx, `SELECT `+skillColumns+` FROM skills s`+w.String()+` ORDER BY `+order, w.args...)
}

func (d *SkillDAO) getOne(ctx context.Context, clause string, arg any) (Skill, error) {
	s, err := scanSkill(d.db.QueryRowContext(ctx, `SELECT `+skillColumns+` FROM skills s WHERE `+clause, arg))
	if err != nil {
		return Skill{}, dbErr(err)
	}
	return s, nil
}

// GetByID returns the skill with id.
func (d *SkillDAO) GetByID(ctx context.Context, id int64) (Skill, error) {
	return d.getOne(ctx, "s.id = ?", id)
}

// GetByName returns the skill named name, ignoring case.
func (d *SkillDAO) GetByName(ctx context.Context, name string) (Skill, error) {
	return d.getOne(ctx, "lower(s.name) = lower(?)", strings.TrimSpace(name))
}

// Create inserts a skill.
func (d *SkillDAO) Create(ctx context.Context, in SkillInput) (Skill, error) {
	if in.Proficiency == 0 {
		in.Proficiency = 3
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO skills (name, category, proficiency, description, icon_url)
		VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(in.Name), in.Category, in.Proficiency, in.Description, in.IconURL)
	if err != nil {
		return Skill{}, dbErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Skill{}, err
	}
	return d.GetByID(ctx, id)
}

// Update applies patch to the skill with id.
func (d *SkillDAO) Update(ctx context.Context, id int64, patch SkillPatch) (Skill, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Name != nil {
		set("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Proficiency != nil {
		set("proficiency", *patch.Proficiency)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.IconURL != nil {
		set("icon_url", *patch.IconURL)
	}
	if len(sets) == 0 {
		return d.GetByID(ctx, id)
	}
	set("updated_at", formatTime(d.now()))
	res, err := d.db.ExecContext(ctx, `UPDATE skills SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return Skill{}, dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Skill{}, ErrNotFound
	}
	return d.GetByID(ctx, id)
}

// Delete removes a skill and its project links.
func (d *SkillDAO) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_skills WHERE skill_id = ?`, id); err != nil {
			return dbErr(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id)
		if err != nil {
			return dbErr(err)
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// ByCategory groups all skills by category, categories in name order and
// skills by proficiency then name.
func (d *SkillDAO) ByCategory(ctx context.Context) ([]SkillGroup, error) {
	skills, err := d.query(ctx, `SELECT `+skillColumns+` FROM skills s
		ORDER BY s.category ASC, s.proficiency DESC, s.name ASC`)
	if err != nil {
		return nil, err
	}
	groups := []SkillGroup{}
	for _, s := range skills {
		if n := len(groups); n == 0 || groups[n-1].Category != s.Category {
			groups = append(groups, SkillGroup{Category: s.Category})
		}
		g := &groups[len(groups)-1]
		g.Skills = append(g.Skills, s)
	}
	return groups, nil
}

// Categories returns the distinct skill categories.
func (d *SkillDAO) Categories(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT category FROM skills ORDER BY category`)
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

// Top returns the most proficient skills.
func (d *SkillDAO) Top(ctx context.Context, limit int) ([]Skill, error) {
	if limit <= 0 {
		limit = 5
	}
	return d.query(ctx, `SELECT `+skillColumns+` FROM skills s
		ORDER BY s.proficiency DESC, s.name ASC LIMIT ?`, clampLimit(limit))
}
