package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/eringen/folio/apperr"
)

// ProjectDAO reads and writes projects and their skill links.
type ProjectDAO struct {
	db  *sql.DB
	now func() time.Time
}

// NewProjectDAO creates a ProjectDAO over db.
func NewProjectDAO(db *sql.DB) *ProjectDAO {
	return &ProjectDAO{db: db, now: time.Now}
}

// ProjectFilter narrows List.
type ProjectFilter struct {
	Status   string
	Featured *bool
	// Skill matches a linked skill by name, case-insensitively.
	Skill string
	// Technology matches an entry of the technologies list exactly.
	Technology string
	Search     string
	Limit      int
	Offset     int
	OrderBy    string
	OrderDir   string
}

// ProjectInput creates a project. An empty Slug is derived from Title.
// Skills are linked by name and SkillIDs by id; both may be given.
type ProjectInput struct {
	Title              string
	Slug               string
	Description        string
	LongDescription    string
	ImageURL           string
	Technologies       []string
	GithubURL          string
	DemoURL            string
	Status             string
	Featured           bool
	StartDate          *time.Time
	CompletionDate     *time.Time
	Challenges         []string
	Solutions          []string
	SkillsDemonstrated []string
	MetaDescription    string
	SortOrder          int
	Skills             []string
	SkillIDs           []int64
}

// ProjectPatch updates a project. Nil fields are left alone; non-nil
// Skills or SkillIDs replace the skill links.
type ProjectPatch struct {
	Title              *string
	Slug               *string
	Description        *string
	LongDescription    *string
	ImageURL           *string
	Technologies       *[]string
	GithubURL          *string
	DemoURL            *string
	Status             *string
	Featured           *bool
	StartDate          *time.Time
	CompletionDate     *time.Time
	Challenges         *[]string
	Solutions          *[]string
	SkillsDemonstrated *[]string
	MetaDescription    *string
	SortOrder          *int
	Skills             []string
	SkillIDs           []int64
}

// ProjectStats summarizes projects by status.
type ProjectStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Planning   int `json:"planning"`
	OnHold     int `json:"onHold"`
	Featured   int `json:"featured"`
}

const projectColumns = `p.id, p.title, p.slug, p.description, p.long_description, p.image_url,
	p.technologies, p.github_url, p.demo_url, p.status, p.featured, p.start_date, p.completion_date,
	p.challenges, p.solutions, p.skills_demonstrated, p.meta_description, p.sort_order,
	p.created_at, p.updated_at`

var projectOrder = map[string]string{
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
	"title":      "p.title",
	"start_date": "p.start_date",
	"sort_order": "p.sort_order",
}

const projectDefaultOrder = "p.featured DESC, p.sort_order ASC, p.created_at DESC"

func scanProject(sc interface{ Scan(...any) error }) (Project, error) {
	var p Project
	var featured int
	err := sc.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.LongDescription, &p.ImageURL,
		&p.Technologies, &p.GithubURL, &p.DemoURL, &p.Status, &featured,
		scanNullTime(&p.StartDate), scanNullTime(&p.CompletionDate),
		&p.Challenges, &p.Solutions, &p.SkillsDemonstrated, &p.MetaDescription, &p.SortOrder,
		scanTime(&p.CreatedAt), scanTime(&p.UpdatedAt))
	p.Featured = featured == 1
	p.Skills = []Skill{}
	return p, err
}

func projectWhere(f ProjectFilter) *where {
	w := &where{}
	if f.Status != "" {
		status, _ := NormalizeProjectStatus(f.Status)
		w.add("p.status = ?", status)
	}
	if f.Featured != nil {
		w.add("p.featured = ?", boolInt(*f.Featured))
	}
	if f.Skill != "" {
		w.add(`EXISTS (SELECT 1 FROM project_skills ps JOIN skills s ON s.id = ps.skill_id
			WHERE ps.project_id = p.id AND lower(s.name) = lower(?))`, strings.TrimSpace(f.Skill))
	}
	if f.Technology != "" {
		w.add(`EXISTS (SELECT 1 FROM json_each(p.technologies) je WHERE lower(je.value) = lower(?))`,
			strings.TrimSpace(f.Technology))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := likePattern(s)
		w.add("(p.title LIKE ? OR p.description LIKE ? OR p.long_description LIKE ?)", pat, pat, pat)
	}
	return w
}

// List returns one page of projects matching f, each with its skills.
func (d *ProjectDAO) List(ctx context.Context, f ProjectFilter) (Page[Project], error) {
	limit, offset := clampLimit(f.Limit), max(f.Offset, 0)
	w := projectWhere(f)

	var total int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects p`+w.String(), w.args...).Scan(&total); err != nil {
		return Page[Project]{}, dbErr(err)
	}
	order := orderClause(f.OrderBy, f.OrderDir, projectOrder, projectDefaultOrder)
	projects, err := d.query(ctx, `SELECT `+projectColumns+` FROM projects p`+w.String()+
		` ORDER BY `+order+`, p.id DESC LIMIT ? OFFSET ?`, append(w.args, limit, offset)...)
	if err != nil {
		return Page[Project]{}, err
	}
	return NewPage(projects, total, limit, offset), nil
}

// All returns every project in display order.
func (d *ProjectDAO) All(ctx context.Context) ([]Project, error) {
	return d.query(ctx, `SELECT `+projectColumns+` FROM projects p ORDER BY `+projectDefaultOrder)
}

func (d *ProjectDAO) query(ctx context.Context, q string, args ...any) ([]Project, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	if err := attachProjectSkills(ctx, d.db, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func attachProjectSkills(ctx context.Context, q queryer, projects []Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]int64, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	rows, err := q.QueryContext(ctx, `
		SELECT ps.project_id, `+skillColumnsAs("s")+`
		FROM project_skills ps
		JOIN skills s ON s.id = ps.skill_id
		WHERE ps.project_id IN (`+placeholders(len(ids))+`)
		ORDER BY s.proficiency DESC, s.name`, int64Args(ids)...)
	if err != nil {
		return dbErr(err)
	}
	defer rows.Close()

	byProject := make(map[int64][]Skill, len(projects))
	for rows.Next() {
		var projectID int64
		var s Skill
		if err := rows.Scan(&projectID, &s.ID, &s.Name, &s.Category, &s.Proficiency, &s.Description,
			&s.IconURL, scanTime(&s.CreatedAt), scanTime(&s.UpdatedAt)); err != nil {
			return dbErr(err)
		}
		byProject[projectID] = append(byProject[projectID], s)
	}
	if err := rows.Err(); err != nil {
		return dbErr(err)
	}
	for i := range projects {
		if skills, ok := byProject[projects[i].ID]; ok {
			projects[i].Skills = skills
		}
	}
	return nil
}

func (d *ProjectDAO) getOne(ctx context.Context, clause string, arg any) (Project, error) {
	projects, err := d.query(ctx, `SELECT `+projectColumns+` FROM projects p WHERE `+clause+` LIMIT 1`, arg)
	if err != nil {
		return Project{}, err
	}
	if len(projects) == 0 {
		return Project{}, ErrNotFound
	}
	return projects[0], nil
}

// GetByID returns the project with id.
func (d *ProjectDAO) GetByID(ctx context.Context, id int64) (Project, error) {
	return d.getOne(ctx, "p.id = ?", id)
}

// GetBySlug returns the project with slug.
func (d *ProjectDAO) GetBySlug(ctx context.Context, slug string) (Project, error) {
	return d.getOne(ctx, "p.slug = ?", slug)
}

func projectStatus(s string) (string, error) {
	status, ok := NormalizeProjectStatus(s)
	if !ok {
		return "", apperr.Validation("invalid project status: "+s, "status")
	}
	return status, nil
}

// Create inserts a project and links its skills.
func (d *ProjectDAO) Create(ctx context.Context, in ProjectInput) (Project, error) {
	if in.Status == "" {
		in.Status = ProjectInProgress
	}
	status, err := projectStatus(in.Status)
	if err != nil {
		return Project{}, err
	}
	var id int64
	err = withTx(ctx, d.db, func(tx *sql.Tx) error {
		slug := strings.TrimSpace(in.Slug)
		if slug == "" {
			var err error
			if slug, err = uniqueSlug(ctx, tx, "projects", in.Title, 0); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO projects (title, slug, description, long_description, image_url, technologies,
				github_url, demo_url, status, featured, start_date, completion_date,
				challenges, solutions, skills_demonstrated, meta_description, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Title, slug, in.Description, in.LongDescription, in.ImageURL, StringList(in.Technologies),
			in.GithubURL, in.DemoURL, status, boolInt(in.Featured),
			nullableTime(in.StartDate), nullableTime(in.CompletionDate),
			StringList(in.Challenges), StringList(in.Solutions), StringList(in.SkillsDemonstrated),
			in.MetaDescription, in.SortOrder)
		if err != nil {
			return dbErr(err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if in.Skills == nil && in.SkillIDs == nil {
			return nil
		}
		return setProjectSkills(ctx, tx, id, in.Skills, in.SkillIDs)
	})
	if err != nil {
		return Project{}, err
	}
	return d.GetByID(ctx, id)
}

// Update applies patch to the project with id. When nothing changes no
// statement is run.
func (d *ProjectDAO) Update(ctx context.Context, id int64, patch ProjectPatch) (Project, error) {
	current, err := d.GetByID(ctx, id)
	if err != nil {
		return Project{}, err
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	str := func(col string, v *string) {
		if v != nil {
			set(col, *v)
		}
	}
	list := func(col string, v *[]string) {
		if v != nil {
			set(col, StringList(*v))
		}
	}
	str("title", patch.Title)
	if patch.Slug != nil {
		set("slug", strings.TrimSpace(*patch.Slug))
	}
	str("description", patch.Description)
	str("long_description", patch.LongDescription)
	str("image_url", patch.ImageURL)
	list("technologies", patch.Technologies)
	str("github_url", patch.GithubURL)
	str("demo_url", patch.DemoURL)
	if patch.Status != nil {
		status, err := projectStatus(*patch.Status)
		if err != nil {
			return Project{}, err
		}
		set("status", status)
	}
	if patch.Featured != nil {
		set("featured", boolInt(*patch.Featured))
	}
	if patch.StartDate != nil {
		set("start_date", nullableTime(patch.StartDate))
	}
	if patch.CompletionDate != nil {
		set("completion_date", nullableTime(patch.CompletionDate))
	}
	list("challenges", patch.Challenges)
	list("solutions", patch.Solutions)
	list("skills_demonstrated", patch.SkillsDemonstrated)
	str("meta_description", patch.MetaDescription)
	if patch.SortOrder != nil {
		set("sort_order", *patch.SortOrder)
	}

	relink := patch.Skills != nil || patch.SkillIDs != nil
	if len(sets) == 0 && !relink {
		return current, nil
	}
	if len(sets) > 0 {
		set("updated_at", formatTime(d.now()))
	}
	err = withTx(ctx, d.db, func(tx *sql.Tx) error {
		if len(sets) > 0 {
			args := append(args, id)
			if _, err := tx.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
				return dbErr(err)
			}
		}
		if relink {
			return setProjectSkills(ctx, tx, id, patch.Skills, patch.SkillIDs)
		}
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	return d.GetByID(ctx, id)
}

// setProjectSkills replaces the skill links of a project. Names must match
// existing skills.
func setProjectSkills(ctx context.Context, tx *sql.Tx, projectID int64, names []string, ids []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_skills WHERE project_id = ?`, projectID); err != nil {
		return dbErr(err)
	}
	all := append([]int64(nil), ids...)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM skills WHERE lower(name) = lower(?)`, name).Scan(&id)
		if err == sql.ErrNoRows {
			return apperr.Validation("unknown skill: "+name, "skills")
		}
		if err != nil {
			return dbErr(err)
		}
		all = append(all, id)
	}
	for _, skillID := range all {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_skills (project_id, skill_id) VALUES (?, ?)`, projectID, skillID); err != nil {
			return dbErr(err)
		}
	}
	return nil
}

// Delete removes a project and its skill links in one transaction.
func (d *ProjectDAO) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := withTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_skills WHERE project_id = ?`, id); err != nil {
			return dbErr(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return dbErr(err)
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// Featured returns featured projects in display order.
func (d *ProjectDAO) Featured(ctx context.Context, limit int) ([]Project, error) {
	return d.query(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.featured = 1
		ORDER BY p.sort_order ASC, p.created_at DESC LIMIT ?`, clampLimit(limit))
}

// ByStatus returns projects with status (aliases accepted).
func (d *ProjectDAO) ByStatus(ctx context.Context, status string) ([]Project, error) {
	status, _ = NormalizeProjectStatus(status)
	return d.query(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.status = ?
		ORDER BY `+projectDefaultOrder, status)
}

// Search matches projects by title, description, long description or
// technology.
func (d *ProjectDAO) Search(ctx context.Context, q string, limit int) ([]Project, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Project{}, nil
	}
	pat := likePattern(q)
	return d.query(ctx, `SELECT `+projectColumns+` FROM projects p
		WHERE p.title LIKE ? OR p.description LIKE ? OR p.long_description LIKE ? OR p.technologies LIKE ?
		ORDER BY CASE WHEN p.title LIKE ? THEN 0 ELSE 1 END, p.featured DESC, p.created_at DESC
		LIMIT ?`, pat, pat, pat, pat, pat, clampLimit(limit))
}

// IsSlugAvailable reports whether slug is unused by any project other than
// excludeID.
func (d *ProjectDAO) IsSlugAvailable(ctx context.Context, slug string, excludeID int64) (bool, error) {
	taken, err := slugTaken(ctx, d.db, "projects", slug, excludeID)
	return !taken, err
}

// Stats counts projects by status.
func (d *ProjectDAO) Stats(ctx context.Context) (ProjectStats, error) {
	var s ProjectStats
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(status = 'completed'), 0),
			COALESCE(SUM(status = 'in-progress'), 0),
			COALESCE(SUM(status = 'planning'), 0),
			COALESCE(SUM(status = 'on-hold'), 0),
			COALESCE(SUM(featured = 1), 0)
		FROM projects`).Scan(&s.Total, &s.Completed, &s.InProgress, &s.Planning, &s.OnHold, &s.Featured)
	return s, dbErr(err)
}
