package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/eringen/folio/apperr"
)

// ContactDAO reads and writes contact form submissions.
type ContactDAO struct {
	db *sql.DB
}

// NewContactDAO creates a ContactDAO over db.
func NewContactDAO(db *sql.DB) *ContactDAO {
	return &ContactDAO{db: db}
}

// ContactInput is a new submission. IPHash must already be hashed.
type ContactInput struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	IPHash    string
	UserAgent string
}

// ContactFilter narrows List.
type ContactFilter struct {
	Status string
	Limit  int
	Offset int
}

const contactColumns = `id, name, email, subject, message, status, ip_hash, user_agent, created_at`

func scanContact(sc interface{ Scan(...any) error }) (ContactSubmission, error) {
	var c ContactSubmission
	err := sc.Scan(&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message, &c.Status, &c.IPHash,
		&c.UserAgent, scanTime(&c.CreatedAt))
	return c, err
}

func validContactStatus(s string) bool {
	for _, v := range ContactStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Create stores a submission with status new.
func (d *ContactDAO) Create(ctx context.Context, in ContactInput) (ContactSubmission, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO contact_submissions (name, email, subject, message, ip_hash, user_agent)
		VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(in.Name), strings.TrimSpace(in.Email), strings.TrimSpace(in.Subject),
		in.Message, in.IPHash, in.UserAgent)
	if err != nil {
		return ContactSubmission{}, dbErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ContactSubmission{}, err
	}
	return d.GetByID(ctx, id)
}

// GetByID returns the submission with id.
func (d *ContactDAO) GetByID(ctx context.Context, id int64) (ContactSubmission, error) {
	c, err := scanContact(d.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contact_submissions WHERE id = ?`, id))
	if err != nil {
		return ContactSubmission{}, dbErr(err)
	}
	return c, nil
}

// List returns one page of submissions, newest first.
func (d *ContactDAO) List(ctx context.Context, f ContactFilter) (Page[ContactSubmission], error) {
	limit, offset := clampLimit(f.Limit), max(f.Offset, 0)
	w := &where{}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	var total int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_submissions`+w.String(), w.args...).Scan(&total); err != nil {
		return Page[ContactSubmission]{}, dbErr(err)
	}
	rows, err := d.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contact_submissions`+w.String()+
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, append(w.args, limit, offset)...)
	if err != nil {
		return Page[ContactSubmission]{}, dbErr(err)
	}
	defer rows.Close()
	out := []ContactSubmission{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return Page[ContactSubmission]{}, dbErr(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return Page[ContactSubmission]{}, dbErr(err)
	}
	return NewPage(out, total, limit, offset), nil
}

// UpdateStatus moves a submission to status.
func (d *ContactDAO) UpdateStatus(ctx context.Context, id int64, status string) (ContactSubmission, error) {
	if !validContactStatus(status) {
		return ContactSubmission{}, apperr.Validation("invalid status: "+status, "status")
	}
	res, err := d.db.ExecContext(ctx, `UPDATE contact_submissions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return ContactSubmission{}, dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ContactSubmission{}, ErrNotFound
	}
	return d.GetByID(ctx, id)
}

// Delete removes a submission.
func (d *ContactDAO) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM contact_submissions WHERE id = ?`, id)
	if err != nil {
		return false, dbErr(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountByStatus returns the number of submissions per status. Every status
// is present in the result.
func (d *ContactDAO) CountByStatus(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(ContactStatuses))
	for _, s := range ContactStatuses {
		out[s] = 0
	}
	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM contact_submissions GROUP BY status`)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, dbErr(err)
		}
		out[status] = n
	}
	return out, dbErr(rows.Err())
}
