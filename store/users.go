package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/auth"
)

// UserDAO reads and writes CMS accounts.
type UserDAO struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserDAO creates a UserDAO over db.
func NewUserDAO(db *sql.DB) *UserDAO {
	return &UserDAO{db: db, now: time.Now}
}

// NewUser creates an account. Role defaults to editor.
type NewUser struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// UserPatch updates an account; nil fields are left alone.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *string
	IsActive *bool
}

const userColumns = `id, email, password_hash, name, role, is_active, last_login, created_at, updated_at`

func scanUser(sc interface{ Scan(...any) error }) (User, error) {
	var u User
	var active int
	err := sc.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &active,
		scanNullTime(&u.LastLogin), scanTime(&u.CreatedAt), scanTime(&u.UpdatedAt))
	u.IsActive = active == 1
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *UserDAO) getOne(ctx context.Context, clause string, arg any) (User, error) {
	u, err := scanUser(d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+clause, arg))
	if err != nil {
		return User{}, dbErr(err)
	}
	return u, nil
}

// GetByID returns the user with id.
func (d *UserDAO) GetByID(ctx context.Context, id int64) (User, error) {
	return d.getOne(ctx, "id = ?", id)
}

// GetByEmail returns the user with email, ignoring case.
func (d *UserDAO) GetByEmail(ctx context.Context, email string) (User, error) {
	return d.getOne(ctx, "email = ?", normalizeEmail(email))
}

// List returns all users by creation time.
func (d *UserDAO) List(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		users = append(users, u)
	}
	return users, dbErr(rows.Err())
}

// Count returns the number of users.
func (d *UserDAO) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, dbErr(err)
}

// Authenticate checks email and password against an active account and
// stamps its last login. Any mismatch yields ErrInvalidCredentials.
func (d *UserDAO) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := d.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	now := d.now().UTC().Truncate(time.Second)
	if _, err := d.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`,
		formatTime(now), u.ID); err != nil {
		return User{}, dbErr(err)
	}
	u.LastLogin = &now
	return u, nil
}

// Create inserts a user after checking the password policy.
func (d *UserDAO) Create(ctx context.Context, in NewUser) (User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return User{}, apperr.Validation("email is required", "email")
	}
	role := in.Role
	if role == "" {
		role = RoleEditor
	}
	if role != RoleAdmin && role != RoleEditor {
		return User{}, apperr.Validation("invalid role: "+role, "role")
	}
	if err := auth.CheckStrength(in.Password); err != nil {
		return User{}, apperr.Validation(err.Error(), "password")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, name, role, is_active) VALUES (?, ?, ?, ?, 1)`,
		email, hash, strings.TrimSpace(in.Name), role)
	if err != nil {
		return User{}, dbErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return d.GetByID(ctx, id)
}

// UpdatePassword replaces the password of the user with id.
func (d *UserDAO) UpdatePassword(ctx context.Context, id int64, password string) error {
	if err := auth.CheckStrength(password); err != nil {
		return apperr.Validation(err.Error(), "password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(d.now()), id)
	if err != nil {
		return dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Update applies patch to the user with id.
func (d *UserDAO) Update(ctx context.Context, id int64, patch UserPatch) (User, error) {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*patch.Name))
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, normalizeEmail(*patch.Email))
	}
	if patch.Role != nil {
		if *patch.Role != RoleAdmin && *patch.Role != RoleEditor {
			return User{}, apperr.Validation("invalid role: "+*patch.Role, "role")
		}
		sets = append(sets, "role = ?")
		args = append(args, *patch.Role)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolInt(*patch.IsActive))
	}
	if len(sets) == 0 {
		return d.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(d.now()), id)
	res, err := d.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return User{}, dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return User{}, ErrNotFound
	}
	return d.GetByID(ctx, id)
}

// Deactivate disables login for the user with id.
func (d *UserDAO) Deactivate(ctx context.Context, id int64) error {
	inactive := false
	_, err := d.Update(ctx, id, UserPatch{IsActive: &inactive})
	return err
}
