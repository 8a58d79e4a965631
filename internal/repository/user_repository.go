package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/storefront-auth/internal/model"
)

const userColumns = "id,email,password_hash,role,is_blocked,created_at,updated_at"

// UserRepo reads and writes the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with an already hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string, role model.Role) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		model.NormalizeEmail(email), passwordHash, string(role))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		model.NormalizeEmail(email))
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// FindIdentity fetches the minimal projection used to mint access tokens.
func (r *UserRepo) FindIdentity(ctx context.Context, id uint64) (model.Identity, error) {
	var (
		ident model.Identity
		role  string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,role,is_blocked FROM users WHERE id=? LIMIT 1", id).
		Scan(&ident.ID, &ident.Email, &role, &ident.Blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, ErrNotFound
	}
	if err != nil {
		return model.Identity{}, err
	}
	ident.Role = model.Role(role)
	return ident, nil
}

// SetBlocked flips the blocked flag of a user.
func (r *UserRepo) SetBlocked(ctx context.Context, id uint64, blocked bool) error {
	return r.updateOne(ctx, "UPDATE users SET is_blocked=? WHERE id=?", blocked, id)
}

// SetRole changes the role of a user.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role model.Role) error {
	return r.updateOne(ctx, "UPDATE users SET role=? WHERE id=?", string(role), id)
}

func (r *UserRepo) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.Blocked, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}
