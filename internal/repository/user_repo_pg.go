package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetToken(ctx context.Context, token string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, email, contact string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	// ResetPassword stores the new hash and clears the reset token in one statement.
	ResetPassword(ctx context.Context, id int64, passwordHash string) error
}

type PGUserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &PGUserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, contact, reset_token, reset_expires_at, created_at, updated_at`

var errDuplicateEmail = domain.ConflictError{Resource: "user", Msg: "Email already registered."}

func (r *PGUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	err := r.db.QueryRowContext(ctx, `INSERT INTO users (name, email, password_hash, role, contact)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`, user.Name, user.Email, user.PasswordHash, string(user.Role), user.Contact).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return errDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PGUserRepository) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = $1`, token)
}

func (r *PGUserRepository) UpdateProfile(ctx context.Context, id int64, name, email, contact string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `UPDATE users SET name = $2, email = $3, contact = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, name, email, contact)
	u, err := scanUser(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, domain.NotFoundError{Resource: "user", Err: err}
	case isUniqueViolation(err):
		return nil, errDuplicateEmail
	case err != nil:
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return u, nil
}

func (r *PGUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *PGUserRepository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	return r.exec(ctx, `UPDATE users SET reset_token = $2, reset_expires_at = $3, updated_at = now() WHERE id = $1`, id, token, expiresAt)
}

func (r *PGUserRepository) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, reset_token = NULL, reset_expires_at = NULL, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *PGUserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: "user", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PGUserRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		token     sql.NullString
		expiresAt sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Contact, &token, &expiresAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if token.Valid {
		u.ResetToken = &token.String
	}
	if expiresAt.Valid {
		u.ResetExpiresAt = &expiresAt.Time
	}
	return &u, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
