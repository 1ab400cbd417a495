package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taigaio/taiga/internal/db"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, email, full_name, color, password_hash, is_active, date_joined`

type UserRepo struct {
	db db.Querier
}

func NewUserRepo(conn db.Querier) *UserRepo {
	return &UserRepo{db: conn}
}

func (r *UserRepo) Create(ctx context.Context, u *User) (*User, error) {
	query := `
		INSERT INTO users (id, username, email, full_name, color, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	var created User
	err := sqlx.GetContext(ctx, r.db, &created, query, u.ID, u.Username, u.Email, u.FullName, u.Color, u.PasswordHash, u.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

// BulkCreate inserts users in a single statement. IDs are assigned when missing.
func (r *UserRepo) BulkCreate(ctx context.Context, users []*User) error {
	if len(users) == 0 {
		return nil
	}
	// Join dates follow slice order so List returns users as they were given.
	now := time.Now().UTC()
	for i, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.DateJoined.IsZero() {
			u.DateJoined = now.Add(time.Duration(i) * time.Microsecond)
		}
	}

	query := `
		INSERT INTO users (id, username, email, full_name, color, password_hash, is_active, date_joined)
		VALUES (:id, :username, :email, :full_name, :color, :password_hash, :is_active, :date_joined)`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, users); err != nil {
		return fmt.Errorf("failed to bulk create users: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := sqlx.GetContext(ctx, r.db, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List returns every user ordered by join date
func (r *UserRepo) List(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY date_joined, username`

	var users []*User
	if err := sqlx.SelectContext(ctx, r.db, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Search matches text against username, full name and email.
func (r *UserRepo) Search(ctx context.Context, text string, limit int) ([]*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active AND (username ILIKE $1 OR full_name ILIKE $1 OR email ILIKE $1)
		ORDER BY full_name, username
		LIMIT $2`

	var users []*User
	if err := sqlx.SelectContext(ctx, r.db, &users, query, "%"+text+"%", limit); err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
