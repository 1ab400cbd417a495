package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	Color        int       `db:"color" json:"color"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	DateJoined   time.Time `db:"date_joined" json:"date_joined"`
}

// CreateUserRequest captures payload for registering a user
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=256"`
	Color    int    `json:"color" validate:"omitempty,min=1,max=8"`
	Password string `json:"password" validate:"required,min=6"`
}
