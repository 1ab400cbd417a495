package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is not active")
)

// Store is the persistence needed by UserService.
type Store interface {
	Create(ctx context.Context, u *User) (*User, error)
	BulkCreate(ctx context.Context, users []*User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Search(ctx context.Context, text string, limit int) ([]*User, error)
}

type UserService struct {
	repo Store
}

func NewUserService(repo Store) *UserService {
	return &UserService{repo: repo}
}

// HashPassword returns the bcrypt hash stored for password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Create registers an active user ensuring username and email uniqueness
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}

	if err := s.ensureFree(ctx, username, email); err != nil {
		return nil, err
	}

	var hash string
	if req.Password != "" {
		var err error
		if hash, err = HashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	return s.repo.Create(ctx, &User{
		Username:     username,
		Email:        email,
		FullName:     req.FullName,
		Color:        req.Color,
		PasswordHash: hash,
		IsActive:     true,
	})
}

func (s *UserService) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: %s", ErrUserAlreadyExists, username)
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to validate username: %w", err)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: %s", ErrUserAlreadyExists, email)
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to validate email: %w", err)
	}

	return nil
}

// BulkCreate stores pre-built users as they are. Used by fixtures.
func (s *UserService) BulkCreate(ctx context.Context, users []*User) error {
	return s.repo.BulkCreate(ctx, users)
}

// Authenticate checks a password for a user identified by email or username.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*User, error) {
	var (
		user *User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.repo.GetByEmail(ctx, login)
	} else {
		user, err = s.repo.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// Search returns at most limit active users matching text.
func (s *UserService) Search(ctx context.Context, text string, limit int) ([]*User, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.Search(ctx, strings.TrimSpace(text), limit)
}
