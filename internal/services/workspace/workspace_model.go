package workspace

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Workspace is the top-level container owning projects and workspace roles
type Workspace struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Name      string    `json:"name" db:"name"`
	Color     int       `json:"color" db:"color"`
	IsPremium bool      `json:"is_premium" db:"is_premium"`
	OwnerID   uuid.UUID `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WorkspaceRole is a named permission bundle inside one workspace
type WorkspaceRole struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	WorkspaceID uuid.UUID      `json:"workspace_id" db:"workspace_id"`
	Name        string         `json:"name" db:"name"`
	Slug        string         `json:"slug" db:"slug"`
	Permissions pq.StringArray `json:"permissions" db:"permissions"`
	IsAdmin     bool           `json:"is_admin" db:"is_admin"`
	Order       int            `json:"order" db:"position"`
}

// WorkspaceMembership binds a user to a role of a workspace
type WorkspaceMembership struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id" db:"workspace_id"`
	RoleID      uuid.UUID `json:"role_id" db:"role_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CreateWorkspaceRequest captures payload for creating a workspace
type CreateWorkspaceRequest struct {
	Name      string    `json:"name" validate:"required,max=40"`
	Color     int       `json:"color" validate:"required,min=1,max=8"`
	IsPremium bool      `json:"is_premium"`
	OwnerID   uuid.UUID `json:"-"`
}

// CreateRoleRequest captures payload for adding a non-admin role
type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Permissions []string `json:"permissions" validate:"required"`
}

// UpdatePermissionsRequest is the body of role permission edits
type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

// CreateMembershipRequest adds a user to a workspace role
type CreateMembershipRequest struct {
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	RoleSlug string    `json:"role_slug" validate:"required"`
}
