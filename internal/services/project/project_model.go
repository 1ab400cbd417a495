package project

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Project is a unit of work inside a workspace with its own roles and permission tiers
type Project struct {
	ID                         uuid.UUID      `json:"id" db:"id"`
	Slug                       string         `json:"slug" db:"slug"`
	Name                       string         `json:"name" db:"name"`
	Description                string         `json:"description" db:"description"`
	Color                      int            `json:"color" db:"color"`
	Logo                       *string        `json:"logo,omitempty" db:"logo"`
	WorkspaceID                uuid.UUID      `json:"workspace_id" db:"workspace_id"`
	OwnerID                    uuid.UUID      `json:"owner_id" db:"owner_id"`
	PublicPermissions          pq.StringArray `json:"public_permissions" db:"public_permissions"`
	WorkspaceMemberPermissions pq.StringArray `json:"workspace_member_permissions" db:"workspace_member_permissions"`
	CreatedAt                  time.Time      `json:"created_at" db:"created_at"`
	ModifiedAt                 time.Time      `json:"modified_at" db:"modified_at"`
}

// ProjectRole is a named permission bundle inside one project
type ProjectRole struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	ProjectID   uuid.UUID      `json:"project_id" db:"project_id"`
	Name        string         `json:"name" db:"name"`
	Slug        string         `json:"slug" db:"slug"`
	Permissions pq.StringArray `json:"permissions" db:"permissions"`
	IsAdmin     bool           `json:"is_admin" db:"is_admin"`
	Order       int            `json:"order" db:"position"`
}

// ProjectMembership binds a user to a role of a project
type ProjectMembership struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	RoleID    uuid.UUID `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RoleWithCount is a project role along with the number of members holding it
type RoleWithCount struct {
	*ProjectRole
	NumMembers int `json:"num_members"`
}

// CreateProjectRequest captures payload for creating a project
type CreateProjectRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Logo        *string   `json:"logo,omitempty"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	OwnerID     uuid.UUID `json:"-"`
}

// CreateRoleRequest captures payload for adding a project role
type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Permissions []string `json:"permissions" validate:"required"`
}

// UpdatePermissionsRequest is the body of every permission edit on a project
type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

// CreateMembershipRequest adds a user to a project role
type CreateMembershipRequest struct {
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	RoleSlug string    `json:"role_slug" validate:"required"`
}
