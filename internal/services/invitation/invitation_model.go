package invitation

import (
	"time"

	"github.com/google/uuid"
)

// Status of a project invitation. Accepted and revoked are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRevoked  Status = "revoked"
)

// Action moves an invitation out of the pending state
type Action string

const (
	ActionAccept Action = "accept"
	ActionRevoke Action = "revoke"
)

// ProjectInvitation is an offer of a project role to an email address, optionally already
// resolved to a registered user
type ProjectInvitation struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ProjectID   uuid.UUID  `json:"project_id" db:"project_id"`
	RoleID      uuid.UUID  `json:"role_id" db:"role_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Email       string     `json:"email" db:"email"`
	Status      Status     `json:"status" db:"status"`
	InvitedByID uuid.UUID  `json:"invited_by_id" db:"invited_by_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateInvitationRequest is the payload to invite someone to a project
type CreateInvitationRequest struct {
	Email    string `json:"email" validate:"required,email"`
	RoleSlug string `json:"role_slug" validate:"required"`
}
