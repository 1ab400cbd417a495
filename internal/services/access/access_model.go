package access

import (
	"github.com/google/uuid"
)

// Subject is who asks for access. Anonymous subjects only ever reach public permissions.
type Subject struct {
	UserID    uuid.UUID `json:"user_id"`
	Anonymous bool      `json:"anonymous"`
}

// AnonymousSubject is the subject of unauthenticated requests
func AnonymousSubject() Subject {
	return Subject{Anonymous: true}
}

// UserSubject is the subject of an authenticated user
func UserSubject(id uuid.UUID) Subject {
	return Subject{UserID: id}
}

func (s Subject) cacheKey() string {
	if s.Anonymous || s.UserID == uuid.Nil {
		return "anonymous"
	}
	return s.UserID.String()
}

type TargetKind string

const (
	KindWorkspace TargetKind = "workspace"
	KindProject   TargetKind = "project"
)

// Target identifies a workspace or project either by id or by slug
type Target struct {
	Kind TargetKind
	ID   uuid.UUID
	Slug string
}

func WorkspaceBySlug(slug string) Target {
	return Target{Kind: KindWorkspace, Slug: slug}
}

func WorkspaceByID(id uuid.UUID) Target {
	return Target{Kind: KindWorkspace, ID: id}
}

func ProjectBySlug(slug string) Target {
	return Target{Kind: KindProject, Slug: slug}
}

func ProjectByID(id uuid.UUID) Target {
	return Target{Kind: KindProject, ID: id}
}

func (t Target) String() string {
	if t.ID != uuid.Nil {
		return t.ID.String()
	}
	return t.Slug
}

// RoleGrant is the part of a role the resolver looks at
type RoleGrant struct {
	IsAdmin     bool     `json:"is_admin"`
	Permissions []string `json:"permissions"`
}

// WorkspaceFacts is everything needed to decide on a workspace for one subject.
// Role is nil when the subject has no workspace membership.
type WorkspaceFacts struct {
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	IsOwner     bool       `json:"is_owner"`
	Role        *RoleGrant `json:"role,omitempty"`
}

// IsMember reports whether the subject owns or belongs to the workspace
func (f WorkspaceFacts) IsMember() bool {
	return f.IsOwner || f.Role != nil
}

// ProjectFacts is everything needed to decide on a project for one subject.
// Role is the project membership role, nil when there is none.
type ProjectFacts struct {
	ProjectID                  uuid.UUID      `json:"project_id"`
	IsOwner                    bool           `json:"is_owner"`
	Role                       *RoleGrant     `json:"role,omitempty"`
	PublicPermissions          []string       `json:"public_permissions"`
	WorkspaceMemberPermissions []string       `json:"workspace_member_permissions"`
	Workspace                  WorkspaceFacts `json:"workspace"`
}
