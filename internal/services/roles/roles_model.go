package roles

import (
	"slices"
	"strings"
)

// Permission is a single grant token stored on roles and on the project permission tiers.
type Permission = string

// Scope tells which permission enumeration applies to a role.
type Scope string

const (
	ScopeWorkspace Scope = "workspace"
	ScopeProject   Scope = "project"
)

// Workspace permissions
const (
	ViewWorkspace   Permission = "view_workspace"
	CreateProject   Permission = "create_project"
	ModifyWorkspace Permission = "modify_workspace"
)

// Project permissions
const (
	ViewStory    Permission = "view_story"
	AddStory     Permission = "add_story"
	ModifyStory  Permission = "modify_story"
	DeleteStory  Permission = "delete_story"
	CommentStory Permission = "comment_story"
	ViewTask     Permission = "view_task"
	AddTask      Permission = "add_task"
	ModifyTask   Permission = "modify_task"
	DeleteTask   Permission = "delete_task"
	CommentTask  Permission = "comment_task"
)

var workspacePermissions = []Permission{
	ViewWorkspace,
	CreateProject,
	ModifyWorkspace,
}

var projectPermissions = []Permission{
	ViewStory,
	AddStory,
	ModifyStory,
	DeleteStory,
	CommentStory,
	ViewTask,
	AddTask,
	ModifyTask,
	DeleteTask,
	CommentTask,
}

// AllPermissions returns a copy of the full enumeration for scope.
func AllPermissions(scope Scope) []Permission {
	switch scope {
	case ScopeWorkspace:
		return slices.Clone(workspacePermissions)
	case ScopeProject:
		return slices.Clone(projectPermissions)
	default:
		return nil
	}
}

// WorkspacePermissions is the full workspace enumeration.
func WorkspacePermissions() []Permission { return AllPermissions(ScopeWorkspace) }

// ProjectPermissions is the full project enumeration.
func ProjectPermissions() []Permission { return AllPermissions(ScopeProject) }

// RoleName is the coarse relationship of a user with a workspace.
type RoleName string

const (
	RoleNameAdmin  RoleName = "admin"
	RoleNameMember RoleName = "member"
	RoleNameGuest  RoleName = "guest"
	RoleNameNone   RoleName = "none"
)

// Default role slugs created alongside every workspace and project.
const (
	AdminRoleSlug   = "admin"
	GeneralRoleSlug = "general"
	MembersRoleSlug = "members"
)

// Normalize removes duplicates and sorts perms so stored sets compare equal.
func Normalize(perms []Permission) []Permission {
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether perm is part of perms.
func Contains(perms []Permission, perm Permission) bool {
	return slices.Contains(perms, perm)
}
