package access

import (
	"slices"

	"github.com/taigaio/taiga/internal/services/roles"
)

// Tier tells which source of permissions decided a project check
type Tier string

const (
	TierOwner           Tier = "owner"
	TierProjectRole     Tier = "project_role"
	TierWorkspaceMember Tier = "workspace_member"
	TierPublic          Tier = "public"
)

// CanInWorkspace grants the owner, then admin roles, then roles holding perm.
func CanInWorkspace(f WorkspaceFacts, perm roles.Permission) bool {
	if f.IsOwner {
		return true
	}
	if f.Role != nil {
		return f.Role.IsAdmin || roles.Contains(f.Role.Permissions, perm)
	}
	return false
}

// ProjectTier returns the tier that applies to the subject. A project membership always wins
// over the workspace member and public tiers, whatever its permissions are.
func ProjectTier(f ProjectFacts) Tier {
	switch {
	case f.IsOwner:
		return TierOwner
	case f.Role != nil:
		return TierProjectRole
	case f.Workspace.IsMember():
		return TierWorkspaceMember
	default:
		return TierPublic
	}
}

// CanInProject decides perm on a project using only the tier that applies.
func CanInProject(f ProjectFacts, perm roles.Permission) bool {
	switch ProjectTier(f) {
	case TierOwner:
		return true
	case TierProjectRole:
		return f.Role.IsAdmin || roles.Contains(f.Role.Permissions, perm)
	case TierWorkspaceMember:
		return roles.Contains(f.WorkspaceMemberPermissions, perm)
	default:
		return roles.Contains(f.PublicPermissions, perm)
	}
}

// EffectiveProjectPermissions returns the permission set of the applying tier, sorted.
func EffectiveProjectPermissions(f ProjectFacts) []roles.Permission {
	var perms []roles.Permission
	switch ProjectTier(f) {
	case TierOwner:
		perms = roles.ProjectPermissions()
	case TierProjectRole:
		if f.Role.IsAdmin {
			perms = roles.ProjectPermissions()
		} else {
			perms = slices.Clone(f.Role.Permissions)
		}
	case TierWorkspaceMember:
		perms = slices.Clone(f.WorkspaceMemberPermissions)
	default:
		perms = slices.Clone(f.PublicPermissions)
	}
	return roles.Normalize(perms)
}

func IsWorkspaceAdmin(f WorkspaceFacts) bool {
	return f.IsOwner || (f.Role != nil && f.Role.IsAdmin)
}

func IsProjectAdmin(f ProjectFacts) bool {
	return f.IsOwner || (f.Role != nil && f.Role.IsAdmin)
}

// CanViewProject holds for project admins and for anyone with at least one effective permission.
func CanViewProject(f ProjectFacts) bool {
	return IsProjectAdmin(f) || len(EffectiveProjectPermissions(f)) > 0
}
