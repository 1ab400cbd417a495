package access

import "github.com/taigaio/taiga/internal/services/roles"

// Guard is a rule evaluated by Service.Check against the facts of a target.
type Guard struct {
	name        string
	requireUser bool
	workspace   func(WorkspaceFacts) bool
	project     func(ProjectFacts) bool
}

func (g Guard) String() string {
	return g.name
}

// HasPerm requires perm on the target
func HasPerm(perm roles.Permission) Guard {
	return Guard{
		name:      "has_perm:" + perm,
		workspace: func(f WorkspaceFacts) bool { return CanInWorkspace(f, perm) },
		project:   func(f ProjectFacts) bool { return CanInProject(f, perm) },
	}
}

// ProjectAdmin requires the project owner or an admin project role
func ProjectAdmin() Guard {
	return Guard{
		name:    "is_project_admin",
		project: IsProjectAdmin,
	}
}

// WorkspaceAdmin requires the workspace owner or an admin workspace role. On projects it is
// evaluated against the project's workspace.
func WorkspaceAdmin() Guard {
	return Guard{
		name:      "is_workspace_admin",
		workspace: IsWorkspaceAdmin,
		project:   func(f ProjectFacts) bool { return IsWorkspaceAdmin(f.Workspace) },
	}
}

// ViewProject requires any effective permission on the project
func ViewProject() Guard {
	return Guard{
		name:    "can_view_project",
		project: CanViewProject,
	}
}

// Authenticated only rejects anonymous subjects
func Authenticated() Guard {
	return Guard{
		name:        "is_authenticated",
		requireUser: true,
		workspace:   func(WorkspaceFacts) bool { return true },
		project:     func(ProjectFacts) bool { return true },
	}
}

// AnyOf passes when at least one of guards passes
func AnyOf(guards ...Guard) Guard {
	g := Guard{name: "any_of"}
	g.workspace = func(f WorkspaceFacts) bool {
		for _, sub := range guards {
			if sub.workspace != nil && sub.workspace(f) {
				return true
			}
		}
		return false
	}
	g.project = func(f ProjectFacts) bool {
		for _, sub := range guards {
			if sub.project != nil && sub.project(f) {
				return true
			}
		}
		return false
	}
	return g
}
