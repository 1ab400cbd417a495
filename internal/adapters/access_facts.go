package adapters

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/workspace"
)

// InternalAccessFacts implements access.FactsSource using the workspace and project services
type InternalAccessFacts struct {
	workspaces *workspace.WorkspaceService
	projects   *project.ProjectService
}

func NewInternalAccessFacts(workspaces *workspace.WorkspaceService, projects *project.ProjectService) *InternalAccessFacts {
	return &InternalAccessFacts{
		workspaces: workspaces,
		projects:   projects,
	}
}

func (a *InternalAccessFacts) WorkspaceFacts(ctx context.Context, subject access.Subject, target access.Target) (*access.WorkspaceFacts, error) {
	var (
		ws  *workspace.Workspace
		err error
	)
	if target.ID != uuid.Nil {
		ws, err = a.workspaces.GetByID(ctx, target.ID)
	} else {
		ws, err = a.workspaces.GetBySlug(ctx, target.Slug)
	}
	if err != nil {
		if errors.Is(err, workspace.ErrWorkspaceNotFound) {
			return nil, access.ErrNotFound
		}
		return nil, err
	}

	return a.workspaceFacts(ctx, subject, ws)
}

func (a *InternalAccessFacts) workspaceFacts(ctx context.Context, subject access.Subject, ws *workspace.Workspace) (*access.WorkspaceFacts, error) {
	facts := &access.WorkspaceFacts{WorkspaceID: ws.ID}
	if subject.Anonymous {
		return facts, nil
	}

	facts.IsOwner = ws.OwnerID == subject.UserID

	role, err := a.workspaces.GetRoleForUser(ctx, ws, subject.UserID)
	if err != nil {
		return nil, err
	}
	if role != nil {
		facts.Role = &access.RoleGrant{IsAdmin: role.IsAdmin, Permissions: role.Permissions}
	}

	return facts, nil
}

func (a *InternalAccessFacts) ProjectFacts(ctx context.Context, subject access.Subject, target access.Target) (*access.ProjectFacts, error) {
	var (
		pj  *project.Project
		err error
	)
	if target.ID != uuid.Nil {
		pj, err = a.projects.GetByID(ctx, target.ID)
	} else {
		pj, err = a.projects.GetBySlug(ctx, target.Slug)
	}
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, access.ErrNotFound
		}
		return nil, err
	}

	facts := &access.ProjectFacts{
		ProjectID:                  pj.ID,
		PublicPermissions:          pj.PublicPermissions,
		WorkspaceMemberPermissions: pj.WorkspaceMemberPermissions,
		Workspace:                  access.WorkspaceFacts{WorkspaceID: pj.WorkspaceID},
	}
	if subject.Anonymous {
		return facts, nil
	}

	facts.IsOwner = pj.OwnerID == subject.UserID

	role, err := a.projects.GetRoleForUser(ctx, pj, subject.UserID)
	if err != nil {
		return nil, err
	}
	if role != nil {
		facts.Role = &access.RoleGrant{IsAdmin: role.IsAdmin, Permissions: role.Permissions}
	}

	ws, err := a.workspaces.GetByID(ctx, pj.WorkspaceID)
	if err != nil {
		return nil, err
	}
	wsFacts, err := a.workspaceFacts(ctx, subject, ws)
	if err != nil {
		return nil, err
	}
	facts.Workspace = *wsFacts

	return facts, nil
}
