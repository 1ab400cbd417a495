package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/roles"
)

var (
	ErrWorkspaceNotPremium = errors.New("workspace is not premium")
	ErrInvalidName         = errors.New("workspace name is required")
)

// Store is the persistence needed by WorkspaceService.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	Create(ctx context.Context, w *Workspace) (*Workspace, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	GetBySlug(ctx context.Context, slug string) (*Workspace, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	SetPremium(ctx context.Context, id uuid.UUID, premium bool) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Workspace, error)
	HasProjectAccess(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error)

	CreateRole(ctx context.Context, role *WorkspaceRole) (*WorkspaceRole, error)
	GetRoles(ctx context.Context, workspaceID uuid.UUID) ([]*WorkspaceRole, error)
	GetRole(ctx context.Context, workspaceID uuid.UUID, slug string) (*WorkspaceRole, error)
	GetRoleByID(ctx context.Context, id uuid.UUID) (*WorkspaceRole, error)
	UpdateRolePermissions(ctx context.Context, roleID uuid.UUID, perms []string) (*WorkspaceRole, error)

	CreateMembership(ctx context.Context, m *WorkspaceMembership) (*WorkspaceMembership, error)
	GetMemberships(ctx context.Context, workspaceID uuid.UUID) ([]*WorkspaceMembership, error)
	GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*WorkspaceMembership, error)
}

// WorkspaceService contains business logic for workspaces, their roles and memberships
type WorkspaceService struct {
	repo    Store
	changed func(context.Context)
}

// NewWorkspaceService constructs a new WorkspaceService
func NewWorkspaceService(repo Store) *WorkspaceService {
	return &WorkspaceService{repo: repo}
}

// OnAccessChange registers fn to run after workspace roles, memberships or premium status
// were written
func (s *WorkspaceService) OnAccessChange(fn func(context.Context)) {
	s.changed = fn
}

func (s *WorkspaceService) accessChanged(ctx context.Context) {
	if s.changed != nil {
		s.changed(ctx)
	}
}

// Create inserts the workspace together with its admin role and the owner's admin membership.
// Premium workspaces also get a non-admin members role.
func (s *WorkspaceService) Create(ctx context.Context, req *CreateWorkspaceRequest) (*Workspace, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	var created *Workspace
	err := s.repo.Tx(ctx, func(repo Store) error {
		slug, err := uniqueSlug(ctx, repo, roles.Slugify(name))
		if err != nil {
			return err
		}

		created, err = repo.Create(ctx, &Workspace{
			Slug:      slug,
			Name:      name,
			Color:     req.Color,
			IsPremium: req.IsPremium,
			OwnerID:   req.OwnerID,
		})
		if err != nil {
			return err
		}

		admin, err := repo.CreateRole(ctx, &WorkspaceRole{
			WorkspaceID: created.ID,
			Name:        "Administrator",
			Slug:        roles.AdminRoleSlug,
			Permissions: roles.WorkspacePermissions(),
			IsAdmin:     true,
			Order:       1,
		})
		if err != nil {
			return err
		}

		if _, err := repo.CreateMembership(ctx, &WorkspaceMembership{
			UserID:      req.OwnerID,
			WorkspaceID: created.ID,
			RoleID:      admin.ID,
		}); err != nil {
			return err
		}

		if req.IsPremium {
			return createMembersRole(ctx, repo, created.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return created, nil
}

func createMembersRole(ctx context.Context, repo Store, workspaceID uuid.UUID) error {
	_, err := repo.CreateRole(ctx, &WorkspaceRole{
		WorkspaceID: workspaceID,
		Name:        "Members",
		Slug:        roles.MembersRoleSlug,
		Permissions: roles.WorkspacePermissions(),
		Order:       2,
	})
	return err
}

func uniqueSlug(ctx context.Context, repo Store, base string) (string, error) {
	return roles.UniqueSlug(base, "workspace", func(slug string) (bool, error) {
		return repo.SlugExists(ctx, slug)
	})
}

func (s *WorkspaceService) GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *WorkspaceService) GetBySlug(ctx context.Context, slug string) (*Workspace, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ListForUser returns the workspaces a user owns, belongs to or reaches as a project guest
func (s *WorkspaceService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Workspace, error) {
	return s.repo.ListForUser(ctx, userID)
}

// MarkPremium flags the workspace as premium and makes sure the members role exists
func (s *WorkspaceService) MarkPremium(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	var updated *Workspace
	err := s.repo.Tx(ctx, func(repo Store) error {
		if err := repo.SetPremium(ctx, id, true); err != nil {
			return err
		}
		if _, err := repo.GetRole(ctx, id, roles.MembersRoleSlug); err != nil {
			if !errors.Is(err, roles.ErrRoleNotFound) {
				return err
			}
			if err := createMembersRole(ctx, repo, id); err != nil {
				return err
			}
		}

		var err error
		updated, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.accessChanged(ctx)
	return updated, nil
}

// CreateRole adds a non-admin role with a slug unique within the workspace. Only premium
// workspaces may have them.
func (s *WorkspaceService) CreateRole(ctx context.Context, w *Workspace, req *CreateRoleRequest) (*WorkspaceRole, error) {
	if !w.IsPremium {
		return nil, ErrWorkspaceNotPremium
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	perms, err := roles.PreparePermissions(roles.ScopeWorkspace, false, req.Permissions)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetRoles(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	slug, err := roles.UniqueSlug(roles.Slugify(name), "role", func(slug string) (bool, error) {
		return slices.ContainsFunc(existing, func(r *WorkspaceRole) bool { return r.Slug == slug }), nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.CreateRole(ctx, &WorkspaceRole{
		WorkspaceID: w.ID,
		Name:        name,
		Slug:        slug,
		Permissions: perms,
		Order:       len(existing) + 1,
	})
}

func (s *WorkspaceService) GetRoles(ctx context.Context, workspaceID uuid.UUID) ([]*WorkspaceRole, error) {
	return s.repo.GetRoles(ctx, workspaceID)
}

func (s *WorkspaceService) GetRole(ctx context.Context, workspaceID uuid.UUID, slug string) (*WorkspaceRole, error) {
	return s.repo.GetRole(ctx, workspaceID, slug)
}

func (s *WorkspaceService) GetAdminRole(ctx context.Context, workspaceID uuid.UUID) (*WorkspaceRole, error) {
	return s.repo.GetRole(ctx, workspaceID, roles.AdminRoleSlug)
}

// UpdateRolePermissions replaces the permission set of role. Admin roles are rejected
// with roles.ErrNonEditableRole and invalid sets with roles.ErrBadPermissionsSet.
func (s *WorkspaceService) UpdateRolePermissions(ctx context.Context, role *WorkspaceRole, perms []string) (*WorkspaceRole, error) {
	prepared, err := roles.PreparePermissions(roles.ScopeWorkspace, role.IsAdmin, perms)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateRolePermissions(ctx, role.ID, prepared)
	if err != nil {
		return nil, err
	}
	s.accessChanged(ctx)
	return updated, nil
}

// CreateMembership binds user to role. A second membership for the same workspace fails with
// roles.ErrDuplicateMembership.
func (s *WorkspaceService) CreateMembership(ctx context.Context, userID uuid.UUID, w *Workspace, role *WorkspaceRole) (*WorkspaceMembership, error) {
	if role.WorkspaceID != w.ID {
		return nil, roles.ErrRoleNotFound
	}
	m, err := s.repo.CreateMembership(ctx, &WorkspaceMembership{
		UserID:      userID,
		WorkspaceID: w.ID,
		RoleID:      role.ID,
	})
	if err != nil {
		return nil, err
	}
	s.accessChanged(ctx)
	return m, nil
}

func (s *WorkspaceService) GetMemberships(ctx context.Context, workspaceID uuid.UUID) ([]*WorkspaceMembership, error) {
	return s.repo.GetMemberships(ctx, workspaceID)
}

// GetMembership returns ErrMembershipNotFound when the user holds no role in the workspace
func (s *WorkspaceService) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*WorkspaceMembership, error) {
	return s.repo.GetMembership(ctx, workspaceID, userID)
}

// GetRoleForUser returns the user's role in the workspace. Owners without a membership row
// get the admin role. Users without any relationship get nil.
func (s *WorkspaceService) GetRoleForUser(ctx context.Context, w *Workspace, userID uuid.UUID) (*WorkspaceRole, error) {
	m, err := s.repo.GetMembership(ctx, w.ID, userID)
	switch {
	case err == nil:
		return s.repo.GetRoleByID(ctx, m.RoleID)
	case !errors.Is(err, ErrMembershipNotFound):
		return nil, err
	}

	if w.OwnerID == userID {
		return s.GetAdminRole(ctx, w.ID)
	}
	return nil, nil
}

// GetUserRoleName classifies the user relationship with the workspace.
func (s *WorkspaceService) GetUserRoleName(ctx context.Context, w *Workspace, userID uuid.UUID) (roles.RoleName, error) {
	if w.OwnerID == userID {
		return roles.RoleNameAdmin, nil
	}

	role, err := s.GetRoleForUser(ctx, w, userID)
	if err != nil {
		return roles.RoleNameNone, err
	}
	if role != nil {
		if role.IsAdmin {
			return roles.RoleNameAdmin, nil
		}
		return roles.RoleNameMember, nil
	}

	guest, err := s.repo.HasProjectAccess(ctx, w.ID, userID)
	if err != nil {
		return roles.RoleNameNone, err
	}
	if guest {
		return roles.RoleNameGuest, nil
	}
	return roles.RoleNameNone, nil
}
