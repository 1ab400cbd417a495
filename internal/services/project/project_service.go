package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/roles"
)

var ErrInvalidName = errors.New("project name is required")

// Store is the persistence needed by ProjectService.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	Create(ctx context.Context, p *Project) (*Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	GetBySlug(ctx context.Context, slug string) (*Project, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Project, error)
	UpdatePublicPermissions(ctx context.Context, id uuid.UUID, perms []string) (*Project, error)
	UpdateWorkspaceMemberPermissions(ctx context.Context, id uuid.UUID, perms []string) (*Project, error)

	CreateRole(ctx context.Context, role *ProjectRole) (*ProjectRole, error)
	GetRoles(ctx context.Context, projectID uuid.UUID) ([]*ProjectRole, error)
	GetRole(ctx context.Context, projectID uuid.UUID, slug string) (*ProjectRole, error)
	GetRoleByID(ctx context.Context, id uuid.UUID) (*ProjectRole, error)
	UpdateRolePermissions(ctx context.Context, roleID uuid.UUID, perms []string) (*ProjectRole, error)

	CreateMembership(ctx context.Context, m *ProjectMembership) (*ProjectMembership, error)
	GetMemberships(ctx context.Context, projectID uuid.UUID) ([]*ProjectMembership, error)
	GetMembership(ctx context.Context, projectID, userID uuid.UUID) (*ProjectMembership, error)
	CountMembersByRole(ctx context.Context, roleID uuid.UUID) (int, error)
}

// TemplateApplier fills a freshly created project with its default workflow.
type TemplateApplier interface {
	ApplyKanbanTemplate(ctx context.Context, projectID uuid.UUID) error
}

// ProjectService contains business logic for projects
type ProjectService struct {
	repo      Store
	templates TemplateApplier
	changed   func(context.Context)
}

// NewProjectService constructs a new ProjectService. templates may be nil.
func NewProjectService(repo Store, templates TemplateApplier) *ProjectService {
	return &ProjectService{repo: repo, templates: templates}
}

// OnAccessChange registers fn to run after roles, memberships or permission tiers of a
// project were written
func (s *ProjectService) OnAccessChange(fn func(context.Context)) {
	s.changed = fn
}

func (s *ProjectService) accessChanged(ctx context.Context) {
	if s.changed != nil {
		s.changed(ctx)
	}
}

// Create inserts the project with its admin and general roles and the owner's admin
// membership, then applies the kanban template. Permission tiers start empty.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	var created *Project
	err := s.repo.Tx(ctx, func(repo Store) error {
		slug, err := uniqueSlug(ctx, repo, roles.Slugify(name))
		if err != nil {
			return err
		}

		created, err = repo.Create(ctx, &Project{
			Slug:        slug,
			Name:        name,
			Description: req.Description,
			Color:       req.Color,
			Logo:        req.Logo,
			WorkspaceID: req.WorkspaceID,
			OwnerID:     req.OwnerID,
		})
		if err != nil {
			return err
		}

		admin, err := repo.CreateRole(ctx, &ProjectRole{
			ProjectID:   created.ID,
			Name:        "Administrator",
			Slug:        roles.AdminRoleSlug,
			Permissions: roles.ProjectPermissions(),
			IsAdmin:     true,
			Order:       1,
		})
		if err != nil {
			return err
		}

		if _, err := repo.CreateRole(ctx, &ProjectRole{
			ProjectID:   created.ID,
			Name:        "General",
			Slug:        roles.GeneralRoleSlug,
			Permissions: roles.ProjectPermissions(),
			Order:       2,
		}); err != nil {
			return err
		}

		_, err = repo.CreateMembership(ctx, &ProjectMembership{
			UserID:    req.OwnerID,
			ProjectID: created.ID,
			RoleID:    admin.ID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.accessChanged(ctx)

	if s.templates != nil {
		if err := s.templates.ApplyKanbanTemplate(ctx, created.ID); err != nil {
			slog.ErrorContext(ctx, "Unable to apply project template", slog.String("project", created.Slug), slog.Any("error", err))
			return nil, fmt.Errorf("failed to apply project template: %w", err)
		}
	}

	return created, nil
}

func uniqueSlug(ctx context.Context, repo Store, base string) (string, error) {
	return roles.UniqueSlug(base, "project", func(slug string) (bool, error) {
		return repo.SlugExists(ctx, slug)
	})
}

// GetByID fetches a project by its identifier
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug fetches a project by its slug
func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*Project, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ListByWorkspace returns every project of the workspace
func (s *ProjectService) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Project, error) {
	projects, err := s.repo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ListVisibleByWorkspace returns the projects of the workspace for which canView holds
func (s *ProjectService) ListVisibleByWorkspace(ctx context.Context, workspaceID uuid.UUID, canView func(context.Context, *Project) (bool, error)) ([]*Project, error) {
	projects, err := s.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	visible := make([]*Project, 0, len(projects))
	for _, p := range projects {
		ok, err := canView(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// UpdatePublicPermissions replaces the permissions granted to anyone
func (s *ProjectService) UpdatePublicPermissions(ctx context.Context, p *Project, perms []string) (*Project, error) {
	normalized := roles.Normalize(perms)
	if err := roles.ValidatePermissions(roles.ScopeProject, normalized); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdatePublicPermissions(ctx, p.ID, normalized)
	if err != nil {
		return nil, err
	}
	s.accessChanged(ctx)
	return updated, nil
}

// UpdateWorkspaceMemberPermissions replaces the permissions granted to workspace members
// without a project membership
func (s *ProjectService) UpdateWorkspaceMemberPermissions(ctx context.Context, p *Project, perms []string) (*Project, error) {
	normalized := roles.Normalize(perms)
	if err := roles.ValidatePermissions(roles.ScopeProject, normalized); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateWorkspaceMemberPermissions(ctx, p.ID, normalized)
	if err != nil {
		return nil, err
	}
	s.accessChanged(ctx)
	return updated, nil
}

func (s *ProjectService) GetRoles(ctx context.Context, projectID uuid.UUID) ([]*ProjectRole, error) {
	return s.repo.GetRoles(ctx, projectID)
}

// GetRolesWithCounts returns the project roles along with their member counts
func (s *ProjectService) GetRolesWithCounts(ctx context.Context, projectID uuid.UUID) ([]*RoleWithCount, error) {
	list, err := s.repo.GetRoles(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := make([]*RoleWithCount, 0, len(list))
	for _, role := range list {
		count, err := s.repo.CountMembersByRole(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &RoleWithCount{ProjectRole: role, NumMembers: count})
	}
	return out, nil
}

func (s *ProjectService) GetRole(ctx context.Context, projectID uuid.UUID, slug string) (*ProjectRole, error) {
	return s.repo.GetRole(ctx, projectID, slug)
}

func (s *ProjectService) GetRoleByID(ctx context.Context, id uuid.UUID) (*ProjectRole, error) {
	return s.repo.GetRoleByID(ctx, id)
}

func (s *ProjectService) GetAdminRole(ctx context.Context, projectID uuid.UUID) (*ProjectRole, error) {
	return s.repo.GetRole(ctx, projectID, roles.AdminRoleSlug)
}

// CreateRole adds a non-admin role with a validated permission set. The slug is made
// unique within the project.
func (s *ProjectService) CreateRole(ctx context.Context, p *Project, req *CreateRoleRequest) (*ProjectRole, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	perms, err := roles.PreparePermissions(roles.ScopeProject, false, req.Permissions)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetRoles(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	slug, err := roles.UniqueSlug(roles.Slugify(name), "role", func(slug string) (bool, error) {
		return slices.ContainsFunc(existing, func(r *ProjectRole) bool { return r.Slug == slug }), nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.CreateRole(ctx, &ProjectRole{
		ProjectID:   p.ID,
		Name:        name,
		Slug:        slug,
		Permissions: perms,
		Order:       len(existing) + 1,
	})
}

// UpdateRolePermissions replaces the permission set of role. Admin roles are rejected
// with roles.ErrNonEditableRole and invalid sets with roles.ErrBadPermissionsSet.
func (s *ProjectService) UpdateRolePermissions(ctx context.Context, role *ProjectRole, perms []string) (*ProjectRole, error) {
	prepared, err := roles.PreparePermissions(roles.ScopeProject, role.IsAdmin, perms)
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

// CreateMembership binds user to role. A second membership for the same project fails with
// roles.ErrDuplicateMembership.
func (s *ProjectService) CreateMembership(ctx context.Context, userID uuid.UUID, p *Project, role *ProjectRole) (*ProjectMembership, error) {
	if role.ProjectID != p.ID {
		return nil, roles.ErrRoleNotFound
	}
	m, err := s.repo.CreateMembership(ctx, &ProjectMembership{
		UserID:    userID,
		ProjectID: p.ID,
		RoleID:    role.ID,
	})
	if err != nil {
		return nil, err
	}
	s.accessChanged(ctx)
	return m, nil
}

// GetMemberships lists the project memberships, the owner's included
func (s *ProjectService) GetMemberships(ctx context.Context, projectID uuid.UUID) ([]*ProjectMembership, error) {
	return s.repo.GetMemberships(ctx, projectID)
}

// GetMembership returns ErrMembershipNotFound when the user holds no role in the project
func (s *ProjectService) GetMembership(ctx context.Context, projectID, userID uuid.UUID) (*ProjectMembership, error) {
	return s.repo.GetMembership(ctx, projectID, userID)
}

func (s *ProjectService) CountMembersByRole(ctx context.Context, roleID uuid.UUID) (int, error) {
	return s.repo.CountMembersByRole(ctx, roleID)
}

// GetRoleForUser returns the user's role in the project. Owners without a membership row
// get the admin role. Users without a membership get nil.
func (s *ProjectService) GetRoleForUser(ctx context.Context, p *Project, userID uuid.UUID) (*ProjectRole, error) {
	m, err := s.repo.GetMembership(ctx, p.ID, userID)
	switch {
	case err == nil:
		return s.repo.GetRoleByID(ctx, m.RoleID)
	case !errors.Is(err, ErrMembershipNotFound):
		return nil, err
	}

	if p.OwnerID == userID {
		return s.GetAdminRole(ctx, p.ID)
	}
	return nil, nil
}
