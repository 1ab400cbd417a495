package testutil

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
)

// ProjectStore implements project.Store
type ProjectStore struct {
	m *Memory
}

var _ project.Store = (*ProjectStore)(nil)

// hasProjectAccess reports whether the user owns or belongs to a project of the workspace.
// Callers hold mu.
func (m *Memory) hasProjectAccess(workspaceID, userID uuid.UUID) bool {
	for _, p := range m.projects {
		if p.WorkspaceID != workspaceID {
			continue
		}
		if p.OwnerID == userID || m.projectMembership(p.ID, userID) != nil {
			return true
		}
	}
	return false
}

func (m *Memory) projectMembership(projectID, userID uuid.UUID) *project.ProjectMembership {
	return find(m.pjMemberships, func(pm *project.ProjectMembership) bool {
		return pm.ProjectID == projectID && pm.UserID == userID
	})
}

// addProjectMembership is shared by the project and invitation stores. Callers hold mu.
func (m *Memory) addProjectMembership(pm *project.ProjectMembership) (*project.ProjectMembership, error) {
	if m.projectMembership(pm.ProjectID, pm.UserID) != nil {
		return nil, roles.ErrDuplicateMembership
	}
	row := clone(pm)
	row.ID = newID(row.ID)
	row.CreatedAt = m.now()
	m.pjMemberships = append(m.pjMemberships, row)
	return clone(row), nil
}

func (s *ProjectStore) Tx(_ context.Context, fn func(project.Store) error) error {
	return fn(s)
}

func (s *ProjectStore) Create(_ context.Context, p *project.Project) (*project.Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	row := clone(p)
	row.ID = newID(row.ID)
	row.CreatedAt = s.m.now()
	row.ModifiedAt = row.CreatedAt
	if row.PublicPermissions == nil {
		row.PublicPermissions = pq.StringArray{}
	}
	if row.WorkspaceMemberPermissions == nil {
		row.WorkspaceMemberPermissions = pq.StringArray{}
	}
	s.m.projects = append(s.m.projects, row)
	return clone(row), nil
}

func (s *ProjectStore) GetByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	return s.get(func(p *project.Project) bool { return p.ID == id })
}

func (s *ProjectStore) GetBySlug(_ context.Context, slug string) (*project.Project, error) {
	return s.get(func(p *project.Project) bool { return p.Slug == slug })
}

func (s *ProjectStore) get(match func(*project.Project) bool) (*project.Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if p := find(s.m.projects, match); p != nil {
		return clone(p), nil
	}
	return nil, project.ErrProjectNotFound
}

func (s *ProjectStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return find(s.m.projects, func(p *project.Project) bool { return p.Slug == slug }) != nil, nil
}

func (s *ProjectStore) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]*project.Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return filter(s.m.projects, func(p *project.Project) bool { return p.WorkspaceID == workspaceID }), nil
}

func (s *ProjectStore) UpdatePublicPermissions(_ context.Context, id uuid.UUID, perms []string) (*project.Project, error) {
	return s.update(id, func(p *project.Project) { p.PublicPermissions = slices.Clone(perms) })
}

func (s *ProjectStore) UpdateWorkspaceMemberPermissions(_ context.Context, id uuid.UUID, perms []string) (*project.Project, error) {
	return s.update(id, func(p *project.Project) { p.WorkspaceMemberPermissions = slices.Clone(perms) })
}

func (s *ProjectStore) update(id uuid.UUID, apply func(*project.Project)) (*project.Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p := find(s.m.projects, func(p *project.Project) bool { return p.ID == id })
	if p == nil {
		return nil, project.ErrProjectNotFound
	}
	apply(p)
	p.ModifiedAt = s.m.now()
	return clone(p), nil
}

func (s *ProjectStore) CreateRole(_ context.Context, role *project.ProjectRole) (*project.ProjectRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	// UNIQUE (project_id, slug)
	if find(s.m.pjRoles, func(r *project.ProjectRole) bool {
		return r.ProjectID == role.ProjectID && r.Slug == role.Slug
	}) != nil {
		return nil, roles.ErrDuplicateRole
	}

	row := clone(role)
	row.ID = newID(row.ID)
	row.Permissions = slices.Clone(row.Permissions)
	if row.Permissions == nil {
		row.Permissions = pq.StringArray{}
	}
	s.m.pjRoles = append(s.m.pjRoles, row)
	return clone(row), nil
}

func (s *ProjectStore) GetRoles(_ context.Context, projectID uuid.UUID) ([]*project.ProjectRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	list := filter(s.m.pjRoles, func(r *project.ProjectRole) bool { return r.ProjectID == projectID })
	slices.SortStableFunc(list, func(a, b *project.ProjectRole) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Name, b.Name)
	})
	return list, nil
}

func (s *ProjectStore) GetRole(_ context.Context, projectID uuid.UUID, slug string) (*project.ProjectRole, error) {
	return s.getRole(func(r *project.ProjectRole) bool { return r.ProjectID == projectID && r.Slug == slug })
}

func (s *ProjectStore) GetRoleByID(_ context.Context, id uuid.UUID) (*project.ProjectRole, error) {
	return s.getRole(func(r *project.ProjectRole) bool { return r.ID == id })
}

func (s *ProjectStore) getRole(match func(*project.ProjectRole) bool) (*project.ProjectRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if r := find(s.m.pjRoles, match); r != nil {
		return clone(r), nil
	}
	return nil, roles.ErrRoleNotFound
}

func (s *ProjectStore) UpdateRolePermissions(_ context.Context, roleID uuid.UUID, perms []string) (*project.ProjectRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	r := find(s.m.pjRoles, func(r *project.ProjectRole) bool { return r.ID == roleID })
	if r == nil {
		return nil, roles.ErrRoleNotFound
	}
	if r.IsAdmin {
		return nil, roles.ErrNonEditableRole
	}
	r.Permissions = pq.StringArray(slices.Clone(perms))
	if r.Permissions == nil {
		r.Permissions = pq.StringArray{}
	}
	return clone(r), nil
}

func (s *ProjectStore) CreateMembership(_ context.Context, m *project.ProjectMembership) (*project.ProjectMembership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.addProjectMembership(m)
}

func (s *ProjectStore) GetMemberships(_ context.Context, projectID uuid.UUID) ([]*project.ProjectMembership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return filter(s.m.pjMemberships, func(m *project.ProjectMembership) bool { return m.ProjectID == projectID }), nil
}

func (s *ProjectStore) GetMembership(_ context.Context, projectID, userID uuid.UUID) (*project.ProjectMembership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if m := s.m.projectMembership(projectID, userID); m != nil {
		return clone(m), nil
	}
	return nil, project.ErrMembershipNotFound
}

func (s *ProjectStore) CountMembersByRole(_ context.Context, roleID uuid.UUID) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	count := 0
	for _, m := range s.m.pjMemberships {
		if m.RoleID == roleID {
			count++
		}
	}
	return count, nil
}
