package testutil

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/workspace"
)

// WorkspaceStore implements workspace.Store
type WorkspaceStore struct {
	m *Memory
}

var _ workspace.Store = (*WorkspaceStore)(nil)

func (s *WorkspaceStore) Tx(_ context.Context, fn func(workspace.Store) error) error {
	return fn(s)
}

func (s *WorkspaceStore) Create(_ context.Context, w *workspace.Workspace) (*workspace.Workspace, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	row := clone(w)
	row.ID = newID(row.ID)
	row.CreatedAt = s.m.now()
	s.m.workspaces = append(s.m.workspaces, row)
	return clone(row), nil
}

func (s *WorkspaceStore) GetByID(_ context.Context, id uuid.UUID) (*workspace.Workspace, error) {
	return s.get(func(w *workspace.Workspace) bool { return w.ID == id })
}

func (s *WorkspaceStore) GetBySlug(_ context.Context, slug string) (*workspace.Workspace, error) {
	return s.get(func(w *workspace.Workspace) bool { return w.Slug == slug })
}

func (s *WorkspaceStore) get(match func(*workspace.Workspace) bool) (*workspace.Workspace, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if w := find(s.m.workspaces, match); w != nil {
		return clone(w), nil
	}
	return nil, workspace.ErrWorkspaceNotFound
}

func (s *WorkspaceStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return find(s.m.workspaces, func(w *workspace.Workspace) bool { return w.Slug == slug }) != nil, nil
}

func (s *WorkspaceStore) SetPremium(_ context.Context, id uuid.UUID, premium bool) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	w := find(s.m.workspaces, func(w *workspace.Workspace) bool { return w.ID == id })
	if w == nil {
		return workspace.ErrWorkspaceNotFound
	}
	w.IsPremium = premium
	return nil
}

func (s *WorkspaceStore) ListForUser(_ context.Context, userID uuid.UUID) ([]*workspace.Workspace, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return filter(s.m.workspaces, func(w *workspace.Workspace) bool {
		return w.OwnerID == userID || s.isMember(w.ID, userID) || s.m.hasProjectAccess(w.ID, userID)
	}), nil
}

func (s *WorkspaceStore) isMember(workspaceID, userID uuid.UUID) bool {
	return find(s.m.wsMemberships, func(m *workspace.WorkspaceMembership) bool {
		return m.WorkspaceID == workspaceID && m.UserID == userID
	}) != nil
}

func (s *WorkspaceStore) HasProjectAccess(_ context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.hasProjectAccess(workspaceID, userID), nil
}

func (s *WorkspaceStore) CreateRole(_ context.Context, role *workspace.WorkspaceRole) (*workspace.WorkspaceRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	// UNIQUE (workspace_id, slug)
	if find(s.m.wsRoles, func(r *workspace.WorkspaceRole) bool {
		return r.WorkspaceID == role.WorkspaceID && r.Slug == role.Slug
	}) != nil {
		return nil, roles.ErrDuplicateRole
	}

	row := clone(role)
	row.ID = newID(row.ID)
	row.Permissions = slices.Clone(row.Permissions)
	s.m.wsRoles = append(s.m.wsRoles, row)
	return clone(row), nil
}

func (s *WorkspaceStore) GetRoles(_ context.Context, workspaceID uuid.UUID) ([]*workspace.WorkspaceRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	list := filter(s.m.wsRoles, func(r *workspace.WorkspaceRole) bool { return r.WorkspaceID == workspaceID })
	slices.SortStableFunc(list, func(a, b *workspace.WorkspaceRole) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Name, b.Name)
	})
	return list, nil
}

func (s *WorkspaceStore) GetRole(_ context.Context, workspaceID uuid.UUID, slug string) (*workspace.WorkspaceRole, error) {
	return s.getRole(func(r *workspace.WorkspaceRole) bool { return r.WorkspaceID == workspaceID && r.Slug == slug })
}

func (s *WorkspaceStore) GetRoleByID(_ context.Context, id uuid.UUID) (*workspace.WorkspaceRole, error) {
	return s.getRole(func(r *workspace.WorkspaceRole) bool { return r.ID == id })
}

func (s *WorkspaceStore) getRole(match func(*workspace.WorkspaceRole) bool) (*workspace.WorkspaceRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if r := find(s.m.wsRoles, match); r != nil {
		return clone(r), nil
	}
	return nil, roles.ErrRoleNotFound
}

func (s *WorkspaceStore) UpdateRolePermissions(_ context.Context, roleID uuid.UUID, perms []string) (*workspace.WorkspaceRole, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	r := find(s.m.wsRoles, func(r *workspace.WorkspaceRole) bool { return r.ID == roleID })
	if r == nil {
		return nil, roles.ErrRoleNotFound
	}
	if r.IsAdmin {
		return nil, roles.ErrNonEditableRole
	}
	r.Permissions = pq.StringArray(slices.Clone(perms))
	return clone(r), nil
}

func (s *WorkspaceStore) CreateMembership(_ context.Context, m *workspace.WorkspaceMembership) (*workspace.WorkspaceMembership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.isMember(m.WorkspaceID, m.UserID) {
		return nil, roles.ErrDuplicateMembership
	}
	row := clone(m)
	row.ID = newID(row.ID)
	row.CreatedAt = s.m.now()
	s.m.wsMemberships = append(s.m.wsMemberships, row)
	return clone(row), nil
}

func (s *WorkspaceStore) GetMemberships(_ context.Context, workspaceID uuid.UUID) ([]*workspace.WorkspaceMembership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return filter(s.m.wsMemberships, func(m *workspace.WorkspaceMembership) bool { return m.WorkspaceID == workspaceID }), nil
}

func (s *WorkspaceStore) GetMembership(_ context.Context, workspaceID, userID uuid.UUID) (*workspace.WorkspaceMembership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	m := find(s.m.wsMemberships, func(m *workspace.WorkspaceMembership) bool {
		return m.WorkspaceID == workspaceID && m.UserID == userID
	})
	if m == nil {
		return nil, workspace.ErrMembershipNotFound
	}
	return clone(m), nil
}
