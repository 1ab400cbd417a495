package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taigaio/taiga/internal/db"
	"github.com/taigaio/taiga/internal/services/roles"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrMembershipNotFound = errors.New("project membership not found")
)

const (
	projectColumns = `id, slug, name, description, color, logo, workspace_id, owner_id,
		public_permissions, workspace_member_permissions, created_at, modified_at`
	roleColumns       = `id, project_id, name, slug, permissions, is_admin, position`
	membershipColumns = `id, user_id, project_id, role_id, created_at`
)

// ProjectRepo handles database operations for projects, their roles and memberships
type ProjectRepo struct {
	db db.Querier
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(conn db.Querier) *ProjectRepo {
	return &ProjectRepo{db: conn}
}

// Tx runs fn with a repository bound to a single transaction
func (r *ProjectRepo) Tx(ctx context.Context, fn func(Store) error) error {
	return db.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(NewProjectRepo(tx))
	})
}

// Create creates a new project
func (r *ProjectRepo) Create(ctx context.Context, p *Project) (*Project, error) {
	query := `
		INSERT INTO projects (id, slug, name, description, color, logo, workspace_id, owner_id,
			public_permissions, workspace_member_permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + projectColumns

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	var created Project
	err := sqlx.GetContext(ctx, r.db, &created, query,
		p.ID, p.Slug, p.Name, p.Description, p.Color, p.Logo, p.WorkspaceID, p.OwnerID,
		nonNil(p.PublicPermissions), nonNil(p.WorkspaceMemberPermissions))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &created, nil
}

// nonNil keeps empty tiers stored as '{}' rather than NULL
func nonNil(perms pq.StringArray) pq.StringArray {
	if perms == nil {
		return pq.StringArray{}
	}
	return perms
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	return r.getOne(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
}

// GetBySlug retrieves a project by its slug
func (r *ProjectRepo) GetBySlug(ctx context.Context, slug string) (*Project, error) {
	return r.getOne(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = $1`, slug)
}

func (r *ProjectRepo) getOne(ctx context.Context, query string, arg any) (*Project, error) {
	var project Project
	if err := sqlx.GetContext(ctx, r.db, &project, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, `SELECT EXISTS (SELECT 1 FROM projects WHERE slug = $1)`, slug); err != nil {
		return false, fmt.Errorf("failed to check project slug: %w", err)
	}
	return exists, nil
}

// ListByWorkspace returns the projects of a workspace ordered by creation time
func (r *ProjectRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE workspace_id = $1 ORDER BY created_at, slug`

	var projects []*Project
	if err := sqlx.SelectContext(ctx, r.db, &projects, query, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepo) UpdatePublicPermissions(ctx context.Context, id uuid.UUID, perms []string) (*Project, error) {
	return r.updateTier(ctx, "public_permissions", id, perms)
}

func (r *ProjectRepo) UpdateWorkspaceMemberPermissions(ctx context.Context, id uuid.UUID, perms []string) (*Project, error) {
	return r.updateTier(ctx, "workspace_member_permissions", id, perms)
}

// updateTier is only ever called with a fixed column name
func (r *ProjectRepo) updateTier(ctx context.Context, column string, id uuid.UUID, perms []string) (*Project, error) {
	query := `
		UPDATE projects
		SET ` + column + ` = $2, modified_at = NOW()
		WHERE id = $1
		RETURNING ` + projectColumns

	var project Project
	if err := sqlx.GetContext(ctx, r.db, &project, query, id, nonNil(perms)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project permissions: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepo) CreateRole(ctx context.Context, role *ProjectRole) (*ProjectRole, error) {
	query := `
		INSERT INTO project_roles (id, project_id, name, slug, permissions, is_admin, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + roleColumns

	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}

	var created ProjectRole
	err := sqlx.GetContext(ctx, r.db, &created, query,
		role.ID, role.ProjectID, role.Name, role.Slug, nonNil(role.Permissions), role.IsAdmin, role.Order)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, roles.ErrDuplicateRole
		}
		return nil, fmt.Errorf("failed to create project role: %w", err)
	}
	return &created, nil
}

func (r *ProjectRepo) GetRoles(ctx context.Context, projectID uuid.UUID) ([]*ProjectRole, error) {
	query := `SELECT ` + roleColumns + ` FROM project_roles WHERE project_id = $1 ORDER BY position, name`

	var list []*ProjectRole
	if err := sqlx.SelectContext(ctx, r.db, &list, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list project roles: %w", err)
	}
	return list, nil
}

func (r *ProjectRepo) GetRole(ctx context.Context, projectID uuid.UUID, slug string) (*ProjectRole, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM project_roles WHERE project_id = $1 AND slug = $2`, projectID, slug)
}

func (r *ProjectRepo) GetRoleByID(ctx context.Context, id uuid.UUID) (*ProjectRole, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM project_roles WHERE id = $1`, id)
}

func (r *ProjectRepo) getRole(ctx context.Context, query string, args ...any) (*ProjectRole, error) {
	var role ProjectRole
	if err := sqlx.GetContext(ctx, r.db, &role, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roles.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get project role: %w", err)
	}
	return &role, nil
}

// UpdateRolePermissions replaces the permission set of a non-admin role
func (r *ProjectRepo) UpdateRolePermissions(ctx context.Context, roleID uuid.UUID, perms []string) (*ProjectRole, error) {
	query := `
		UPDATE project_roles
		SET permissions = $2
		WHERE id = $1 AND NOT is_admin
		RETURNING ` + roleColumns

	var role ProjectRole
	err := sqlx.GetContext(ctx, r.db, &role, query, roleID, nonNil(perms))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetRoleByID(ctx, roleID); getErr != nil {
				return nil, getErr
			}
			return nil, roles.ErrNonEditableRole
		}
		return nil, fmt.Errorf("failed to update project role: %w", err)
	}
	return &role, nil
}

func (r *ProjectRepo) CreateMembership(ctx context.Context, m *ProjectMembership) (*ProjectMembership, error) {
	query := `
		INSERT INTO project_memberships (id, user_id, project_id, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + membershipColumns

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	var created ProjectMembership
	err := sqlx.GetContext(ctx, r.db, &created, query, m.ID, m.UserID, m.ProjectID, m.RoleID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, roles.ErrDuplicateMembership
		}
		return nil, fmt.Errorf("failed to create project membership: %w", err)
	}
	return &created, nil
}

func (r *ProjectRepo) GetMemberships(ctx context.Context, projectID uuid.UUID) ([]*ProjectMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM project_memberships WHERE project_id = $1 ORDER BY created_at`

	var list []*ProjectMembership
	if err := sqlx.SelectContext(ctx, r.db, &list, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list project memberships: %w", err)
	}
	return list, nil
}

func (r *ProjectRepo) GetMembership(ctx context.Context, projectID, userID uuid.UUID) (*ProjectMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM project_memberships WHERE project_id = $1 AND user_id = $2`

	var m ProjectMembership
	if err := sqlx.GetContext(ctx, r.db, &m, query, projectID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get project membership: %w", err)
	}
	return &m, nil
}

func (r *ProjectRepo) CountMembersByRole(ctx context.Context, roleID uuid.UUID) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM project_memberships WHERE role_id = $1`, roleID); err != nil {
		return 0, fmt.Errorf("failed to count project members: %w", err)
	}
	return count, nil
}
