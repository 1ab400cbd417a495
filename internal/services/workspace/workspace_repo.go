package workspace

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
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrMembershipNotFound = errors.New("workspace membership not found")
)

const (
	workspaceColumns  = `id, slug, name, color, is_premium, owner_id, created_at`
	roleColumns       = `id, workspace_id, name, slug, permissions, is_admin, position`
	membershipColumns = `id, user_id, workspace_id, role_id, created_at`
)

// WorkspaceRepo handles database operations for workspaces, their roles and memberships
type WorkspaceRepo struct {
	db db.Querier
}

// NewWorkspaceRepo creates a new workspace repository
func NewWorkspaceRepo(conn db.Querier) *WorkspaceRepo {
	return &WorkspaceRepo{db: conn}
}

// Tx runs fn with a repository bound to a single transaction
func (r *WorkspaceRepo) Tx(ctx context.Context, fn func(Store) error) error {
	return db.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(NewWorkspaceRepo(tx))
	})
}

func (r *WorkspaceRepo) Create(ctx context.Context, w *Workspace) (*Workspace, error) {
	query := `
		INSERT INTO workspaces (id, slug, name, color, is_premium, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + workspaceColumns

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	var created Workspace
	err := sqlx.GetContext(ctx, r.db, &created, query, w.ID, w.Slug, w.Name, w.Color, w.IsPremium, w.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &created, nil
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	return r.getOne(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id)
}

func (r *WorkspaceRepo) GetBySlug(ctx context.Context, slug string) (*Workspace, error) {
	return r.getOne(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE slug = $1`, slug)
}

func (r *WorkspaceRepo) getOne(ctx context.Context, query string, arg any) (*Workspace, error) {
	var w Workspace
	if err := sqlx.GetContext(ctx, r.db, &w, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &w, nil
}

func (r *WorkspaceRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, `SELECT EXISTS (SELECT 1 FROM workspaces WHERE slug = $1)`, slug); err != nil {
		return false, fmt.Errorf("failed to check workspace slug: %w", err)
	}
	return exists, nil
}

func (r *WorkspaceRepo) SetPremium(ctx context.Context, id uuid.UUID, premium bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE workspaces SET is_premium = $2 WHERE id = $1`, id, premium)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

// ListForUser returns workspaces the user owns, belongs to, or reaches through a project
func (r *WorkspaceRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Workspace, error) {
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces w
		WHERE w.owner_id = $1
		   OR EXISTS (SELECT 1 FROM workspace_memberships wm WHERE wm.workspace_id = w.id AND wm.user_id = $1)
		   OR EXISTS (
				SELECT 1 FROM projects p
				LEFT JOIN project_memberships pm ON pm.project_id = p.id AND pm.user_id = $1
				WHERE p.workspace_id = w.id AND (p.owner_id = $1 OR pm.id IS NOT NULL)
		   )
		ORDER BY w.created_at, w.slug`

	var workspaces []*Workspace
	if err := sqlx.SelectContext(ctx, r.db, &workspaces, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// HasProjectAccess reports whether the user owns or is a member of any project of the workspace
func (r *WorkspaceRepo) HasProjectAccess(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM projects p
			WHERE p.workspace_id = $1
			  AND (p.owner_id = $2 OR EXISTS (
					SELECT 1 FROM project_memberships pm WHERE pm.project_id = p.id AND pm.user_id = $2))
		)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, workspaceID, userID); err != nil {
		return false, fmt.Errorf("failed to check project access: %w", err)
	}
	return exists, nil
}

func (r *WorkspaceRepo) CreateRole(ctx context.Context, role *WorkspaceRole) (*WorkspaceRole, error) {
	query := `
		INSERT INTO workspace_roles (id, workspace_id, name, slug, permissions, is_admin, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + roleColumns

	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}

	var created WorkspaceRole
	err := sqlx.GetContext(ctx, r.db, &created, query,
		role.ID, role.WorkspaceID, role.Name, role.Slug, pq.StringArray(role.Permissions), role.IsAdmin, role.Order)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, roles.ErrDuplicateRole
		}
		return nil, fmt.Errorf("failed to create workspace role: %w", err)
	}
	return &created, nil
}

func (r *WorkspaceRepo) GetRoles(ctx context.Context, workspaceID uuid.UUID) ([]*WorkspaceRole, error) {
	query := `SELECT ` + roleColumns + ` FROM workspace_roles WHERE workspace_id = $1 ORDER BY position, name`

	var list []*WorkspaceRole
	if err := sqlx.SelectContext(ctx, r.db, &list, query, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to list workspace roles: %w", err)
	}
	return list, nil
}

func (r *WorkspaceRepo) GetRole(ctx context.Context, workspaceID uuid.UUID, slug string) (*WorkspaceRole, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM workspace_roles WHERE workspace_id = $1 AND slug = $2`, workspaceID, slug)
}

func (r *WorkspaceRepo) GetRoleByID(ctx context.Context, id uuid.UUID) (*WorkspaceRole, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM workspace_roles WHERE id = $1`, id)
}

func (r *WorkspaceRepo) getRole(ctx context.Context, query string, args ...any) (*WorkspaceRole, error) {
	var role WorkspaceRole
	if err := sqlx.GetContext(ctx, r.db, &role, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roles.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get workspace role: %w", err)
	}
	return &role, nil
}

// UpdateRolePermissions replaces the permission set of a non-admin role. The admin guard is
// repeated in the statement so a concurrent change of is_admin cannot slip through.
func (r *WorkspaceRepo) UpdateRolePermissions(ctx context.Context, roleID uuid.UUID, perms []string) (*WorkspaceRole, error) {
	query := `
		UPDATE workspace_roles
		SET permissions = $2
		WHERE id = $1 AND NOT is_admin
		RETURNING ` + roleColumns

	var role WorkspaceRole
	err := sqlx.GetContext(ctx, r.db, &role, query, roleID, pq.StringArray(perms))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetRoleByID(ctx, roleID); getErr != nil {
				return nil, getErr
			}
			return nil, roles.ErrNonEditableRole
		}
		return nil, fmt.Errorf("failed to update workspace role: %w", err)
	}
	return &role, nil
}

func (r *WorkspaceRepo) CreateMembership(ctx context.Context, m *WorkspaceMembership) (*WorkspaceMembership, error) {
	query := `
		INSERT INTO workspace_memberships (id, user_id, workspace_id, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + membershipColumns

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	var created WorkspaceMembership
	err := sqlx.GetContext(ctx, r.db, &created, query, m.ID, m.UserID, m.WorkspaceID, m.RoleID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, roles.ErrDuplicateMembership
		}
		return nil, fmt.Errorf("failed to create workspace membership: %w", err)
	}
	return &created, nil
}

func (r *WorkspaceRepo) GetMemberships(ctx context.Context, workspaceID uuid.UUID) ([]*WorkspaceMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM workspace_memberships WHERE workspace_id = $1 ORDER BY created_at`

	var list []*WorkspaceMembership
	if err := sqlx.SelectContext(ctx, r.db, &list, query, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to list workspace memberships: %w", err)
	}
	return list, nil
}

func (r *WorkspaceRepo) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*WorkspaceMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM workspace_memberships WHERE workspace_id = $1 AND user_id = $2`

	var m WorkspaceMembership
	if err := sqlx.GetContext(ctx, r.db, &m, query, workspaceID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get workspace membership: %w", err)
	}
	return &m, nil
}
