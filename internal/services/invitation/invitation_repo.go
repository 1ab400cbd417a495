package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taigaio/taiga/internal/db"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
)

var ErrInvitationNotFound = errors.New("invitation not found")

const invitationColumns = `id, project_id, role_id, user_id, email, status, invited_by_id, created_at, updated_at`

// InvitationRepo handles database operations for project invitations
type InvitationRepo struct {
	db db.Querier
}

// NewInvitationRepo creates a new invitation repository
func NewInvitationRepo(conn db.Querier) *InvitationRepo {
	return &InvitationRepo{db: conn}
}

// Tx runs fn with a repository bound to a single transaction
func (r *InvitationRepo) Tx(ctx context.Context, fn func(Store) error) error {
	return db.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(NewInvitationRepo(tx))
	})
}

func (r *InvitationRepo) Create(ctx context.Context, inv *ProjectInvitation) (*ProjectInvitation, error) {
	query := `
		INSERT INTO project_invitations (id, project_id, role_id, user_id, email, status, invited_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + invitationColumns

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	var created ProjectInvitation
	err := sqlx.GetContext(ctx, r.db, &created, query,
		inv.ID, inv.ProjectID, inv.RoleID, inv.UserID, inv.Email, inv.Status, inv.InvitedByID)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return &created, nil
}

// BulkCreate inserts invitations as they are. IDs are assigned when missing.
func (r *InvitationRepo) BulkCreate(ctx context.Context, invitations []*ProjectInvitation) error {
	if len(invitations) == 0 {
		return nil
	}
	for _, inv := range invitations {
		if inv.ID == uuid.Nil {
			inv.ID = uuid.New()
		}
	}

	query := `
		INSERT INTO project_invitations (id, project_id, role_id, user_id, email, status, invited_by_id)
		VALUES (:id, :project_id, :role_id, :user_id, :email, :status, :invited_by_id)`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, invitations); err != nil {
		return fmt.Errorf("failed to bulk create invitations: %w", err)
	}
	return nil
}

func (r *InvitationRepo) GetByID(ctx context.Context, id uuid.UUID) (*ProjectInvitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM project_invitations WHERE id = $1`, id)
}

// GetForUpdate locks the invitation row until the surrounding transaction ends
func (r *InvitationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*ProjectInvitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM project_invitations WHERE id = $1 FOR UPDATE`, id)
}

// GetPending returns the pending invitation of email to the project, if any
func (r *InvitationRepo) GetPending(ctx context.Context, projectID uuid.UUID, email string) (*ProjectInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM project_invitations
		WHERE project_id = $1 AND lower(email) = lower($2) AND status = $3`
	return r.getOne(ctx, query, projectID, email, StatusPending)
}

func (r *InvitationRepo) getOne(ctx context.Context, query string, args ...any) (*ProjectInvitation, error) {
	var inv ProjectInvitation
	if err := sqlx.GetContext(ctx, r.db, &inv, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

// UpdateRole changes the offered role of a pending invitation
func (r *InvitationRepo) UpdateRole(ctx context.Context, id, roleID, invitedByID uuid.UUID) (*ProjectInvitation, error) {
	query := `
		UPDATE project_invitations
		SET role_id = $2, invited_by_id = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + invitationColumns
	return r.getOne(ctx, query, id, roleID, invitedByID)
}

// SetStatus stores the new status and, when given, the user that resolved the invitation
func (r *InvitationRepo) SetStatus(ctx context.Context, id uuid.UUID, status Status, userID *uuid.UUID) (*ProjectInvitation, error) {
	query := `
		UPDATE project_invitations
		SET status = $2, user_id = COALESCE($3, user_id), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + invitationColumns
	return r.getOne(ctx, query, id, status, userID)
}

// ListByProject returns the project invitations, filtered by status unless it is empty
func (r *InvitationRepo) ListByProject(ctx context.Context, projectID uuid.UUID, status Status) ([]*ProjectInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM project_invitations
		WHERE project_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at, email`

	var list []*ProjectInvitation
	if err := sqlx.SelectContext(ctx, r.db, &list, query, projectID, string(status)); err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return list, nil
}

// AddProjectMembership inserts the membership granted by an accepted invitation
func (r *InvitationRepo) AddProjectMembership(ctx context.Context, m *project.ProjectMembership) (*project.ProjectMembership, error) {
	query := `
		INSERT INTO project_memberships (id, user_id, project_id, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, project_id, role_id, created_at`

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	var created project.ProjectMembership
	err := sqlx.GetContext(ctx, r.db, &created, query, m.ID, m.UserID, m.ProjectID, m.RoleID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, roles.ErrDuplicateMembership
		}
		return nil, fmt.Errorf("failed to create project membership: %w", err)
	}
	return &created, nil
}
