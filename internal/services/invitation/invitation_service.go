package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/user"
)

var (
	ErrInvitationNotPending    = errors.New("invitation is not pending")
	ErrInvitationEmailMismatch = errors.New("invitation belongs to another email")
	ErrAlreadyMember           = errors.New("user is already a project member")
	ErrInvalidEmail            = errors.New("invalid email")
	ErrUnknownAction           = errors.New("unknown invitation action")
)

var validate = validator.New()

// Transition returns the status reached by applying action to an invitation in current.
// Only pending invitations can move.
func Transition(current Status, action Action) (Status, error) {
	if current != StatusPending {
		return current, fmt.Errorf("%w: %s", ErrInvitationNotPending, current)
	}

	switch action {
	case ActionAccept:
		return StatusAccepted, nil
	case ActionRevoke:
		return StatusRevoked, nil
	default:
		return current, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}

// Store is the persistence needed by InvitationService.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	Create(ctx context.Context, inv *ProjectInvitation) (*ProjectInvitation, error)
	BulkCreate(ctx context.Context, invitations []*ProjectInvitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProjectInvitation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*ProjectInvitation, error)
	GetPending(ctx context.Context, projectID uuid.UUID, email string) (*ProjectInvitation, error)
	UpdateRole(ctx context.Context, id, roleID, invitedByID uuid.UUID) (*ProjectInvitation, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, userID *uuid.UUID) (*ProjectInvitation, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, status Status) ([]*ProjectInvitation, error)
	AddProjectMembership(ctx context.Context, m *project.ProjectMembership) (*project.ProjectMembership, error)
}

// UserFinder resolves invited emails to registered users
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// MembershipFinder tells whether a user already belongs to a project
type MembershipFinder interface {
	GetMembership(ctx context.Context, projectID, userID uuid.UUID) (*project.ProjectMembership, error)
}

// InvitationService contains the invitation lifecycle
type InvitationService struct {
	repo        Store
	users       UserFinder
	memberships MembershipFinder
	changed     func(context.Context)
}

// NewInvitationService constructs a new InvitationService
func NewInvitationService(repo Store, users UserFinder, memberships MembershipFinder) *InvitationService {
	return &InvitationService{repo: repo, users: users, memberships: memberships}
}

// OnAccessChange registers fn to run once an accepted invitation has granted a membership
func (s *InvitationService) OnAccessChange(fn func(context.Context)) {
	s.changed = fn
}

// Create invites email to p with role. A pending invitation for the same email is reused with
// the new role. Registered users that are already members are rejected with ErrAlreadyMember.
func (s *InvitationService) Create(ctx context.Context, p *project.Project, role *project.ProjectRole, email string, invitedBy uuid.UUID) (*ProjectInvitation, error) {
	if role.ProjectID != p.ID {
		return nil, roles.ErrRoleNotFound
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}

	var userID *uuid.UUID
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		userID = &u.ID
		if _, err := s.memberships.GetMembership(ctx, p.ID, u.ID); err == nil {
			return nil, ErrAlreadyMember
		} else if !errors.Is(err, project.ErrMembershipNotFound) {
			return nil, err
		}
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, fmt.Errorf("failed to resolve invited user: %w", err)
	}

	pending, err := s.repo.GetPending(ctx, p.ID, email)
	switch {
	case err == nil:
		return s.repo.UpdateRole(ctx, pending.ID, role.ID, invitedBy)
	case !errors.Is(err, ErrInvitationNotFound):
		return nil, err
	}

	return s.repo.Create(ctx, &ProjectInvitation{
		ProjectID:   p.ID,
		RoleID:      role.ID,
		UserID:      userID,
		Email:       email,
		Status:      StatusPending,
		InvitedByID: invitedBy,
	})
}

// BulkCreate stores pre-built invitations as they are. Used by fixtures.
func (s *InvitationService) BulkCreate(ctx context.Context, invitations []*ProjectInvitation) error {
	return s.repo.BulkCreate(ctx, invitations)
}

// Accept moves the invitation to accepted and grants u the offered project role, atomically.
func (s *InvitationService) Accept(ctx context.Context, id uuid.UUID, u *user.User) (*ProjectInvitation, error) {
	var accepted *ProjectInvitation
	err := s.repo.Tx(ctx, func(repo Store) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		next, err := Transition(inv.Status, ActionAccept)
		if err != nil {
			return err
		}

		if !strings.EqualFold(inv.Email, u.Email) {
			return ErrInvitationEmailMismatch
		}

		if _, err := repo.AddProjectMembership(ctx, &project.ProjectMembership{
			UserID:    u.ID,
			ProjectID: inv.ProjectID,
			RoleID:    inv.RoleID,
		}); err != nil {
			return err
		}

		accepted, err = repo.SetStatus(ctx, inv.ID, next, &u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.changed != nil {
		s.changed(ctx)
	}
	return accepted, nil
}

// Revoke moves a pending invitation of p to revoked
func (s *InvitationService) Revoke(ctx context.Context, p *project.Project, id uuid.UUID) (*ProjectInvitation, error) {
	var revoked *ProjectInvitation
	err := s.repo.Tx(ctx, func(repo Store) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.ProjectID != p.ID {
			return ErrInvitationNotFound
		}

		next, err := Transition(inv.Status, ActionRevoke)
		if err != nil {
			return err
		}

		revoked, err = repo.SetStatus(ctx, inv.ID, next, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}

func (s *InvitationService) GetByID(ctx context.Context, id uuid.UUID) (*ProjectInvitation, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByProject returns invitations of the project, all of them when status is empty
func (s *InvitationService) ListByProject(ctx context.Context, projectID uuid.UUID, status Status) ([]*ProjectInvitation, error) {
	return s.repo.ListByProject(ctx, projectID, status)
}
