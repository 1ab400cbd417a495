package testutil

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
)

// InvitationStore implements invitation.Store
type InvitationStore struct {
	m *Memory
}

var _ invitation.Store = (*InvitationStore)(nil)

func (s *InvitationStore) Tx(_ context.Context, fn func(invitation.Store) error) error {
	return fn(s)
}

func (s *InvitationStore) Create(_ context.Context, inv *invitation.ProjectInvitation) (*invitation.ProjectInvitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.insert(inv), nil
}

func (s *InvitationStore) insert(inv *invitation.ProjectInvitation) *invitation.ProjectInvitation {
	row := clone(inv)
	row.ID = newID(row.ID)
	inv.ID = row.ID
	row.CreatedAt = s.m.now()
	row.UpdatedAt = row.CreatedAt
	s.m.invitations = append(s.m.invitations, row)
	return clone(row)
}

func (s *InvitationStore) BulkCreate(_ context.Context, invitations []*invitation.ProjectInvitation) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, inv := range invitations {
		s.insert(inv)
	}
	return nil
}

func (s *InvitationStore) GetByID(_ context.Context, id uuid.UUID) (*invitation.ProjectInvitation, error) {
	return s.get(func(inv *invitation.ProjectInvitation) bool { return inv.ID == id })
}

func (s *InvitationStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*invitation.ProjectInvitation, error) {
	return s.GetByID(ctx, id)
}

func (s *InvitationStore) GetPending(_ context.Context, projectID uuid.UUID, email string) (*invitation.ProjectInvitation, error) {
	return s.get(func(inv *invitation.ProjectInvitation) bool {
		return inv.ProjectID == projectID && strings.EqualFold(inv.Email, email) && inv.Status == invitation.StatusPending
	})
}

func (s *InvitationStore) get(match func(*invitation.ProjectInvitation) bool) (*invitation.ProjectInvitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if inv := find(s.m.invitations, match); inv != nil {
		return clone(inv), nil
	}
	return nil, invitation.ErrInvitationNotFound
}

func (s *InvitationStore) UpdateRole(_ context.Context, id, roleID, invitedByID uuid.UUID) (*invitation.ProjectInvitation, error) {
	return s.update(id, func(inv *invitation.ProjectInvitation) {
		inv.RoleID = roleID
		inv.InvitedByID = invitedByID
	})
}

func (s *InvitationStore) SetStatus(_ context.Context, id uuid.UUID, status invitation.Status, userID *uuid.UUID) (*invitation.ProjectInvitation, error) {
	return s.update(id, func(inv *invitation.ProjectInvitation) {
		inv.Status = status
		if userID != nil {
			uid := *userID
			inv.UserID = &uid
		}
	})
}

func (s *InvitationStore) update(id uuid.UUID, apply func(*invitation.ProjectInvitation)) (*invitation.ProjectInvitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv := find(s.m.invitations, func(inv *invitation.ProjectInvitation) bool { return inv.ID == id })
	if inv == nil {
		return nil, invitation.ErrInvitationNotFound
	}
	apply(inv)
	inv.UpdatedAt = s.m.now()
	return clone(inv), nil
}

func (s *InvitationStore) ListByProject(_ context.Context, projectID uuid.UUID, status invitation.Status) ([]*invitation.ProjectInvitation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return filter(s.m.invitations, func(inv *invitation.ProjectInvitation) bool {
		return inv.ProjectID == projectID && (status == "" || inv.Status == status)
	}), nil
}

func (s *InvitationStore) AddProjectMembership(_ context.Context, m *project.ProjectMembership) (*project.ProjectMembership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.addProjectMembership(m)
}
