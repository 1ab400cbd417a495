package invitation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/testutil"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		current invitation.Status
		action  invitation.Action
		want    invitation.Status
		err     error
	}{
		{invitation.StatusPending, invitation.ActionAccept, invitation.StatusAccepted, nil},
		{invitation.StatusPending, invitation.ActionRevoke, invitation.StatusRevoked, nil},
		{invitation.StatusPending, "resend", invitation.StatusPending, invitation.ErrUnknownAction},
		{invitation.StatusAccepted, invitation.ActionAccept, invitation.StatusAccepted, invitation.ErrInvitationNotPending},
		{invitation.StatusAccepted, invitation.ActionRevoke, invitation.StatusAccepted, invitation.ErrInvitationNotPending},
		{invitation.StatusRevoked, invitation.ActionAccept, invitation.StatusRevoked, invitation.ErrInvitationNotPending},
		{invitation.StatusRevoked, invitation.ActionRevoke, invitation.StatusRevoked, invitation.ErrInvitationNotPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.current)+"/"+string(tt.action), func(t *testing.T) {
			got, err := invitation.Transition(tt.current, tt.action)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

type fixture struct {
	svc     *testutil.Services
	owner   *user.User
	project *project.Project
	general *project.ProjectRole
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := testutil.NewServices()
	owner := svc.CreateUser(t, "owner")
	ws := svc.CreateWorkspace(t, "Workspace", owner, false)
	pj := svc.CreateProject(t, "Project", ws, owner)
	general, err := svc.Project.GetRole(context.Background(), pj.ID, roles.GeneralRoleSlug)
	require.NoError(t, err)
	return &fixture{svc: svc, owner: owner, project: pj, general: general}
}

func TestCreateInvitationForUnregisteredEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Invitation.Create(ctx, f.project, f.general, "  Someone@Email.com ", f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "someone@email.com", inv.Email)
	assert.Equal(t, invitation.StatusPending, inv.Status)
	assert.Nil(t, inv.UserID)
	assert.Equal(t, f.general.ID, inv.RoleID)
}

func TestCreateInvitationResolvesRegisteredUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.svc.CreateUser(t, "guest")

	inv, err := f.svc.Invitation.Create(ctx, f.project, f.general, guest.Email, f.owner.ID)
	require.NoError(t, err)
	require.NotNil(t, inv.UserID)
	assert.Equal(t, guest.ID, *inv.UserID)
}

func TestCreateInvitationReusesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.svc.Project.GetAdminRole(ctx, f.project.ID)
	require.NoError(t, err)

	first, err := f.svc.Invitation.Create(ctx, f.project, f.general, "someone@email.com", f.owner.ID)
	require.NoError(t, err)
	second, err := f.svc.Invitation.Create(ctx, f.project, admin, "SOMEONE@email.com", f.owner.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, admin.ID, second.RoleID)

	pending, err := f.svc.Invitation.ListByProject(ctx, f.project.ID, invitation.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCreateInvitationRejectsMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Invitation.Create(ctx, f.project, f.general, f.owner.Email, f.owner.ID)
	assert.ErrorIs(t, err, invitation.ErrAlreadyMember)
}

func TestCreateInvitationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Invitation.Create(ctx, f.project, f.general, "not-an-email", f.owner.ID)
	assert.ErrorIs(t, err, invitation.ErrInvalidEmail)

	_, err = f.svc.Invitation.Create(ctx, f.project, f.general, "", f.owner.ID)
	assert.ErrorIs(t, err, invitation.ErrInvalidEmail)

	other := f.svc.CreateProject(t, "Other", f.svc.CreateWorkspace(t, "Other", f.owner, false), f.owner)
	_, err = f.svc.Invitation.Create(ctx, other, f.general, "someone@email.com", f.owner.ID)
	assert.ErrorIs(t, err, roles.ErrRoleNotFound)
}

func TestAcceptInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.svc.CreateUser(t, "guest")

	inv, err := f.svc.Invitation.Create(ctx, f.project, f.general, guest.Email, f.owner.ID)
	require.NoError(t, err)

	accepted, err := f.svc.Invitation.Accept(ctx, inv.ID, guest)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.UserID)
	assert.Equal(t, guest.ID, *accepted.UserID)

	m, err := f.svc.Project.GetMembership(ctx, f.project.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, f.general.ID, m.RoleID)

	_, err = f.svc.Invitation.Accept(ctx, inv.ID, guest)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotPending)
}

// A user registered after being invited can accept with the same email.
func TestAcceptInvitationAfterSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Invitation.Create(ctx, f.project, f.general, "late@taiga.demo", f.owner.ID)
	require.NoError(t, err)
	assert.Nil(t, inv.UserID)

	late := f.svc.CreateUser(t, "late")
	accepted, err := f.svc.Invitation.Accept(ctx, inv.ID, late)
	require.NoError(t, err)
	require.NotNil(t, accepted.UserID)
	assert.Equal(t, late.ID, *accepted.UserID)
}

func TestAcceptInvitationForAnotherEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.svc.CreateUser(t, "guest")
	intruder := f.svc.CreateUser(t, "intruder")

	inv, err := f.svc.Invitation.Create(ctx, f.project, f.general, guest.Email, f.owner.ID)
	require.NoError(t, err)

	_, err = f.svc.Invitation.Accept(ctx, inv.ID, intruder)
	assert.ErrorIs(t, err, invitation.ErrInvitationEmailMismatch)

	_, err = f.svc.Project.GetMembership(ctx, f.project.ID, intruder.ID)
	assert.ErrorIs(t, err, project.ErrMembershipNotFound)

	reread, err := f.svc.Invitation.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusPending, reread.Status)
}

// Joining the project by other means after the invitation was sent makes it unusable.
func TestAcceptInvitationWhenAlreadyMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.svc.CreateUser(t, "guest")

	inv, err := f.svc.Invitation.Create(ctx, f.project, f.general, guest.Email, f.owner.ID)
	require.NoError(t, err)

	admin, err := f.svc.Project.GetAdminRole(ctx, f.project.ID)
	require.NoError(t, err)
	_, err = f.svc.Project.CreateMembership(ctx, guest.ID, f.project, admin)
	require.NoError(t, err)

	_, err = f.svc.Invitation.Accept(ctx, inv.ID, guest)
	assert.ErrorIs(t, err, roles.ErrDuplicateMembership)

	m, err := f.svc.Project.GetMembership(ctx, f.project.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, m.RoleID)

	reread, err := f.svc.Invitation.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusPending, reread.Status)
}

func TestAcceptMissingInvitation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Invitation.Accept(context.Background(), uuid.New(), f.owner)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)
}

func TestRevokeInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Invitation.Create(ctx, f.project, f.general, "someone@email.com", f.owner.ID)
	require.NoError(t, err)

	other := f.svc.CreateProject(t, "Other", f.svc.CreateWorkspace(t, "Other", f.owner, false), f.owner)
	_, err = f.svc.Invitation.Revoke(ctx, other, inv.ID)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)

	revoked, err := f.svc.Invitation.Revoke(ctx, f.project, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusRevoked, revoked.Status)

	_, err = f.svc.Invitation.Revoke(ctx, f.project, inv.ID)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotPending)

	someone := &user.User{ID: uuid.New(), Email: "someone@email.com"}
	_, err = f.svc.Invitation.Accept(ctx, inv.ID, someone)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotPending)

	all, err := f.svc.Invitation.ListByProject(ctx, f.project.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	pending, err := f.svc.Invitation.ListByProject(ctx, f.project.ID, invitation.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
