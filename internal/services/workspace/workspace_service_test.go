package workspace_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/workspace"
	"github.com/taigaio/taiga/internal/testutil"
)

func TestCreateWorkspace(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")

	ws := svc.CreateWorkspace(t, "Díaz & Co", owner, false)
	assert.Equal(t, "diaz-co", ws.Slug)
	assert.Equal(t, owner.ID, ws.OwnerID)

	list, err := svc.Workspace.GetRoles(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsAdmin)
	assert.Equal(t, roles.AdminRoleSlug, list[0].Slug)
	assert.ElementsMatch(t, roles.WorkspacePermissions(), list[0].Permissions)

	memberships, err := svc.Workspace.GetMemberships(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, owner.ID, memberships[0].UserID)
	assert.Equal(t, list[0].ID, memberships[0].RoleID)
}

func TestCreatePremiumWorkspaceAddsMembersRole(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")

	ws := svc.CreateWorkspace(t, "Premium", owner, true)

	list, err := svc.Workspace.GetRoles(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, roles.AdminRoleSlug, list[0].Slug)
	assert.Equal(t, roles.MembersRoleSlug, list[1].Slug)
	assert.False(t, list[1].IsAdmin)

	admins := 0
	for _, r := range list {
		if r.IsAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}

func TestCreateWorkspaceSlugsAreUnique(t *testing.T) {
	svc := testutil.NewServices()
	owner := svc.CreateUser(t, "user1")

	first := svc.CreateWorkspace(t, "Team", owner, false)
	second := svc.CreateWorkspace(t, "Team", owner, false)
	third := svc.CreateWorkspace(t, "team!", owner, false)

	assert.Equal(t, "team", first.Slug)
	assert.Equal(t, "team-2", second.Slug)
	assert.Equal(t, "team-3", third.Slug)
}

func TestCreateWorkspaceRequiresName(t *testing.T) {
	svc := testutil.NewServices()
	_, err := svc.Workspace.Create(context.Background(), &workspace.CreateWorkspaceRequest{Name: "  ", OwnerID: uuid.New()})
	assert.ErrorIs(t, err, workspace.ErrInvalidName)
}

func TestCreateRoleRequiresPremium(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	basic := svc.CreateWorkspace(t, "Basic", owner, false)
	premium := svc.CreateWorkspace(t, "Premium", owner, true)

	_, err := svc.Workspace.CreateRole(ctx, basic, &workspace.CreateRoleRequest{Name: "Guests"})
	assert.ErrorIs(t, err, workspace.ErrWorkspaceNotPremium)

	_, err = svc.Workspace.CreateRole(ctx, premium, &workspace.CreateRoleRequest{Name: "Guests", Permissions: []string{"view_story"}})
	assert.ErrorIs(t, err, roles.ErrBadPermissionsSet)

	role, err := svc.Workspace.CreateRole(ctx, premium, &workspace.CreateRoleRequest{Name: "Guests", Permissions: []string{roles.ViewWorkspace}})
	require.NoError(t, err)
	assert.Equal(t, "guests", role.Slug)
	assert.Equal(t, 3, role.Order)
}

func TestCreateRoleSlugsAreUniqueWithinWorkspace(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	ws := svc.CreateWorkspace(t, "Premium", owner, true)

	slugs := []string{}
	for _, name := range []string{"Members", "Admin", "Guests", "Guests"} {
		role, err := svc.Workspace.CreateRole(ctx, ws, &workspace.CreateRoleRequest{
			Name:        name,
			Permissions: []string{roles.ViewWorkspace},
		})
		require.NoError(t, err, name)
		slugs = append(slugs, role.Slug)
	}
	assert.Equal(t, []string{"members-2", "admin-2", "guests", "guests-2"}, slugs)

	members, err := svc.Workspace.GetRole(ctx, ws.ID, roles.MembersRoleSlug)
	require.NoError(t, err)
	assert.Equal(t, "Members", members.Name)
	assert.Equal(t, 2, members.Order)
}

func TestMarkPremium(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	ws := svc.CreateWorkspace(t, "Basic", owner, false)

	updated, err := svc.Workspace.MarkPremium(ctx, ws.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsPremium)

	_, err = svc.Workspace.MarkPremium(ctx, ws.ID)
	require.NoError(t, err)

	list, err := svc.Workspace.GetRoles(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Workspace.MarkPremium(ctx, uuid.New())
	assert.ErrorIs(t, err, workspace.ErrWorkspaceNotFound)
}

func TestUpdateRolePermissions(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	ws := svc.CreateWorkspace(t, "Premium", owner, true)

	members, err := svc.Workspace.GetRole(ctx, ws.ID, roles.MembersRoleSlug)
	require.NoError(t, err)

	updated, err := svc.Workspace.UpdateRolePermissions(ctx, members, []string{roles.ViewWorkspace})
	require.NoError(t, err)
	assert.Equal(t, []string{roles.ViewWorkspace}, []string(updated.Permissions))

	reread, err := svc.Workspace.GetRole(ctx, ws.ID, roles.MembersRoleSlug)
	require.NoError(t, err)
	assert.Equal(t, []string{roles.ViewWorkspace}, []string(reread.Permissions))

	_, err = svc.Workspace.UpdateRolePermissions(ctx, members, []string{"fly"})
	assert.ErrorIs(t, err, roles.ErrBadPermissionsSet)
}

func TestUpdateAdminRolePermissionsIsRejected(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	ws := svc.CreateWorkspace(t, "Basic", owner, false)

	admin, err := svc.Workspace.GetAdminRole(ctx, ws.ID)
	require.NoError(t, err)

	_, err = svc.Workspace.UpdateRolePermissions(ctx, admin, []string{roles.ViewWorkspace})
	assert.ErrorIs(t, err, roles.ErrNonEditableRole)

	reread, err := svc.Workspace.GetAdminRole(ctx, ws.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, roles.WorkspacePermissions(), reread.Permissions)
}

func TestCreateMembershipTwiceFails(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	other := svc.CreateUser(t, "user2")
	ws := svc.CreateWorkspace(t, "Premium", owner, true)

	role, err := svc.Workspace.GetRole(ctx, ws.ID, roles.MembersRoleSlug)
	require.NoError(t, err)

	_, err = svc.Workspace.CreateMembership(ctx, other.ID, ws, role)
	require.NoError(t, err)

	_, err = svc.Workspace.CreateMembership(ctx, other.ID, ws, role)
	assert.ErrorIs(t, err, roles.ErrDuplicateMembership)

	admin, err := svc.Workspace.GetAdminRole(ctx, ws.ID)
	require.NoError(t, err)
	_, err = svc.Workspace.CreateMembership(ctx, other.ID, ws, admin)
	assert.ErrorIs(t, err, roles.ErrDuplicateMembership)
}

func TestCreateMembershipWithForeignRole(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	other := svc.CreateUser(t, "user2")
	ws1 := svc.CreateWorkspace(t, "One", owner, true)
	ws2 := svc.CreateWorkspace(t, "Two", owner, true)

	role, err := svc.Workspace.GetRole(ctx, ws2.ID, roles.MembersRoleSlug)
	require.NoError(t, err)

	_, err = svc.Workspace.CreateMembership(ctx, other.ID, ws1, role)
	assert.ErrorIs(t, err, roles.ErrRoleNotFound)
}

func TestGetRoleForUser(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	member := svc.CreateUser(t, "user2")
	stranger := svc.CreateUser(t, "user3")
	ws := svc.CreateWorkspace(t, "Premium", owner, true)
	svc.AddWorkspaceMember(t, ws, member, roles.MembersRoleSlug)

	role, err := svc.Workspace.GetRoleForUser(ctx, ws, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.True(t, role.IsAdmin)

	role, err = svc.Workspace.GetRoleForUser(ctx, ws, member.ID)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, roles.MembersRoleSlug, role.Slug)

	role, err = svc.Workspace.GetRoleForUser(ctx, ws, stranger.ID)
	require.NoError(t, err)
	assert.Nil(t, role)
}

// The owner resolves to admin even when the membership row is missing.
func TestGetRoleForUserOwnerWithoutMembershipRow(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	ws := svc.CreateWorkspace(t, "Basic", owner, false)

	orphan := *ws
	orphan.OwnerID = uuid.New()

	role, err := svc.Workspace.GetRoleForUser(ctx, &orphan, orphan.OwnerID)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.True(t, role.IsAdmin)

	name, err := svc.Workspace.GetUserRoleName(ctx, &orphan, orphan.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, roles.RoleNameAdmin, name)
}

func TestGetUserRoleName(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	u1 := svc.CreateUser(t, "user1")
	u2 := svc.CreateUser(t, "user2")
	u3 := svc.CreateUser(t, "user3")
	u4 := svc.CreateUser(t, "user4")

	basic := svc.CreateWorkspace(t, "Basic", u1, false)
	premium := svc.CreateWorkspace(t, "Premium", u1, true)
	svc.AddWorkspaceMember(t, premium, u2, roles.MembersRoleSlug)
	svc.AddWorkspaceMember(t, premium, u4, roles.AdminRoleSlug)
	pj := svc.CreateProject(t, "Project", premium, u1)
	svc.AddProjectMember(t, pj, u3, roles.GeneralRoleSlug)

	tests := []struct {
		name string
		ws   *workspace.Workspace
		user uuid.UUID
		want roles.RoleName
	}{
		{name: "owner", ws: basic, user: u1.ID, want: roles.RoleNameAdmin},
		{name: "unrelated user on basic workspace", ws: basic, user: u2.ID, want: roles.RoleNameNone},
		{name: "non-admin member", ws: premium, user: u2.ID, want: roles.RoleNameMember},
		{name: "admin member", ws: premium, user: u4.ID, want: roles.RoleNameAdmin},
		{name: "project member without workspace membership", ws: premium, user: u3.ID, want: roles.RoleNameGuest},
		{name: "project member of another workspace", ws: basic, user: u3.ID, want: roles.RoleNameNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Workspace.GetUserRoleName(ctx, tt.ws, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListForUser(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	u1 := svc.CreateUser(t, "user1")
	u2 := svc.CreateUser(t, "user2")
	u3 := svc.CreateUser(t, "user3")

	owned := svc.CreateWorkspace(t, "Owned", u1, true)
	other := svc.CreateWorkspace(t, "Other", u2, true)
	svc.CreateWorkspace(t, "Hidden", u2, false)
	svc.AddWorkspaceMember(t, owned, u3, roles.MembersRoleSlug)
	pj := svc.CreateProject(t, "Project", other, u2)
	svc.AddProjectMember(t, pj, u3, roles.GeneralRoleSlug)

	list, err := svc.Workspace.ListForUser(ctx, u3.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, owned.ID, list[0].ID)
	assert.Equal(t, other.ID, list[1].ID)
}
