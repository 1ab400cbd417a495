package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigaio/taiga/internal/adapters"
	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/testutil"
)

// cachedAccess wires a redis facts cache that the services drop on every access change
func cachedAccess(t *testing.T, svc *testutil.Services) *access.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := access.NewCachedSource(adapters.NewInternalAccessFacts(svc.Workspace, svc.Project), client, time.Minute)
	invalidate := func(ctx context.Context) {
		require.NoError(t, cache.Invalidate(ctx))
	}
	svc.Workspace.OnAccessChange(invalidate)
	svc.Project.OnAccessChange(invalidate)
	svc.Invitation.OnAccessChange(invalidate)
	return access.NewService(cache)
}

func TestCachedDecisionsFollowRoleEdits(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	dev := svc.CreateUser(t, "user2")
	ws := svc.CreateWorkspace(t, "Workspace", owner, false)
	pj := svc.CreateProject(t, "Project", ws, owner)
	svc.AddProjectMember(t, pj, dev, roles.GeneralRoleSlug)
	checker := cachedAccess(t, svc)

	ok, err := checker.Can(ctx, testutil.Subject(dev), roles.ViewStory, access.ProjectBySlug(pj.Slug))
	require.NoError(t, err)
	assert.True(t, ok)

	general, err := svc.Project.GetRole(ctx, pj.ID, roles.GeneralRoleSlug)
	require.NoError(t, err)
	_, err = svc.Project.UpdateRolePermissions(ctx, general, []string{roles.ViewTask})
	require.NoError(t, err)

	ok, err = checker.Can(ctx, testutil.Subject(dev), roles.ViewStory, access.ProjectBySlug(pj.Slug))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedDecisionsFollowTiersAndInvitations(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	guest := svc.CreateUser(t, "user2")
	ws := svc.CreateWorkspace(t, "Workspace", owner, false)
	pj := svc.CreateProject(t, "Project", ws, owner)
	checker := cachedAccess(t, svc)
	target := access.ProjectBySlug(pj.Slug)

	ok, err := checker.Can(ctx, access.AnonymousSubject(), roles.ViewStory, target)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Project.UpdatePublicPermissions(ctx, pj, []string{roles.ViewStory})
	require.NoError(t, err)
	ok, err = checker.Can(ctx, access.AnonymousSubject(), roles.ViewStory, target)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.Can(ctx, testutil.Subject(guest), roles.AddStory, target)
	require.NoError(t, err)
	assert.False(t, ok)

	general, err := svc.Project.GetRole(ctx, pj.ID, roles.GeneralRoleSlug)
	require.NoError(t, err)
	inv, err := svc.Invitation.Create(ctx, pj, general, guest.Email, owner.ID)
	require.NoError(t, err)
	_, err = svc.Invitation.Accept(ctx, inv.ID, guest)
	require.NoError(t, err)

	ok, err = checker.Can(ctx, testutil.Subject(guest), roles.AddStory, target)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedDecisionsFollowWorkspaceMemberships(t *testing.T) {
	svc := testutil.NewServices()
	ctx := context.Background()
	owner := svc.CreateUser(t, "user1")
	newcomer := svc.CreateUser(t, "user2")
	ws := svc.CreateWorkspace(t, "Workspace", owner, true)
	checker := cachedAccess(t, svc)
	target := access.WorkspaceBySlug(ws.Slug)

	ok, err := checker.Can(ctx, testutil.Subject(newcomer), roles.ViewWorkspace, target)
	require.NoError(t, err)
	assert.False(t, ok)

	svc.AddWorkspaceMember(t, ws, newcomer, roles.MembersRoleSlug)

	ok, err = checker.Can(ctx, testutil.Subject(newcomer), roles.ViewWorkspace, target)
	require.NoError(t, err)
	assert.True(t, ok)
}
