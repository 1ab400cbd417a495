package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taigaio/taiga/internal/adapters"
	"github.com/taigaio/taiga/internal/services/access"
	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/story"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
)

// Services is the full service graph over one Memory
type Services struct {
	Memory     *Memory
	User       *user.UserService
	Workspace  *workspace.WorkspaceService
	Project    *project.ProjectService
	Invitation *invitation.InvitationService
	Story      *story.StoryService
	Access     *access.Service
}

func NewServices() *Services {
	m := NewMemory()
	users := user.NewUserService(m.Users())
	workspaces := workspace.NewWorkspaceService(m.Workspaces())
	stories := story.NewStoryService(m.Stories())
	projects := project.NewProjectService(m.Projects(), stories)

	return &Services{
		Memory:     m,
		User:       users,
		Workspace:  workspaces,
		Project:    projects,
		Invitation: invitation.NewInvitationService(m.Invitations(), users, projects),
		Story:      stories,
		Access:     access.NewService(adapters.NewInternalAccessFacts(workspaces, projects)),
	}
}

// CreateUser registers a user named username with password "123123"
func (s *Services) CreateUser(t testing.TB, username string) *user.User {
	t.Helper()
	u, err := s.User.Create(context.Background(), &user.CreateUserRequest{
		Username: username,
		Email:    username + "@taiga.demo",
		FullName: username,
		Password: "123123",
	})
	require.NoError(t, err)
	return u
}

func (s *Services) CreateWorkspace(t testing.TB, name string, owner *user.User, premium bool) *workspace.Workspace {
	t.Helper()
	ws, err := s.Workspace.Create(context.Background(), &workspace.CreateWorkspaceRequest{
		Name:      name,
		Color:     1,
		IsPremium: premium,
		OwnerID:   owner.ID,
	})
	require.NoError(t, err)
	return ws
}

func (s *Services) CreateProject(t testing.TB, name string, ws *workspace.Workspace, owner *user.User) *project.Project {
	t.Helper()
	pj, err := s.Project.Create(context.Background(), &project.CreateProjectRequest{
		Name:        name,
		Color:       1,
		WorkspaceID: ws.ID,
		OwnerID:     owner.ID,
	})
	require.NoError(t, err)
	return pj
}

// AddWorkspaceMember binds u to the workspace role with slug
func (s *Services) AddWorkspaceMember(t testing.TB, ws *workspace.Workspace, u *user.User, slug string) *workspace.WorkspaceMembership {
	t.Helper()
	ctx := context.Background()
	role, err := s.Workspace.GetRole(ctx, ws.ID, slug)
	require.NoError(t, err)
	m, err := s.Workspace.CreateMembership(ctx, u.ID, ws, role)
	require.NoError(t, err)
	return m
}

// AddProjectMember binds u to the project role with slug
func (s *Services) AddProjectMember(t testing.TB, pj *project.Project, u *user.User, slug string) *project.ProjectMembership {
	t.Helper()
	ctx := context.Background()
	role, err := s.Project.GetRole(ctx, pj.ID, slug)
	require.NoError(t, err)
	m, err := s.Project.CreateMembership(ctx, u.ID, pj, role)
	require.NoError(t, err)
	return m
}

// SetRolePermissions overwrites a project role permission set without validation
func (s *Services) SetRolePermissions(t testing.TB, pj *project.Project, slug string, perms ...string) {
	t.Helper()
	ctx := context.Background()
	role, err := s.Project.GetRole(ctx, pj.ID, slug)
	require.NoError(t, err)
	_, err = s.Memory.Projects().UpdateRolePermissions(ctx, role.ID, perms)
	require.NoError(t, err)
}

// Subject returns the access subject of u, anonymous when u is nil
func Subject(u *user.User) access.Subject {
	if u == nil {
		return access.AnonymousSubject()
	}
	return access.UserSubject(u.ID)
}
