package sampledata

import (
	"context"
	"fmt"

	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
)

// scenario chains fixture steps and keeps the first error. Once err is set every step is
// a no-op returning nil, so callers check Err once at the end.
type scenario struct {
	ctx context.Context
	l   *Loader
	err error
}

func (l *Loader) scenario(ctx context.Context) *scenario {
	return &scenario{ctx: ctx, l: l}
}

func (s *scenario) Err() error { return s.err }

func (s *scenario) user(username, fullName, email string) *user.User {
	if s.err != nil {
		return nil
	}
	u, err := s.l.createUser(s.ctx, username, fullName, email)
	s.err = err
	return u
}

// workspace creates a premium workspace when premium is set. Names are used as given.
func (s *scenario) workspace(owner *user.User, name string, premium bool) *workspace.Workspace {
	if s.err != nil {
		return nil
	}
	ws, err := s.l.newWorkspace(s.ctx, owner, name, 2, premium)
	s.err = err
	return ws
}

// sampleWorkspace names the workspace like the generic ones, with the (P) suffix when premium
func (s *scenario) sampleWorkspace(owner *user.User, name string, premium bool) *workspace.Workspace {
	if s.err != nil {
		return nil
	}
	ws, err := s.l.createWorkspace(s.ctx, owner, name, premium)
	s.err = err
	return ws
}

func (s *scenario) joinWorkspace(ws *workspace.Workspace, u *user.User, roleSlug string) {
	if s.err != nil {
		return
	}
	role, err := s.l.svc.Workspace.GetRole(s.ctx, ws.ID, roleSlug)
	if err != nil {
		s.err = fmt.Errorf("workspace %s role %s: %w", ws.Slug, roleSlug, err)
		return
	}
	_, s.err = s.l.svc.Workspace.CreateMembership(s.ctx, u.ID, ws, role)
}

func (s *scenario) project(ws *workspace.Workspace, owner *user.User, name, description string) *project.Project {
	if s.err != nil {
		return nil
	}
	pj, err := s.l.createProject(s.ctx, ws, owner.ID, name, description)
	s.err = err
	return pj
}

func (s *scenario) joinProject(pj *project.Project, u *user.User, roleSlug string) {
	if s.err != nil {
		return
	}
	role, err := s.l.svc.Project.GetRole(s.ctx, pj.ID, roleSlug)
	if err != nil {
		s.err = fmt.Errorf("project %s role %s: %w", pj.Slug, roleSlug, err)
		return
	}
	_, s.err = s.l.svc.Project.CreateMembership(s.ctx, u.ID, pj, role)
}

func (s *scenario) rolePermissions(pj *project.Project, roleSlug string, perms ...roles.Permission) {
	if s.err != nil {
		return
	}
	role, err := s.l.svc.Project.GetRole(s.ctx, pj.ID, roleSlug)
	if err != nil {
		s.err = fmt.Errorf("project %s role %s: %w", pj.Slug, roleSlug, err)
		return
	}
	_, s.err = s.l.svc.Project.UpdateRolePermissions(s.ctx, role, perms)
}

func (s *scenario) publicPermissions(pj *project.Project, perms ...roles.Permission) {
	if s.err != nil {
		return
	}
	_, s.err = s.l.svc.Project.UpdatePublicPermissions(s.ctx, pj, perms)
}

func (s *scenario) workspaceMemberPermissions(pj *project.Project, perms ...roles.Permission) {
	if s.err != nil {
		return
	}
	_, s.err = s.l.svc.Project.UpdateWorkspaceMemberPermissions(s.ctx, pj, perms)
}

// Custom projects

func (l *Loader) createEmptyProject(ctx context.Context, ws *workspace.Workspace, owner *user.User) error {
	_, err := l.createProject(ctx, ws, owner.ID, "Empty project", "")
	return err
}

// createInconsistentPermissionsProject gives the general role fewer permissions than the
// public tier
func (l *Loader) createInconsistentPermissionsProject(ctx context.Context, ws *workspace.Workspace, owner *user.User) error {
	s := l.scenario(ctx)
	pj := s.project(ws, owner, "Inconsistent Permissions", "")
	s.rolePermissions(pj, roles.GeneralRoleSlug, roles.ViewStory, roles.ViewTask)
	s.publicPermissions(pj, roles.ProjectPermissions()...)
	return s.Err()
}

func (l *Loader) createProjectWithSeveralRoles(ctx context.Context, ws *workspace.Workspace, owner *user.User, users []*user.User) error {
	pj, err := l.createProject(ctx, ws, owner.ID, "Several Roles", "")
	if err != nil {
		return err
	}
	for _, name := range []string{"UX/UI", "Developer", "Stakeholder"} {
		if _, err := l.createProjectRole(ctx, pj, name); err != nil {
			return err
		}
	}
	return l.createProjectMemberships(ctx, pj, users)
}

// createMembershipScenario covers every combination of workspace and project membership
// between user1000 and user1001, with user1002 and user1003 as guests.
func (l *Loader) createMembershipScenario(ctx context.Context) error {
	s := l.scenario(ctx)
	u1000 := s.user("user1000", "", "")
	u1001 := s.user("user1001", "", "")
	u1002 := s.user("user1002", "", "")
	_ = s.user("user1003", "", "")

	// premium: user1000 ws-admin, user1001 ws-member
	ws := s.sampleWorkspace(u1000, "u1001 is ws member", true)
	s.joinWorkspace(ws, u1001, roles.MembersRoleSlug)

	pj := s.project(ws, u1000, "pj 11", "user1000 pj-admin, user1001 pj-member")
	s.joinProject(pj, u1001, roles.GeneralRoleSlug)

	pj = s.project(ws, u1000, "pj 12", "user1000 pj-admin, user1001 pj-member without permissions")
	s.joinProject(pj, u1001, roles.GeneralRoleSlug)
	s.rolePermissions(pj, roles.GeneralRoleSlug)

	s.project(ws, u1000, "pj 13", "user1000 pj-admin, user1001 not pj-member, ws-members not allowed")

	pj = s.project(ws, u1000, "pj 14", "user1000 pj-admin, user1001 not pj-member, ws-members allowed")
	s.workspaceMemberPermissions(pj, roles.ViewStory)

	s.project(ws, u1001, "pj 15", "user1000 no pj-member, user1001 pj-admin, ws-members not allowed")

	for i := 16; i <= 20; i++ {
		pj = s.project(ws, u1000, fmt.Sprintf("more - pj %d", i), "user1000 pj-admin, user1001 pj-member")
		s.joinProject(pj, u1001, roles.GeneralRoleSlug)
	}

	// premium: user1000 ws-admin, user1001 ws-member, with projects
	ws = s.sampleWorkspace(u1000, "u1001 is ws member, hasProjects:T", true)
	s.joinWorkspace(ws, u1001, roles.MembersRoleSlug)

	s.project(ws, u1000, "pj 21", "user1000 pj-admin, user1001 not pj-member, ws-members not allowed")

	pj = s.project(ws, u1000, "pj 22", "user1000 pj-admin, user1001 pj-member without permissions, ws-members allowed")
	s.joinProject(pj, u1001, roles.GeneralRoleSlug)
	s.rolePermissions(pj, roles.GeneralRoleSlug)
	s.workspaceMemberPermissions(pj, roles.ViewStory)

	// premium: user1000 ws-admin, user1001 ws-member, without projects
	ws = s.sampleWorkspace(u1000, "u1001 is ws member, hasProjects:F", true)
	s.joinWorkspace(ws, u1001, roles.MembersRoleSlug)

	// premium: user1000 ws-admin, user1001 ws-guest
	ws = s.sampleWorkspace(u1000, "u1001 ws guest", true)

	pj = s.project(ws, u1000, "pj 41", "user1000 pj-admin, user1001 pj-member")
	s.joinProject(pj, u1001, roles.GeneralRoleSlug)

	pj = s.project(ws, u1001, "pj 42", "user1000 pj-member, user1001 pj-admin")
	s.joinProject(pj, u1000, roles.GeneralRoleSlug)

	pj = s.project(ws, u1000, "pj 43", "user1000 pj-admin, user1001 not pj-member, ws-allowed")
	s.workspaceMemberPermissions(pj, roles.ViewStory)

	pj = s.project(ws, u1000, "pj 44", "user1000 pj-admin, user1001 pj-member without permissions, ws-members allowed")
	s.joinProject(pj, u1001, roles.GeneralRoleSlug)
	s.rolePermissions(pj, roles.GeneralRoleSlug)
	s.workspaceMemberPermissions(pj, roles.ViewStory)

	// basic: user1000 and user1001 ws-admin, user1002 and user1003 ws-guest
	ws = s.sampleWorkspace(u1000, "uk/uk1 (ws-admin), uk2/uk3 (ws-guest)", false)
	s.joinWorkspace(ws, u1001, roles.AdminRoleSlug)

	pj = s.project(ws, u1000, "p45 pj-mb-NA ws-mb/public-NA",
		"u1000 pj-admin, u1002 pj-member without permissions, u1001/u1003 no pj-member, ws-members/public not-allowed")
	s.rolePermissions(pj, roles.GeneralRoleSlug)
	s.joinProject(pj, u1002, roles.GeneralRoleSlug)

	pj = s.project(ws, u1000, "p46 pj-mb-view_story ws-mb/public-NA",
		"u1000 pj-admin, u1002 pj-member view_story, u1001/u1003 no pj-members ws-members/public not-allowed")
	s.rolePermissions(pj, roles.GeneralRoleSlug, roles.ViewStory)
	s.joinProject(pj, u1002, roles.GeneralRoleSlug)

	pj = s.project(ws, u1000, "p47 pj-mb-view_story ws-mb-NA public-viewUs",
		"u1000 pj-admin, u1002 pj-member view_story, u1001/u1003 no pj-member, public view-us, ws-members not-allowed")
	s.rolePermissions(pj, roles.GeneralRoleSlug, roles.ViewStory)
	s.publicPermissions(pj, roles.ViewStory)
	s.joinProject(pj, u1002, roles.GeneralRoleSlug)

	// premium: user1000 ws-admin, user1001 ws-member, user1002 and user1003 ws-guest
	ws = s.sampleWorkspace(u1000, "uk-ws-adm uk1-ws-mb uk2/uk3-ws-guest", true)
	s.joinWorkspace(ws, u1001, roles.MembersRoleSlug)

	pj = s.project(ws, u1000, "p48 pj-mb-view_story public-viewUs ws-mb-NA",
		"u1000 pj-admin, u1002 pj-member view_story, u1001/u1003 no pj-member, public view-us, ws-members not-allowed")
	s.rolePermissions(pj, roles.GeneralRoleSlug, roles.ViewStory)
	s.publicPermissions(pj, roles.ViewStory)
	s.joinProject(pj, u1002, roles.GeneralRoleSlug)

	// premium: user1000 ws-admin, user1001 and user1002 ws-member, user1003 ws-guest
	ws = s.sampleWorkspace(u1000, "uk-ws-admin uk1/k2-ws-mb uk3-ws-guest", true)
	s.joinWorkspace(ws, u1001, roles.MembersRoleSlug)
	s.joinWorkspace(ws, u1002, roles.MembersRoleSlug)

	pj = s.project(ws, u1000, "p49 pj-mb-view_story public-viewUs ws-mb-NA",
		"u1000 pj-admin, u1002 pj-member view_story, u1001/u1003 no pj-member, public view-us, ws-members not-allowed")
	s.rolePermissions(pj, roles.GeneralRoleSlug, roles.ViewStory)
	s.publicPermissions(pj, roles.ViewStory)
	s.joinProject(pj, u1002, roles.GeneralRoleSlug)

	return s.Err()
}

// Custom scenarios

// createInvitationsScenario gives user900 five workspaces where user901 is admin, member or
// guest, to exercise who may invite whom.
func (l *Loader) createInvitationsScenario(ctx context.Context) error {
	s := l.scenario(ctx)
	u900 := s.user("user900", "", "")
	u901 := s.user("user901", "", "")

	ws1 := s.workspace(u900, "ws1 for admins", false)
	ws2 := s.workspace(u900, "ws2 for members allowed(p)", true)
	ws3 := s.workspace(u900, "ws3 for members not allowed(p)", true)
	s.workspace(u900, "ws4 for guests", false)
	ws5 := s.workspace(u900, "ws5 lots of projects", false)

	s.joinWorkspace(ws1, u901, roles.AdminRoleSlug)
	s.joinWorkspace(ws2, u901, roles.MembersRoleSlug)
	s.joinWorkspace(ws3, u901, roles.MembersRoleSlug)

	s.project(ws1, u900, "", "")

	pj := s.project(ws2, u900, "", "")
	s.workspaceMemberPermissions(pj, roles.ViewStory)

	s.project(ws3, u900, "", "")

	for range 7 {
		pj = s.project(ws5, u900, "", "")
		s.joinProject(pj, u901, roles.GeneralRoleSlug)
	}

	return s.Err()
}

// createSearchScenario seeds users whose names share prefixes, related to user800's
// workspace in different ways.
func (l *Loader) createSearchScenario(ctx context.Context) error {
	s := l.scenario(ctx)
	u800 := s.user("user800", "", "")
	elettescar := s.user("elettescar", "Martina Eaton", "")
	electra := s.user("electra", "Sonia Moreno", "")
	s.user("danvers", "Elena Riego", "")
	s.user("storm", "Martina Elliott", "")
	s.user("elmarv", "Joanna Marinari", "")

	ws := s.workspace(u800, "ws for searches(p)", true)
	s.joinWorkspace(ws, elettescar, roles.MembersRoleSlug)

	pj := s.project(ws, u800, "", "")
	s.joinProject(pj, electra, roles.GeneralRoleSlug)

	return s.Err()
}

func (l *Loader) createRevokeScenario(ctx context.Context) error {
	s := l.scenario(ctx)
	u1 := s.user("pruebastaiga1", "Pruebas Taiga 1", "pruebastaiga+1@gmail.com")
	u2 := s.user("pruebastaiga2", "Pruebas Taiga 2", "pruebastaiga+2@gmail.com")
	u3 := s.user("pruebastaiga3", "Pruebas Taiga 3", "pruebastaiga+3@gmail.com")
	u4 := s.user("pruebastaiga4", "Pruebas Taiga 4", "pruebastaiga+4@gmail.com")

	ws := s.workspace(u1, "ws for revoking(p)", true)
	s.joinWorkspace(ws, u4, roles.AdminRoleSlug)
	s.joinWorkspace(ws, u2, roles.MembersRoleSlug)

	pj := s.project(ws, u1, "", "")
	s.joinProject(pj, u3, roles.GeneralRoleSlug)

	return s.Err()
}

// createBigKanban creates a project with numStories stories per workflow. When statuses is
// set the first workflow is filled up to that many statuses first.
func (l *Loader) createBigKanban(ctx context.Context, ws *workspace.Workspace, owner *user.User, users []*user.User, name, description string, numStories, statuses int) error {
	pj, err := l.createProject(ctx, ws, owner.ID, name, description)
	if err != nil {
		return err
	}
	if err := l.createProjectMemberships(ctx, pj, users); err != nil {
		return err
	}
	if statuses > 0 {
		if err := l.fillStatuses(ctx, pj, statuses); err != nil {
			return err
		}
	}
	return l.createStories(ctx, pj, numStories, 0)
}
