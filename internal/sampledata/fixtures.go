package sampledata

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/roles"
	"github.com/taigaio/taiga/internal/services/story"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
)

// Users

func (l *Loader) createUsers(ctx context.Context) ([]*user.User, error) {
	users := make([]*user.User, 0, l.opts.NumUsers)
	for i := 1; i <= l.opts.NumUsers; i++ {
		users = append(users, l.newUser(fmt.Sprintf("user%d", i), "", ""))
	}
	if err := l.svc.User.BulkCreate(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (l *Loader) newUser(username, fullName, email string) *user.User {
	if email == "" {
		email = username + "@" + emailDomain
	}
	if fullName == "" {
		fullName = l.fake.Name()
	}
	return &user.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Color:        l.fake.IntRange(1, numUserColors),
		PasswordHash: l.passwordHash,
		IsActive:     true,
	}
}

func (l *Loader) createUser(ctx context.Context, username, fullName, email string) (*user.User, error) {
	u := l.newUser(username, fullName, email)
	if err := l.svc.User.BulkCreate(ctx, []*user.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

// Workspaces

func (l *Loader) createWorkspace(ctx context.Context, owner *user.User, name string, premium bool) (*workspace.Workspace, error) {
	if name == "" {
		name = truncate(l.fake.BS()+" "+l.fake.BuzzWord(), 35)
	}
	if premium {
		name += "(P)"
	}
	return l.newWorkspace(ctx, owner, name, l.fake.IntRange(1, numWorkspaceColors), premium)
}

// newWorkspace creates the workspace as given. Premium workspaces get the members role.
func (l *Loader) newWorkspace(ctx context.Context, owner *user.User, name string, color int, premium bool) (*workspace.Workspace, error) {
	ws, err := l.svc.Workspace.Create(ctx, &workspace.CreateWorkspaceRequest{
		Name:      name,
		Color:     color,
		IsPremium: premium,
		OwnerID:   owner.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace %q: %w", name, err)
	}
	return ws, nil
}

// createWorkspaceMemberships adds up to two extra admins and puts the remaining users in
// the non-admin roles, when the workspace has any.
func (l *Loader) createWorkspaceMemberships(ctx context.Context, ws *workspace.Workspace, users []*user.User) error {
	wsRoles, err := l.svc.Workspace.GetRoles(ctx, ws.ID)
	if err != nil {
		return err
	}

	var (
		admin  *workspace.WorkspaceRole
		others []*workspace.WorkspaceRole
	)
	for _, r := range wsRoles {
		if r.IsAdmin {
			admin = r
		} else {
			others = append(others, r)
		}
	}
	if admin == nil {
		return fmt.Errorf("workspace %s has no admin role", ws.Slug)
	}

	candidates := withoutUser(users, ws.OwnerID)
	numAdmins := min(l.rnd.IntN(3), len(candidates))
	for _, u := range candidates[:numAdmins] {
		if _, err := l.svc.Workspace.CreateMembership(ctx, u.ID, ws, admin); err != nil {
			return err
		}
	}

	if len(others) == 0 {
		return nil
	}
	for _, u := range candidates[numAdmins:] {
		if _, err := l.svc.Workspace.CreateMembership(ctx, u.ID, ws, pick(l.rnd, others)); err != nil {
			return err
		}
	}
	return nil
}

// Projects

func (l *Loader) createProject(ctx context.Context, ws *workspace.Workspace, ownerID uuid.UUID, name, description string) (*project.Project, error) {
	if name == "" {
		name = l.fake.Company() + " " + l.fake.BuzzWord()
	}
	if description == "" {
		description = l.sentence(l.fake.IntRange(6, 12)) + " " + l.sentence(l.fake.IntRange(6, 12))
	}

	var logo *string
	if l.rnd.IntN(2) == 1 {
		path := sampleLogo
		logo = &path
	}

	pj, err := l.svc.Project.Create(ctx, &project.CreateProjectRequest{
		Name:        name,
		Description: description,
		Color:       l.fake.IntRange(1, numProjectColors),
		Logo:        logo,
		WorkspaceID: ws.ID,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project %q: %w", name, err)
	}
	return pj, nil
}

// createProjectMemberships makes up to a third of the users admins and spreads the rest
// over the other roles.
func (l *Loader) createProjectMemberships(ctx context.Context, pj *project.Project, users []*user.User) error {
	pjRoles, err := l.svc.Project.GetRoles(ctx, pj.ID)
	if err != nil {
		return err
	}

	var (
		admin  *project.ProjectRole
		others []*project.ProjectRole
	)
	for _, r := range pjRoles {
		if r.IsAdmin {
			admin = r
		} else {
			others = append(others, r)
		}
	}
	if admin == nil {
		return fmt.Errorf("project %s has no admin role", pj.Slug)
	}

	candidates := withoutUser(users, pj.OwnerID)
	numAdmins := l.rnd.IntN(len(candidates)/3 + 1)
	for _, u := range candidates[:numAdmins] {
		if _, err := l.svc.Project.CreateMembership(ctx, u.ID, pj, admin); err != nil {
			return err
		}
	}

	if len(others) == 0 {
		return nil
	}
	for _, u := range candidates[numAdmins:] {
		if _, err := l.svc.Project.CreateMembership(ctx, u.ID, pj, pick(l.rnd, others)); err != nil {
			return err
		}
	}
	return nil
}

// createProjectInvitations records an accepted invitation for every member but the owner,
// plus up to two pending invitations for registered users and two for unknown emails.
func (l *Loader) createProjectInvitations(ctx context.Context, pj *project.Project, users []*user.User) error {
	memberships, err := l.svc.Project.GetMemberships(ctx, pj.ID)
	if err != nil {
		return err
	}
	pjRoles, err := l.svc.Project.GetRoles(ctx, pj.ID)
	if err != nil {
		return err
	}

	byID := make(map[uuid.UUID]*user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	members := make(map[uuid.UUID]bool, len(memberships))
	var invitations []*invitation.ProjectInvitation
	for _, m := range memberships {
		members[m.UserID] = true
		if m.UserID == pj.OwnerID {
			continue
		}
		u, ok := byID[m.UserID]
		if !ok {
			if u, err = l.svc.User.GetByID(ctx, m.UserID); err != nil {
				return err
			}
		}
		invitations = append(invitations, &invitation.ProjectInvitation{
			ProjectID:   pj.ID,
			RoleID:      m.RoleID,
			UserID:      &u.ID,
			Email:       u.Email,
			Status:      invitation.StatusAccepted,
			InvitedByID: pj.OwnerID,
		})
	}

	var noMembers []*user.User
	for _, u := range users {
		if !members[u.ID] {
			noMembers = append(noMembers, u)
		}
	}
	l.rnd.Shuffle(len(noMembers), func(i, j int) {
		noMembers[i], noMembers[j] = noMembers[j], noMembers[i]
	})

	for _, u := range noMembers[:min(l.rnd.IntN(3), len(noMembers))] {
		invitations = append(invitations, &invitation.ProjectInvitation{
			ProjectID:   pj.ID,
			RoleID:      pick(l.rnd, pjRoles).ID,
			UserID:      &u.ID,
			Email:       u.Email,
			Status:      invitation.StatusPending,
			InvitedByID: pj.OwnerID,
		})
	}

	for i := range l.rnd.IntN(3) {
		invitations = append(invitations, &invitation.ProjectInvitation{
			ProjectID:   pj.ID,
			RoleID:      pick(l.rnd, pjRoles).ID,
			Email:       fmt.Sprintf("email-%d@email.com", i),
			Status:      invitation.StatusPending,
			InvitedByID: pj.OwnerID,
		})
	}

	return l.svc.Invitation.BulkCreate(ctx, invitations)
}

// createProjectRole adds a non-admin role holding every project permission
func (l *Loader) createProjectRole(ctx context.Context, pj *project.Project, name string) (*project.ProjectRole, error) {
	if name == "" {
		name = l.fake.Word()
	}
	return l.svc.Project.CreateRole(ctx, pj, &project.CreateRoleRequest{
		Name:        name,
		Permissions: roles.ProjectPermissions(),
	})
}

// Stories

// createStories adds the same random number of stories to every workflow of the project.
// With maxStories unset the count is exactly minStories, or up to defaultMaxStories when
// both are zero.
func (l *Loader) createStories(ctx context.Context, pj *project.Project, minStories, maxStories int) error {
	if maxStories == 0 {
		maxStories = minStories
		if maxStories == 0 {
			maxStories = defaultMaxStories
		}
	}
	count := l.fake.IntRange(minStories, maxStories)

	memberships, err := l.svc.Project.GetMemberships(ctx, pj.ID)
	if err != nil {
		return err
	}
	members := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, m.UserID)
	}

	workflows, err := l.svc.Story.GetWorkflows(ctx, pj.ID)
	if err != nil {
		return err
	}

	statusSlugs := make(map[uuid.UUID]string)
	var stories []*story.Story
	for _, wf := range workflows {
		statuses, err := l.svc.Story.GetStatuses(ctx, wf.ID)
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			continue
		}
		for _, st := range statuses {
			statusSlugs[st.ID] = st.Slug
		}

		for i := range count {
			stories = append(stories, &story.Story{
				Title:       l.text(pick(l.rnd, storyTitleSizes)),
				Order:       int64(i),
				ProjectID:   pj.ID,
				WorkflowID:  wf.ID,
				StatusID:    pick(l.rnd, statuses).ID,
				CreatedByID: pick(l.rnd, members),
				CreatedAt:   l.fake.DateRange(l.now.AddDate(-2, 0, 0), l.now),
			})
		}
	}
	if len(stories) == 0 {
		return nil
	}

	if err := l.svc.Story.BulkCreateStories(ctx, stories); err != nil {
		return err
	}

	var assignments []*story.StoryAssignment
	for _, st := range stories {
		chance, ok := assignmentChance[strings.ToLower(statusSlugs[st.StatusID])]
		if !ok {
			chance = defaultAssignmentChance
		}
		if l.fake.IntRange(0, 99) >= chance {
			continue
		}

		// sometimes every member is assigned
		assignees := members
		if l.fake.IntRange(0, 99) >= 10 {
			assignees = l.sample(members)
		}
		for _, userID := range assignees {
			assignments = append(assignments, &story.StoryAssignment{
				StoryID:   st.ID,
				UserID:    userID,
				CreatedAt: l.fake.DateRange(st.CreatedAt, l.now),
			})
		}
	}

	return l.svc.Story.BulkCreateAssignments(ctx, assignments)
}

// fillStatuses appends randomly named statuses to the first workflow until it has total
func (l *Loader) fillStatuses(ctx context.Context, pj *project.Project, total int) error {
	workflows, err := l.svc.Story.GetWorkflows(ctx, pj.ID)
	if err != nil {
		return err
	}
	if len(workflows) == 0 {
		return fmt.Errorf("project %s has no workflow", pj.Slug)
	}
	wf := workflows[0]

	statuses, err := l.svc.Story.GetStatuses(ctx, wf.ID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, total)
	for _, st := range statuses {
		seen[st.Name] = true
	}

	for range total - len(statuses) {
		name := l.statusName()
		for seen[name] {
			name = l.statusName()
		}
		seen[name] = true

		if _, err := l.svc.Story.CreateStatus(ctx, wf, name, l.fake.IntRange(1, numWorkspaceColors)); err != nil {
			return err
		}
	}
	return nil
}

// Text

func (l *Loader) sentence(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = l.fake.Word()
	}
	s := strings.Join(parts, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

// text joins sentences without going past maxChars
func (l *Loader) text(maxChars int) string {
	var b strings.Builder
	for b.Len() < maxChars {
		s := l.sentence(l.fake.IntRange(3, 10))
		if b.Len() > 0 {
			if b.Len()+1+len(s) > maxChars {
				break
			}
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return truncate(b.String(), maxChars)
}

func (l *Loader) statusName() string {
	return truncate(strings.TrimSuffix(l.sentence(2), "."), 14)
}

// sample returns a random non-empty subset of list
func (l *Loader) sample(list []uuid.UUID) []uuid.UUID {
	if len(list) == 0 {
		return nil
	}
	n := l.rnd.IntN(len(list)) + 1
	out := make([]uuid.UUID, 0, n)
	for _, i := range l.rnd.Perm(len(list))[:n] {
		out = append(out, list[i])
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimSpace(s)
}

func withoutUser(users []*user.User, id uuid.UUID) []*user.User {
	out := make([]*user.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
