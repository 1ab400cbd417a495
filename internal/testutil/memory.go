// Package testutil holds in-memory implementations of the service stores and helpers to
// build fully wired services on top of them.
package testutil

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/invitation"
	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/story"
	"github.com/taigaio/taiga/internal/services/user"
	"github.com/taigaio/taiga/internal/services/workspace"
)

// Memory is a process local database. Every store returned by it shares the same rows.
type Memory struct {
	mu    sync.Mutex
	clock time.Time

	users []*user.User

	workspaces    []*workspace.Workspace
	wsRoles       []*workspace.WorkspaceRole
	wsMemberships []*workspace.WorkspaceMembership

	projects      []*project.Project
	pjRoles       []*project.ProjectRole
	pjMemberships []*project.ProjectMembership
	lastRefs      map[uuid.UUID]int

	invitations []*invitation.ProjectInvitation

	workflows   []*story.Workflow
	statuses    []*story.WorkflowStatus
	stories     []*story.Story
	assignments []*story.StoryAssignment
}

func NewMemory() *Memory {
	return &Memory{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		lastRefs: map[uuid.UUID]int{},
	}
}

// now returns a strictly increasing timestamp so orderings by creation time are stable.
// Callers hold mu.
func (m *Memory) now() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *Memory) Users() *UserStore             { return &UserStore{m: m} }
func (m *Memory) Workspaces() *WorkspaceStore   { return &WorkspaceStore{m: m} }
func (m *Memory) Projects() *ProjectStore       { return &ProjectStore{m: m} }
func (m *Memory) Invitations() *InvitationStore { return &InvitationStore{m: m} }
func (m *Memory) Stories() *StoryStore          { return &StoryStore{m: m} }

// DropMemberships removes every workspace and project membership of userID, leaving
// ownership as the only relationship the user keeps.
func (m *Memory) DropMemberships(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wsMemberships = slices.DeleteFunc(m.wsMemberships, func(wm *workspace.WorkspaceMembership) bool { return wm.UserID == userID })
	m.pjMemberships = slices.DeleteFunc(m.pjMemberships, func(pm *project.ProjectMembership) bool { return pm.UserID == userID })
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func cloneAll[T any](list []*T) []*T {
	out := make([]*T, 0, len(list))
	for _, v := range list {
		out = append(out, clone(v))
	}
	return out
}

func find[T any](list []*T, match func(*T) bool) *T {
	i := slices.IndexFunc(list, match)
	if i < 0 {
		return nil
	}
	return list[i]
}

func filter[T any](list []*T, match func(*T) bool) []*T {
	var out []*T
	for _, v := range list {
		if match(v) {
			out = append(out, clone(v))
		}
	}
	return out
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
