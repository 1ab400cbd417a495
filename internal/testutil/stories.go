package testutil

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/project"
	"github.com/taigaio/taiga/internal/services/story"
)

// StoryStore implements story.Store
type StoryStore struct {
	m *Memory
}

var _ story.Store = (*StoryStore)(nil)

func (s *StoryStore) Tx(_ context.Context, fn func(story.Store) error) error {
	return fn(s)
}

func (s *StoryStore) CreateWorkflow(_ context.Context, w *story.Workflow) (*story.Workflow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row := clone(w)
	row.ID = newID(row.ID)
	s.m.workflows = append(s.m.workflows, row)
	return clone(row), nil
}

func (s *StoryStore) GetWorkflows(_ context.Context, projectID uuid.UUID) ([]*story.Workflow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	list := filter(s.m.workflows, func(w *story.Workflow) bool { return w.ProjectID == projectID })
	slices.SortStableFunc(list, func(a, b *story.Workflow) int { return a.Order - b.Order })
	return list, nil
}

func (s *StoryStore) GetWorkflow(_ context.Context, projectID uuid.UUID, slug string) (*story.Workflow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	w := find(s.m.workflows, func(w *story.Workflow) bool { return w.ProjectID == projectID && w.Slug == slug })
	if w == nil {
		return nil, story.ErrWorkflowNotFound
	}
	return clone(w), nil
}

func (s *StoryStore) CreateStatus(_ context.Context, st *story.WorkflowStatus) (*story.WorkflowStatus, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row := clone(st)
	row.ID = newID(row.ID)
	s.m.statuses = append(s.m.statuses, row)
	return clone(row), nil
}

func (s *StoryStore) GetStatuses(_ context.Context, workflowID uuid.UUID) ([]*story.WorkflowStatus, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	list := filter(s.m.statuses, func(st *story.WorkflowStatus) bool { return st.WorkflowID == workflowID })
	slices.SortStableFunc(list, func(a, b *story.WorkflowStatus) int { return a.Order - b.Order })
	return list, nil
}

func (s *StoryStore) ReserveRefs(_ context.Context, projectID uuid.UUID, n int) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if find(s.m.projects, func(p *project.Project) bool { return p.ID == projectID }) == nil {
		return 0, story.ErrProjectNotFound
	}
	s.m.lastRefs[projectID] += n
	return s.m.lastRefs[projectID], nil
}

func (s *StoryStore) BulkCreateStories(_ context.Context, stories []*story.Story) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, st := range stories {
		row := clone(st)
		row.ID = newID(row.ID)
		st.ID = row.ID
		if row.CreatedAt.IsZero() {
			row.CreatedAt = s.m.now()
		}
		s.m.stories = append(s.m.stories, row)
	}
	return nil
}

func (s *StoryStore) BulkCreateAssignments(_ context.Context, assignments []*story.StoryAssignment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, a := range assignments {
		row := clone(a)
		row.ID = newID(row.ID)
		a.ID = row.ID
		if row.CreatedAt.IsZero() {
			row.CreatedAt = s.m.now()
		}
		s.m.assignments = append(s.m.assignments, row)
	}
	return nil
}

func (s *StoryStore) ListStories(_ context.Context, projectID uuid.UUID) ([]*story.Story, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	list := filter(s.m.stories, func(st *story.Story) bool { return st.ProjectID == projectID })
	slices.SortStableFunc(list, func(a, b *story.Story) int { return a.Ref - b.Ref })
	return list, nil
}

func (s *StoryStore) ListAssignments(_ context.Context, storyID uuid.UUID) ([]*story.StoryAssignment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return filter(s.m.assignments, func(a *story.StoryAssignment) bool { return a.StoryID == storyID }), nil
}
