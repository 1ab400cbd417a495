package story

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taigaio/taiga/internal/services/roles"
)

var ErrInvalidRefCount = errors.New("number of refs must be positive")

// Store is the persistence needed by StoryService.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	CreateWorkflow(ctx context.Context, w *Workflow) (*Workflow, error)
	GetWorkflows(ctx context.Context, projectID uuid.UUID) ([]*Workflow, error)
	GetWorkflow(ctx context.Context, projectID uuid.UUID, slug string) (*Workflow, error)
	CreateStatus(ctx context.Context, st *WorkflowStatus) (*WorkflowStatus, error)
	GetStatuses(ctx context.Context, workflowID uuid.UUID) ([]*WorkflowStatus, error)

	ReserveRefs(ctx context.Context, projectID uuid.UUID, n int) (int, error)
	BulkCreateStories(ctx context.Context, stories []*Story) error
	BulkCreateAssignments(ctx context.Context, assignments []*StoryAssignment) error
	ListStories(ctx context.Context, projectID uuid.UUID) ([]*Story, error)
	ListAssignments(ctx context.Context, storyID uuid.UUID) ([]*StoryAssignment, error)
}

type kanbanStatus struct {
	name  string
	color int
}

var kanbanTemplate = []kanbanStatus{
	{"New", 1},
	{"Ready", 2},
	{"In progress", 3},
	{"Done", 4},
}

// StoryService contains business logic for workflows and stories
type StoryService struct {
	repo Store
}

// NewStoryService constructs a new StoryService
func NewStoryService(repo Store) *StoryService {
	return &StoryService{repo: repo}
}

// ApplyKanbanTemplate creates the "Main" workflow of a project with its default statuses
func (s *StoryService) ApplyKanbanTemplate(ctx context.Context, projectID uuid.UUID) error {
	return s.repo.Tx(ctx, func(repo Store) error {
		workflow, err := repo.CreateWorkflow(ctx, &Workflow{
			ProjectID: projectID,
			Name:      "Main",
			Slug:      "main",
			Order:     1,
		})
		if err != nil {
			return err
		}

		for i, st := range kanbanTemplate {
			if _, err := repo.CreateStatus(ctx, &WorkflowStatus{
				WorkflowID: workflow.ID,
				Name:       st.name,
				Slug:       roles.Slugify(st.name),
				Color:      st.color,
				Order:      i + 1,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *StoryService) GetWorkflows(ctx context.Context, projectID uuid.UUID) ([]*Workflow, error) {
	return s.repo.GetWorkflows(ctx, projectID)
}

func (s *StoryService) GetWorkflow(ctx context.Context, projectID uuid.UUID, slug string) (*Workflow, error) {
	return s.repo.GetWorkflow(ctx, projectID, slug)
}

func (s *StoryService) GetStatuses(ctx context.Context, workflowID uuid.UUID) ([]*WorkflowStatus, error) {
	return s.repo.GetStatuses(ctx, workflowID)
}

// CreateStatus appends a status at the end of the workflow
func (s *StoryService) CreateStatus(ctx context.Context, workflow *Workflow, name string, color int) (*WorkflowStatus, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("status name is required")
	}

	existing, err := s.repo.GetStatuses(ctx, workflow.ID)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateStatus(ctx, &WorkflowStatus{
		WorkflowID: workflow.ID,
		Name:       name,
		Slug:       roles.Slugify(name),
		Color:      color,
		Order:      len(existing) + 1,
	})
}

// ReserveRefs atomically reserves n consecutive story references of a project
func (s *StoryService) ReserveRefs(ctx context.Context, projectID uuid.UUID, n int) ([]int, error) {
	if n <= 0 {
		return nil, ErrInvalidRefCount
	}

	last, err := s.repo.ReserveRefs(ctx, projectID, n)
	if err != nil {
		return nil, err
	}

	refs := make([]int, n)
	for i := range refs {
		refs[i] = last - n + 1 + i
	}
	return refs, nil
}

// BulkCreateStories stores stories. Stories without a ref get one reserved from their project.
func (s *StoryService) BulkCreateStories(ctx context.Context, stories []*Story) error {
	missing := make(map[uuid.UUID][]*Story)
	var order []uuid.UUID
	for _, st := range stories {
		if st.Ref != 0 {
			continue
		}
		if _, ok := missing[st.ProjectID]; !ok {
			order = append(order, st.ProjectID)
		}
		missing[st.ProjectID] = append(missing[st.ProjectID], st)
	}

	return s.repo.Tx(ctx, func(repo Store) error {
		for _, projectID := range order {
			pending := missing[projectID]
			last, err := repo.ReserveRefs(ctx, projectID, len(pending))
			if err != nil {
				return err
			}
			for i, st := range pending {
				st.Ref = last - len(pending) + 1 + i
			}
		}
		return repo.BulkCreateStories(ctx, stories)
	})
}

func (s *StoryService) BulkCreateAssignments(ctx context.Context, assignments []*StoryAssignment) error {
	return s.repo.BulkCreateAssignments(ctx, assignments)
}

// ListStories returns the project stories ordered by reference
func (s *StoryService) ListStories(ctx context.Context, projectID uuid.UUID) ([]*Story, error) {
	return s.repo.ListStories(ctx, projectID)
}

func (s *StoryService) ListAssignments(ctx context.Context, storyID uuid.UUID) ([]*StoryAssignment, error) {
	return s.repo.ListAssignments(ctx, storyID)
}
