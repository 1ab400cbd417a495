package story

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taigaio/taiga/internal/db"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrProjectNotFound  = errors.New("project not found")
)

const (
	workflowColumns   = `id, project_id, name, slug, position`
	statusColumns     = `id, workflow_id, name, slug, color, position`
	storyColumns      = `id, ref, title, position, project_id, workflow_id, status_id, created_by_id, created_at`
	assignmentColumns = `id, story_id, user_id, created_at`
)

// StoryRepo handles database operations for workflows, stories and assignments
type StoryRepo struct {
	db db.Querier
}

// NewStoryRepo creates a new story repository
func NewStoryRepo(conn db.Querier) *StoryRepo {
	return &StoryRepo{db: conn}
}

// Tx runs fn with a repository bound to a single transaction
func (r *StoryRepo) Tx(ctx context.Context, fn func(Store) error) error {
	return db.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(NewStoryRepo(tx))
	})
}

func (r *StoryRepo) CreateWorkflow(ctx context.Context, w *Workflow) (*Workflow, error) {
	query := `
		INSERT INTO workflows (id, project_id, name, slug, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + workflowColumns

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	var created Workflow
	if err := sqlx.GetContext(ctx, r.db, &created, query, w.ID, w.ProjectID, w.Name, w.Slug, w.Order); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	return &created, nil
}

func (r *StoryRepo) GetWorkflows(ctx context.Context, projectID uuid.UUID) ([]*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE project_id = $1 ORDER BY position`

	var list []*Workflow
	if err := sqlx.SelectContext(ctx, r.db, &list, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return list, nil
}

func (r *StoryRepo) GetWorkflow(ctx context.Context, projectID uuid.UUID, slug string) (*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE project_id = $1 AND slug = $2`

	var w Workflow
	if err := sqlx.GetContext(ctx, r.db, &w, query, projectID, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &w, nil
}

func (r *StoryRepo) CreateStatus(ctx context.Context, st *WorkflowStatus) (*WorkflowStatus, error) {
	query := `
		INSERT INTO workflow_statuses (id, workflow_id, name, slug, color, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + statusColumns

	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}

	var created WorkflowStatus
	if err := sqlx.GetContext(ctx, r.db, &created, query, st.ID, st.WorkflowID, st.Name, st.Slug, st.Color, st.Order); err != nil {
		return nil, fmt.Errorf("failed to create workflow status: %w", err)
	}
	return &created, nil
}

func (r *StoryRepo) GetStatuses(ctx context.Context, workflowID uuid.UUID) ([]*WorkflowStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM workflow_statuses WHERE workflow_id = $1 ORDER BY position`

	var list []*WorkflowStatus
	if err := sqlx.SelectContext(ctx, r.db, &list, query, workflowID); err != nil {
		return nil, fmt.Errorf("failed to list workflow statuses: %w", err)
	}
	return list, nil
}

// ReserveRefs bumps the project reference counter by n and returns the last reserved value
func (r *StoryRepo) ReserveRefs(ctx context.Context, projectID uuid.UUID, n int) (int, error) {
	var last int
	err := sqlx.GetContext(ctx, r.db, &last,
		`UPDATE projects SET last_ref = last_ref + $2 WHERE id = $1 RETURNING last_ref`, projectID, n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProjectNotFound
		}
		return 0, fmt.Errorf("failed to reserve story refs: %w", err)
	}
	return last, nil
}

// BulkCreateStories inserts stories as they are. IDs are assigned when missing.
func (r *StoryRepo) BulkCreateStories(ctx context.Context, stories []*Story) error {
	if len(stories) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, s := range stories {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
	}

	query := `
		INSERT INTO stories (id, ref, title, position, project_id, workflow_id, status_id, created_by_id, created_at)
		VALUES (:id, :ref, :title, :position, :project_id, :workflow_id, :status_id, :created_by_id, :created_at)`

	for _, batch := range batches(len(stories)) {
		if _, err := sqlx.NamedExecContext(ctx, r.db, query, stories[batch[0]:batch[1]]); err != nil {
			return fmt.Errorf("failed to bulk create stories: %w", err)
		}
	}
	return nil
}

// BulkCreateAssignments inserts assignments as they are. IDs are assigned when missing.
func (r *StoryRepo) BulkCreateAssignments(ctx context.Context, assignments []*StoryAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, a := range assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
	}

	query := `
		INSERT INTO story_assignments (id, story_id, user_id, created_at)
		VALUES (:id, :story_id, :user_id, :created_at)`

	for _, batch := range batches(len(assignments)) {
		if _, err := sqlx.NamedExecContext(ctx, r.db, query, assignments[batch[0]:batch[1]]); err != nil {
			return fmt.Errorf("failed to bulk create story assignments: %w", err)
		}
	}
	return nil
}

// batchSize keeps multi-row inserts below the postgres limit of 65535 parameters
const batchSize = 1000

func batches(n int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += batchSize {
		out = append(out, [2]int{start, min(start+batchSize, n)})
	}
	return out
}

func (r *StoryRepo) ListStories(ctx context.Context, projectID uuid.UUID) ([]*Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE project_id = $1 ORDER BY ref`

	var list []*Story
	if err := sqlx.SelectContext(ctx, r.db, &list, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return list, nil
}

func (r *StoryRepo) ListAssignments(ctx context.Context, storyID uuid.UUID) ([]*StoryAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM story_assignments WHERE story_id = $1 ORDER BY created_at`

	var list []*StoryAssignment
	if err := sqlx.SelectContext(ctx, r.db, &list, query, storyID); err != nil {
		return nil, fmt.Errorf("failed to list story assignments: %w", err)
	}
	return list, nil
}
