package story

import (
	"time"

	"github.com/google/uuid"
)

// Workflow groups the statuses a project's stories move through
type Workflow struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Order     int       `json:"order" db:"position"`
}

// WorkflowStatus is a kanban column of a workflow
type WorkflowStatus struct {
	ID         uuid.UUID `json:"id" db:"id"`
	WorkflowID uuid.UUID `json:"workflow_id" db:"workflow_id"`
	Name       string    `json:"name" db:"name"`
	Slug       string    `json:"slug" db:"slug"`
	Color      int       `json:"color" db:"color"`
	Order      int       `json:"order" db:"position"`
}

// Story is a unit of work placed in one workflow status
type Story struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Ref         int       `json:"ref" db:"ref"`
	Title       string    `json:"title" db:"title"`
	Order       int64     `json:"order" db:"position"`
	ProjectID   uuid.UUID `json:"project_id" db:"project_id"`
	WorkflowID  uuid.UUID `json:"workflow_id" db:"workflow_id"`
	StatusID    uuid.UUID `json:"status_id" db:"status_id"`
	CreatedByID uuid.UUID `json:"created_by_id" db:"created_by_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StoryAssignment links a story to one of its assignees
type StoryAssignment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	StoryID   uuid.UUID `json:"story_id" db:"story_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
