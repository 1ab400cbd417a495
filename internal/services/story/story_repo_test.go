package story

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*StoryRepo, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStoryRepo(sqlx.NewDb(conn, "postgres")), mock
}

func TestBatches(t *testing.T) {
	assert.Empty(t, batches(0))
	assert.Equal(t, [][2]int{{0, 10}}, batches(10))
	assert.Equal(t, [][2]int{{0, 1000}, {1000, 2000}, {2000, 2001}}, batches(2001))
}

func TestRepoReserveRefs(t *testing.T) {
	repo, mock := newMockRepo(t)
	projectID := uuid.New()

	mock.ExpectQuery("UPDATE projects SET last_ref").
		WithArgs(projectID, 3).
		WillReturnRows(sqlmock.NewRows([]string{"last_ref"}).AddRow(7))

	last, err := repo.ReserveRefs(context.Background(), projectID, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, last)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoReserveRefsMissingProject(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE projects SET last_ref").WillReturnRows(sqlmock.NewRows([]string{"last_ref"}))

	_, err := repo.ReserveRefs(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRepoBulkCreateStoriesInBatches(t *testing.T) {
	repo, mock := newMockRepo(t)

	stories := make([]*Story, 1500)
	for i := range stories {
		stories[i] = &Story{Ref: i + 1, Title: "Story", ProjectID: uuid.New()}
	}

	mock.ExpectExec("INSERT INTO stories").WillReturnResult(sqlmock.NewResult(0, 1000))
	mock.ExpectExec("INSERT INTO stories").WillReturnResult(sqlmock.NewResult(0, 500))

	require.NoError(t, repo.BulkCreateStories(context.Background(), stories))
	require.NoError(t, mock.ExpectationsWereMet())

	for _, st := range stories {
		assert.NotEqual(t, uuid.Nil, st.ID)
		assert.False(t, st.CreatedAt.IsZero())
	}
}
