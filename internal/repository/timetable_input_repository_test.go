package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimetableInputRepositoryListClassSections(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableInputRepository(db)

	rows := sqlmock.NewRows([]string{"id", "term_id", "subject", "grade", "teacher_id"}).
		AddRow("C1", "term-1", "Math", "10", "T1").
		AddRow("C2", "term-1", "Art", "10", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_sections WHERE term_id = $1 ORDER BY position, id")).
		WithArgs("term-1").
		WillReturnRows(rows)

	list, err := repo.ListClassSections(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].TeacherID)
	assert.Equal(t, "T1", *list[0].TeacherID)
	assert.Nil(t, list[1].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableInputRepositoryListTimeBlocks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableInputRepository(db)

	rows := sqlmock.NewRows([]string{"id", "position", "start_time", "end_time", "label", "is_break"}).
		AddRow("b1", 1, "08:00", "09:00", "P1", false).
		AddRow("b2", 2, "09:00", "09:15", "Recess", true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_blocks ORDER BY position")).WillReturnRows(rows)

	blocks, err := repo.ListTimeBlocks(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.True(t, blocks[1].IsBreak)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableInputRepositoryListConstraints(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableInputRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM hard_constraints WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "kind", "target_id", "day_of_week", "start_time", "end_time"}).
			AddRow("h1", "term-1", "teacher_unavailable", "T1", 1, "08:00", "10:00"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM soft_constraints WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "kind", "teacher_id", "day_of_week", "start_time", "end_time", "polarity", "weight"}).
			AddRow("s1", "term-1", "teacher_day_preference", "T1", 5, "", "", "avoid", 3))

	hard, err := repo.ListHardConstraints(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, hard, 1)
	assert.Equal(t, "T1", hard[0].TargetID)

	soft, err := repo.ListSoftConstraints(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, soft, 1)
	assert.Equal(t, 3, soft[0].Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableInputRepositoryListRoomsError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableInputRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms ORDER BY id")).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListRooms(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list rooms")
}

func TestTimetableInputRepositoryListRoomRequirements(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableInputRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM room_requirements rr JOIN class_sections cs")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "room_id", "room_type"}).AddRow("C1", "", "lab"))

	reqs, err := repo.ListRoomRequirements(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "lab", reqs[0].RoomType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
