package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var runRowColumns = []string{"id", "term_id", "grade", "version", "status", "feasible", "soft_violations", "meta", "created_at", "updated_at"}

func TestTimetableRunRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs WHERE term_id = $1 AND grade = $2")).
		WithArgs("term-1", "10").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_runs")).
		WithArgs(sqlmock.AnyArg(), "term-1", "10", 3, models.TimetableRunStatusDraft, true, 4, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.TimetableRun{TermID: "term-1", Grade: "10", Feasible: true, SoftViolations: 4}
	require.NoError(t, repo.CreateVersioned(context.Background(), nil, run))
	assert.Equal(t, 3, run.Version)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, `{}`, run.Meta.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryCreateVersionedDuplicateVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs")).
		WithArgs("term-1", "10").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_runs")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "timetable_runs_term_id_grade_version_key"})

	err := repo.CreateVersioned(context.Background(), nil, &models.TimetableRun{TermID: "term-1", Grade: "10"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunVersionTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryCreateVersionedOtherInsertError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs")).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_runs")).
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.CreateVersioned(context.Background(), nil, &models.TimetableRun{TermID: "term-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRunVersionTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryCreateVersionedRequiresTerm(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	assert.Error(t, repo.CreateVersioned(context.Background(), nil, &models.TimetableRun{}))
	assert.Error(t, repo.CreateVersioned(context.Background(), nil, nil))
}

func TestTimetableRunRepositoryListByTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(runRowColumns).
		AddRow("run-2", "term-1", "10", 2, "DRAFT", true, 0, []byte(`{}`), now, now).
		AddRow("run-1", "term-1", "10", 1, "PUBLISHED", false, 3, []byte(`{}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_runs WHERE term_id = $1 AND grade = $2 ORDER BY version DESC")).
		WithArgs("term-1", "10").
		WillReturnRows(rows)

	runs, err := repo.ListByTerm(context.Background(), "term-1", "10")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].Version)
	assert.Equal(t, models.TimetableRunStatusPublished, runs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryListByTermAllGrades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_runs WHERE term_id = $1 ORDER BY version DESC")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows(runRowColumns))

	runs, err := repo.ListByTerm(context.Background(), "term-1", "")
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_runs WHERE id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTimetableRunRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "run-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "run-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_runs SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.TimetableRunStatusPublished, sqlmock.AnyArg(), "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), nil, "run-1", models.TimetableRunStatusPublished))
	assert.NoError(t, mock.ExpectationsWereMet())
}
