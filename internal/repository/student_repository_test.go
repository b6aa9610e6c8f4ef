package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollbook/rollbook-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryListBySemester(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "roll_number", "email", "semester_id", "created_at", "updated_at"}).
		AddRow(1, "Airi Satou", "001", nil, 1, now, now).
		AddRow(2, "Angelica Ramos", "002", nil, 1, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, roll_number, email, semester_id, created_at, updated_at FROM students WHERE semester_id = $1 ORDER BY roll_number")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	students, err := repo.ListBySemester(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Airi Satou", "001", nil, int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	student := &models.Student{Name: "Airi Satou", RollNumber: "001", SemesterID: 1}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, int64(7), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryBulkInsert(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 2))

	inserted, err := repo.BulkInsert(context.Background(), []models.Student{
		{Name: "Airi Satou", RollNumber: "001", SemesterID: 1},
		{Name: "Angelica Ramos", RollNumber: "002", SemesterID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryBulkInsertRowsAffectedError(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewErrorResult(assert.AnError))

	_, err := repo.BulkInsert(context.Background(), []models.Student{
		{Name: "Airi Satou", RollNumber: "001", SemesterID: 1},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryBulkInsertEmpty(t *testing.T) {
	db, _, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	inserted, err := repo.BulkInsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
