package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var teacherColumnNames = []string{"id", "name", "email", "department", "teachable_years", "availability", "created_at", "updated_at"}

func TestTeacherRepositoryFindByIDDecodesAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows(teacherColumnNames).
		AddRow("t1", "Ada", "ada@example.com", "CS", "{1,2}", []byte(`{"Monday":{"09:00":false}}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teacherColumns + " FROM teachers WHERE id = $1")).
		WithArgs("t1").
		WillReturnRows(rows)

	teacher, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", teacher.Name)
	assert.True(t, teacher.CanTeachYear(2))
	assert.False(t, teacher.CanTeachYear(3))
	assert.True(t, teacher.Availability.Blocks("Monday", "09:00"))
	assert.False(t, teacher.Availability.Blocks("Monday", "10:00"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows(teacherColumnNames).
		AddRow("t1", "Ada", "ada@example.com", "CS", "{}", nil, time.Now(), time.Now()).
		AddRow("t2", "Bo", "bo@example.com", "EE", "{3}", []byte(`{}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers ORDER BY name ASC")).WillReturnRows(rows)

	teachers, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, teachers, 2)
	assert.Empty(t, teachers[0].Availability)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	availability := models.Availability{"Friday": {"16:00": false}}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET availability = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET availability")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateAvailability(context.Background(), nil, "t1", availability))
	err := repo.UpdateAvailability(context.Background(), nil, "missing", availability)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
