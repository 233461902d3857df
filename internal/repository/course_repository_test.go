package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

var courseColumnNames = []string{"id", "code", "name", "lecture_type", "instructor_id", "duration", "capacity", "year", "branch", "division", "preferred_time_slots", "created_at", "updated_at"}

func TestCourseRepositoryListByScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseColumnNames).
		AddRow("c1", "CS101", "Programming", "theory", "t1", 60, 60, 1, "CS", "A", "{}", now, now).
		AddRow("c2", "CS101-L", "Programming Lab", "lab", "t1", 120, 30, 1, "CS", "A", "{15:00,16:00}", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE year = $1 AND branch = $2 AND division = $3 ORDER BY created_at ASC")).
		WithArgs(1, "CS", "A").
		WillReturnRows(rows)

	courses, err := repo.ListByScope(context.Background(), models.CourseFilter{Year: 1, Branch: "CS", Division: "A"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.True(t, courses[1].IsLab())
	assert.Equal(t, pq.StringArray{"15:00", "16:00"}, courses[1].PreferredTimeSlots)
	assert.Equal(t, "CS101", courses[1].BaseCode())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAdmissionQueries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	course := models.Course{Code: "CS101", LectureType: models.LectureTheory, Division: "A", Year: 1, Branch: "CS"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM courses WHERE code = $1 AND lecture_type = $2 AND division = $3 AND year = $4 AND branch = $5 LIMIT 1")).
		WithArgs("CS101", models.LectureTheory, "A", 1, "CS").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE instructor_id = $1 AND division = $2")).
		WithArgs("t1", "A").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	exists, err := repo.ExistsByTuple(context.Background(), course)
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := repo.CountByInstructorDivision(context.Background(), "t1", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "CS101", "Programming", models.LectureTheory, "t1", 60, 60, 1, "CS", "A", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: "CS101", Name: "Programming", LectureType: models.LectureTheory, InstructorID: "t1", Duration: 60, Capacity: 60, Year: 1, Branch: "CS", Division: "A"}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.False(t, course.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListAndCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, type, department, allowed_years, is_available FROM rooms ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "type", "department", "allowed_years", "is_available"}).
			AddRow("r1", "Lab 1", 30, "lab", "CS", "{1}", true))
	mock.ExpectExec("INSERT INTO rooms").
		WithArgs(sqlmock.AnyArg(), "C1", 60, models.RoomClassroom, models.DepartmentAll, sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rooms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.True(t, rooms[0].Serves(models.LectureLab))
	assert.False(t, rooms[0].AdmitsYear(2))

	require.NoError(t, repo.Create(context.Background(), &models.Room{Name: "C1", Capacity: 60, Type: models.RoomClassroom, IsAvailable: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
