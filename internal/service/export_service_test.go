package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
)

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	catalog := catalogStub{
		courses: []models.Course{serviceTheory("cs101", "CS101", "T1"), serviceLab("cs101-lab", "CS101-L", "T1")},
		rooms: []models.Room{
			{ID: "c1", Name: "Room 1", Type: models.RoomClassroom, Department: "CS", IsAvailable: true},
			{ID: "lab1", Name: "Lab 1", Type: models.RoomLab, Department: "CS", IsAvailable: true},
		},
		teachers: []models.Teacher{serviceTeacher("T1")},
	}
	schedules := newScheduleStoreStub()
	schedules.put(&models.Schedule{ID: "s1", Year: 1, Branch: "CS", Division: "A", Entries: []models.ScheduleEntry{
		{CourseID: "cs101", Day: "Monday", StartTime: "09:00", RoomID: "c1"},
		{CourseID: "cs101-lab", Day: "Monday", StartTime: "15:00", RoomID: "lab1", IsLabFirst: true},
		{CourseID: "cs101-lab", Day: "Monday", StartTime: "16:00", RoomID: "lab1", IsLabSecond: true},
		{CourseID: "ghost", Day: "Tuesday", StartTime: "10:00", RoomID: "r9"},
	}})
	cfg := ExportConfig{TermStart: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), Weeks: 2}
	return NewExportService(schedules, catalog, catalog, teacherListStub(catalog.teachers), scheduler.Grid{}, cfg, zap.NewNop())
}

func TestExportServiceCSV(t *testing.T) {
	svc := newExportServiceForTest(t)

	file, err := svc.Export(context.Background(), "s1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "timetable-y1-CS-A.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Body)
	assert.Contains(t, body, "CS101")
	assert.Contains(t, body, "Room 1")
	assert.Contains(t, body, "Teacher T1")
	assert.Contains(t, body, "ghost")
}

func TestExportServiceBinaryFormats(t *testing.T) {
	svc := newExportServiceForTest(t)

	pdf, err := svc.Export(context.Background(), "s1", "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	xlsx, err := svc.Export(context.Background(), "s1", "xlsx")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx.Body, []byte("PK")))
}

func TestExportServiceICSRepeatsWeekly(t *testing.T) {
	svc := newExportServiceForTest(t)

	file, err := svc.Export(context.Background(), "s1", "ics")
	require.NoError(t, err)
	assert.Equal(t, "text/calendar", file.ContentType)
	body := string(file.Body)
	assert.Equal(t, 4, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "FREQ=WEEKLY;COUNT=2")
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.Export(context.Background(), "s1", "docx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)
}

func TestExportServiceMissingSchedule(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.Export(context.Background(), "missing", "csv")
	assertStatus(t, err, appErrors.ErrNotFound.Status)
}

func TestBuildTimetableResolvesNames(t *testing.T) {
	catalog := scheduler.NewCatalog(
		[]models.Course{serviceTheory("cs101", "CS101", "T1")},
		[]models.Room{{ID: "c1", Name: "Room 1"}},
		[]models.Teacher{serviceTeacher("T1")},
	)
	schedule := &models.Schedule{Year: 2, Branch: "EE", Division: "B", Entries: []models.ScheduleEntry{
		{CourseID: "cs101", Day: "Friday", StartTime: "16:00", RoomID: "c1"},
	}}

	table := BuildTimetable(scheduler.DefaultGrid(), schedule, catalog)
	assert.Equal(t, "Year 2 EE Division B", table.Title)
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, "CS101", row.CourseCode)
	assert.Equal(t, "Room 1", row.Room)
	assert.Equal(t, "Teacher T1", row.Instructor)
	assert.Equal(t, "17:00", row.EndTime)
}

func TestExportFilenameSanitises(t *testing.T) {
	name := ExportFilename(models.Scope{Year: 3, Branch: "Civil Eng/2", Division: "A"}, ExportXLSX)
	assert.Equal(t, "timetable-y3-Civil_Eng_2-A.xlsx", name)
}
