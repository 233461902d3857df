package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
	"github.com/noah-isme/class-scheduler-api/pkg/export"
)

// ExportFormat names a rendering of a schedule.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
	ExportICS  ExportFormat = "ics"
)

var exportContentTypes = map[ExportFormat]string{
	ExportCSV:  "text/csv",
	ExportPDF:  "application/pdf",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportICS:  "text/calendar",
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	return exportContentTypes[f]
}

// ParseExportFormat accepts a case-insensitive format name.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := exportContentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", raw))
	}
	return format, nil
}

type timetableRenderer interface {
	Render(t export.Timetable) ([]byte, error)
}

type scheduleFinder interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

// ExportConfig tunes calendar exports.
type ExportConfig struct {
	TermStart time.Time
	Weeks     int
}

// ExportFile is a rendered schedule ready to be sent to a client.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders stored schedules as CSV, PDF, XLSX or ICS.
type ExportService struct {
	schedules scheduleFinder
	courses   scopeCourseReader
	rooms     roomLister
	teachers  teacherLister
	renderers map[ExportFormat]timetableRenderer
	grid      scheduler.Grid
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(schedules scheduleFinder, courses scopeCourseReader, rooms roomLister, teachers teacherLister, grid scheduler.Grid, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(grid.Days) == 0 || len(grid.Slots) == 0 {
		grid = scheduler.DefaultGrid()
	}
	if cfg.TermStart.IsZero() {
		cfg.TermStart = time.Now().UTC()
	}
	if cfg.Weeks <= 0 {
		cfg.Weeks = 16
	}
	ics := export.NewICSExporter(cfg.TermStart, cfg.Weeks)
	ics.SlotMinutes = scheduler.SlotMinutes
	return &ExportService{
		schedules: schedules,
		courses:   courses,
		rooms:     rooms,
		teachers:  teachers,
		renderers: map[ExportFormat]timetableRenderer{
			ExportCSV:  export.NewCSVExporter(),
			ExportPDF:  export.NewPDFExporter(),
			ExportXLSX: export.NewXLSXExporter(),
			ExportICS:  ics,
		},
		grid:   grid,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the schedule in the requested format.
func (s *ExportService) Export(ctx context.Context, scheduleID, rawFormat string) (*ExportFile, error) {
	format, err := ParseExportFormat(rawFormat)
	if err != nil {
		return nil, err
	}
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, scheduleLookupError(err)
	}

	scope := schedule.Scope()
	courses, err := s.courses.ListByScope(ctx, models.CourseFilter{Year: scope.Year, Branch: scope.Branch, Division: scope.Division})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	return s.Render(schedule, scheduler.NewCatalog(courses, rooms, teachers), format)
}

// Render draws an in-memory schedule against the given catalog.
func (s *ExportService) Render(schedule *models.Schedule, catalog *scheduler.Catalog, format ExportFormat) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}
	table := BuildTimetable(s.grid, schedule, catalog)
	table.GeneratedAt = s.now()
	body, err := renderer.Render(table)
	if err != nil {
		s.logger.Error("export render failed", zap.String("schedule_id", schedule.ID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}
	return &ExportFile{
		Filename:    ExportFilename(schedule.Scope(), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// ExportFilename names an export after its scope.
func ExportFilename(scope models.Scope, format ExportFormat) string {
	name := fmt.Sprintf("timetable-y%d-%s-%s", scope.Year, scope.Branch, scope.Division)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return name + "." + string(format)
}

// BuildTimetable flattens schedule entries into renderable rows, resolving
// course, room and instructor names through the catalog. Unknown references
// are rendered by id.
func BuildTimetable(grid scheduler.Grid, schedule *models.Schedule, catalog *scheduler.Catalog) export.Timetable {
	table := export.Timetable{
		Title: fmt.Sprintf("Year %d %s Division %s", schedule.Year, schedule.Branch, schedule.Division),
		Days:  grid.Days,
		Slots: grid.Slots,
		Rows:  make([]export.Row, 0, len(schedule.Entries)),
	}
	for _, entry := range schedule.Entries {
		row := export.Row{
			Day:        entry.Day,
			StartTime:  entry.StartTime,
			CourseCode: entry.CourseID,
			Room:       entry.RoomID,
		}
		if course := catalog.Course(entry.CourseID); course != nil {
			row.CourseCode = course.Code
			row.CourseName = course.Name
			row.LectureType = string(course.LectureType)
			if teacher := catalog.Teacher(course.InstructorID); teacher != nil {
				row.Instructor = teacher.Name
			}
		}
		if room := catalog.Room(entry.RoomID); room != nil {
			row.Room = room.Name
		}
		if end, err := export.EndOf(entry.StartTime, scheduler.SlotMinutes); err == nil {
			row.EndTime = end
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
