// Package csvio reads course, room and teacher catalogs from delimited files
// so timetables can be built without a database.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

// ListSeparator splits multi-valued columns such as preferred slots.
const ListSeparator = ";"

type courseRecord struct {
	ID                 string `csv:"id"`
	Code               string `csv:"code"`
	Name               string `csv:"name"`
	LectureType        string `csv:"lecture_type"`
	InstructorID       string `csv:"instructor_id"`
	Duration           int    `csv:"duration"`
	Capacity           int    `csv:"capacity"`
	Year               int    `csv:"year"`
	Branch             string `csv:"branch"`
	Division           string `csv:"division"`
	PreferredTimeSlots string `csv:"preferred_time_slots"`
}

type roomRecord struct {
	ID           string `csv:"id"`
	Name         string `csv:"name"`
	Capacity     int    `csv:"capacity"`
	Type         string `csv:"type"`
	Department   string `csv:"department"`
	AllowedYears string `csv:"allowed_years"`
	IsAvailable  string `csv:"is_available"`
}

type teacherRecord struct {
	ID             string `csv:"id"`
	Name           string `csv:"name"`
	Email          string `csv:"email"`
	Department     string `csv:"department"`
	TeachableYears string `csv:"teachable_years"`
	// Unavailable lists "Day HH:MM" cells, or a bare day for the whole day.
	Unavailable string `csv:"unavailable"`
}

// Catalog is everything the constructor needs for one run.
type Catalog struct {
	Courses  []models.Course
	Rooms    []models.Room
	Teachers []models.Teacher
}

// Loader parses catalog files with a fixed delimiter.
type Loader struct {
	Delimiter rune
	// Slots expands a bare day in the unavailable column.
	Slots []string
}

// NewLoader returns a comma-delimited loader for the given slot list.
func NewLoader(slots []string) *Loader {
	return &Loader{Delimiter: ',', Slots: slots}
}

func (l *Loader) reader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = l.Delimiter
	r.TrimLeadingSpace = true
	return r
}

// LoadFiles reads the three catalog files.
func (l *Loader) LoadFiles(coursesPath, roomsPath, teachersPath string) (*Catalog, error) {
	catalog := &Catalog{}
	var err error
	if catalog.Courses, err = loadFile(coursesPath, l.Courses); err != nil {
		return nil, err
	}
	if catalog.Rooms, err = loadFile(roomsPath, l.Rooms); err != nil {
		return nil, err
	}
	if catalog.Teachers, err = loadFile(teachersPath, l.Teachers); err != nil {
		return nil, err
	}
	return catalog, nil
}

func loadFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck
	items, err := parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

// Courses parses course rows. A missing id falls back to the code.
func (l *Loader) Courses(in io.Reader) ([]models.Course, error) {
	var records []courseRecord
	if err := gocsv.UnmarshalCSV(l.reader(in), &records); err != nil {
		return nil, err
	}
	courses := make([]models.Course, 0, len(records))
	for i, rec := range records {
		lectureType := models.LectureType(strings.ToLower(strings.TrimSpace(rec.LectureType)))
		if lectureType != models.LectureTheory && lectureType != models.LectureLab {
			return nil, fmt.Errorf("course row %d: unknown lecture type %q", i+1, rec.LectureType)
		}
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			id = strings.TrimSpace(rec.Code)
		}
		courses = append(courses, models.Course{
			ID:                 id,
			Code:               strings.TrimSpace(rec.Code),
			Name:               strings.TrimSpace(rec.Name),
			LectureType:        lectureType,
			InstructorID:       strings.TrimSpace(rec.InstructorID),
			Duration:           rec.Duration,
			Capacity:           rec.Capacity,
			Year:               rec.Year,
			Branch:             strings.TrimSpace(rec.Branch),
			Division:           strings.TrimSpace(rec.Division),
			PreferredTimeSlots: splitList(rec.PreferredTimeSlots),
		})
	}
	return courses, nil
}

// Rooms parses room rows. An empty is_available column means available.
func (l *Loader) Rooms(in io.Reader) ([]models.Room, error) {
	var records []roomRecord
	if err := gocsv.UnmarshalCSV(l.reader(in), &records); err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(records))
	for i, rec := range records {
		years, err := parseYears(rec.AllowedYears)
		if err != nil {
			return nil, fmt.Errorf("room row %d: %w", i+1, err)
		}
		available := true
		if raw := strings.TrimSpace(rec.IsAvailable); raw != "" {
			if available, err = strconv.ParseBool(raw); err != nil {
				return nil, fmt.Errorf("room row %d: is_available: %w", i+1, err)
			}
		}
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			id = strings.TrimSpace(rec.Name)
		}
		rooms = append(rooms, models.Room{
			ID:           id,
			Name:         strings.TrimSpace(rec.Name),
			Capacity:     rec.Capacity,
			Type:         models.RoomType(strings.ToLower(strings.TrimSpace(rec.Type))),
			Department:   strings.TrimSpace(rec.Department),
			AllowedYears: years,
			IsAvailable:  available,
		})
	}
	return rooms, nil
}

// Teachers parses teacher rows into records with their availability map.
func (l *Loader) Teachers(in io.Reader) ([]models.Teacher, error) {
	var records []teacherRecord
	if err := gocsv.UnmarshalCSV(l.reader(in), &records); err != nil {
		return nil, err
	}
	teachers := make([]models.Teacher, 0, len(records))
	for i, rec := range records {
		years, err := parseYears(rec.TeachableYears)
		if err != nil {
			return nil, fmt.Errorf("teacher row %d: %w", i+1, err)
		}
		availability, err := l.parseUnavailable(rec.Unavailable)
		if err != nil {
			return nil, fmt.Errorf("teacher row %d: %w", i+1, err)
		}
		teachers = append(teachers, models.Teacher{
			ID:             strings.TrimSpace(rec.ID),
			Name:           strings.TrimSpace(rec.Name),
			Email:          strings.TrimSpace(rec.Email),
			Department:     strings.TrimSpace(rec.Department),
			TeachableYears: years,
			Availability:   availability,
		})
	}
	return teachers, nil
}

func (l *Loader) parseUnavailable(raw string) (models.Availability, error) {
	availability := models.Availability{}
	for _, item := range splitList(raw) {
		fields := strings.Fields(item)
		switch len(fields) {
		case 1:
			if len(l.Slots) == 0 {
				return nil, fmt.Errorf("whole-day block %q needs a slot list", item)
			}
			for _, slot := range l.Slots {
				block(availability, fields[0], slot)
			}
		case 2:
			block(availability, fields[0], fields[1])
		default:
			return nil, fmt.Errorf("invalid unavailable cell %q", item)
		}
	}
	return availability, nil
}

func block(a models.Availability, day, slot string) {
	if a[day] == nil {
		a[day] = map[string]bool{}
	}
	a[day][slot] = false
}

func parseYears(raw string) ([]int64, error) {
	parts := splitList(raw)
	years := make([]int64, 0, len(parts))
	for _, part := range parts {
		year, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, year)
	}
	return years, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ListSeparator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
