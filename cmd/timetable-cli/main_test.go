package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/models"
)

func writeCatalog(t *testing.T, dir string) options {
	t.Helper()
	files := map[string]string{
		"courses.csv": "id,code,name,lecture_type,instructor_id,duration,capacity,year,branch,division\n" +
			"cs101,CS101,Programming,theory,T1,1,60,1,CS,A\n" +
			"cs101-lab,CS101-L,Programming Lab,lab,T1,2,30,1,CS,A\n" +
			"ee201,EE201,Circuits,theory,T2,1,60,2,EE,B\n",
		"rooms.csv": "id,name,capacity,type,department\n" +
			"c1,Room 1,60,classroom,CS\n" +
			"lab1,Lab 1,30,lab,CS\n",
		"teachers.csv": "id,name,email,department,teachable_years,unavailable\n" +
			"T1,Ada,ada@example.com,CS,,Monday 09:00\n" +
			"T2,Grace,grace@example.com,EE,,\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return options{
		courses:   filepath.Join(dir, "courses.csv"),
		rooms:     filepath.Join(dir, "rooms.csv"),
		teachers:  filepath.Join(dir, "teachers.csv"),
		delimiter: ",",
		scope:     models.Scope{Year: 1, Branch: "CS", Division: "A"},
		seed:      42,
		maxSteps:  10_000,
		timeout:   time.Second,
		format:    "csv",
		out:       filepath.Join(dir, "out"),
		weeks:     4,
	}
}

func TestRunWritesTimetable(t *testing.T) {
	dir := t.TempDir()
	opts := writeCatalog(t, dir)

	code := run(context.Background(), opts, zap.NewNop())
	require.Equal(t, exitOK, code)

	body, err := os.ReadFile(filepath.Join(dir, "out", "timetable-y1-CS-A.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	// Header plus every cell except the one the only CS teacher blocked.
	assert.Len(t, lines, 40)
	assert.NotContains(t, string(body), "EE201")
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(line, "Monday,09:00"), "teacher blocked on Monday 09:00")
	}
}

func TestRunICSOutput(t *testing.T) {
	dir := t.TempDir()
	opts := writeCatalog(t, dir)
	opts.format = "ICS"
	opts.termStart = "2024-09-02"

	require.Equal(t, exitOK, run(context.Background(), opts, zap.NewNop()))
	body, err := os.ReadFile(filepath.Join(dir, "out", "timetable-y1-CS-A.ics"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "FREQ=WEEKLY;COUNT=4")
}

func TestRunRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	opts := writeCatalog(t, dir)
	opts.scope.Year = 7
	assert.Equal(t, exitFailure, run(context.Background(), opts, zap.NewNop()))

	opts = writeCatalog(t, dir)
	opts.format = "docx"
	assert.Equal(t, exitFailure, run(context.Background(), opts, zap.NewNop()))

	opts = writeCatalog(t, dir)
	opts.courses = filepath.Join(dir, "missing.csv")
	assert.Equal(t, exitFailure, run(context.Background(), opts, zap.NewNop()))
}
