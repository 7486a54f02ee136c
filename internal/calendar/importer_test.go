package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduMonSwent/EduMon-sub001/internal/mapper"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

type fixture struct {
	imp     *Importer
	agg     *schedule.Aggregator
	classes *storage.ClassRepository
	runs    *storage.ImportRunRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "edumon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, nil))

	f := &fixture{
		classes: storage.NewClassRepository(db),
		runs:    storage.NewImportRunRepository(db),
	}
	m := mapper.New(nil)
	f.agg = schedule.New(storage.NewTaskRepository(db), f.classes, m,
		schedule.WithClock(func() time.Time { return time.Date(2024, 12, 2, 8, 0, 0, 0, time.UTC) }),
		schedule.WithLocation(time.UTC),
	)
	require.NoError(t, f.agg.Refresh(context.Background()))

	f.imp = NewImporter(Deps{Schedule: f.agg, Runs: f.runs, Mapper: m})
	return f
}

func ics(events ...string) string {
	return "BEGIN:VCALENDAR\r\n" + strings.Join(events, "") + "END:VCALENDAR\r\n"
}

func vevent(lines ...string) string {
	return "BEGIN:VEVENT\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VEVENT\r\n"
}

var examFile = ics(
	vevent("SUMMARY:Algorithms", "DTSTART:20241216T090000", "DTEND:20241216T120000", "CATEGORIES:Midterm exam"),
	vevent("SUMMARY:Analysis", "DTSTART:20250120T140000", "DTEND:20250120T170000", "CATEGORIES:Written exam"),
	vevent("SUMMARY:Study group", "DTSTART:20241217T100000", "CATEGORIES:Meeting"),
)

func examIDs(events []unified.Event) []string {
	var ids []string
	for _, ev := range events {
		if ev.Kind.IsExam() {
			ids = append(ids, ev.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func TestImportExamsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.imp.ImportExams(ctx, strings.NewReader(examFile), "exams.ics")
	require.NoError(t, err)
	assert.Equal(t, 3, res.EventsParsed)
	assert.Equal(t, 2, res.EventsWritten)
	assert.Zero(t, res.EventsDeleted)
	first := examIDs(f.agg.Events())
	assert.Equal(t, []string{"exam:Algorithms:2024-12-16", "exam:Analysis:2025-01-20"}, first)

	res, err = f.imp.ImportExams(ctx, strings.NewReader(examFile), "exams.ics")
	require.NoError(t, err)
	assert.Equal(t, 2, res.EventsDeleted)
	assert.Equal(t, first, examIDs(f.agg.Events()))
	assert.Len(t, f.agg.Events(), 2)

	algo, ok := f.agg.EventByID("exam:Algorithms:2024-12-16")
	require.True(t, ok)
	assert.Equal(t, unified.KindExamMidterm, algo.Kind)
	assert.Equal(t, unified.PriorityHigh, algo.Priority)
	require.NotNil(t, algo.DurationMinutes)
	assert.Equal(t, 180, *algo.DurationMinutes)

	analysis, ok := f.agg.EventByID("exam:Analysis:2025-01-20")
	require.True(t, ok)
	assert.Equal(t, unified.KindExamFinal, analysis.Kind)
}

func TestImportExamsReplacesRemovedExams(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.imp.ImportExams(ctx, strings.NewReader(examFile), "exams.ics")
	require.NoError(t, err)

	smaller := ics(vevent("SUMMARY:Analysis", "DTSTART:20250120T140000", "CATEGORIES:Exam"))
	_, err = f.imp.ImportExams(ctx, strings.NewReader(smaller), "exams.ics")
	require.NoError(t, err)

	assert.Equal(t, []string{"exam:Analysis:2025-01-20"}, examIDs(f.agg.Events()))
}

func TestImportHolidays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	file := ics(
		vevent("SUMMARY:Christmas break", "DTSTART;VALUE=DATE:20241223", "CATEGORIES:Holiday"),
		vevent("SUMMARY:Bank holiday", "DTSTART;VALUE=DATE:20241226"),
		vevent("SUMMARY:Holiday party", "DTSTART:20241220T180000", "CATEGORIES:Holiday"),
		vevent("SUMMARY:Reading week", "DTSTART;VALUE=DATE:20241230"),
	)

	res, err := f.imp.ImportHolidays(ctx, strings.NewReader(file), "holidays.ics")
	require.NoError(t, err)
	assert.Equal(t, 4, res.EventsParsed)
	assert.Equal(t, 2, res.EventsWritten)

	events := f.agg.Events()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, unified.KindActivityAssociation, ev.Kind)
		assert.Nil(t, ev.Time)
		assert.Nil(t, ev.DurationMinutes)
	}

	// Holidays are not deduplicated across imports.
	_, err = f.imp.ImportHolidays(ctx, strings.NewReader(file), "holidays.ics")
	require.NoError(t, err)
	assert.Len(t, f.agg.Events(), 4)
}

func TestImportClassesMathLecture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	file := ics(vevent(
		"DTSTART:20241201T101500",
		"DTEND:20241201T121500",
		"SUMMARY:Math Lecture",
		"CATEGORIES:cours",
	))

	res, err := f.imp.ImportClasses(ctx, strings.NewReader(file), "classes.ics")
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsWritten)

	classes, err := f.classes.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	c := classes[0]
	assert.Equal(t, "Math Lecture", c.Name)
	assert.Equal(t, models.ClassTypeLecture, c.Type)
	assert.Equal(t, civil.Time{Hour: 10, Minute: 15}, c.StartTime)
	assert.Equal(t, civil.Time{Hour: 12, Minute: 15}, c.EndTime)
	assert.Empty(t, c.Instructor)

	ev, ok := f.agg.EventByID(c.ID)
	require.True(t, ok)
	assert.Equal(t, unified.KindClassLecture, ev.Kind)
}

func TestImportClassesExpandsAndSkipsExams(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	file := ics(
		vevent(
			"SUMMARY:Physics",
			"DTSTART:20241202T080000",
			"DTEND:20241202T100000",
			"RRULE:FREQ=WEEKLY;UNTIL=20241216",
			"CATEGORIES:Lab",
			"DESCRIPTION: Dr. Curie ",
		),
		vevent("SUMMARY:Physics", "DTSTART:20241220T080000", "CATEGORIES:Exam"),
	)

	res, err := f.imp.ImportClasses(ctx, strings.NewReader(file), "classes.ics")
	require.NoError(t, err)
	assert.Equal(t, 4, res.EventsParsed)
	assert.Equal(t, 3, res.EventsWritten)

	classes, err := f.classes.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 3)

	var dates []string
	for _, c := range classes {
		assert.Equal(t, models.ClassTypeLab, c.Type)
		assert.Equal(t, "Dr. Curie", c.Instructor)
		require.NotNil(t, c.Date)
		dates = append(dates, c.Date.String())
	}
	sort.Strings(dates)
	assert.Equal(t, []string{"2024-12-02", "2024-12-09", "2024-12-16"}, dates)
}

func TestImportRecordsRuns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.imp.ImportExams(ctx, strings.NewReader(examFile), "exams.ics")
	require.NoError(t, err)

	_, err = f.imp.ImportHolidays(ctx, iotestErrReader{}, "broken.ics")
	require.Error(t, err)

	runs, err := f.runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	statuses := map[models.ImportKind]string{}
	for _, r := range runs {
		statuses[r.Kind] = r.Status
	}
	assert.Equal(t, models.ImportStatusSuccess, statuses[models.ImportKindExams])
	assert.Equal(t, models.ImportStatusError, statuses[models.ImportKindHolidays])
}

type iotestErrReader struct{}

func (iotestErrReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestImportFromSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	path := filepath.Join(t.TempDir(), "exams.ics")
	require.NoError(t, os.WriteFile(path, []byte(examFile), 0o644))

	res, err := f.imp.ImportFromSource(ctx, models.ImportKindExams, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EventsWritten)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(examFile))
	}))
	defer srv.Close()

	res, err = f.imp.ImportFromSource(ctx, models.ImportKindExams, srv.URL+"/exams.ics")
	require.NoError(t, err)
	assert.Equal(t, 2, res.EventsDeleted)

	_, err = f.imp.ImportFromSource(ctx, models.ImportKind("grades"), path)
	assert.Error(t, err)
}

// racingSchedule removes an exam itself just before the importer does,
// as a concurrent import would.
type racingSchedule struct {
	*schedule.Aggregator
	target string
}

func (s *racingSchedule) Delete(ctx context.Context, id string) error {
	if id == s.target {
		if err := s.Aggregator.Delete(ctx, id); err != nil {
			return err
		}
	}
	return s.Aggregator.Delete(ctx, id)
}

func TestImportExamsSkipsAlreadyDeletedExam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.imp.ImportExams(ctx, strings.NewReader(examFile), "exams.ics")
	require.NoError(t, err)

	racing := NewImporter(Deps{
		Schedule: &racingSchedule{Aggregator: f.agg, target: "exam:Algorithms:2024-12-16"},
		Runs:     f.runs,
	})
	res, err := racing.ImportExams(ctx, strings.NewReader(examFile), "exams.ics")
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsDeleted)
	assert.Equal(t, 2, res.EventsWritten)
	assert.Equal(t, []string{"exam:Algorithms:2024-12-16", "exam:Analysis:2025-01-20"}, examIDs(f.agg.Events()))

	runs, err := f.runs.List(ctx, 0)
	require.NoError(t, err)
	for _, r := range runs {
		assert.Equal(t, models.ImportStatusSuccess, r.Status)
	}
}
