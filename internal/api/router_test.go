package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduMonSwent/EduMon-sub001/internal/api/handlers"
	"github.com/EduMonSwent/EduMon-sub001/internal/api/middleware"
	"github.com/EduMonSwent/EduMon-sub001/internal/calendar"
	"github.com/EduMonSwent/EduMon-sub001/internal/mapper"
	"github.com/EduMonSwent/EduMon-sub001/internal/planner"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
	"github.com/EduMonSwent/EduMon-sub001/internal/websocket"
)

// Wednesday
var today = civil.Date{Year: 2025, Month: 3, Day: 12}

type testAPI struct {
	router  http.Handler
	agg     *schedule.Aggregator
	classes *storage.ClassRepository
	hub     *websocket.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "edumon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, nil))

	m := mapper.New(nil)
	classes := storage.NewClassRepository(db)
	runs := storage.NewImportRunRepository(db)
	agg := schedule.New(storage.NewTaskRepository(db), classes, m,
		schedule.WithClock(func() time.Time { return time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC) }),
		schedule.WithLocation(time.UTC),
	)
	require.NoError(t, agg.Refresh(context.Background()))

	hub := websocket.NewHub(nil)
	router := NewRouter(Services{
		DB:         db,
		Schedule:   agg,
		Importer:   calendar.NewImporter(calendar.Deps{Schedule: agg, Runs: runs, Mapper: m}),
		Runs:       runs,
		Rebalancer: planner.NewRebalancer(agg, nil, nil),
		Hub:        hub,
	})
	return &testAPI{router: router, agg: agg, classes: classes, hub: hub}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) create(t *testing.T, title string, date civil.Date, clock *civil.Time) unified.Event {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/events", unified.Event{
		Title:    title,
		Date:     date,
		Time:     clock,
		Kind:     unified.KindStudy,
		Priority: unified.PriorityMedium,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[unified.Event](t, rec)
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	health := decode[handlers.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "001_initial_schema.sql", health.SchemaVersion)

	rec = a.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[handlers.StatusResponse](t, rec)
	assert.Equal(t, "2025-03-12", status.Today)
	assert.Zero(t, status.EventsCount)
}

func TestWeekIsSorted(t *testing.T) {
	a := newTestAPI(t)

	a.create(t, "friday", today.AddDays(2), nil)
	a.create(t, "afternoon", today, &civil.Time{Hour: 14})
	a.create(t, "morning", today, &civil.Time{Hour: 9})
	a.create(t, "monday", today.AddDays(-2), nil)
	a.create(t, "next week", today.AddDays(7), nil)

	rec := a.do(t, http.MethodGet, "/api/events/week?date=2025-03-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	week := decode[handlers.WeekResponse](t, rec)

	assert.Equal(t, civil.Date{Year: 2025, Month: 3, Day: 10}, week.Start)
	assert.Equal(t, civil.Date{Year: 2025, Month: 3, Day: 16}, week.End)

	var titles []string
	for _, ev := range week.Events {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"monday", "morning", "afternoon", "friday"}, titles)

	// without a date the week of today is returned
	rec = a.do(t, http.MethodGet, "/api/events/week", nil)
	assert.Len(t, decode[handlers.WeekResponse](t, rec).Events, 4)
}

func TestListEventsFilters(t *testing.T) {
	a := newTestAPI(t)
	a.create(t, "a", today, nil)
	a.create(t, "b", today.AddDays(1), nil)
	a.create(t, "c", today.AddDays(10), nil)

	rec := a.do(t, http.MethodGet, "/api/events?date=2025-03-12", nil)
	assert.Len(t, decode[[]unified.Event](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/api/events?from=2025-03-12&to=2025-03-13", nil)
	assert.Len(t, decode[[]unified.Event](t, rec), 2)

	rec = a.do(t, http.MethodGet, "/api/events", nil)
	assert.Len(t, decode[[]unified.Event](t, rec), 3)

	rec = a.do(t, http.MethodGet, "/api/events?from=2025-03-13&to=2025-03-12", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/events?date=12.03.2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, middleware.ErrBadRequest, decode[middleware.ErrorResponse](t, rec).Error)
}

func TestEventLifecycle(t *testing.T) {
	a := newTestAPI(t)
	ev := a.create(t, "Read chapter 3", today, nil)
	require.NotEmpty(t, ev.ID)
	assert.Equal(t, unified.SourceTask, ev.Source)

	rec := a.do(t, http.MethodGet, "/api/events/"+ev.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	ev.Title = "Read chapter 4"
	ev.Priority = unified.PriorityHigh
	rec = a.do(t, http.MethodPut, "/api/events/"+ev.ID, ev)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[unified.Event](t, rec)
	assert.Equal(t, "Read chapter 4", updated.Title)
	assert.Equal(t, unified.PriorityHigh, updated.Priority)

	rec = a.do(t, http.MethodPost, "/api/events/"+ev.ID+"/move", map[string]string{"date": "2025-03-14"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, today.AddDays(2), decode[unified.Event](t, rec).Date)

	rec = a.do(t, http.MethodDelete, "/api/events/"+ev.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/events/"+ev.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, middleware.ErrNotFound, decode[middleware.ErrorResponse](t, rec).Error)
}

func TestEventErrors(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/events", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/events", map[string]string{"title": "x", "date": "2025-03-12", "kind": "NAP"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, middleware.ErrValidation, decode[middleware.ErrorResponse](t, rec).Error)

	rec = a.do(t, http.MethodPut, "/api/events/missing", map[string]string{"title": "x", "date": "2025-03-12", "kind": "STUDY"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/events/missing/move", map[string]string{"date": "2025-03-14"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/classes/missing/attendance", map[string]bool{"attended": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

const examFile = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\nSUMMARY:Algorithms\r\nDTSTART:20250317T090000\r\nDTEND:20250317T120000\r\nCATEGORIES:Midterm exam\r\nEND:VEVENT\r\n" +
	"BEGIN:VEVENT\r\nSUMMARY:Study group\r\nDTSTART:20250318T100000\r\nCATEGORIES:Meeting\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportRecordsRun(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/imports/exams?source=exams.ics", examFile)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[models.ImportResult](t, rec)
	assert.Equal(t, 2, res.EventsParsed)
	assert.Equal(t, 1, res.EventsWritten)

	_, ok := a.agg.EventByID("exam:Algorithms:2025-03-17")
	assert.True(t, ok)

	rec = a.do(t, http.MethodGet, "/api/imports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]models.ImportRun](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ImportKindExams, runs[0].Kind)
	assert.Equal(t, "exams.ics", runs[0].Source)
	assert.Equal(t, models.ImportStatusSuccess, runs[0].Status)

	rec = a.do(t, http.MethodPost, "/api/imports/grades", examFile)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/imports?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassAttendance(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	c := &models.Class{
		ID:        "algo-lecture",
		Name:      "Algorithms",
		Type:      models.ClassTypeLecture,
		StartTime: civil.Time{Hour: 10},
		EndTime:   civil.Time{Hour: 12},
	}
	require.NoError(t, a.agg.SaveClass(ctx, c))

	rec := a.do(t, http.MethodPost, "/api/classes/algo-lecture/attendance", map[string]bool{"attended": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ev := decode[unified.Event](t, rec)
	assert.True(t, ev.Completed)
	assert.Equal(t, unified.KindClassLecture, ev.Kind)
}

func TestPlanPreviewAndApply(t *testing.T) {
	a := newTestAPI(t)
	missed := a.create(t, "missed", today.AddDays(-1), nil)

	rec := a.do(t, http.MethodGet, "/api/plan?today=2025-03-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[handlers.PlanResponse](t, rec)
	require.Len(t, preview.Plan.MovedMissed, 1)
	assert.Empty(t, preview.Plan.PulledEarlier)
	assert.Equal(t, today.AddDays(6), preview.Plan.MovedMissed[0].Date)

	rec = a.do(t, http.MethodPost, "/api/plan/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[planner.RunResult](t, rec).Applied)

	ev, ok := a.agg.EventByID(missed.ID)
	require.True(t, ok)
	assert.Equal(t, today.AddDays(6), ev.Date)
}

func TestWebSocketSendsCurrentVersion(t *testing.T) {
	a := newTestAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		a.hub.Run(ctx)
		close(hubDone)
	}()
	defer func() {
		cancel()
		<-hubDone
	}()

	a.create(t, "a", today, nil)

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    websocket.MessageType            `json:"type"`
		Payload websocket.ScheduleUpdatedPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.TypeScheduleUpdated, msg.Type)
	assert.Equal(t, 1, msg.Payload.Events)
	assert.Equal(t, a.agg.Snapshot().Version, msg.Payload.Version)
}

func TestConflicts(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	hour := 60
	for _, ev := range []unified.Event{
		{Title: "Group work", Date: today, Time: &civil.Time{Hour: 10}, DurationMinutes: &hour, Kind: unified.KindProject},
		{Title: "Revision", Date: today, Time: &civil.Time{Hour: 10, Minute: 30}, DurationMinutes: &hour, Kind: unified.KindStudy},
	} {
		_, err := a.agg.Save(ctx, ev)
		require.NoError(t, err)
	}

	rec := a.do(t, http.MethodGet, "/api/events/conflicts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conflicts := decode[[]schedule.Conflict](t, rec)
	require.Len(t, conflicts, 1)
	assert.Equal(t, civil.Time{Hour: 10, Minute: 30}, conflicts[0].OverlapStart)
	assert.Equal(t, civil.Time{Hour: 11}, conflicts[0].OverlapEnd)

	rec = a.do(t, http.MethodGet, "/api/events/conflicts?from=2025-03-13&to=2025-03-20", nil)
	assert.Empty(t, decode[[]schedule.Conflict](t, rec))
}
