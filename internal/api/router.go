// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/api/handlers"
	"github.com/EduMonSwent/EduMon-sub001/internal/api/middleware"
	"github.com/EduMonSwent/EduMon-sub001/internal/calendar"
	"github.com/EduMonSwent/EduMon-sub001/internal/planner"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage"
	"github.com/EduMonSwent/EduMon-sub001/internal/websocket"
)

// Services are the components the API serves. Hub and Scheduler may be nil.
type Services struct {
	DB         *storage.DB
	Schedule   *schedule.Aggregator
	Importer   *calendar.Importer
	Runs       *storage.ImportRunRepository
	Rebalancer *planner.Rebalancer
	Scheduler  *planner.Scheduler
	Hub        *websocket.Hub
	Logger     *zap.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(logger))
	r.Use(middleware.ErrorRecovery(logger))

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.Schedule, s.Hub, s.Scheduler)).Methods("GET")

	if s.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub, s.Schedule, logger)).Methods("GET")
	}

	// Event endpoints; fixed paths are registered before /events/{id}.
	api.HandleFunc("/events", handlers.ListEvents(s.Schedule)).Methods("GET")
	api.HandleFunc("/events", handlers.CreateEvent(s.Schedule)).Methods("POST")
	api.HandleFunc("/events/week", handlers.WeekEvents(s.Schedule)).Methods("GET")
	api.HandleFunc("/events/conflicts", handlers.ListConflicts(s.Schedule)).Methods("GET")
	api.HandleFunc("/events/{id}", handlers.GetEvent(s.Schedule)).Methods("GET")
	api.HandleFunc("/events/{id}", handlers.UpdateEvent(s.Schedule)).Methods("PUT")
	api.HandleFunc("/events/{id}", handlers.DeleteEvent(s.Schedule)).Methods("DELETE")
	api.HandleFunc("/events/{id}/move", handlers.MoveEvent(s.Schedule)).Methods("POST")

	// Class endpoints
	api.HandleFunc("/classes/{id}/attendance", handlers.RecordAttendance(s.Schedule)).Methods("POST")

	// Import endpoints
	api.HandleFunc("/imports", handlers.ListImports(s.Runs)).Methods("GET")
	api.HandleFunc("/imports/{kind}", handlers.RunImport(s.Importer)).Methods("POST")

	// Planner endpoints
	api.HandleFunc("/plan", handlers.PreviewPlan(s.Rebalancer)).Methods("GET")
	api.HandleFunc("/plan/apply", handlers.ApplyPlan(s.Rebalancer)).Methods("POST")

	return r
}
