package handlers

import (
	"net/http"
	"time"

	"github.com/EduMonSwent/EduMon-sub001/internal/planner"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage"
	"github.com/EduMonSwent/EduMon-sub001/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	DBConnected   bool   `json:"db_connected"`
	SchemaVersion string `json:"schema_version,omitempty"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy", DBConnected: db.PingContext(r.Context()) == nil}

		code := http.StatusOK
		if resp.DBConnected {
			resp.SchemaVersion, _ = storage.SchemaVersion(db)
		} else {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, resp)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Today            string             `json:"today"`
	SnapshotVersion  uint64             `json:"snapshot_version"`
	EventsCount      int                `json:"events_count"`
	WebSocketClients int                `json:"websocket_clients"`
	NextRebalanceAt  *time.Time         `json:"next_rebalance_at,omitempty"`
	LastRebalance    *planner.RunResult `json:"last_rebalance,omitempty"`
}

// Status returns a handler that reports the schedule and scheduler state.
// hub and sched may be nil.
func Status(agg *schedule.Aggregator, hub *websocket.Hub, sched *planner.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := agg.Snapshot()
		resp := StatusResponse{
			Today:           agg.Today().String(),
			SnapshotVersion: snap.Version,
			EventsCount:     len(snap.Events),
		}
		if hub != nil {
			resp.WebSocketClients = hub.ClientCount()
		}
		if sched != nil {
			if next := sched.NextRun(); !next.IsZero() {
				resp.NextRebalanceAt = &next
			}
			resp.LastRebalance = sched.LastRun()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
