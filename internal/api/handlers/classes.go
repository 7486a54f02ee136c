package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"

	"github.com/EduMonSwent/EduMon-sub001/internal/api/middleware"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage"
)

// AttendanceRequest is the body of POST /classes/{id}/attendance.
// A zero date means today.
type AttendanceRequest struct {
	Date     civil.Date `json:"date"`
	Attended bool       `json:"attended"`
}

// RecordAttendance marks a class as attended or not on a date.
func RecordAttendance(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req AttendanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if req.Date == (civil.Date{}) {
			req.Date = agg.Today()
		}

		if err := agg.SetAttendance(r.Context(), id, req.Date, req.Attended); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Class not found")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to record attendance")
			return
		}

		ev, _ := agg.EventByID(id)
		writeJSON(w, http.StatusOK, ev)
	}
}
