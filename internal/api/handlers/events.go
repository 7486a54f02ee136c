package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"

	"github.com/EduMonSwent/EduMon-sub001/internal/api/middleware"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// WeekResponse is the schedule of one Monday to Sunday week.
type WeekResponse struct {
	Start  civil.Date      `json:"start"`
	End    civil.Date      `json:"end"`
	Events []unified.Event `json:"events"`
}

// ListEvents returns events, optionally restricted to ?date= or ?from=&to=.
func ListEvents(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var events []unified.Event
		switch {
		case q.Get("date") != "":
			d, err := dateParam(r, "date", civil.Date{})
			if err != nil {
				badDate(w, err)
				return
			}
			events = agg.EventsOn(d)

		case q.Get("from") != "" || q.Get("to") != "":
			from, err := dateParam(r, "from", civil.Date{})
			if err != nil {
				badDate(w, err)
				return
			}
			to, err := dateParam(r, "to", civil.Date{})
			if err != nil {
				badDate(w, err)
				return
			}
			if !from.IsValid() || !to.IsValid() {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "from and to are both required")
				return
			}
			if to.Before(from) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "to is before from")
				return
			}
			events = agg.EventsBetween(from, to)

		default:
			events = agg.Events()
		}

		if events == nil {
			events = []unified.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// WeekEvents returns the week containing ?date=, today by default.
func WeekEvents(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := dateParam(r, "date", agg.Today())
		if err != nil {
			badDate(w, err)
			return
		}

		events := agg.EventsForWeek(d)
		if events == nil {
			events = []unified.Event{}
		}
		writeJSON(w, http.StatusOK, WeekResponse{
			Start:  unified.WeekStart(d),
			End:    unified.WeekEnd(d),
			Events: events,
		})
	}
}

// GetEvent returns one event by id.
func GetEvent(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		ev, ok := agg.EventByID(id)
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

// CreateEvent stores a new event. The source defaults to task.
func CreateEvent(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev unified.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if msg := validateEvent(ev); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		saved, err := agg.Save(r.Context(), ev)
		if err != nil {
			writeScheduleError(w, err, "Failed to create event")
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// UpdateEvent replaces an existing event. The id comes from the path.
func UpdateEvent(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var ev unified.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body: "+err.Error())
			return
		}
		ev.ID = id
		if msg := validateEvent(ev); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		saved, err := agg.Update(r.Context(), ev)
		if err != nil {
			writeScheduleError(w, err, "Failed to update event")
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// DeleteEvent removes an event from the store that owns it.
func DeleteEvent(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := agg.Delete(r.Context(), id); err != nil {
			writeScheduleError(w, err, "Failed to delete event")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MoveRequest is the body of POST /events/{id}/move.
type MoveRequest struct {
	Date civil.Date `json:"date"`
}

// MoveEvent changes the date of an event.
func MoveEvent(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req MoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if !req.Date.IsValid() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date is required")
			return
		}

		found, err := agg.MoveEventDate(r.Context(), id, req.Date)
		if err != nil {
			writeScheduleError(w, err, "Failed to move event")
			return
		}
		if !found {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
			return
		}

		ev, _ := agg.EventByID(id)
		writeJSON(w, http.StatusOK, ev)
	}
}

func validateEvent(ev unified.Event) string {
	switch {
	case strings.TrimSpace(ev.Title) == "":
		return "title is required"
	case !ev.Date.IsValid():
		return "date is required"
	case !ev.Kind.Valid():
		return "kind is invalid"
	case ev.Source != "" && ev.Source != unified.SourceTask && ev.Source != unified.SourceClass:
		return "source must be task or class"
	}
	return ""
}

func writeScheduleError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
	case errors.Is(err, schedule.ErrNotConvertible):
		middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, msg)
	}
}

// ListConflicts returns overlapping events between ?from= and ?to=, which
// default to the current week.
func ListConflicts(agg *schedule.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := agg.Today()
		from, err := dateParam(r, "from", unified.WeekStart(today))
		if err != nil {
			badDate(w, err)
			return
		}
		to, err := dateParam(r, "to", unified.WeekEnd(today))
		if err != nil {
			badDate(w, err)
			return
		}
		if to.Before(from) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "to is before from")
			return
		}

		conflicts := agg.Conflicts(from, to)
		if conflicts == nil {
			conflicts = []schedule.Conflict{}
		}
		writeJSON(w, http.StatusOK, conflicts)
	}
}
