package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/EduMonSwent/EduMon-sub001/internal/api/middleware"
	"github.com/EduMonSwent/EduMon-sub001/internal/calendar"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

// maxCalendarBody bounds uploaded calendar files.
const maxCalendarBody = 8 << 20

// RunImport feeds the request body to the pipeline named by {kind}.
// ?source= labels the run and defaults to "upload".
func RunImport(imp *calendar.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := models.ImportKind(mux.Vars(r)["kind"])
		if !kind.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "kind must be exams, holidays or classes")
			return
		}

		source := r.URL.Query().Get("source")
		if source == "" {
			source = "upload"
		}

		body := http.MaxBytesReader(w, r.Body, maxCalendarBody)
		res, err := imp.Import(r.Context(), kind, body, source)
		if err != nil {
			middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, middleware.ErrValidation, err.Error(), res)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ListImports returns the most recent import runs. ?limit= defaults to 50.
func ListImports(runs *storage.ImportRunRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}

		list, err := runs.List(r.Context(), limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query import runs")
			return
		}
		if list == nil {
			list = []models.ImportRun{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
