// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/api/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// dateParam reads a YYYY-MM-DD query parameter. A missing parameter yields
// fallback.
func dateParam(r *http.Request, name string, fallback civil.Date) (civil.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, raw)
	}
	return d, nil
}

func badDate(w http.ResponseWriter, err error) {
	middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
}
