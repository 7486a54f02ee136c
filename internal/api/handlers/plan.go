package handlers

import (
	"net/http"

	"github.com/EduMonSwent/EduMon-sub001/internal/api/middleware"
	"github.com/EduMonSwent/EduMon-sub001/internal/planner"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// PlanResponse is a plan preview.
type PlanResponse struct {
	Today string       `json:"today"`
	Plan  planner.Plan `json:"plan"`
}

// PreviewPlan returns the adjustments for ?today= without applying them.
func PreviewPlan(rb *planner.Rebalancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today, err := dateParam(r, "today", rb.Today())
		if err != nil {
			badDate(w, err)
			return
		}

		plan := rb.Preview(today)
		if plan.MovedMissed == nil {
			plan.MovedMissed = []unified.Event{}
		}
		if plan.PulledEarlier == nil {
			plan.PulledEarlier = []unified.Event{}
		}
		writeJSON(w, http.StatusOK, PlanResponse{Today: today.String(), Plan: plan})
	}
}

// ApplyPlan computes and applies the adjustments for ?today=.
func ApplyPlan(rb *planner.Rebalancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today, err := dateParam(r, "today", rb.Today())
		if err != nil {
			badDate(w, err)
			return
		}

		res, err := rb.Run(r.Context(), today)
		if err != nil {
			middleware.WriteErrorWithDetails(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error(), res)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
