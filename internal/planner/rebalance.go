package planner

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
	"github.com/EduMonSwent/EduMon-sub001/internal/websocket"
)

// Schedule is the part of the aggregated schedule the rebalancer uses.
type Schedule interface {
	Today() civil.Date
	EventsForWeek(d civil.Date) []unified.Event
	MoveEventDate(ctx context.Context, id string, date civil.Date) (bool, error)
}

// MoveFailure describes one move that could not be applied.
type MoveFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// RunResult is the outcome of applying a plan.
type RunResult struct {
	Today    civil.Date    `json:"today"`
	Plan     Plan          `json:"plan"`
	Applied  int           `json:"applied"`
	Failures []MoveFailure `json:"failures,omitempty"`
}

// Rebalancer plans and applies weekly adjustments.
type Rebalancer struct {
	schedule    Schedule
	broadcaster *websocket.EventBroadcaster
	logger      *zap.Logger

	// mu keeps runs from interleaving.
	mu sync.Mutex
}

// NewRebalancer creates a rebalancer. broadcaster and logger may be nil.
func NewRebalancer(s Schedule, broadcaster *websocket.EventBroadcaster, logger *zap.Logger) *Rebalancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rebalancer{schedule: s, broadcaster: broadcaster, logger: logger}
}

// Today returns the schedule's current date.
func (r *Rebalancer) Today() civil.Date {
	return r.schedule.Today()
}

// Preview plans the adjustments for today without applying them.
func (r *Rebalancer) Preview(today civil.Date) Plan {
	current := r.schedule.EventsForWeek(today)
	next := r.schedule.EventsForWeek(today.AddDays(7))
	return PlanAdjustments(today, current, next)
}

// Run plans the adjustments for today and moves every listed event.
// Moves that fail are reported in the result; the others still apply.
func (r *Rebalancer) Run(ctx context.Context, today civil.Date) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &RunResult{Today: today, Plan: r.Preview(today)}

	moves := make([]unified.Event, 0, res.Plan.Len())
	moves = append(moves, res.Plan.MovedMissed...)
	moves = append(moves, res.Plan.PulledEarlier...)

	for _, ev := range moves {
		ok, err := r.schedule.MoveEventDate(ctx, ev.ID, ev.Date)
		switch {
		case err != nil:
			res.Failures = append(res.Failures, MoveFailure{ID: ev.ID, Error: err.Error()})
		case !ok:
			res.Failures = append(res.Failures, MoveFailure{ID: ev.ID, Error: "event not found"})
		default:
			res.Applied++
		}
	}

	r.logger.Info("weekly plan applied",
		zap.String("today", today.String()),
		zap.Int("moved_missed", len(res.Plan.MovedMissed)),
		zap.Int("pulled_earlier", len(res.Plan.PulledEarlier)),
		zap.Int("applied", res.Applied),
		zap.Int("failed", len(res.Failures)),
	)
	r.broadcaster.BroadcastPlanApplied(websocket.PlanAppliedPayload{
		Today:         today.String(),
		MovedMissed:   len(res.Plan.MovedMissed),
		PulledEarlier: len(res.Plan.PulledEarlier),
		Applied:       res.Applied,
		Failed:        len(res.Failures),
	})

	if len(res.Failures) > 0 {
		return res, fmt.Errorf("%d of %d moves failed", len(res.Failures), len(moves))
	}
	return res, nil
}
