// Package planner rebalances the schedule across week boundaries.
//
// PlanAdjustments is a pure function: it rolls missed events into the next
// week and, for every event finished ahead of its date, pulls one pending
// next-week event into the rest of the current week. The Rebalancer applies
// a plan through the schedule, and the Scheduler runs it periodically.
package planner

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// Plan lists the events to move. Each event already carries its new date.
type Plan struct {
	MovedMissed   []unified.Event `json:"moved_missed"`
	PulledEarlier []unified.Event `json:"pulled_earlier"`
}

// Empty reports whether the plan moves nothing.
func (p Plan) Empty() bool {
	return len(p.MovedMissed) == 0 && len(p.PulledEarlier) == 0
}

// Len returns the number of moves in the plan.
func (p Plan) Len() int {
	return len(p.MovedMissed) + len(p.PulledEarlier)
}

// WeekStart returns the Monday of the ISO week containing d.
func WeekStart(d civil.Date) civil.Date {
	return unified.WeekStart(d)
}

// WeekEnd returns the Sunday of the ISO week containing d.
func WeekEnd(d civil.Date) civil.Date {
	return unified.WeekEnd(d)
}

// PlanAdjustments computes the moves for the week containing today.
//
// current holds the events of today's week and next those of the following
// week. Neither slice is modified.
func PlanAdjustments(today civil.Date, current, next []unified.Event) Plan {
	var plan Plan

	credits := 0
	for _, ev := range current {
		switch {
		case ev.Date.Before(today) && !ev.Completed:
			plan.MovedMissed = append(plan.MovedMissed, ev.WithDate(ev.Date.AddDays(7)))
		case ev.Completed && !ev.Date.Before(today):
			credits++
		}
	}

	if credits == 0 {
		return plan
	}

	candidates := pullCandidates(next)
	if len(candidates) > credits {
		candidates = candidates[:credits]
	}

	slots := newSlotPicker(today, current)
	for _, ev := range candidates {
		plan.PulledEarlier = append(plan.PulledEarlier, ev.WithDate(slots.take()))
	}

	return plan
}

// pullCandidates returns the incomplete workload events of next in pull
// order: priority descending, then date, then time with untimed events
// last, then id.
func pullCandidates(next []unified.Event) []unified.Event {
	var out []unified.Event
	for _, ev := range next {
		if !ev.Completed && ev.Kind.IsWorkload() {
			out = append(out, ev)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if c := unified.CompareTimeNoneLast(a.Time, b.Time); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out
}

// slotPicker hands out dates in [today, WeekEnd(today)], preferring days
// with no pending event, then the least loaded day, earliest first.
type slotPicker struct {
	days []civil.Date
	load map[civil.Date]int
}

func newSlotPicker(today civil.Date, current []unified.Event) *slotPicker {
	end := WeekEnd(today)
	p := &slotPicker{load: make(map[civil.Date]int)}
	for d := today; !d.After(end); d = d.AddDays(1) {
		p.days = append(p.days, d)
		p.load[d] = 0
	}

	for _, ev := range current {
		if ev.Completed {
			continue
		}
		if _, ok := p.load[ev.Date]; ok {
			p.load[ev.Date]++
		}
	}
	return p
}

func (p *slotPicker) take() civil.Date {
	best := p.days[0]
	for _, d := range p.days {
		if p.load[d] < p.load[best] {
			best = d
		}
		if p.load[best] == 0 {
			break
		}
	}
	p.load[best]++
	return best
}
