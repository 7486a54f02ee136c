package schedule

import (
	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// Conflict is a pair of timed events on the same day whose time ranges
// overlap.
type Conflict struct {
	Date         civil.Date `json:"date"`
	EventID      string     `json:"event_id"`
	ConflictID   string     `json:"conflicting_event_id"`
	OverlapStart civil.Time `json:"overlap_start"`
	OverlapEnd   civil.Time `json:"overlap_end"`
}

// FindConflicts returns the overlapping pairs in events, which must be in
// schedule order. All-day events and events without a positive duration
// never conflict. Ranges are half-open, so back-to-back events are fine.
func FindConflicts(events []unified.Event) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(events); i++ {
		a := events[i]
		aStart, aEnd, ok := span(a)
		if !ok {
			continue
		}
		for j := i + 1; j < len(events) && events[j].Date == a.Date; j++ {
			b := events[j]
			bStart, bEnd, ok := span(b)
			if !ok {
				continue
			}

			overlapStart := max(aStart, bStart)
			overlapEnd := min(aEnd, bEnd)
			if overlapStart >= overlapEnd {
				continue
			}

			conflicts = append(conflicts, Conflict{
				Date:         a.Date,
				EventID:      a.ID,
				ConflictID:   b.ID,
				OverlapStart: clockOf(overlapStart),
				OverlapEnd:   clockOf(overlapEnd),
			})
		}
	}
	return conflicts
}

// Conflicts returns the overlapping events between start and end inclusive.
func (a *Aggregator) Conflicts(start, end civil.Date) []Conflict {
	return FindConflicts(a.EventsBetween(start, end))
}

// span returns the event's range in minutes since midnight.
func span(ev unified.Event) (int, int, bool) {
	if ev.Time == nil || ev.DurationMinutes == nil || *ev.DurationMinutes <= 0 {
		return 0, 0, false
	}
	start := unified.Minutes(*ev.Time)
	return start, start + *ev.DurationMinutes, true
}

func clockOf(minutes int) civil.Time {
	// ranges may run past midnight
	if minutes >= 24*60 {
		return civil.Time{Hour: 23, Minute: 59}
	}
	return civil.Time{Hour: minutes / 60, Minute: minutes % 60}
}
