package schedule

import (
	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// Snapshot returns the latest published snapshot. A snapshot taken on an
// earlier day is republished first, with classes on the current date.
func (a *Aggregator) Snapshot() *Snapshot {
	snap := a.snapshot.Load()
	if snap.Version == 0 || snap.day == a.Today() {
		return snap
	}
	return a.rollover()
}

// Events returns every event in chronological order.
func (a *Aggregator) Events() []unified.Event {
	return cloneEvents(a.Snapshot().Events)
}

// EventByID looks up one event.
func (a *Aggregator) EventByID(id string) (unified.Event, bool) {
	for _, ev := range a.Snapshot().Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return unified.Event{}, false
}

// EventsOn returns the events dated d.
func (a *Aggregator) EventsOn(d civil.Date) []unified.Event {
	return a.EventsBetween(d, d)
}

// EventsBetween returns the events dated within [start, end].
func (a *Aggregator) EventsBetween(start, end civil.Date) []unified.Event {
	var out []unified.Event
	for _, ev := range a.Snapshot().Events {
		if unified.InRange(ev.Date, start, end) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsForWeek returns the events of the Monday-based week containing d.
func (a *Aggregator) EventsForWeek(d civil.Date) []unified.Event {
	return a.EventsBetween(unified.WeekStart(d), unified.WeekEnd(d))
}

func cloneEvents(events []unified.Event) []unified.Event {
	if events == nil {
		return nil
	}
	return append([]unified.Event(nil), events...)
}
