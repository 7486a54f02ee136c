package ical

import (
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/teambition/rrule-go"
)

// DefaultWeeklyOccurrences is the number of instances produced for a weekly
// rule without an UNTIL date: the base date and the following 11 weeks.
const DefaultWeeklyOccurrences = 12

// Expand applies a recurrence rule to base. Only FREQ=WEEKLY is honoured;
// each instance is the base record moved by a whole number of weeks. With
// UNTIL the expansion includes that date, otherwise it stops after
// DefaultWeeklyOccurrences instances. Any other rule yields base alone.
func Expand(base RawEvent, rule string) []RawEvent {
	rule = strings.ToUpper(strings.TrimSpace(rule))
	if rule == "" {
		return []RawEvent{base}
	}

	opt, err := rrule.StrToROption(rule)
	if err != nil || opt.Freq != rrule.WEEKLY {
		return []RawEvent{base}
	}

	weekly := rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: base.Date.In(time.UTC),
	}
	if !opt.Until.IsZero() {
		until := civil.DateOf(opt.Until.UTC())
		if until.Before(base.Date) {
			return []RawEvent{base}
		}
		weekly.Until = until.In(time.UTC)
	} else {
		weekly.Count = DefaultWeeklyOccurrences
	}

	r, err := rrule.NewRRule(weekly)
	if err != nil {
		return []RawEvent{base}
	}

	occurrences := r.All()
	if len(occurrences) == 0 {
		return []RawEvent{base}
	}

	out := make([]RawEvent, 0, len(occurrences))
	for _, t := range occurrences {
		ev := base
		ev.Date = civil.DateOf(t)
		ev.Categories = slices.Clone(base.Categories)
		out = append(out, ev)
	}
	return out
}
