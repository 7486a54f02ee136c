package unified

import (
	"time"

	"cloud.google.com/go/civil"
)

// Weekday returns the day of the week of d.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// WeekStart returns the Monday of the ISO week containing d.
func WeekStart(d civil.Date) civil.Date {
	offset := (int(Weekday(d)) + 6) % 7
	return d.AddDays(-offset)
}

// WeekEnd returns the Sunday of the ISO week containing d.
func WeekEnd(d civil.Date) civil.Date {
	return WeekStart(d).AddDays(6)
}

// InRange reports whether start <= d <= end.
func InRange(d, start, end civil.Date) bool {
	return !d.Before(start) && !d.After(end)
}
