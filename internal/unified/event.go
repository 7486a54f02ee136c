// Package unified defines the single cross-source representation of anything
// occupying a slot on the schedule.
package unified

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Kind is the tagged variant of a unified event.
type Kind string

const (
	KindStudy               Kind = "STUDY"
	KindProject             Kind = "PROJECT"
	KindExamMidterm         Kind = "EXAM_MIDTERM"
	KindExamFinal           Kind = "EXAM_FINAL"
	KindSubmissionProject   Kind = "SUBMISSION_PROJECT"
	KindSubmissionMilestone Kind = "SUBMISSION_MILESTONE"
	KindSubmissionWeekly    Kind = "SUBMISSION_WEEKLY"
	KindClassLecture        Kind = "CLASS_LECTURE"
	KindClassExercise       Kind = "CLASS_EXERCISE"
	KindClassLab            Kind = "CLASS_LAB"
	KindActivitySport       Kind = "ACTIVITY_SPORT"
	KindActivityAssociation Kind = "ACTIVITY_ASSOCIATION"
)

var validKinds = map[Kind]bool{
	KindStudy: true, KindProject: true,
	KindExamMidterm: true, KindExamFinal: true,
	KindSubmissionProject: true, KindSubmissionMilestone: true, KindSubmissionWeekly: true,
	KindClassLecture: true, KindClassExercise: true, KindClassLab: true,
	KindActivitySport: true, KindActivityAssociation: true,
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool { return validKinds[k] }

// IsExam reports whether k is a midterm or final exam.
func (k Kind) IsExam() bool {
	return k == KindExamMidterm || k == KindExamFinal
}

// IsSubmission reports whether k is a submission deadline.
func (k Kind) IsSubmission() bool {
	return k == KindSubmissionProject || k == KindSubmissionMilestone || k == KindSubmissionWeekly
}

// IsClass reports whether k is a class slot.
func (k Kind) IsClass() bool {
	return k == KindClassLecture || k == KindClassExercise || k == KindClassLab
}

// IsActivity reports whether k is a sport or association activity.
func (k Kind) IsActivity() bool {
	return k == KindActivitySport || k == KindActivityAssociation
}

// IsWorkload reports whether the planner may pull an event of this kind
// into an earlier week.
func (k Kind) IsWorkload() bool {
	return k == KindStudy || k == KindProject || k.IsExam() || k.IsSubmission()
}

// Priority is an ordered priority level. PriorityNone means absent.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

// String returns the upper-case priority name, or "" for PriorityNone.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	default:
		return ""
	}
}

// ParsePriority accepts LOW, MEDIUM or HIGH in any case; empty is PriorityNone.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return PriorityNone, nil
	case "LOW":
		return PriorityLow, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "HIGH":
		return PriorityHigh, nil
	}
	return PriorityNone, fmt.Errorf("unknown priority %q", s)
}

// MarshalText encodes p by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name, case-insensitively.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Source identifies the store that owns an event.
type Source string

const (
	SourceTask  Source = "task"
	SourceClass Source = "class"
)

// Event is a read-only view over a task or class record.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Date            civil.Date  `json:"date"`
	Time            *civil.Time `json:"time,omitempty"`
	DurationMinutes *int        `json:"duration_minutes,omitempty"`
	Kind            Kind        `json:"kind"`
	Priority        Priority    `json:"priority"`
	Completed       bool        `json:"completed"`
	Source          Source      `json:"source"`
	Location        string      `json:"location,omitempty"`
	Description     string      `json:"description,omitempty"`
	CourseCode      string      `json:"course_code,omitempty"`
	Categories      []string    `json:"categories,omitempty"`
}

// AllDay reports whether the event has no clock time.
func (e Event) AllDay() bool { return e.Time == nil }

// WithDate returns a copy of e moved to d.
func (e Event) WithDate(d civil.Date) Event {
	e.Date = d
	return e
}

// Compare orders events by date, then by time with all-day events first.
func Compare(a, b Event) int {
	if a.Date.Before(b.Date) {
		return -1
	}
	if a.Date.After(b.Date) {
		return 1
	}
	return compareClock(a.Time, b.Time, true)
}

// compareClock compares optional clock times. nilFirst selects where a
// missing time sorts.
func compareClock(a, b *civil.Time, nilFirst bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if nilFirst {
			return -1
		}
		return 1
	case b == nil:
		if nilFirst {
			return 1
		}
		return -1
	}
	am, bm := Minutes(*a), Minutes(*b)
	switch {
	case am < bm:
		return -1
	case am > bm:
		return 1
	}
	return 0
}

// CompareTimeNoneLast compares optional times with a missing time sorting
// after every concrete time.
func CompareTimeNoneLast(a, b *civil.Time) int {
	return compareClock(a, b, false)
}

// Minutes returns the minute of the day of t.
func Minutes(t civil.Time) int {
	return t.Hour*60 + t.Minute
}

// ExamID derives the idempotency key of an imported exam.
func ExamID(title string, date civil.Date) string {
	return "exam:" + title + ":" + date.String()
}
