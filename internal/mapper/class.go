package mapper

import (
	"strings"

	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

var classKinds = map[models.ClassType]unified.Kind{
	models.ClassTypeLecture:  unified.KindClassLecture,
	models.ClassTypeExercise: unified.KindClassExercise,
	models.ClassTypeLab:      unified.KindClassLab,
	models.ClassTypeProject:  unified.KindProject,
}

// ClassToEvent shows a class on today's schedule. Completed reflects today's
// attendance record.
func (m *Mapper) ClassToEvent(c models.ClassWithAttendance, today civil.Date) unified.Event {
	typ := models.NormalizeClassType(c.Type)
	start := c.StartTime

	ev := unified.Event{
		ID:          c.ID,
		Title:       c.Name,
		Date:        today,
		Time:        &start,
		Kind:        classKinds[typ],
		Completed:   c.AttendedOn(today),
		Source:      unified.SourceClass,
		Location:    c.Location,
		Description: m.describeClass(typ, c.Location, c.Instructor),
	}
	if d := unified.Minutes(c.EndTime) - unified.Minutes(c.StartTime); d > 0 {
		ev.DurationMinutes = intPtr(d)
	}
	return ev
}

func (m *Mapper) describeClass(typ models.ClassType, location, instructor string) string {
	s := m.kw.Strings()
	return s.ClassTypes[string(typ)] + " " + s.At + " " + location + " " + s.With + " " + instructor
}

// EventToClass converts a class-sourced event back into a class record.
// It returns false for task-sourced events and for kinds outside CLASS_*.
// The occurrence date is left unset.
func (m *Mapper) EventToClass(ev unified.Event) (models.Class, bool) {
	if ev.Source != unified.SourceClass {
		return models.Class{}, false
	}

	var typ models.ClassType
	switch ev.Kind {
	case unified.KindClassLecture:
		typ = models.ClassTypeLecture
	case unified.KindClassExercise:
		typ = models.ClassTypeExercise
	case unified.KindClassLab:
		typ = models.ClassTypeLab
	default:
		return models.Class{}, false
	}

	var start civil.Time
	if ev.Time != nil {
		start = *ev.Time
	}
	end := start
	if ev.DurationMinutes != nil && *ev.DurationMinutes > 0 {
		end = addMinutes(start, *ev.DurationMinutes)
	}

	return models.Class{
		ID:         ev.ID,
		Name:       ev.Title,
		Type:       typ,
		StartTime:  start,
		EndTime:    end,
		Location:   ev.Location,
		Instructor: m.instructorFrom(ev.Description),
	}, true
}

// instructorFrom returns the text after the last localized "with" token.
func (m *Mapper) instructorFrom(description string) string {
	s := m.kw.Strings()
	token := " " + strings.ToLower(s.With) + " "
	idx := strings.LastIndex(strings.ToLower(description), token)
	if idx < 0 {
		return s.UnknownInstructor
	}
	name := strings.TrimSpace(description[idx+len(token):])
	if name == "" {
		return s.UnknownInstructor
	}
	return name
}

// addMinutes adds n minutes to t, clamping at 23:59.
func addMinutes(t civil.Time, n int) civil.Time {
	total := unified.Minutes(t) + n
	if total > 23*60+59 {
		total = 23*60 + 59
	}
	return civil.Time{Hour: total / 60, Minute: total % 60}
}
