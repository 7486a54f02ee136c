package mapper

import (
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// TaskToEvent converts a task into its unified view.
//
// Study tasks map to STUDY. Work and personal tasks are reclassified from
// their title and description unless KindHint names a kind valid for the
// task type. Personal tasks never carry a priority.
func (m *Mapper) TaskToEvent(t models.Task) unified.Event {
	ev := unified.Event{
		ID:          t.ID,
		Title:       t.Title,
		Date:        t.Date,
		Time:        t.Time,
		Completed:   t.Completed,
		Source:      unified.SourceTask,
		Location:    t.Location,
		Description: t.Description,
		CourseCode:  t.CourseCode,
		Categories:  cloneStrings(t.Categories),
		Priority:    toUnifiedPriority(string(models.NormalizePriority(t.Priority))),
	}
	if t.DurationMinutes != nil {
		ev.DurationMinutes = intPtr(*t.DurationMinutes)
	}

	hint := unified.Kind(t.KindHint)
	text := t.Title + " " + t.Description

	switch models.NormalizeType(t.Type) {
	case models.TaskTypeWork:
		if hint.Valid() && hint.IsWorkload() && hint != unified.KindStudy {
			ev.Kind = hint
		} else {
			ev.Kind = m.ClassifyWork(text)
		}
	case models.TaskTypePersonal:
		if hint.IsActivity() {
			ev.Kind = hint
		} else {
			ev.Kind = m.ClassifyPersonal(text)
		}
		ev.Priority = unified.PriorityNone
	default:
		ev.Kind = unified.KindStudy
	}

	return ev
}

// EventToTask converts a unified event back into a task. Several kinds
// collapse onto the work type; activities become personal tasks with medium
// priority. The event kind is kept as the task's KindHint.
func (m *Mapper) EventToTask(ev unified.Event) models.Task {
	t := models.Task{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Date:        ev.Date,
		Time:        ev.Time,
		Completed:   ev.Completed,
		Location:    ev.Location,
		CourseCode:  ev.CourseCode,
		Categories:  cloneStrings(ev.Categories),
		KindHint:    string(ev.Kind),
	}
	if ev.DurationMinutes != nil {
		t.DurationMinutes = intPtr(*ev.DurationMinutes)
	}

	switch {
	case ev.Kind.IsActivity():
		t.Type = models.TaskTypePersonal
		t.Priority = models.TaskPriorityMedium
		return t
	case ev.Kind == unified.KindProject, ev.Kind.IsExam(), ev.Kind.IsSubmission():
		t.Type = models.TaskTypeWork
	default:
		t.Type = models.TaskTypeStudy
	}

	switch ev.Priority {
	case unified.PriorityLow:
		t.Priority = models.TaskPriorityLow
	case unified.PriorityHigh:
		t.Priority = models.TaskPriorityHigh
	default:
		t.Priority = models.TaskPriorityMedium
	}

	return t
}
