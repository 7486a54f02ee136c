package mapper

import (
	"strings"

	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/ical"
	"github.com/EduMonSwent/EduMon-sub001/internal/keywords"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// IsExamEntry reports whether the entry's categories mark it as an exam.
func (m *Mapper) IsExamEntry(raw ical.RawEvent) bool {
	return m.kw.IsExamTags(raw.Categories)
}

// IsHolidayEntry reports whether an all-day entry is a holiday, judged by its
// categories and title.
func (m *Mapper) IsHolidayEntry(raw ical.RawEvent) bool {
	if !raw.AllDay() {
		return false
	}
	return m.kw.IsHolidayTags(raw.Categories) || m.kw.IsHoliday(raw.Title)
}

// ExamKind picks the exam kind from category tags.
func (m *Mapper) ExamKind(categories []string) unified.Kind {
	if m.kw.MatchAny(keywords.CategoryMidterm, categories) {
		return unified.KindExamMidterm
	}
	return unified.KindExamFinal
}

// RawToExam maps a calendar entry to an exam event with a stable id.
func (m *Mapper) RawToExam(raw ical.RawEvent) unified.Event {
	ev := unified.Event{
		ID:          unified.ExamID(raw.Title, raw.Date),
		Title:       raw.Title,
		Date:        raw.Date,
		Time:        copyTime(raw.Start),
		Kind:        m.ExamKind(raw.Categories),
		Priority:    unified.PriorityHigh,
		Source:      unified.SourceTask,
		Location:    raw.Location,
		Description: raw.Description,
		Categories:  cloneStrings(raw.Categories),
	}
	if d, ok := raw.DurationMinutes(); ok {
		ev.DurationMinutes = intPtr(d)
	}
	return ev
}

// RawToHoliday maps a calendar entry to an all-day association activity.
func (m *Mapper) RawToHoliday(raw ical.RawEvent, id string) unified.Event {
	return unified.Event{
		ID:          id,
		Title:       raw.Title,
		Date:        raw.Date,
		Kind:        unified.KindActivityAssociation,
		Priority:    unified.PriorityMedium,
		Source:      unified.SourceTask,
		Location:    raw.Location,
		Description: raw.Description,
		Categories:  cloneStrings(raw.Categories),
	}
}

// ClassType picks a class type from category tags and a title:
// exercise, then lab, then project, then lecture.
func (m *Mapper) ClassType(categories []string, title string) models.ClassType {
	tags := append(cloneStrings(categories), title)
	switch {
	case m.kw.MatchAny(keywords.CategoryExercise, tags):
		return models.ClassTypeExercise
	case m.kw.MatchAny(keywords.CategoryLab, tags):
		return models.ClassTypeLab
	case m.kw.MatchAny(keywords.CategoryProject, tags):
		return models.ClassTypeProject
	}
	return models.ClassTypeLecture
}

// RawToClass maps a calendar entry to a class record. The id is left empty
// for the store to assign.
func (m *Mapper) RawToClass(raw ical.RawEvent) models.Class {
	var start civil.Time
	if raw.Start != nil {
		start = *raw.Start
	}
	end := start
	if raw.End != nil {
		end = *raw.End
	}
	date := raw.Date

	return models.Class{
		Name:       raw.Title,
		Type:       m.ClassType(raw.Categories, raw.Title),
		StartTime:  start,
		EndTime:    end,
		Location:   raw.Location,
		Instructor: strings.TrimSpace(raw.Description),
		Date:       &date,
	}
}

func copyTime(t *civil.Time) *civil.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
