// Package mapper converts between source records and unified events.
//
// Every conversion is pure and deterministic. Conversions that are not
// defined for a given input return false instead of an error.
package mapper

import (
	"github.com/EduMonSwent/EduMon-sub001/internal/keywords"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// Mapper holds the keyword tables and display strings the conversions use.
type Mapper struct {
	kw *keywords.Classifier
}

// New creates a mapper. A nil classifier selects keywords.Default().
func New(kw *keywords.Classifier) *Mapper {
	if kw == nil {
		kw = keywords.Default()
	}
	return &Mapper{kw: kw}
}

// Classifier returns the keyword classifier in use.
func (m *Mapper) Classifier() *keywords.Classifier {
	return m.kw
}

// ClassifyWork picks the kind of a work task from its text, in strict
// precedence order, falling back to STUDY.
func (m *Mapper) ClassifyWork(text string) unified.Kind {
	kw := m.kw
	switch {
	case kw.Match(keywords.CategoryMidterm, text):
		return unified.KindExamMidterm
	case kw.Match(keywords.CategoryFinal, text) && kw.Match(keywords.CategoryExamWord, text),
		kw.Match(keywords.CategoryFinalExam, text):
		return unified.KindExamFinal
	case kw.Match(keywords.CategoryMilestone, text):
		return unified.KindSubmissionMilestone
	case kw.Match(keywords.CategoryWeekly, text):
		return unified.KindSubmissionWeekly
	case kw.Match(keywords.CategorySubmission, text):
		return unified.KindSubmissionProject
	case kw.Match(keywords.CategoryProject, text):
		return unified.KindProject
	}
	return unified.KindStudy
}

// ClassifyPersonal picks the activity kind of a personal task.
func (m *Mapper) ClassifyPersonal(text string) unified.Kind {
	if m.kw.Match(keywords.CategorySport, text) {
		return unified.KindActivitySport
	}
	return unified.KindActivityAssociation
}

func toUnifiedPriority(p string) unified.Priority {
	switch p {
	case "low":
		return unified.PriorityLow
	case "high":
		return unified.PriorityHigh
	case "medium":
		return unified.PriorityMedium
	}
	return unified.PriorityNone
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

func intPtr(v int) *int {
	return &v
}
