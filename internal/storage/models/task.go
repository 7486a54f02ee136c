// Package models contains the source records owned by the stores.
package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// TaskType is the user-facing category of a manually created task.
type TaskType string

const (
	TaskTypeStudy    TaskType = "study"
	TaskTypeWork     TaskType = "work"
	TaskTypePersonal TaskType = "personal"
)

// TaskPriority is the stored priority of a task. Tasks always carry one.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task is a study, work or personal item on a given date.
type Task struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Type            TaskType     `json:"type"`
	Priority        TaskPriority `json:"priority"`
	Date            civil.Date   `json:"date"`
	Time            *civil.Time  `json:"time,omitempty"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
	Completed       bool         `json:"completed"`
	Location        string       `json:"location,omitempty"`
	CourseCode      string       `json:"course_code,omitempty"`
	Categories      []string     `json:"categories,omitempty"`
	// KindHint is the unified kind this task was last written from, if any.
	KindHint  string    `json:"kind_hint,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeType maps unknown values to study.
func NormalizeType(t TaskType) TaskType {
	switch t {
	case TaskTypeStudy, TaskTypeWork, TaskTypePersonal:
		return t
	}
	return TaskTypeStudy
}

// NormalizePriority maps unknown values to medium.
func NormalizePriority(p TaskPriority) TaskPriority {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return p
	}
	return TaskPriorityMedium
}
