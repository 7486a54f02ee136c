package models

import (
	"time"
)

// ImportKind selects an ingestion pipeline.
type ImportKind string

const (
	ImportKindExams    ImportKind = "exams"
	ImportKindHolidays ImportKind = "holidays"
	ImportKindClasses  ImportKind = "classes"
)

// Valid reports whether k names a known pipeline.
func (k ImportKind) Valid() bool {
	switch k {
	case ImportKindExams, ImportKindHolidays, ImportKindClasses:
		return true
	}
	return false
}

// ImportRun is the log entry of one import attempt.
type ImportRun struct {
	ID            string     `json:"id"`
	Kind          ImportKind `json:"kind"`
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	Error         *string    `json:"error,omitempty"`
	EventsParsed  int        `json:"events_parsed"`
	EventsWritten int        `json:"events_written"`
	EventsDeleted int        `json:"events_deleted"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Import status constants
const (
	ImportStatusRunning = "running"
	ImportStatusSuccess = "success"
	ImportStatusError   = "error"
)

// ImportResult contains the results of an import operation.
type ImportResult struct {
	RunID         string     `json:"run_id,omitempty"`
	Kind          ImportKind `json:"kind"`
	Source        string     `json:"source"`
	EventsParsed  int        `json:"events_parsed"`
	EventsWritten int        `json:"events_written"`
	EventsDeleted int        `json:"events_deleted"`
	Error         error      `json:"-"`
	ImportedAt    time.Time  `json:"imported_at"`
}
