package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// ClassType is the teaching format of a class.
type ClassType string

const (
	ClassTypeLecture  ClassType = "lecture"
	ClassTypeExercise ClassType = "exercise"
	ClassTypeLab      ClassType = "lab"
	ClassTypeProject  ClassType = "project"
)

// NormalizeClassType maps unknown values to lecture.
func NormalizeClassType(t ClassType) ClassType {
	switch t {
	case ClassTypeLecture, ClassTypeExercise, ClassTypeLab, ClassTypeProject:
		return t
	}
	return ClassTypeLecture
}

// Class is a fixed-time teaching slot.
type Class struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       ClassType  `json:"type"`
	StartTime  civil.Time `json:"start_time"`
	EndTime    civil.Time `json:"end_time"`
	Location   string     `json:"location,omitempty"`
	Instructor string     `json:"instructor,omitempty"`
	// Date is the occurrence this record was imported from. It is kept for
	// reference only; the schedule shows classes on the current day.
	Date      *civil.Date `json:"date,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Attendance records whether the class was attended on a day.
type Attendance struct {
	ClassID  string     `json:"class_id"`
	Date     civil.Date `json:"date"`
	Attended bool       `json:"attended"`
}

// ClassWithAttendance combines a class with its attendance records.
type ClassWithAttendance struct {
	Class
	Attendance []Attendance `json:"attendance"`
}

// AttendedOn reports whether an attendance record marks d as attended.
func (c *ClassWithAttendance) AttendedOn(d civil.Date) bool {
	for _, a := range c.Attendance {
		if a.Date == d {
			return a.Attended
		}
	}
	return false
}
