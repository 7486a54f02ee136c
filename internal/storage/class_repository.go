package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

const classColumns = `id, name, type, start_time, end_time, location, instructor, date, created_at, updated_at`

// ClassRepository stores classes and their attendance records.
type ClassRepository struct {
	BaseRepository
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *DB) *ClassRepository {
	return &ClassRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// SaveClass inserts or replaces a class. An empty ID is assigned a new one.
// A nil Date keeps the stored occurrence date.
func (r *ClassRepository) SaveClass(ctx context.Context, c *models.Class) error {
	if c.ID == "" {
		c.ID = GenerateID()
	}
	now := r.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Type = models.NormalizeClassType(c.Type)

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO classes (`+classColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type = excluded.type,
			start_time = excluded.start_time, end_time = excluded.end_time,
			location = excluded.location, instructor = excluded.instructor,
			date = COALESCE(excluded.date, classes.date),
			updated_at = excluded.updated_at
	`,
		c.ID, c.Name, c.Type, c.StartTime.String(), c.EndTime.String(),
		c.Location, c.Instructor, dateColumn(c.Date), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving class %s: %w", c.ID, err)
	}

	r.changed()
	return nil
}

// DeleteClass removes a class and its attendance records.
// Deleting a missing class is not an error.
func (r *ClassRepository) DeleteClass(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM classes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting class: %w", err)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		r.changed()
	}
	return nil
}

// GetClassByID retrieves a class with its attendance records.
func (r *ClassRepository) GetClassByID(ctx context.Context, id string) (*models.ClassWithAttendance, error) {
	row := r.DB().QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id)

	c, err := scanClass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying class: %w", err)
	}

	attendance, err := r.attendance(ctx, "WHERE class_id = ?", id)
	if err != nil {
		return nil, err
	}

	return &models.ClassWithAttendance{Class: *c, Attendance: attendance[id]}, nil
}

// ListClasses retrieves all classes with their attendance records.
func (r *ClassRepository) ListClasses(ctx context.Context) ([]models.ClassWithAttendance, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+classColumns+` FROM classes
		ORDER BY start_time, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying classes: %w", err)
	}
	defer rows.Close()

	var classes []models.ClassWithAttendance
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		classes = append(classes, models.ClassWithAttendance{Class: *c})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attendance, err := r.attendance(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range classes {
		classes[i].Attendance = attendance[classes[i].ID]
	}

	return classes, nil
}

// RecordAttendance sets the attendance of a class on a day.
// It returns ErrNotFound when the class does not exist.
func (r *ClassRepository) RecordAttendance(ctx context.Context, classID string, date civil.Date, attended bool) error {
	err := r.Transaction(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM classes WHERE id = ?", classID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("querying class: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("class %s: %w", classID, ErrNotFound)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO class_attendance (class_id, date, attended) VALUES (?, ?, ?)
			ON CONFLICT(class_id, date) DO UPDATE SET attended = excluded.attended
		`, classID, date.String(), attended)
		if err != nil {
			return fmt.Errorf("recording attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.changed()
	return nil
}

func (r *ClassRepository) attendance(ctx context.Context, where string, args ...any) (map[string][]models.Attendance, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT class_id, date, attended FROM class_attendance `+where+`
		ORDER BY class_id, date
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Attendance)
	for rows.Next() {
		var (
			a    models.Attendance
			date string
		)
		if err := rows.Scan(&a.ClassID, &date, &a.Attended); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		if a.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", date, err)
		}
		out[a.ClassID] = append(out[a.ClassID], a)
	}

	return out, rows.Err()
}

func scanClass(s rowScanner) (*models.Class, error) {
	var (
		c          models.Class
		start, end string
		date       sql.NullString
	)
	if err := s.Scan(
		&c.ID, &c.Name, &c.Type, &start, &end, &c.Location, &c.Instructor,
		&date, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if c.StartTime, err = civil.ParseTime(start); err != nil {
		return nil, fmt.Errorf("parsing start time %q: %w", start, err)
	}
	if c.EndTime, err = civil.ParseTime(end); err != nil {
		return nil, fmt.Errorf("parsing end time %q: %w", end, err)
	}
	if c.Date, err = parseDateColumn(date); err != nil {
		return nil, err
	}
	return &c, nil
}
