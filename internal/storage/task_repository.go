package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

const taskColumns = `id, title, description, type, priority, date, time, duration_minutes,
	completed, location, course_code, categories, kind_hint, created_at, updated_at`

// TaskRepository stores tasks.
type TaskRepository struct {
	BaseRepository
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// SaveTask inserts or replaces a task. An empty ID is assigned a new one.
func (r *TaskRepository) SaveTask(ctx context.Context, t *models.Task) error {
	if err := r.upsert(ctx, r.DB(), t); err != nil {
		return err
	}
	r.changed()
	return nil
}

// SaveTasks writes all tasks in one transaction.
func (r *TaskRepository) SaveTasks(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	err := r.Transaction(func(tx *sql.Tx) error {
		for _, t := range tasks {
			if err := r.upsert(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.changed()
	return nil
}

func (r *TaskRepository) upsert(ctx context.Context, q Queryable, t *models.Task) error {
	if t.ID == "" {
		t.ID = GenerateID()
	}
	now := r.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.Type = models.NormalizeType(t.Type)
	t.Priority = models.NormalizePriority(t.Priority)

	cats, err := categoriesColumn(t.Categories)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			type = excluded.type, priority = excluded.priority,
			date = excluded.date, time = excluded.time,
			duration_minutes = excluded.duration_minutes, completed = excluded.completed,
			location = excluded.location, course_code = excluded.course_code,
			categories = excluded.categories, kind_hint = excluded.kind_hint,
			updated_at = excluded.updated_at
	`,
		t.ID, t.Title, t.Description, t.Type, t.Priority, t.Date.String(),
		timeColumn(t.Time), intColumn(t.DurationMinutes), t.Completed,
		t.Location, t.CourseCode, cats, t.KindHint, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving task %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTask removes a task. Deleting a missing task is not an error.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		r.changed()
	}
	return nil
}

// GetTaskByID retrieves a task by its ID.
func (r *TaskRepository) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	row := r.DB().QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

// ListTasks retrieves all tasks ordered by date and time.
func (r *TaskRepository) ListTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		ORDER BY date, time IS NOT NULL, time, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}

	return tasks, rows.Err()
}

func scanTask(s rowScanner) (*models.Task, error) {
	var (
		t        models.Task
		date     string
		clock    sql.NullString
		duration sql.NullInt64
		cats     string
	)
	if err := s.Scan(
		&t.ID, &t.Title, &t.Description, &t.Type, &t.Priority, &date, &clock, &duration,
		&t.Completed, &t.Location, &t.CourseCode, &cats, &t.KindHint, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d, err := civil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", date, err)
	}
	t.Date = d

	if t.Time, err = parseTimeColumn(clock); err != nil {
		return nil, err
	}
	t.DurationMinutes = parseIntColumn(duration)
	if t.Categories, err = parseCategoriesColumn(cats); err != nil {
		return nil, err
	}
	return &t, nil
}
