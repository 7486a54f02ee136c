package schedule

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

// Save creates or replaces an event in the store that owns it. An empty ID
// is assigned a new one. The stored event is returned.
func (a *Aggregator) Save(ctx context.Context, ev unified.Event) (unified.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Source == "" {
		ev.Source = unified.SourceTask
	}

	var err error
	switch ev.Source {
	case unified.SourceClass:
		err = a.saveClassEvent(ctx, ev)
	default:
		err = a.saveTaskEvent(ctx, ev)
	}
	if err != nil {
		return unified.Event{}, err
	}

	if saved, ok := a.EventByID(ev.ID); ok {
		return saved, nil
	}
	return ev, nil
}

// Update replaces an existing event. It returns ErrNotFound for unknown ids.
func (a *Aggregator) Update(ctx context.Context, ev unified.Event) (unified.Event, error) {
	current, ok := a.EventByID(ev.ID)
	if !ok {
		return unified.Event{}, fmt.Errorf("%s: %w", ev.ID, ErrNotFound)
	}
	ev.Source = current.Source
	return a.Save(ctx, ev)
}

// Delete removes an event from its store.
func (a *Aggregator) Delete(ctx context.Context, id string) error {
	ev, ok := a.EventByID(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	if ev.Source == unified.SourceClass {
		a.classMu.Lock()
		defer a.classMu.Unlock()
		if err := a.classes.DeleteClass(ctx, id); err != nil {
			return fmt.Errorf("deleting class %s: %w", id, err)
		}
		return a.reloadClassesLocked(ctx)
	}

	a.taskMu.Lock()
	defer a.taskMu.Unlock()
	if err := a.tasks.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return a.reloadTasksLocked(ctx)
}

// MoveEventDate moves an event to date. It returns false when no event has
// the id.
func (a *Aggregator) MoveEventDate(ctx context.Context, id string, date civil.Date) (bool, error) {
	ev, ok := a.EventByID(id)
	if !ok {
		return false, nil
	}

	if ev.Source == unified.SourceClass {
		c, ok := a.mapper.EventToClass(ev)
		if !ok {
			return true, fmt.Errorf("%s: %w", id, ErrNotConvertible)
		}
		c.Date = &date
		a.classMu.Lock()
		defer a.classMu.Unlock()
		if err := a.classes.SaveClass(ctx, &c); err != nil {
			return true, fmt.Errorf("moving class %s: %w", id, err)
		}
		return true, a.reloadClassesLocked(ctx)
	}

	a.taskMu.Lock()
	defer a.taskMu.Unlock()

	t, err := a.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return true, fmt.Errorf("loading task %s: %w", id, err)
	}
	if t == nil {
		// gone from the store since the last snapshot
		return false, a.reloadTasksLocked(ctx)
	}
	t.Date = date
	if t.KindHint == "" {
		t.KindHint = string(ev.Kind)
	}
	if err := a.tasks.SaveTask(ctx, t); err != nil {
		return true, fmt.Errorf("moving task %s: %w", id, err)
	}

	a.logger.Debug("event moved",
		zap.String("id", id),
		zap.String("from", ev.Date.String()),
		zap.String("to", date.String()),
	)
	return true, a.reloadTasksLocked(ctx)
}

// SetAttendance records whether a class was attended on date.
func (a *Aggregator) SetAttendance(ctx context.Context, classID string, date civil.Date, attended bool) error {
	a.classMu.Lock()
	defer a.classMu.Unlock()

	if err := a.classes.RecordAttendance(ctx, classID, date, attended); err != nil {
		return fmt.Errorf("recording attendance for %s: %w", classID, err)
	}
	return a.reloadClassesLocked(ctx)
}

// SaveClass writes a class record directly, keeping fields the unified view
// does not carry, such as the occurrence date.
func (a *Aggregator) SaveClass(ctx context.Context, c *models.Class) error {
	a.classMu.Lock()
	defer a.classMu.Unlock()

	if err := a.classes.SaveClass(ctx, c); err != nil {
		return fmt.Errorf("saving class %s: %w", c.ID, err)
	}
	return a.reloadClassesLocked(ctx)
}

// ImportEvents writes a batch of events. Task-sourced events are written
// in one call to the task store.
func (a *Aggregator) ImportEvents(ctx context.Context, events []unified.Event) error {
	var (
		tasks   []*models.Task
		classes []models.Class
	)
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.Source == unified.SourceClass {
			c, ok := a.mapper.EventToClass(ev)
			if !ok {
				return fmt.Errorf("%s: %w", ev.ID, ErrNotConvertible)
			}
			classes = append(classes, c)
			continue
		}
		t := a.mapper.EventToTask(ev)
		tasks = append(tasks, &t)
	}

	if len(tasks) > 0 {
		a.taskMu.Lock()
		err := a.tasks.SaveTasks(ctx, tasks)
		if err == nil {
			err = a.reloadTasksLocked(ctx)
		}
		a.taskMu.Unlock()
		if err != nil {
			return fmt.Errorf("importing tasks: %w", err)
		}
	}

	if len(classes) > 0 {
		a.classMu.Lock()
		defer a.classMu.Unlock()
		for i := range classes {
			if err := a.classes.SaveClass(ctx, &classes[i]); err != nil {
				return fmt.Errorf("importing class %s: %w", classes[i].ID, err)
			}
		}
		return a.reloadClassesLocked(ctx)
	}

	return nil
}

func (a *Aggregator) saveTaskEvent(ctx context.Context, ev unified.Event) error {
	a.taskMu.Lock()
	defer a.taskMu.Unlock()

	existing, err := a.tasks.GetTaskByID(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("loading task %s: %w", ev.ID, err)
	}

	t := a.mapper.EventToTask(ev)
	if existing != nil {
		t.CreatedAt = existing.CreatedAt
		// Keep the stored type while it still yields the same kind.
		alt := t
		alt.Type = existing.Type
		if a.mapper.TaskToEvent(alt).Kind == ev.Kind {
			t.Type = existing.Type
		}
		if ev.Priority == unified.PriorityNone {
			t.Priority = existing.Priority
		}
	}

	if err := a.tasks.SaveTask(ctx, &t); err != nil {
		return fmt.Errorf("saving task %s: %w", ev.ID, err)
	}
	return a.reloadTasksLocked(ctx)
}

func (a *Aggregator) saveClassEvent(ctx context.Context, ev unified.Event) error {
	c, ok := a.mapper.EventToClass(ev)
	if !ok {
		return fmt.Errorf("%s: %w", ev.ID, ErrNotConvertible)
	}

	a.classMu.Lock()
	defer a.classMu.Unlock()

	if err := a.classes.SaveClass(ctx, &c); err != nil {
		return fmt.Errorf("saving class %s: %w", ev.ID, err)
	}

	current, known := a.EventByID(ev.ID)
	if known && current.Completed != ev.Completed {
		if err := a.classes.RecordAttendance(ctx, ev.ID, a.Today(), ev.Completed); err != nil {
			return fmt.Errorf("recording attendance for %s: %w", ev.ID, err)
		}
	}
	return a.reloadClassesLocked(ctx)
}
