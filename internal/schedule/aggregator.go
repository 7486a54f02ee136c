// Package schedule merges tasks and classes into one ordered schedule.
//
// The Aggregator follows both stores and republishes an immutable snapshot
// after every change. Readers always see a complete, sorted list. Writes
// are routed back to the store that owns the event.
package schedule

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/mapper"
	"github.com/EduMonSwent/EduMon-sub001/internal/notify"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

var (
	// ErrNotFound is returned when no event has the requested id.
	ErrNotFound = errors.New("event not found")
	// ErrNotConvertible is returned when a class-sourced event has no
	// class kind and cannot be written back.
	ErrNotConvertible = errors.New("event not convertible to its source")
)

// TaskStore is the persistence port for tasks.
type TaskStore interface {
	SaveTask(ctx context.Context, t *models.Task) error
	SaveTasks(ctx context.Context, tasks []*models.Task) error
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	Subscribe() (<-chan struct{}, func())
}

// ClassStore is the persistence port for classes.
type ClassStore interface {
	SaveClass(ctx context.Context, c *models.Class) error
	DeleteClass(ctx context.Context, id string) error
	ListClasses(ctx context.Context) ([]models.ClassWithAttendance, error)
	RecordAttendance(ctx context.Context, classID string, date civil.Date, attended bool) error
	Subscribe() (<-chan struct{}, func())
}

// Snapshot is one published state of the schedule. It must not be modified.
type Snapshot struct {
	Version uint64          `json:"version"`
	Events  []unified.Event `json:"events"`
	At      time.Time       `json:"at"`

	// day is the date class events were anchored to.
	day civil.Date
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the time source used to decide "today".
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLocation sets the time zone used to decide "today".
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// Aggregator is the single read model over tasks and classes.
type Aggregator struct {
	tasks   TaskStore
	classes ClassStore
	mapper  *mapper.Mapper
	logger  *zap.Logger
	now     func() time.Time
	loc     *time.Location

	// taskMu and classMu serialize writes and reloads per source.
	taskMu  sync.Mutex
	classMu sync.Mutex

	stateMu     sync.Mutex
	taskEvents  []unified.Event
	classRecs   []models.ClassWithAttendance
	version     uint64
	snapshot    atomic.Pointer[Snapshot]
	subscribers *notify.Notifier
}

// New creates an aggregator. Call Start or Refresh to load the stores.
func New(tasks TaskStore, classes ClassStore, m *mapper.Mapper, opts ...Option) *Aggregator {
	if m == nil {
		m = mapper.New(nil)
	}
	a := &Aggregator{
		tasks:       tasks,
		classes:     classes,
		mapper:      m,
		logger:      zap.NewNop(),
		now:         time.Now,
		loc:         time.Local,
		subscribers: notify.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.snapshot.Store(&Snapshot{})
	return a
}

// Today returns the current date in the aggregator's time zone.
func (a *Aggregator) Today() civil.Date {
	return civil.DateOf(a.now().In(a.loc))
}

// Start loads both sources and follows their change signals until ctx is
// done.
func (a *Aggregator) Start(ctx context.Context) error {
	taskCh, cancelTasks := a.tasks.Subscribe()
	defer cancelTasks()
	classCh, cancelClasses := a.classes.Subscribe()
	defer cancelClasses()

	if err := a.Refresh(ctx); err != nil {
		return err
	}

	midnight := time.NewTimer(a.untilMidnight())
	defer midnight.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-midnight.C:
			a.Snapshot()
			midnight.Reset(a.untilMidnight())
		case <-taskCh:
			if err := a.reloadTasks(ctx); err != nil {
				a.logger.Error("reloading tasks", zap.Error(err))
			}
		case <-classCh:
			if err := a.reloadClasses(ctx); err != nil {
				a.logger.Error("reloading classes", zap.Error(err))
			}
		}
	}
}

// Refresh reloads both sources and publishes a new snapshot.
func (a *Aggregator) Refresh(ctx context.Context) error {
	if err := a.reloadTasks(ctx); err != nil {
		return err
	}
	return a.reloadClasses(ctx)
}

// untilMidnight returns the wait until the next day starts, plus a second
// of slack so the timer never fires on the old day.
func (a *Aggregator) untilMidnight() time.Duration {
	now := a.now().In(a.loc)
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, a.loc)
	return next.Sub(now) + time.Second
}

// Subscribe returns a channel signalled after each new snapshot.
func (a *Aggregator) Subscribe() (<-chan struct{}, func()) {
	return a.subscribers.Subscribe()
}

func (a *Aggregator) reloadTasks(ctx context.Context) error {
	a.taskMu.Lock()
	defer a.taskMu.Unlock()
	return a.reloadTasksLocked(ctx)
}

func (a *Aggregator) reloadTasksLocked(ctx context.Context) error {
	tasks, err := a.tasks.ListTasks(ctx)
	if err != nil {
		return err
	}

	events := make([]unified.Event, 0, len(tasks))
	for _, t := range tasks {
		events = append(events, a.mapper.TaskToEvent(t))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })

	a.stateMu.Lock()
	a.taskEvents = events
	a.publishLocked()
	a.stateMu.Unlock()

	a.subscribers.Notify()
	return nil
}

func (a *Aggregator) reloadClasses(ctx context.Context) error {
	a.classMu.Lock()
	defer a.classMu.Unlock()
	return a.reloadClassesLocked(ctx)
}

func (a *Aggregator) reloadClassesLocked(ctx context.Context) error {
	classes, err := a.classes.ListClasses(ctx)
	if err != nil {
		return err
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })

	a.stateMu.Lock()
	a.classRecs = classes
	a.publishLocked()
	a.stateMu.Unlock()

	a.subscribers.Notify()
	return nil
}

// publishLocked merges both sources and stores a new snapshot.
// Callers hold stateMu.
func (a *Aggregator) publishLocked() {
	today := a.Today()

	merged := make([]unified.Event, 0, len(a.taskEvents)+len(a.classRecs))
	merged = append(merged, a.taskEvents...)
	for _, c := range a.classRecs {
		merged = append(merged, a.mapper.ClassToEvent(c, today))
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return unified.Compare(merged[i], merged[j]) < 0
	})

	a.version++
	a.snapshot.Store(&Snapshot{
		Version: a.version,
		Events:  merged,
		At:      a.now(),
		day:     today,
	})
}

// rollover republishes the cached state when the published snapshot was
// anchored to another day, so classes move to the current date.
func (a *Aggregator) rollover() *Snapshot {
	a.stateMu.Lock()
	snap := a.snapshot.Load()
	if snap.day == a.Today() {
		a.stateMu.Unlock()
		return snap
	}
	a.publishLocked()
	snap = a.snapshot.Load()
	a.stateMu.Unlock()

	a.logger.Debug("schedule re-anchored", zap.String("today", snap.day.String()))
	a.subscribers.Notify()
	return snap
}
