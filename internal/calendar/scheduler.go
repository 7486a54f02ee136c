package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

// DefaultIntervalMinutes is used for subscriptions without an interval.
const DefaultIntervalMinutes = 60

// ErrNotReplaceable is returned for subscriptions whose pipeline does not
// replace earlier imports, since re-running it would add duplicates.
var ErrNotReplaceable = errors.New("only exam calendars can be re-imported periodically")

// Subscription is a calendar URL that is re-imported on an interval.
type Subscription struct {
	ID              string
	Kind            models.ImportKind
	URL             string
	IntervalMinutes int
}

// Scheduler manages periodic calendar re-imports.
type Scheduler struct {
	cron     *cron.Cron
	importer *Importer
	logger   *zap.Logger

	// Track jobs per subscription
	jobs   map[string]cron.EntryID
	subs   map[string]Subscription
	jobsMu sync.RWMutex
}

// NewScheduler creates a new subscription scheduler.
func NewScheduler(imp *Importer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		importer: imp,
		logger:   logger,
		jobs:     make(map[string]cron.EntryID),
		subs:     make(map[string]Subscription),
	}
}

// Schedule adds or replaces a subscription's job.
func (s *Scheduler) Schedule(sub Subscription) error {
	if sub.ID == "" {
		return errors.New("subscription id is empty")
	}
	if sub.Kind != models.ImportKindExams {
		return fmt.Errorf("subscription %s (%s): %w", sub.ID, sub.Kind, ErrNotReplaceable)
	}
	if !isURL(sub.URL) {
		return fmt.Errorf("subscription %s: %q is not an http(s) URL", sub.ID, sub.URL)
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if existingID, exists := s.jobs[sub.ID]; exists {
		s.cron.Remove(existingID)
		delete(s.jobs, sub.ID)
	}

	entryID, err := s.cron.AddFunc(minutesToCronSpec(sub.IntervalMinutes), func() {
		s.sync(context.Background(), sub)
	})
	if err != nil {
		return fmt.Errorf("scheduling subscription %s: %w", sub.ID, err)
	}

	s.jobs[sub.ID] = entryID
	s.subs[sub.ID] = sub
	s.logger.Info("subscription scheduled",
		zap.String("id", sub.ID),
		zap.String("kind", string(sub.Kind)),
		zap.String("spec", minutesToCronSpec(sub.IntervalMinutes)),
	)
	return nil
}

// Unschedule removes a subscription.
func (s *Scheduler) Unschedule(id string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if entryID, exists := s.jobs[id]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, id)
		delete(s.subs, id)
		s.logger.Info("subscription unscheduled", zap.String("id", id))
	}
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("subscription scheduler started", zap.Int("subscriptions", len(s.Scheduled())))
}

// Stop halts the scheduler and waits for a running import to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("subscription scheduler stopped")
}

// Run starts the scheduler, imports every subscription once, and stops
// when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	for _, id := range s.Scheduled() {
		if _, err := s.TriggerSync(ctx, id); err != nil && ctx.Err() != nil {
			break
		}
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// TriggerSync imports a subscription immediately.
func (s *Scheduler) TriggerSync(ctx context.Context, id string) (*models.ImportResult, error) {
	s.jobsMu.RLock()
	sub, ok := s.subs[id]
	s.jobsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown subscription %q", id)
	}
	return s.sync(ctx, sub)
}

func (s *Scheduler) sync(ctx context.Context, sub Subscription) (*models.ImportResult, error) {
	res, err := s.importer.ImportFromSource(ctx, sub.Kind, sub.URL)
	if err != nil {
		// the import run already logged the details
		s.logger.Warn("subscription sync failed", zap.String("id", sub.ID), zap.Error(err))
	}
	return res, err
}

// minutesToCronSpec converts an interval in minutes to a cron spec.
func minutesToCronSpec(minutes int) string {
	if minutes <= 0 {
		minutes = DefaultIntervalMinutes
	}
	return "@every " + (time.Duration(minutes) * time.Minute).String()
}

// Scheduled returns the ids of scheduled subscriptions in sorted order.
func (s *Scheduler) Scheduled() []string {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NextRun returns the next run time of a subscription, or nil when it is
// not scheduled or the scheduler has not started.
func (s *Scheduler) NextRun(id string) *time.Time {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	if entryID, exists := s.jobs[id]; exists {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			return &entry.Next
		}
	}
	return nil
}
