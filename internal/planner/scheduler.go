package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs the rebalancer every day at 05:00.
const DefaultSpec = "0 0 5 * * *"

// Scheduler runs the rebalancer on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	rebalancer *Rebalancer
	spec       string
	entry      cron.EntryID
	logger     *zap.Logger

	mu      sync.Mutex
	lastRun *RunResult
}

// NewScheduler creates a scheduler for spec, a six-field cron expression
// with seconds. An empty spec selects DefaultSpec.
func NewScheduler(r *Rebalancer, spec string, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		rebalancer: r,
		spec:       spec,
		logger:     logger,
	}

	entry, err := s.cron.AddFunc(spec, func() {
		if _, err := s.TriggerNow(context.Background()); err != nil {
			s.logger.Warn("scheduled rebalance", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parsing rebalance schedule %q: %w", spec, err)
	}
	s.entry = entry

	return s, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("rebalance scheduler started", zap.String("spec", s.spec), zap.Time("next_run", s.NextRun()))
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("rebalance scheduler stopped")
}

// Run starts the scheduler and stops it when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// TriggerNow runs the rebalancer immediately for the current date.
func (s *Scheduler) TriggerNow(ctx context.Context) (*RunResult, error) {
	res, err := s.rebalancer.Run(ctx, s.rebalancer.Today())

	s.mu.Lock()
	s.lastRun = res
	s.mu.Unlock()

	return res, err
}

// LastRun returns the result of the most recent run, or nil.
func (s *Scheduler) LastRun() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// NextRun returns the next scheduled run time. It is zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entry).Next
}
