package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/calendar"
	"github.com/EduMonSwent/EduMon-sub001/internal/config"
	"github.com/EduMonSwent/EduMon-sub001/internal/ical"
	"github.com/EduMonSwent/EduMon-sub001/internal/keywords"
	"github.com/EduMonSwent/EduMon-sub001/internal/mapper"
	"github.com/EduMonSwent/EduMon-sub001/internal/planner"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage"
	"github.com/EduMonSwent/EduMon-sub001/internal/websocket"
)

// app wires the stores, the aggregator and the services on top of it.
type app struct {
	db          *storage.DB
	schedule    *schedule.Aggregator
	runs        *storage.ImportRunRepository
	importer    *calendar.Importer
	rebalancer  *planner.Rebalancer
	hub         *websocket.Hub
	broadcaster *websocket.EventBroadcaster
}

func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	kw, err := keywords.Load(cfg.KeywordsFile, cfg.Locales)
	if err != nil {
		return nil, fmt.Errorf("loading keywords: %w", err)
	}
	m := mapper.New(kw)

	db, err := storage.NewDB(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	if err := storage.RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	a := &app{
		db:   db,
		runs: storage.NewImportRunRepository(db),
		hub:  websocket.NewHub(logger.Named("websocket")),
	}
	a.broadcaster = websocket.NewEventBroadcaster(a.hub, logger.Named("websocket"))

	a.schedule = schedule.New(storage.NewTaskRepository(db), storage.NewClassRepository(db), m,
		schedule.WithLogger(logger.Named("schedule")),
		schedule.WithLocation(loc),
	)
	if err := a.schedule.Refresh(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading schedule: %w", err)
	}

	a.importer = calendar.NewImporter(calendar.Deps{
		Schedule:    a.schedule,
		Runs:        a.runs,
		Parser:      ical.NewParser(cfg.FetchTimeout()),
		Mapper:      m,
		Broadcaster: a.broadcaster,
		Logger:      logger.Named("import"),
	})
	a.rebalancer = planner.NewRebalancer(a.schedule, a.broadcaster, logger.Named("planner"))

	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
