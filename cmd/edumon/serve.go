package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EduMonSwent/EduMon-sub001/internal/api"
	"github.com/EduMonSwent/EduMon-sub001/internal/calendar"
	"github.com/EduMonSwent/EduMon-sub001/internal/planner"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket feed and weekly rebalancer",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	sched, err := planner.NewScheduler(a.rebalancer, cfg.RebalanceCron, loc, logger.Named("planner"))
	if err != nil {
		return err
	}

	subs := calendar.NewScheduler(a.importer, logger.Named("subscriptions"))
	for _, sc := range cfg.Subscriptions {
		err := subs.Schedule(calendar.Subscription{
			ID:              sc.ID,
			Kind:            models.ImportKind(sc.Kind),
			URL:             sc.URL,
			IntervalMinutes: sc.IntervalMinutes,
		})
		if err != nil {
			logger.Warn("skipping subscription", zap.String("id", sc.ID), zap.Error(err))
		}
	}

	router := api.NewRouter(api.Services{
		DB:         a.db,
		Schedule:   a.schedule,
		Importer:   a.importer,
		Runs:       a.runs,
		Rebalancer: a.rebalancer,
		Scheduler:  sched,
		Hub:        a.hub,
		Logger:     logger.Named("http"),
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return a.schedule.Start(gctx)
	})
	g.Go(func() error {
		a.broadcaster.FollowSchedule(gctx, a.schedule)
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return subs.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", cfg.Listen), zap.String("version", version))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
