// Package calendar imports external calendar files into the schedule.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/ical"
	"github.com/EduMonSwent/EduMon-sub001/internal/mapper"
	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
	"github.com/EduMonSwent/EduMon-sub001/internal/websocket"
)

// Schedule is the write side of the aggregated schedule used by imports.
type Schedule interface {
	Events() []unified.Event
	Delete(ctx context.Context, id string) error
	ImportEvents(ctx context.Context, events []unified.Event) error
	SaveClass(ctx context.Context, c *models.Class) error
}

// RunLog records import attempts.
type RunLog interface {
	Start(ctx context.Context, kind models.ImportKind, source string) (*models.ImportRun, error)
	Finish(ctx context.Context, run *models.ImportRun, runErr error) error
}

// Deps are the collaborators of an Importer. Runs, Broadcaster and Logger
// are optional.
type Deps struct {
	Schedule    Schedule
	Runs        RunLog
	Parser      *ical.Parser
	Mapper      *mapper.Mapper
	Broadcaster *websocket.EventBroadcaster
	Logger      *zap.Logger
}

// Importer runs the exam, holiday and class ingestion pipelines.
type Importer struct {
	schedule    Schedule
	runs        RunLog
	parser      *ical.Parser
	mapper      *mapper.Mapper
	broadcaster *websocket.EventBroadcaster
	logger      *zap.Logger

	// examMu keeps exam replacements from interleaving.
	examMu sync.Mutex
}

// NewImporter creates an importer.
func NewImporter(d Deps) *Importer {
	imp := &Importer{
		schedule:    d.Schedule,
		runs:        d.Runs,
		parser:      d.Parser,
		mapper:      d.Mapper,
		broadcaster: d.Broadcaster,
		logger:      d.Logger,
	}
	if imp.parser == nil {
		imp.parser = ical.NewParser(30 * time.Second)
	}
	if imp.mapper == nil {
		imp.mapper = mapper.New(nil)
	}
	if imp.logger == nil {
		imp.logger = zap.NewNop()
	}
	return imp
}

// Import dispatches r to the pipeline for kind.
func (imp *Importer) Import(ctx context.Context, kind models.ImportKind, r io.Reader, source string) (*models.ImportResult, error) {
	switch kind {
	case models.ImportKindExams:
		return imp.ImportExams(ctx, r, source)
	case models.ImportKindHolidays:
		return imp.ImportHolidays(ctx, r, source)
	case models.ImportKindClasses:
		return imp.ImportClasses(ctx, r, source)
	}
	return nil, fmt.Errorf("unknown import kind %q", kind)
}

// ImportExams replaces every exam in the schedule with the exams found in r.
// Deletions are not rolled back if a later step fails. An exam that is
// already gone when its turn comes is skipped.
func (imp *Importer) ImportExams(ctx context.Context, r io.Reader, source string) (*models.ImportResult, error) {
	imp.examMu.Lock()
	defer imp.examMu.Unlock()

	return imp.run(ctx, models.ImportKindExams, source, func(res *models.ImportResult) error {
		for _, ev := range imp.schedule.Events() {
			if !ev.Kind.IsExam() {
				continue
			}
			err := imp.schedule.Delete(ctx, ev.ID)
			if errors.Is(err, schedule.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("deleting exam %s: %w", ev.ID, err)
			}
			res.EventsDeleted++
		}

		raws, parseErr := imp.parser.Parse(r)
		res.EventsParsed = len(raws)

		var exams []unified.Event
		for _, raw := range raws {
			if imp.mapper.IsExamEntry(raw) {
				exams = append(exams, imp.mapper.RawToExam(raw))
			}
		}
		if err := imp.write(ctx, res, exams); err != nil {
			return err
		}
		return parseErr
	})
}

// ImportHolidays adds the all-day holidays found in r. Earlier holiday
// imports are kept.
func (imp *Importer) ImportHolidays(ctx context.Context, r io.Reader, source string) (*models.ImportResult, error) {
	return imp.run(ctx, models.ImportKindHolidays, source, func(res *models.ImportResult) error {
		raws, parseErr := imp.parser.Parse(r)
		res.EventsParsed = len(raws)

		var holidays []unified.Event
		for _, raw := range raws {
			if imp.mapper.IsHolidayEntry(raw) {
				holidays = append(holidays, imp.mapper.RawToHoliday(raw, uuid.NewString()))
			}
		}
		if err := imp.write(ctx, res, holidays); err != nil {
			return err
		}
		return parseErr
	})
}

// ImportClasses saves one class per non-exam occurrence found in r.
func (imp *Importer) ImportClasses(ctx context.Context, r io.Reader, source string) (*models.ImportResult, error) {
	return imp.run(ctx, models.ImportKindClasses, source, func(res *models.ImportResult) error {
		raws, parseErr := imp.parser.Parse(r)
		res.EventsParsed = len(raws)

		for _, raw := range raws {
			if imp.mapper.IsExamEntry(raw) {
				continue
			}
			class := imp.mapper.RawToClass(raw)
			if err := imp.schedule.SaveClass(ctx, &class); err != nil {
				return fmt.Errorf("saving class %q: %w", class.Name, err)
			}
			res.EventsWritten++
		}
		return parseErr
	})
}

func (imp *Importer) write(ctx context.Context, res *models.ImportResult, events []unified.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := imp.schedule.ImportEvents(ctx, events); err != nil {
		return fmt.Errorf("writing %d events: %w", len(events), err)
	}
	res.EventsWritten = len(events)
	return nil
}

// run wraps a pipeline with its run log, log line and broadcast.
func (imp *Importer) run(ctx context.Context, kind models.ImportKind, source string, fn func(*models.ImportResult) error) (*models.ImportResult, error) {
	res := &models.ImportResult{
		Kind:       kind,
		Source:     source,
		ImportedAt: time.Now().UTC(),
	}

	var run *models.ImportRun
	if imp.runs != nil {
		var err error
		if run, err = imp.runs.Start(ctx, kind, source); err != nil {
			return nil, fmt.Errorf("starting import run: %w", err)
		}
		res.RunID = run.ID
	}

	err := fn(res)
	res.Error = err

	if run == nil {
		run = &models.ImportRun{Kind: kind, Source: source, StartedAt: res.ImportedAt}
	}
	run.Status = models.ImportStatusSuccess
	if err != nil {
		msg := err.Error()
		run.Status = models.ImportStatusError
		run.Error = &msg
	}
	run.EventsParsed = res.EventsParsed
	run.EventsWritten = res.EventsWritten
	run.EventsDeleted = res.EventsDeleted

	if imp.runs != nil {
		if finishErr := imp.runs.Finish(ctx, run, err); finishErr != nil {
			imp.logger.Error("finishing import run", zap.String("run_id", run.ID), zap.Error(finishErr))
		}
	}

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("source", source),
		zap.Int("parsed", res.EventsParsed),
		zap.Int("written", res.EventsWritten),
		zap.Int("deleted", res.EventsDeleted),
	}
	if err != nil {
		imp.logger.Error("import failed", append(fields, zap.Error(err))...)
	} else {
		imp.logger.Info("import completed", fields...)
	}
	imp.broadcaster.BroadcastImport(run)

	if err != nil {
		return res, fmt.Errorf("importing %s: %w", kind, err)
	}
	return res, nil
}
