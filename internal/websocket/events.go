package websocket

import (
	"context"

	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/schedule"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

// EventBroadcaster turns domain events into WebSocket messages.
// A nil *EventBroadcaster is valid and drops every event.
type EventBroadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, logger *zap.Logger) *EventBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBroadcaster{hub: hub, logger: logger}
}

// BroadcastScheduleUpdated announces a new schedule snapshot.
func (b *EventBroadcaster) BroadcastScheduleUpdated(snap *schedule.Snapshot) {
	if snap == nil {
		return
	}
	b.broadcast(NewMessage(TypeScheduleUpdated, ScheduleUpdatedPayload{
		Version: snap.Version,
		Events:  len(snap.Events),
	}))
}

// BroadcastImport announces a finished import run, as import.completed on
// success and import.failed otherwise.
func (b *EventBroadcaster) BroadcastImport(run *models.ImportRun) {
	if run == nil {
		return
	}
	payload := ImportPayload{
		RunID:         run.ID,
		Kind:          string(run.Kind),
		Source:        run.Source,
		Status:        run.Status,
		EventsParsed:  run.EventsParsed,
		EventsWritten: run.EventsWritten,
		EventsDeleted: run.EventsDeleted,
	}

	msgType := TypeImportCompleted
	if run.Status == models.ImportStatusError {
		msgType = TypeImportFailed
		if run.Error != nil {
			payload.Error = *run.Error
		}
	}
	b.broadcast(NewMessage(msgType, payload))
}

// BroadcastPlanApplied announces an applied weekly plan.
func (b *EventBroadcaster) BroadcastPlanApplied(payload PlanAppliedPayload) {
	b.broadcast(NewMessage(TypePlanApplied, payload))
}

// SnapshotSource publishes schedule snapshots.
type SnapshotSource interface {
	Subscribe() (<-chan struct{}, func())
	Snapshot() *schedule.Snapshot
}

// FollowSchedule broadcasts schedule.updated for every new snapshot until
// ctx is done.
func (b *EventBroadcaster) FollowSchedule(ctx context.Context, src SnapshotSource) {
	ch, cancel := src.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			b.BroadcastScheduleUpdated(src.Snapshot())
		}
	}
}

func (b *EventBroadcaster) broadcast(msg Message) {
	if b == nil || b.hub == nil {
		return
	}

	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encoding websocket message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	b.hub.Broadcast(data)
}
