package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

// Server -> Client event types
const (
	TypeScheduleUpdated MessageType = "schedule.updated"
	TypeImportCompleted MessageType = "import.completed"
	TypeImportFailed    MessageType = "import.failed"
	TypePlanApplied     MessageType = "plan.applied"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ScheduleUpdatedPayload is the payload for schedule.updated events.
type ScheduleUpdatedPayload struct {
	Version uint64 `json:"version"`
	Events  int    `json:"events"`
}

// ImportPayload is the payload for import.completed and import.failed events.
type ImportPayload struct {
	RunID         string `json:"run_id"`
	Kind          string `json:"kind"`
	Source        string `json:"source"`
	Status        string `json:"status"`
	EventsParsed  int    `json:"events_parsed"`
	EventsWritten int    `json:"events_written"`
	EventsDeleted int    `json:"events_deleted"`
	Error         string `json:"error,omitempty"`
}

// PlanAppliedPayload is the payload for plan.applied events.
type PlanAppliedPayload struct {
	Today         string `json:"today"`
	MovedMissed   int    `json:"moved_missed"`
	PulledEarlier int    `json:"pulled_earlier"`
	Applied       int    `json:"applied"`
	Failed        int    `json:"failed"`
}
