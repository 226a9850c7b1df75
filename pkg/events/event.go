package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation most events embed.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeTurnCompleted = "TURN_COMPLETED"
	TypeSessionSwept  = "SESSION_SWEPT"
)

// NewTurnCompleted builds the event published after a successful advisory
// turn. Downstream consumers use it for analytics and category usage
// counters.
func NewTurnCompleted(sessionID string, category string, confidence float64, degraded bool, generationCalls int, totalMs int64) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":       sessionID,
			"category":         category,
			"confidence":       confidence,
			"degraded":         degraded,
			"generation_calls": generationCalls,
			"total_ms":         totalMs,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionSwept is published when the idle sweeper removes sessions.
func NewSessionSwept(removed int) Event {
	return BaseEvent{
		Type: TypeSessionSwept,
		Data: map[string]interface{}{
			"removed": removed,
		},
		OccurredAt: time.Now(),
	}
}
