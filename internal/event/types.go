package event

import (
	"time"

	"dramadl/internal/model"
)

// EventType represents the type of event
type EventType string

const (
	// Task lifecycle events
	TaskAdded     EventType = "task.added"
	TaskStarted   EventType = "task.started"
	TaskProgress  EventType = "task.progress"
	TaskPaused    EventType = "task.paused"
	TaskCompleted EventType = "task.completed"
	TaskFailed    EventType = "task.failed"

	// Batch events
	BatchCompleted EventType = "batch.completed"
)

// Event is the unified event envelope published on the bus.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// ProgressPayload is the high-frequency per-task progress update.
type ProgressPayload struct {
	ID         string  `json:"id"`
	Progress   float64 `json:"progress"`
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"`
	Speed      float64 `json:"speed"`
}

// FailurePayload carries a task failure message.
type FailurePayload struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// TaskPayload carries a full task snapshot, used for added, started and
// completed events.
type TaskPayload struct {
	Task model.TaskSnapshot `json:"task"`
}

// IDPayload carries only an id, used for paused and batch events.
type IDPayload struct {
	ID string `json:"id"`
}

// New builds an event stamped with the current time.
func New(t EventType, data any) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}
