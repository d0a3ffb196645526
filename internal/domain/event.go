package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event-specific validation errors
var (
	// ErrEventActorEmpty is returned when an event has no acting identity.
	ErrEventActorEmpty = errors.New("event actor cannot be empty")

	// ErrEventActionEmpty is returned when an event has no action tag.
	ErrEventActionEmpty = errors.New("event action cannot be empty")
)

// EventAction tags an audit event with the transition or signal that
// caused it.
type EventAction string

// Audit actions. Every lifecycle transition and every fired reminder
// appends exactly one event with one of these tags.
const (
	EventActionCreate EventAction = "create"
	EventActionTake   EventAction = "take"
	EventActionSubmit EventAction = "submit"
	EventActionDrop   EventAction = "drop"
	EventActionDone   EventAction = "done"
	EventActionReturn EventAction = "return"
	EventActionExpire EventAction = "expire"
	EventActionRemind EventAction = "remind"
)

// SystemActorID is the acting identity recorded on events caused by the
// system itself (expiry sweep, reminder firings) rather than a user.
const SystemActorID int64 = -1

// Event is an append-only audit record. Events are never mutated or
// deleted once written.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	OccurredAt time.Time   `json:"occurred_at"`
	ActorID    int64       `json:"actor_id"`
	Action     EventAction `json:"action"`
	TaskID     *int64      `json:"task_id,omitempty"`
	Meta       string      `json:"meta,omitempty"`
}

// NewEvent creates a new audit event for the given actor and action.
// taskID may be nil for events not tied to a task.
func NewEvent(actorID int64, action EventAction, taskID *int64, meta string) (*Event, error) {
	event := &Event{
		ID:         uuid.New(),
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Action:     action,
		TaskID:     taskID,
		Meta:       meta,
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// Validate checks if the Event has valid data.
func (e *Event) Validate() error {
	if e.ActorID == 0 {
		return ErrEventActorEmpty
	}

	if e.Action == "" {
		return ErrEventActionEmpty
	}

	return nil
}
