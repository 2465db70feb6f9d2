package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketNoteAdded     EventType = "ticket_note_added"
)

// Actor identifies the user that caused an event.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID int64, actor *domain.User, payload interface{}) Event {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = Actor{UserID: actor.ID, Username: actor.Username}
	}
	return event
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title  string              `json:"title"`
	Status domain.TicketStatus `json:"status"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	NoteID      int64  `json:"note_id"`
	BodyPreview string `json:"body_preview"`
}
