package dto

import (
	"time"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

// CreateTicketNoteRequest payload.
type CreateTicketNoteRequest struct {
	TicketID int64  `json:"ticket_id" validate:"required,gt=0"`
	Body     string `json:"body" validate:"required,notblank,max=4000"`
}

// TicketNoteResponse represents a note on the wire.
type TicketNoteResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	Body      string    `json:"body"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTicketNoteResponse(note *domain.TicketNote) TicketNoteResponse {
	return TicketNoteResponse{
		ID:        note.ID,
		TicketID:  note.TicketID,
		Body:      note.Body,
		UserID:    note.UserID,
		Username:  note.Username,
		CreatedAt: note.CreatedAt,
	}
}

func NewTicketNoteList(notes []domain.TicketNote) []TicketNoteResponse {
	items := make([]TicketNoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, NewTicketNoteResponse(&notes[i]))
	}
	return items
}
