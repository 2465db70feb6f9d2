package dto

import (
	"time"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"required,notblank,max=4000"`
}

// TicketResponse represents a ticket on the wire.
type TicketResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UserID      int64               `json:"user_id"`
	Username    string              `json:"username"`
}

// TicketHistoryEntry is one audit entry.
type TicketHistoryEntry struct {
	ID            int64                   `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	OldStatus     *domain.TicketStatus    `json:"old_status"`
	NewStatus     domain.TicketStatus     `json:"new_status"`
	ChangedByID   int64                   `json:"changed_by_id"`
	ChangedByName string                  `json:"changed_by_name"`
	CreatedAt     time.Time               `json:"created_at"`
}

// TicketHistoryResponse pairs the ticket with its history.
type TicketHistoryResponse struct {
	Ticket  TicketResponse       `json:"ticket"`
	History []TicketHistoryEntry `json:"history"`
}

func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		UserID:      ticket.UserID,
		Username:    ticket.Username,
	}
}

func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

func NewTicketHistoryResponse(ticket *domain.Ticket, entries []domain.TicketHistory) TicketHistoryResponse {
	history := make([]TicketHistoryEntry, 0, len(entries))
	for _, e := range entries {
		history = append(history, TicketHistoryEntry{
			ID:            e.ID,
			ChangeType:    e.ChangeType,
			OldStatus:     e.OldStatus,
			NewStatus:     e.NewStatus,
			ChangedByID:   e.ChangedByID,
			ChangedByName: e.ChangedByName,
			CreatedAt:     e.CreatedAt,
		})
	}
	return TicketHistoryResponse{Ticket: NewTicketResponse(ticket), History: history}
}
