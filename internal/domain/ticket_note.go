package domain

import "time"

// TicketNote is an immutable comment attached to a ticket.
type TicketNote struct {
	ID        int64
	TicketID  int64
	Body      string
	UserID    int64
	Username  string
	CreatedAt time.Time
}
