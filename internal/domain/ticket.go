package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets. The value is the wire label.
type TicketStatus string

const (
	TicketStatusNew          TicketStatus = "New"
	TicketStatusAcknowledged TicketStatus = "Acknowledged"
	TicketStatusInProgress   TicketStatus = "In-progress"
	TicketStatusCompleted    TicketStatus = "Completed"
	TicketStatusCancelled    TicketStatus = "Cancelled"
	TicketStatusRejected     TicketStatus = "Rejected"
)

// TicketStatuses lists the closed status set in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAcknowledged,
	TicketStatusInProgress,
	TicketStatusCompleted,
	TicketStatusCancelled,
	TicketStatusRejected,
}

// Valid reports whether s belongs to the closed status set.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further notes may be added in status s.
func (s TicketStatus) Terminal() bool {
	switch s {
	case TicketStatusCompleted, TicketStatusCancelled, TicketStatusRejected:
		return true
	default:
		return false
	}
}

// TicketOrder selects the creation-time sort direction for listings.
type TicketOrder string

const (
	// TicketOrderNewest sorts by created_at descending.
	TicketOrderNewest TicketOrder = "NEW"
	// TicketOrderOldest sorts by created_at ascending.
	TicketOrderOldest TicketOrder = "OLD"
)

// ParseTicketOrder accepts NEW/OLD case-insensitively; empty yields NEW.
func ParseTicketOrder(val string) (TicketOrder, bool) {
	switch TicketOrder(strings.ToUpper(strings.TrimSpace(val))) {
	case "", TicketOrderNewest:
		return TicketOrderNewest, true
	case TicketOrderOldest:
		return TicketOrderOldest, true
	default:
		return "", false
	}
}

// Ticket is one customer support request.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
	UserID      int64
	Username    string
}

// OwnedBy reports whether the ticket belongs to user.
func (t *Ticket) OwnedBy(user *User) bool {
	return t != nil && user != nil && t.UserID == user.ID
}
