package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("duplicate")
)

// TicketFilter captures ticket listing parameters. Nil fields do not filter.
type TicketFilter struct {
	TicketID *int64
	UserID   *int64
	Status   *domain.TicketStatus
	Order    domain.TicketOrder
	Limit    int
	Offset   int
}

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetForUpdate reads the ticket and, inside a transaction, locks it until commit.
	GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

// TicketNoteRepository manages ticket notes.
type TicketNoteRepository interface {
	Create(ctx context.Context, note *domain.TicketNote) error
	// ListByTicket returns notes newest first.
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketNote, error)
}

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	// ListByTicket returns entries oldest first.
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

// Transactor runs fn atomically. Repositories called with the ctx passed to
// fn take part in the transaction. Nested calls join the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories bundles every store the services need.
type Repositories struct {
	Users   UserRepository
	Tickets TicketRepository
	Notes   TicketNoteRepository
	History TicketHistoryRepository
	Tx      Transactor
}
