package service

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/events"
	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

const notePreviewLen = 80

// TicketNoteService manages notes attached to tickets.
type TicketNoteService struct {
	tickets    repository.TicketRepository
	notes      repository.TicketNoteRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketNoteDependencies bundles repositories for the note service.
type TicketNoteDependencies struct {
	TicketRepo repository.TicketRepository
	NoteRepo   repository.TicketNoteRepository
	Transactor repository.Transactor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketNoteCreateInput describes a new note.
type TicketNoteCreateInput struct {
	TicketID int64
	Body     string
}

// NewTicketNoteService constructs the service.
func NewTicketNoteService(deps TicketNoteDependencies) *TicketNoteService {
	return &TicketNoteService{
		tickets:    deps.TicketRepo,
		notes:      deps.NoteRepo,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// List returns the notes of a ticket newest first.
func (s *TicketNoteService) List(ctx context.Context, requester *domain.User, ticketID int64) ([]domain.TicketNote, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if !auth.PolicyViewTicket.AllowsTicket(requester, ticket) {
		return nil, apperrors.NewNotFound("ticket")
	}

	notes, err := s.notes.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return notes, nil
}

// Create appends a note to an open ticket owned by requester. Every
// rejection reports the ticket as not found and writes nothing.
func (s *TicketNoteService) Create(ctx context.Context, requester *domain.User, input TicketNoteCreateInput) (*domain.TicketNote, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	body, err := requiredText("body", input.Body)
	if err != nil {
		return nil, err
	}

	note := &domain.TicketNote{
		TicketID: input.TicketID,
		Body:     body,
		UserID:   requester.ID,
		Username: requester.Username,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, input.TicketID)
		if err != nil {
			return err
		}
		if !auth.PolicyAddNote.AllowsTicket(requester, ticket) || ticket.Status.Terminal() {
			return apperrors.NewNotFound("ticket")
		}
		return s.notes.Create(ctx, note)
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketNoteAdded, note.TicketID, requester, events.TicketNoteAddedPayload{
		NoteID:      note.ID,
		BodyPreview: preview(note.Body),
	}))
	return note, nil
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= notePreviewLen {
		return body
	}
	runes := []rune(body)
	return string(runes[:notePreviewLen]) + "..."
}
