package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/events"
	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	paging     config.PaginationConfig
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Transactor  repository.Transactor
	Dispatcher  events.Dispatcher
	Pagination  config.PaginationConfig
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// TicketListFilter describes listing filters. Status and Order hold raw
// wire values and are validated by List. Skip is a page index. OwnOnly
// restricts the page to the requester's tickets whatever their roles.
type TicketListFilter struct {
	TicketID *int64
	UserID   *int64
	Status   string
	Order    string
	Skip     int
	Limit    int
	OwnOnly  bool
}

// TicketHistoryView pairs a ticket with its audit trail, oldest first.
type TicketHistoryView struct {
	Ticket  domain.Ticket
	History []domain.TicketHistory
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	paging := deps.Pagination
	if paging.DefaultLimit <= 0 {
		paging.DefaultLimit = 10
	}
	if paging.MaxLimit < paging.DefaultLimit {
		paging.MaxLimit = paging.DefaultLimit
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		paging:     paging,
		logger:     loggerOrNop(deps.Logger),
	}
}

// Create opens a ticket owned by requester with status New.
func (s *TicketService) Create(ctx context.Context, requester *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if !auth.PolicyCreateTicket.Allows(requester, nil) {
		return nil, auth.PolicyCreateTicket.Denied()
	}
	title, err := requiredText("title", input.Title)
	if err != nil {
		return nil, err
	}
	description, err := requiredText("description", input.Description)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusNew,
		UserID:      requester.ID,
		Username:    requester.Username,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return s.history.Create(ctx, &domain.TicketHistory{
			TicketID:      ticket.ID,
			ChangeType:    domain.ChangeTypeCreated,
			NewStatus:     ticket.Status,
			ChangedByID:   requester.ID,
			ChangedByName: requester.Username,
		})
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketCreated, ticket.ID, requester, events.TicketCreatedPayload{
		Title:  ticket.Title,
		Status: ticket.Status,
	}))
	return ticket, nil
}

// UpdateStatus overwrites the ticket status. Any status may move to any other.
func (s *TicketService) UpdateStatus(ctx context.Context, requester *domain.User, ticketID int64, status domain.TicketStatus) (*domain.Ticket, error) {
	if !auth.PolicyUpdateStatus.Allows(requester, nil) {
		return nil, auth.PolicyUpdateStatus.Denied()
	}
	if !status.Valid() {
		return nil, invalidStatus(string(status))
	}

	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		oldStatus = ticket.Status
		if err := s.tickets.UpdateStatus(ctx, ticketID, status); err != nil {
			return err
		}
		ticket.Status = status
		return s.history.Create(ctx, &domain.TicketHistory{
			TicketID:      ticketID,
			ChangeType:    domain.ChangeTypeStatus,
			OldStatus:     &oldStatus,
			NewStatus:     status,
			ChangedByID:   requester.ID,
			ChangedByName: requester.Username,
		})
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketStatusChanged, ticketID, requester, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: status,
	}))
	return ticket, nil
}

// List returns one page of tickets visible to requester.
func (s *TicketService) List(ctx context.Context, requester *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	query, err := s.buildFilter(filter)
	if err != nil {
		return nil, err
	}
	if filter.OwnOnly || !auth.PolicyListAll.Allows(requester, nil) {
		own := requester.ID
		query.UserID = &own
	}

	tickets, err := s.tickets.List(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return tickets, nil
}

func (s *TicketService) buildFilter(filter TicketListFilter) (repository.TicketFilter, error) {
	query := repository.TicketFilter{
		TicketID: filter.TicketID,
		UserID:   filter.UserID,
	}

	if filter.Status != "" {
		status := domain.TicketStatus(filter.Status)
		if !status.Valid() {
			return query, invalidStatus(filter.Status)
		}
		query.Status = &status
	}

	order, ok := domain.ParseTicketOrder(filter.Order)
	if !ok {
		return query, apperrors.NewValidationError("invalid order", map[string]any{"order": filter.Order, "allowed": []domain.TicketOrder{domain.TicketOrderNewest, domain.TicketOrderOldest}})
	}
	query.Order = order

	if filter.Skip < 0 {
		return query, apperrors.NewValidationError("skip must not be negative", map[string]any{"skip": filter.Skip})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.paging.DefaultLimit
	}
	if limit > s.paging.MaxLimit {
		limit = s.paging.MaxLimit
	}
	if filter.Skip > math.MaxInt/limit {
		return query, apperrors.NewValidationError("skip out of range", map[string]any{"skip": filter.Skip})
	}
	query.Limit = limit
	query.Offset = filter.Skip * limit
	return query, nil
}

// GetHistory returns the ticket and its audit trail. Tickets the requester
// may not view are reported exactly like missing ones.
func (s *TicketService) GetHistory(ctx context.Context, requester *domain.User, ticketID int64) (*TicketHistoryView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	if !auth.PolicyViewTicket.AllowsTicket(requester, ticket) {
		return nil, apperrors.NewNotFound("ticket")
	}

	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return &TicketHistoryView{Ticket: *ticket, History: entries}, nil
}

func invalidStatus(value string) error {
	return apperrors.NewValidationError("invalid status", map[string]any{"status": value, "allowed": domain.TicketStatuses})
}

