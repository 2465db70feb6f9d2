package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/events"
	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, f.customerA, TicketCreateInput{Title: "  Refill ", Description: "Need refill"})
	require.NoError(t, err)

	assert.NotZero(t, ticket.ID)
	assert.Equal(t, "Refill", ticket.Title)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, f.customerA.ID, ticket.UserID)
	assert.Equal(t, "alice", ticket.Username)
	assert.False(t, ticket.CreatedAt.IsZero())

	history, err := f.tickets.GetHistory(ctx, f.customerA, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history.History, 1)
	assert.Equal(t, domain.ChangeTypeCreated, history.History[0].ChangeType)
	assert.Nil(t, history.History[0].OldStatus)
	assert.Equal(t, domain.TicketStatusNew, history.History[0].NewStatus)

	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.eventTypes())
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.Create(ctx, f.customerA, TicketCreateInput{Title: " ", Description: "x"})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.Create(ctx, f.customerA, TicketCreateInput{Title: "x", Description: ""})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.Create(ctx, f.pharmacist, TicketCreateInput{Title: "x", Description: "y"})
	requireCode(t, err, apperrors.CodeForbidden)

	tickets, err := f.tickets.List(ctx, f.pharmacist, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.Empty(t, f.eventTypes())
}

func TestListForcesOwnTicketsForCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1 := f.createTicket(t, f.customerA, "a1")
	b1 := f.createTicket(t, f.customerB, "b1")

	other := f.customerB.ID
	tickets, err := f.tickets.List(ctx, f.customerA, TicketListFilter{UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, []int64{a1.ID}, ids(tickets))

	tickets, err = f.tickets.List(ctx, f.customerA, TicketListFilter{TicketID: &b1.ID})
	require.NoError(t, err)
	assert.Empty(t, tickets)

	tickets, err = f.tickets.List(ctx, f.pharmacist, TicketListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{b1.ID, a1.ID}, ids(tickets))

	tickets, err = f.tickets.List(ctx, f.pharmacist, TicketListFilter{UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, []int64{b1.ID}, ids(tickets))
}

func TestListOwnOnlyAppliesToPharmacists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dual := f.addUser(t, "dana@example.com", "dana", domain.RoleCustomer, domain.RolePharmacist)

	mine := f.createTicket(t, dual, "mine")
	f.createTicket(t, f.customerA, "theirs")

	tickets, err := f.tickets.List(ctx, dual, TicketListFilter{OwnOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{mine.ID}, ids(tickets))

	other := f.customerA.ID
	tickets, err = f.tickets.List(ctx, dual, TicketListFilter{OwnOnly: true, UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, []int64{mine.ID}, ids(tickets))

	tickets, err = f.tickets.List(ctx, dual, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	tickets, err = f.tickets.List(ctx, f.pharmacist, TicketListFilter{OwnOnly: true})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestPublishFailuresAreLoggedNotReturned(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		return errors.New("webhook down")
	})
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  f.repos.Tickets,
		HistoryRepo: f.repos.History,
		Transactor:  f.repos.Tx,
		Dispatcher:  dispatcher,
		Logger:      zap.New(core),
	})

	ticket := f.createTicket(t, f.customerA, "t")

	entries := logs.FilterMessage("event handlers failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ticket_created", fields["event_type"])
	assert.Equal(t, ticket.ID, fields["ticket_id"])
	assert.Contains(t, fields["error"], "webhook down")

	stored, err := f.repos.Tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
}

func TestListPaginationMatchesFullOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.createTicket(t, f.customerA, "t")
	}

	for _, order := range []string{"NEW", "OLD"} {
		full, err := f.tickets.List(ctx, f.customerA, TicketListFilter{Order: order, Limit: 100})
		require.NoError(t, err)
		require.Len(t, full, 7)

		const limit = 3
		for skip := 0; skip < 4; skip++ {
			page, err := f.tickets.List(ctx, f.customerA, TicketListFilter{Order: order, Skip: skip, Limit: limit})
			require.NoError(t, err)

			start, end := skip*limit, (skip+1)*limit
			if start > len(full) {
				start = len(full)
			}
			if end > len(full) {
				end = len(full)
			}
			assert.Equal(t, ids(full[start:end]), ids(page), "order=%s skip=%d", order, skip)
		}
	}

	newest, err := f.tickets.List(ctx, f.customerA, TicketListFilter{})
	require.NoError(t, err)
	oldest, err := f.tickets.List(ctx, f.customerA, TicketListFilter{Order: "old"})
	require.NoError(t, err)
	assert.Greater(t, newest[0].ID, newest[len(newest)-1].ID)
	assert.Less(t, oldest[0].ID, oldest[len(oldest)-1].ID)
}

func TestListLimits(t *testing.T) {
	f := newFixture(t)
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  f.repos.Tickets,
		HistoryRepo: f.repos.History,
		Transactor:  f.repos.Tx,
		Pagination:  config.PaginationConfig{DefaultLimit: 2, MaxLimit: 3},
	})
	for i := 0; i < 5; i++ {
		f.createTicket(t, f.customerA, "t")
	}
	ctx := context.Background()

	tickets, err := f.tickets.List(ctx, f.customerA, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	tickets, err = f.tickets.List(ctx, f.customerA, TicketListFilter{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, tickets, 3)
}

func TestListRejectsInvalidFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]TicketListFilter{
		"status":                      {Status: "Open"},
		"order":                       {Order: "SIDEWAYS"},
		"skip":                        {Skip: -1},
		"skip overflow":               {Skip: math.MaxInt/10 + 1, Limit: 10},
		"skip overflow default limit": {Skip: math.MaxInt},
	}
	for name, filter := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.tickets.List(ctx, f.customerA, filter)
			requireCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t1 := f.createTicket(t, f.customerA, "t1")
	f.createTicket(t, f.customerA, "t2")

	_, err := f.tickets.UpdateStatus(ctx, f.pharmacist, t1.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)

	tickets, err := f.tickets.List(ctx, f.customerA, TicketListFilter{Status: "In-progress"})
	require.NoError(t, err)
	assert.Equal(t, []int64{t1.ID}, ids(tickets))
}

func TestUpdateStatusAnyToAny(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customerA, "t")

	sequence := []domain.TicketStatus{
		domain.TicketStatusCompleted,
		domain.TicketStatusNew,
		domain.TicketStatusRejected,
		domain.TicketStatusRejected,
		domain.TicketStatusAcknowledged,
	}
	for _, status := range sequence {
		updated, err := f.tickets.UpdateStatus(ctx, f.pharmacist, ticket.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)

		stored, err := f.repos.Tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status)
		assert.Equal(t, f.customerA.ID, stored.UserID)
		assert.Equal(t, "alice", stored.Username)
	}

	view, err := f.tickets.GetHistory(ctx, f.pharmacist, ticket.ID)
	require.NoError(t, err)
	require.Len(t, view.History, len(sequence)+1)
	last := view.History[len(view.History)-1]
	assert.Equal(t, domain.ChangeTypeStatus, last.ChangeType)
	require.NotNil(t, last.OldStatus)
	assert.Equal(t, domain.TicketStatusRejected, *last.OldStatus)
	assert.Equal(t, domain.TicketStatusAcknowledged, last.NewStatus)
	assert.Equal(t, f.pharmacist.ID, last.ChangedByID)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customerA, "t")

	_, err := f.tickets.UpdateStatus(ctx, f.customerA, ticket.ID, domain.TicketStatusCompleted)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.UpdateStatus(ctx, f.pharmacist, ticket.ID, "Closed")
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.UpdateStatus(ctx, f.pharmacist, 9999, domain.TicketStatusCompleted)
	requireCode(t, err, apperrors.CodeNotFound)

	stored, err := f.repos.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
}

func TestGetHistoryVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.customerA, "t")

	view, err := f.tickets.GetHistory(ctx, f.customerA, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, view.Ticket.ID)

	_, err = f.tickets.GetHistory(ctx, f.pharmacist, ticket.ID)
	require.NoError(t, err)

	_, hiddenErr := f.tickets.GetHistory(ctx, f.customerB, ticket.ID)
	requireCode(t, hiddenErr, apperrors.CodeNotFound)

	_, missingErr := f.tickets.GetHistory(ctx, f.customerB, 9999)
	requireCode(t, missingErr, apperrors.CodeNotFound)
	assert.Equal(t, missingErr.Error(), hiddenErr.Error())
}

func TestCustomerTicketLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t1, err := f.tickets.Create(ctx, f.customerA, TicketCreateInput{Title: "Refill", Description: "Need refill"})
	require.NoError(t, err)

	list, err := f.tickets.List(ctx, f.customerA, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, t1.ID, list[0].ID)
	assert.Equal(t, domain.TicketStatusNew, list[0].Status)

	_, err = f.tickets.UpdateStatus(ctx, f.pharmacist, t1.ID, domain.TicketStatusAcknowledged)
	require.NoError(t, err)

	list, err = f.tickets.List(ctx, f.customerA, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.TicketStatusAcknowledged, list[0].Status)

	list, err = f.tickets.List(ctx, f.customerB, TicketListFilter{})
	require.NoError(t, err)
	assert.NotContains(t, ids(list), t1.ID)
}

type failingTickets struct {
	repository.TicketRepository
	err error
}

func (f failingTickets) List(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, f.err
}

func (f failingTickets) GetByID(context.Context, int64) (*domain.Ticket, error) {
	return nil, f.err
}

func (f failingTickets) Create(context.Context, *domain.Ticket) error {
	return f.err
}

type failingHistory struct {
	repository.TicketHistoryRepository
}

func (failingHistory) Create(context.Context, *domain.TicketHistory) error {
	return errors.New("history insert failed")
}

func TestCreateStoreFailuresNameTheTicket(t *testing.T) {
	f := newFixture(t)
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  failingTickets{TicketRepository: f.repos.Tickets, err: repository.ErrNotFound},
		HistoryRepo: f.repos.History,
		Transactor:  f.repos.Tx,
	})

	_, err := svc.Create(context.Background(), f.customerA, TicketCreateInput{Title: "t", Description: "d"})
	requireCode(t, err, apperrors.CodeNotFound)
	assert.Equal(t, "ticket not found", err.Error())
}

func TestCreateRollsBackWhenHistoryFails(t *testing.T) {
	f := newFixture(t)
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  f.repos.Tickets,
		HistoryRepo: failingHistory{TicketHistoryRepository: f.repos.History},
		Transactor:  f.repos.Tx,
	})

	_, err := svc.Create(context.Background(), f.customerA, TicketCreateInput{Title: "t", Description: "d"})
	requireCode(t, err, apperrors.CodePersistence)

	tickets, err := f.tickets.List(context.Background(), f.pharmacist, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestStoreFailuresBecomePersistenceErrors(t *testing.T) {
	f := newFixture(t)
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  failingTickets{TicketRepository: f.repos.Tickets, err: errors.New("connection refused")},
		HistoryRepo: f.repos.History,
		Transactor:  f.repos.Tx,
	})

	_, err := svc.List(context.Background(), f.customerA, TicketListFilter{})
	requireCode(t, err, apperrors.CodePersistence)

	_, err = svc.GetHistory(context.Background(), f.customerA, 1)
	requireCode(t, err, apperrors.CodePersistence)
}
