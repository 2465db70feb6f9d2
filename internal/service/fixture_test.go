package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	"github.com/spec-kit/pharmacy-helpdesk/internal/events"
	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

type fixture struct {
	repos      repository.Repositories
	tickets    *TicketService
	notes      *TicketNoteService
	customerA  *domain.User
	customerB  *domain.User
	pharmacist *domain.User

	mu     sync.Mutex
	events []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var tick int
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	repos := repository.NewMemoryRepositories(store)

	f := &fixture{repos: repos}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{events.EventTicketCreated, events.EventTicketStatusChanged, events.EventTicketNoteAdded} {
		dispatcher.Subscribe(eventType, f.record)
	}

	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  repos.Tickets,
		HistoryRepo: repos.History,
		Transactor:  repos.Tx,
		Dispatcher:  dispatcher,
		Pagination:  config.PaginationConfig{DefaultLimit: 10, MaxLimit: 100},
	})
	f.notes = NewTicketNoteService(TicketNoteDependencies{
		TicketRepo: repos.Tickets,
		NoteRepo:   repos.Notes,
		Transactor: repos.Tx,
		Dispatcher: dispatcher,
	})

	f.customerA = f.addUser(t, "alice@example.com", "alice", domain.RoleCustomer)
	f.customerB = f.addUser(t, "bob@example.com", "bob", domain.RoleCustomer)
	f.pharmacist = f.addUser(t, "phil@example.com", "phil", domain.RolePharmacist)
	return f
}

func (f *fixture) record(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *fixture) addUser(t *testing.T, email, username string, roles ...domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, Username: username, PasswordHash: "x", Roles: roles}
	require.NoError(t, f.repos.Users.Create(context.Background(), user))
	return user
}

func (f *fixture) createTicket(t *testing.T, owner *domain.User, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), owner, TicketCreateInput{Title: title, Description: title + " details"})
	require.NoError(t, err)
	return ticket
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func ids(tickets []domain.Ticket) []int64 {
	out := make([]int64, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, ticket.ID)
	}
	return out
}
