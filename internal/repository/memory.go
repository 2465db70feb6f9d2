package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

// MemoryStore is a process-local store used when no database is configured
// and by tests. A transaction holds the write lock for its whole duration.
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	nextID  map[string]int64
	users   map[int64]domain.User
	tickets map[int64]domain.Ticket
	notes   map[int64]domain.TicketNote
	history map[int64]domain.TicketHistory
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     func() time.Time { return time.Now().UTC() },
		nextID:  map[string]int64{},
		users:   map[int64]domain.User{},
		tickets: map[int64]domain.Ticket{},
		notes:   map[int64]domain.TicketNote{},
		history: map[int64]domain.TicketHistory{},
	}
}

// SetClock overrides the timestamp source.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// NewMemoryRepositories returns repositories backed by one MemoryStore.
func NewMemoryRepositories(store *MemoryStore) Repositories {
	return Repositories{
		Users:   &memoryUsers{store: store},
		Tickets: &memoryTickets{store: store},
		Notes:   &memoryNotes{store: store},
		History: &memoryHistory{store: store},
		Tx:      &MemoryTx{store: store},
	}
}

type memTxKey struct{}

func isMemTx(ctx context.Context) bool {
	v, ok := ctx.Value(memTxKey{}).(bool)
	return ok && v
}

func (m *MemoryStore) rlock(ctx context.Context) func() {
	if isMemTx(ctx) {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *MemoryStore) wlock(ctx context.Context) func() {
	if isMemTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemoryStore) allocate(table string) int64 {
	m.nextID[table]++
	return m.nextID[table]
}

// MemoryTx emulates a transaction boundary with the store's write lock.
// When fn fails every table and id sequence is restored to its state at
// the outermost WithinTx call.
type MemoryTx struct{ store *MemoryStore }

// WithinTx implements Transactor.
func (tx *MemoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if isMemTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	saved := tx.store.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		tx.store.restore(saved)
		return err
	}
	return nil
}

type memorySnapshot struct {
	nextID  map[string]int64
	users   map[int64]domain.User
	tickets map[int64]domain.Ticket
	notes   map[int64]domain.TicketNote
	history map[int64]domain.TicketHistory
}

// snapshot copies the tables. Stored rows are values and writers replace
// them whole, so a shallow copy is enough.
func (m *MemoryStore) snapshot() memorySnapshot {
	return memorySnapshot{
		nextID:  maps.Clone(m.nextID),
		users:   maps.Clone(m.users),
		tickets: maps.Clone(m.tickets),
		notes:   maps.Clone(m.notes),
		history: maps.Clone(m.history),
	}
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.nextID = s.nextID
	m.users = s.users
	m.tickets = s.tickets
	m.notes = s.notes
	m.history = s.history
}

type memoryUsers struct{ store *MemoryStore }

func (r *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	defer r.store.wlock(ctx)()
	for _, existing := range r.store.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	user.ID = r.store.allocate("users")
	user.CreatedAt = r.store.now()
	stored := *user
	stored.Roles = append([]domain.Role(nil), user.Roles...)
	r.store.users[user.ID] = stored
	return nil
}

func (r *memoryUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	defer r.store.rlock(ctx)()
	user, ok := r.store.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryUsers) GetActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.store.rlock(ctx)()
	for _, user := range r.store.users {
		if user.Email == email && !user.Deleted {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

type memoryTickets struct{ store *MemoryStore }

func (r *memoryTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.users[ticket.UserID]; !ok {
		return ErrNotFound
	}
	ticket.ID = r.store.allocate("tickets")
	ticket.CreatedAt = r.store.now()
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTickets) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	defer r.store.rlock(ctx)()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (r *memoryTickets) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryTickets) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) error {
	defer r.store.wlock(ctx)()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return ErrNotFound
	}
	ticket.Status = status
	r.store.tickets[id] = ticket
	return nil
}

func (r *memoryTickets) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	defer r.store.rlock(ctx)()

	matched := make([]domain.Ticket, 0, len(r.store.tickets))
	for _, ticket := range r.store.tickets {
		if filter.TicketID != nil && ticket.ID != *filter.TicketID {
			continue
		}
		if filter.UserID != nil && ticket.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		matched = append(matched, ticket)
	}

	oldestFirst := filter.Order == domain.TicketOrderOldest
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if oldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if oldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	return paginate(matched, filter.Offset, filter.Limit), nil
}

func paginate(items []domain.Ticket, offset, limit int) []domain.Ticket {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []domain.Ticket{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type memoryNotes struct{ store *MemoryStore }

func (r *memoryNotes) Create(ctx context.Context, note *domain.TicketNote) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.tickets[note.TicketID]; !ok {
		return ErrNotFound
	}
	note.ID = r.store.allocate("ticket_notes")
	note.CreatedAt = r.store.now()
	r.store.notes[note.ID] = *note
	return nil
}

func (r *memoryNotes) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketNote, error) {
	defer r.store.rlock(ctx)()
	result := []domain.TicketNote{}
	for _, note := range r.store.notes {
		if note.TicketID == ticketID {
			result = append(result, note)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

type memoryHistory struct{ store *MemoryStore }

func (r *memoryHistory) Create(ctx context.Context, entry *domain.TicketHistory) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.tickets[entry.TicketID]; !ok {
		return ErrNotFound
	}
	entry.ID = r.store.allocate("ticket_history")
	entry.CreatedAt = r.store.now()
	r.store.history[entry.ID] = *entry
	return nil
}

func (r *memoryHistory) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	defer r.store.rlock(ctx)()
	result := []domain.TicketHistory{}
	for _, entry := range r.store.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
