package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, change_type, old_status, new_status, changed_by_id, changed_by_name)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	var oldStatus *string
	if entry.OldStatus != nil {
		s := string(*entry.OldStatus)
		oldStatus = &s
	}
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		entry.TicketID,
		entry.ChangeType,
		oldStatus,
		entry.NewStatus,
		entry.ChangedByID,
		entry.ChangedByName,
	).Scan(&entry.ID, &entry.CreatedAt)
	return mapPgError(err)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, change_type, old_status, new_status, changed_by_id, changed_by_name, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var (
			entry     domain.TicketHistory
			oldStatus *string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangeType,
			&oldStatus,
			&entry.NewStatus,
			&entry.ChangedByID,
			&entry.ChangedByName,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if oldStatus != nil {
			s := domain.TicketStatus(*oldStatus)
			entry.OldStatus = &s
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
