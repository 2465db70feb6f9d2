package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

type ticketNoteRepository struct {
	pool *pgxpool.Pool
}

// NewTicketNoteRepository builds repository.
func NewTicketNoteRepository(pool *pgxpool.Pool) TicketNoteRepository {
	return &ticketNoteRepository{pool: pool}
}

func (r *ticketNoteRepository) Create(ctx context.Context, note *domain.TicketNote) error {
	const query = `
        INSERT INTO ticket_notes (ticket_id, body, user_id, username)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		note.TicketID,
		note.Body,
		note.UserID,
		note.Username,
	).Scan(&note.ID, &note.CreatedAt)
	return mapPgError(err)
}

func (r *ticketNoteRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketNote, error) {
	const query = `
        SELECT id, ticket_id, body, user_id, username, created_at
        FROM ticket_notes WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := []domain.TicketNote{}
	for rows.Next() {
		var note domain.TicketNote
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.Body,
			&note.UserID,
			&note.Username,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
