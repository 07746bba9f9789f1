package agenda

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaacademica/api/internal/db"
)

const dbTimeout = 3 * time.Second

// Repository concentra o acesso a dados da agenda. Conversas diretas também
// vivem na tabela de eventos, então todas as consultas filtram
// is_direct_message = FALSE.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria repositório de agenda.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `e.id, e.title, e.description, e.type, e.location, e.starts_at, e.ends_at, e.created_by, e.cancelled, e.created_at, e.updated_at`

func scanEvent(row pgx.Row) (Event, error) {
	var ev Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Type, &ev.Location, &ev.StartsAt, &ev.EndsAt, &ev.CreatedBy, &ev.Cancelled, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Create grava evento e participantes em uma transação.
func (r *Repository) Create(ctx context.Context, in CreateInput) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id uuid.UUID
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO events (id, title, description, type, location, starts_at, ends_at, is_direct_message, created_by, created_at, updated_at)
            VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, FALSE, $7, NOW(), NOW())
            RETURNING id`,
			in.Title, in.Description, in.Type, in.Location, in.StartsAt, in.EndsAt, in.CreatedBy).Scan(&id); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO event_participants (event_id, user_id, status)
            VALUES ($1, $2, 'accepted')`, id, in.CreatedBy); err != nil {
			return err
		}

		for _, userID := range in.Participants {
			if userID == in.CreatedBy {
				continue
			}
			if _, err := tx.Exec(ctx, `
                INSERT INTO event_participants (event_id, user_id, status)
                VALUES ($1, $2, 'pending')
                ON CONFLICT DO NOTHING`, id, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Event{}, err
	}
	return r.Get(ctx, id)
}

// Get busca evento com participantes.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
        SELECT `+eventColumns+`
          FROM events e
         WHERE e.id = $1 AND e.is_direct_message = FALSE`, id)
	ev, err := scanEvent(row)
	if err != nil {
		return Event{}, err
	}

	participants, err := r.participants(ctx, id)
	if err != nil {
		return Event{}, err
	}
	ev.Participants = participants
	return ev, nil
}

func (r *Repository) participants(ctx context.Context, eventID uuid.UUID) ([]Participant, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT ep.user_id, p.full_name, ep.status
          FROM event_participants ep
          JOIN profiles p ON p.id = ep.user_id
         WHERE ep.event_id = $1
         ORDER BY p.full_name ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListByDay lista eventos do usuário no dia informado (UTC).
func (r *Repository) ListByDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return r.listRange(ctx, userID, start, start.Add(24*time.Hour))
}

// ListRange lista eventos do usuário no intervalo informado.
func (r *Repository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Event, error) {
	return r.listRange(ctx, userID, from, to)
}

func (r *Repository) listRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+`
          FROM events e
          JOIN event_participants ep ON ep.event_id = e.id
         WHERE ep.user_id = $1
           AND e.is_direct_message = FALSE
           AND e.starts_at >= $2
           AND e.starts_at < $3
         ORDER BY e.starts_at ASC`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Type, &ev.Location, &ev.StartsAt, &ev.EndsAt, &ev.CreatedBy, &ev.Cancelled, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Update altera dados do evento.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE events
           SET title = $2, description = $3, type = $4, location = $5,
               starts_at = $6, ends_at = $7, updated_at = NOW()
         WHERE id = $1 AND is_direct_message = FALSE`,
		id, in.Title, in.Description, in.Type, in.Location, in.StartsAt, in.EndsAt)
	if err != nil {
		return Event{}, err
	}
	if tag.RowsAffected() == 0 {
		return Event{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Cancel marca o evento como cancelado sem remover a linha.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE events SET cancelled = TRUE, updated_at = NOW()
         WHERE id = $1 AND is_direct_message = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetParticipantStatus grava a resposta do convite.
func (r *Repository) SetParticipantStatus(ctx context.Context, eventID, userID uuid.UUID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE event_participants SET status = $3
         WHERE event_id = $1 AND user_id = $2`, eventID, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsParticipant verifica participação no evento.
func (r *Repository) IsParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM event_participants
             WHERE event_id = $1 AND user_id = $2
        )`, eventID, userID).Scan(&exists)
	return exists, err
}
