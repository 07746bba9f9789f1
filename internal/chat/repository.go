package chat

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

// Repository concentra o acesso a dados das conversas.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria repositório de chat.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `m.id, m.event_id, m.sender_id, p.full_name, m.content, m.edited, m.deleted, m.created_at, m.edited_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.SenderName, &m.Content, &m.Edited, &m.Deleted, &m.CreatedAt, &m.EditedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	if m.Deleted {
		m.Content = ""
	}
	return m, nil
}

// ListContacts lista os demais perfis da instituição.
func (r *Repository) ListContacts(ctx context.Context, self uuid.UUID) ([]Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT id, full_name, role, avatar_url
          FROM profiles
         WHERE id <> $1
         ORDER BY full_name ASC`, self)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.FullName, &c.Role, &c.AvatarURL); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// IsParticipant verifica se o usuário participa da conversa.
func (r *Repository) IsParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM event_participants
             WHERE event_id = $1 AND user_id = $2
        )`, threadID, userID).Scan(&exists)
	return exists, err
}

// ListThreads lista as conversas diretas do usuário, mais recentes primeiro.
func (r *Repository) ListThreads(ctx context.Context, userID uuid.UUID) ([]Thread, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT e.id, e.title, e.is_direct_message, e.updated_at
          FROM events e
          JOIN event_participants ep ON ep.event_id = e.id
         WHERE ep.user_id = $1
           AND e.is_direct_message = TRUE
         ORDER BY e.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.Title, &t.DirectMessage, &t.UpdatedAt); err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range threads {
		members, err := r.threadMembers(ctx, threads[i].ID)
		if err != nil {
			return nil, err
		}
		threads[i].Participants = members

		last, err := r.lastMessage(ctx, threads[i].ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if err == nil {
			threads[i].LastMessage = &last
		}

		unread, err := r.unreadCount(ctx, threads[i].ID, userID)
		if err != nil {
			return nil, err
		}
		threads[i].UnreadCount = unread
	}
	return threads, nil
}

func (r *Repository) threadMembers(ctx context.Context, threadID uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT p.id, p.full_name, p.role
          FROM event_participants ep
          JOIN profiles p ON p.id = ep.user_id
         WHERE ep.event_id = $1
         ORDER BY p.full_name ASC`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.FullName, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repository) lastMessage(ctx context.Context, threadID uuid.UUID) (Message, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+messageColumns+`
          FROM messages m
          JOIN profiles p ON p.id = m.sender_id
         WHERE m.event_id = $1
         ORDER BY m.created_at DESC
         LIMIT 1`, threadID)
	return scanMessage(row)
}

func (r *Repository) unreadCount(ctx context.Context, threadID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
        SELECT COUNT(*)
          FROM messages m
         WHERE m.event_id = $1
           AND m.sender_id <> $2
           AND m.deleted = FALSE
           AND NOT EXISTS (
               SELECT 1 FROM message_reads mr
                WHERE mr.message_id = m.id AND mr.user_id = $2
           )`, threadID, userID).Scan(&count)
	return count, err
}

// MessagesPage retorna uma página ascendente de mensagens da conversa.
func (r *Repository) MessagesPage(ctx context.Context, threadID uuid.UUID, page int) (MessagePage, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT `+messageColumns+`
          FROM messages m
          JOIN profiles p ON p.id = m.sender_id
         WHERE m.event_id = $1
         ORDER BY m.created_at ASC
         LIMIT $2 OFFSET $3`, threadID, PageSize, page*PageSize)
	if err != nil {
		return MessagePage{}, err
	}
	defer rows.Close()

	result := MessagePage{Page: page, Messages: []Message{}}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.SenderName, &m.Content, &m.Edited, &m.Deleted, &m.CreatedAt, &m.EditedAt); err != nil {
			return MessagePage{}, err
		}
		if m.Deleted {
			m.Content = ""
		}
		result.Messages = append(result.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return MessagePage{}, err
	}
	result.HasMore = len(result.Messages) == PageSize
	return result, nil
}

// InsertMessage grava mensagem nova e atualiza o updated_at da conversa.
func (r *Repository) InsertMessage(ctx context.Context, in SendInput) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id uuid.UUID
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO messages (id, event_id, sender_id, content, created_at)
            VALUES (gen_random_uuid(), $1, $2, $3, NOW())
            RETURNING id`, in.ThreadID, in.SenderID, in.Content).Scan(&id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE events SET updated_at = NOW() WHERE id = $1`, in.ThreadID)
		return err
	})
	if err != nil {
		return Message{}, err
	}
	return r.GetMessage(ctx, id)
}

// GetMessage busca mensagem por id.
func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
        SELECT `+messageColumns+`
          FROM messages m
          JOIN profiles p ON p.id = m.sender_id
         WHERE m.id = $1`, id)
	return scanMessage(row)
}

// EditMessage altera o conteúdo preservando autoria.
func (r *Repository) EditMessage(ctx context.Context, id, senderID uuid.UUID, content string) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE messages
           SET content = $3, edited = TRUE, edited_at = NOW()
         WHERE id = $1 AND sender_id = $2 AND deleted = FALSE`, id, senderID, content)
	if err != nil {
		return Message{}, err
	}
	if tag.RowsAffected() == 0 {
		return Message{}, ErrNotOwner
	}
	return r.GetMessage(ctx, id)
}

// SoftDeleteMessage marca a mensagem como apagada sem remover a linha.
func (r *Repository) SoftDeleteMessage(ctx context.Context, id, senderID uuid.UUID) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE messages
           SET deleted = TRUE
         WHERE id = $1 AND sender_id = $2`, id, senderID)
	if err != nil {
		return Message{}, err
	}
	if tag.RowsAffected() == 0 {
		return Message{}, ErrNotOwner
	}
	return r.GetMessage(ctx, id)
}

// ResolveDirectThread garante uma única conversa direta por par de usuários.
// O índice único em dm_key resolve a corrida entre criações simultâneas.
func (r *Repository) ResolveDirectThread(ctx context.Context, a, b uuid.UUID) (uuid.UUID, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	key := DMKey(a, b)

	var existing uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM events WHERE dm_key = $1`, key).Scan(&existing)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, err
	}

	var id uuid.UUID
	created := true
	err = db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO events (id, title, type, is_direct_message, dm_key, starts_at, created_by, created_at, updated_at)
            VALUES (gen_random_uuid(), 'Conversa direta', 'dm', TRUE, $1, NOW(), $2, NOW(), NOW())
            ON CONFLICT (dm_key) DO UPDATE SET updated_at = events.updated_at
            RETURNING id, (xmax = 0)`, key, a).Scan(&id, &created)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		_, err = tx.Exec(ctx, `
            INSERT INTO event_participants (event_id, user_id, status)
            VALUES ($1, $2, 'accepted'), ($1, $3, 'accepted')
            ON CONFLICT DO NOTHING`, id, a, b)
		return err
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, created, nil
}

// MarkRead registra leitura idempotente da mensagem.
func (r *Repository) MarkRead(ctx context.Context, messageID, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        INSERT INTO message_reads (message_id, user_id, read_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (message_id, user_id) DO NOTHING`, messageID, userID)
	return err
}

// MarkThreadRead marca como lidas todas as mensagens alheias da conversa.
func (r *Repository) MarkThreadRead(ctx context.Context, threadID, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        INSERT INTO message_reads (message_id, user_id, read_at)
        SELECT m.id, $2, NOW()
          FROM messages m
         WHERE m.event_id = $1 AND m.sender_id <> $2
        ON CONFLICT (message_id, user_id) DO NOTHING`, threadID, userID)
	return err
}
