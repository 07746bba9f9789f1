package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// ErrNotFound indica notificação inexistente ou de outro usuário.
var ErrNotFound = errors.New("notificação não encontrada")

// Notification representa um aviso entregue ao usuário.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	RefID     *uuid.UUID `json:"ref_id,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

// Repository concentra o acesso a dados de notificações.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria repositório de notificações.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert grava uma notificação nova.
func (r *Repository) Insert(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        INSERT INTO notifications (id, user_id, kind, title, body, ref_id, read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body, n.RefID)
	return err
}

// ListByUser lista notificações do usuário, mais recentes primeiro.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `
        SELECT id, user_id, kind, title, body, ref_id, read, created_at
          FROM notifications
         WHERE user_id = $1`
	if onlyUnread {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.RefID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marca como lida uma notificação do próprio usuário.
func (r *Repository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE notifications SET read = TRUE
         WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marca todas as notificações do usuário como lidas.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        UPDATE notifications SET read = TRUE
         WHERE user_id = $1 AND read = FALSE`, userID)
	return err
}

type notificationRepository interface {
	Insert(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// Service aplica regras de notificações.
type Service struct {
	repo notificationRepository
}

// NewService cria serviço de notificações.
func NewService(repo notificationRepository) *Service {
	return &Service{repo: repo}
}

// Notify grava notificação para o usuário. Implementa o contrato usado
// pelos demais módulos.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, refID *uuid.UUID) error {
	return s.repo.Insert(ctx, Notification{
		ID:     uuid.New(),
		UserID: userID,
		Kind:   kind,
		Title:  title,
		Body:   body,
		RefID:  refID,
	})
}

// List lista notificações do usuário.
func (s *Service) List(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID, onlyUnread)
}

// MarkRead marca uma como lida.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead marca todas como lidas.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
