package announcements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

var (
	// ErrNotFound indica comunicado inexistente.
	ErrNotFound = errors.New("comunicado não encontrado")
	// ErrForbidden indica alteração por quem não publicou.
	ErrForbidden = errors.New("comunicado publicado por outro usuário")
	// ErrInvalidPriority indica prioridade desconhecida.
	ErrInvalidPriority = errors.New("prioridade inválida")
	// ErrEmptyTitle indica comunicado sem título.
	ErrEmptyTitle = errors.New("título é obrigatório")
)

// Prioridades aceitas.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Announcement representa um comunicado institucional.
type Announcement struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Priority   string     `json:"priority"`
	AuthorID   uuid.UUID  `json:"author_id"`
	AuthorName string     `json:"author_name,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Repository concentra o acesso a dados de comunicados.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria repositório de comunicados.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert grava comunicado novo.
func (r *Repository) Insert(ctx context.Context, a Announcement) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        INSERT INTO announcements (id, title, body, priority, author_id, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		a.ID, a.Title, a.Body, a.Priority, a.AuthorID, a.ExpiresAt)
	return err
}

// Get busca comunicado por id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a Announcement
	err := r.pool.QueryRow(ctx, `
        SELECT a.id, a.title, a.body, a.priority, a.author_id, p.full_name, a.expires_at, a.created_at
          FROM announcements a
          JOIN profiles p ON p.id = a.author_id
         WHERE a.id = $1`, id).
		Scan(&a.ID, &a.Title, &a.Body, &a.Priority, &a.AuthorID, &a.AuthorName, &a.ExpiresAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Announcement{}, ErrNotFound
	}
	if err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// ListActive lista comunicados não expirados, prioridade alta primeiro.
func (r *Repository) ListActive(ctx context.Context) ([]Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT a.id, a.title, a.body, a.priority, a.author_id, p.full_name, a.expires_at, a.created_at
          FROM announcements a
          JOIN profiles p ON p.id = a.author_id
         WHERE a.expires_at IS NULL OR a.expires_at > NOW()
         ORDER BY CASE a.priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END,
                  a.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Priority, &a.AuthorID, &a.AuthorName, &a.ExpiresAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update altera comunicado existente.
func (r *Repository) Update(ctx context.Context, a Announcement) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE announcements
           SET title = $2, body = $3, priority = $4, expires_at = $5
         WHERE id = $1`, a.ID, a.Title, a.Body, a.Priority, a.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete remove comunicado.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type announcementRepository interface {
	Insert(ctx context.Context, a Announcement) error
	Get(ctx context.Context, id uuid.UUID) (Announcement, error)
	ListActive(ctx context.Context) ([]Announcement, error)
	Update(ctx context.Context, a Announcement) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service aplica regras de comunicados.
type Service struct {
	repo announcementRepository
}

// NewService cria serviço de comunicados.
func NewService(repo announcementRepository) *Service {
	return &Service{repo: repo}
}

func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Create publica comunicado novo.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, title, body, priority string, expiresAt *time.Time) (Announcement, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Announcement{}, ErrEmptyTitle
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !validPriority(priority) {
		return Announcement{}, ErrInvalidPriority
	}

	a := Announcement{
		ID:        uuid.New(),
		Title:     title,
		Body:      strings.TrimSpace(body),
		Priority:  priority,
		AuthorID:  authorID,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// ListActive lista comunicados vigentes.
func (s *Service) ListActive(ctx context.Context) ([]Announcement, error) {
	return s.repo.ListActive(ctx)
}

// Update altera comunicado do próprio autor.
func (s *Service) Update(ctx context.Context, id, authorID uuid.UUID, title, body, priority string, expiresAt *time.Time) (Announcement, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if existing.AuthorID != authorID {
		return Announcement{}, ErrForbidden
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return Announcement{}, ErrEmptyTitle
	}
	if !validPriority(priority) {
		return Announcement{}, ErrInvalidPriority
	}

	existing.Title = title
	existing.Body = strings.TrimSpace(body)
	existing.Priority = priority
	existing.ExpiresAt = expiresAt
	if err := s.repo.Update(ctx, existing); err != nil {
		return Announcement{}, err
	}
	return existing, nil
}

// Delete remove comunicado do próprio autor.
func (s *Service) Delete(ctx context.Context, id, authorID uuid.UUID) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
