package material

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

var (
	// ErrNotFound indica material inexistente.
	ErrNotFound = errors.New("material não encontrado")
	// ErrForbidden indica acesso sem participação no evento.
	ErrForbidden = errors.New("sem acesso ao material")
	// ErrNotUploader indica remoção por quem não enviou o material.
	ErrNotUploader = errors.New("material enviado por outro usuário")
	// ErrEmptyFile indica upload sem conteúdo.
	ErrEmptyFile = errors.New("arquivo vazio")
	// ErrFileTooLarge indica arquivo acima do limite.
	ErrFileTooLarge = errors.New("arquivo excede o limite")
)

// MaxFileSize limita uploads de materiais.
const MaxFileSize = 25 << 20 // 25 MiB

// Material representa um arquivo de apoio vinculado a um evento.
type Material struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	Title       string    `json:"title"`
	FileURL     string    `json:"file_url"`
	FileKey     string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository concentra o acesso a dados de materiais.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria repositório de materiais.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const materialColumns = `id, event_id, title, file_url, file_key, content_type, size_bytes, uploaded_by, created_at`

// Insert grava material novo.
func (r *Repository) Insert(ctx context.Context, m Material) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        INSERT INTO materials (id, event_id, title, file_url, file_key, content_type, size_bytes, uploaded_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		m.ID, m.EventID, m.Title, m.FileURL, m.FileKey, m.ContentType, m.SizeBytes, m.UploadedBy)
	return err
}

// Get busca material por id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Material, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var m Material
	err := r.pool.QueryRow(ctx, `
        SELECT `+materialColumns+` FROM materials WHERE id = $1`, id).
		Scan(&m.ID, &m.EventID, &m.Title, &m.FileURL, &m.FileKey, &m.ContentType, &m.SizeBytes, &m.UploadedBy, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Material{}, ErrNotFound
	}
	if err != nil {
		return Material{}, err
	}
	return m, nil
}

// ListByEvent lista materiais do evento, mais recentes primeiro.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Material, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT `+materialColumns+` FROM materials
         WHERE event_id = $1
         ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.EventID, &m.Title, &m.FileURL, &m.FileKey, &m.ContentType, &m.SizeBytes, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete remove o registro do material.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsEventParticipant verifica participação no evento do material.
func (r *Repository) IsEventParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
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
