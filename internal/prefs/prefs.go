package prefs

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
	// ErrInvalidTheme indica tema desconhecido.
	ErrInvalidTheme = errors.New("tema inválido")
	// ErrInvalidFontSize indica tamanho de fonte desconhecido.
	ErrInvalidFontSize = errors.New("tamanho de fonte inválido")
)

// Valores aceitos.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"

	FontSmall  = "small"
	FontMedium = "medium"
	FontLarge  = "large"
)

// Preferences guarda preferências de exibição do usuário.
type Preferences struct {
	UserID       uuid.UUID `json:"user_id"`
	Theme        string    `json:"theme"`
	FontSize     string    `json:"font_size"`
	HighContrast bool      `json:"high_contrast"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Defaults retorna as preferências padrão de um usuário sem registro.
func Defaults(userID uuid.UUID) Preferences {
	return Preferences{
		UserID:   userID,
		Theme:    ThemeSystem,
		FontSize: FontMedium,
	}
}

// Validate confere os valores enumerados.
func (p Preferences) Validate() error {
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return ErrInvalidTheme
	}
	switch p.FontSize {
	case FontSmall, FontMedium, FontLarge:
	default:
		return ErrInvalidFontSize
	}
	return nil
}

// Repository concentra o acesso a dados de preferências.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria repositório de preferências.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get busca preferências; retorna padrão quando não há registro.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (Preferences, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var p Preferences
	err := r.pool.QueryRow(ctx, `
        SELECT user_id, theme, font_size, high_contrast, updated_at
          FROM user_preferences
         WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Theme, &p.FontSize, &p.HighContrast, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(userID), nil
	}
	if err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Upsert grava preferências do usuário.
func (r *Repository) Upsert(ctx context.Context, p Preferences) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        INSERT INTO user_preferences (user_id, theme, font_size, high_contrast, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (user_id)
        DO UPDATE SET theme = EXCLUDED.theme, font_size = EXCLUDED.font_size,
                      high_contrast = EXCLUDED.high_contrast, updated_at = NOW()`,
		p.UserID, p.Theme, p.FontSize, p.HighContrast)
	return err
}

type prefsRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (Preferences, error)
	Upsert(ctx context.Context, p Preferences) error
}

// Service aplica regras de preferências.
type Service struct {
	repo prefsRepository
}

// NewService cria serviço de preferências.
func NewService(repo prefsRepository) *Service {
	return &Service{repo: repo}
}

// Get busca preferências do usuário.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (Preferences, error) {
	return s.repo.Get(ctx, userID)
}

// Put valida e grava preferências do usuário.
func (s *Service) Put(ctx context.Context, p Preferences) (Preferences, error) {
	if p.Theme == "" {
		p.Theme = ThemeSystem
	}
	if p.FontSize == "" {
		p.FontSize = FontMedium
	}
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return Preferences{}, err
	}
	return p, nil
}
