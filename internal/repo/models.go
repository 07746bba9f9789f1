package repo

import (
	"time"

	"github.com/google/uuid"
)

// Papéis aceitos no cadastro.
const (
	RoleProfessor = "professor"
	RoleStudent   = "student"
)

// Profile representa a identidade de um usuário da plataforma.
type Profile struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Role      string
	AvatarURL *string
	SenhaHash string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken modela a tabela de refresh tokens.
type RefreshToken struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// InsertRefreshTokenParams agrupa campos do insert de refresh token.
type InsertRefreshTokenParams struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
