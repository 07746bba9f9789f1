package agenda

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indica evento inexistente.
	ErrNotFound = errors.New("evento não encontrado")
	// ErrForbidden indica ação reservada ao criador do evento.
	ErrForbidden = errors.New("ação reservada ao criador do evento")
	// ErrInvalidType indica tipo de evento desconhecido.
	ErrInvalidType = errors.New("tipo de evento inválido")
	// ErrInvalidPeriod indica término anterior ao início.
	ErrInvalidPeriod = errors.New("término deve ser posterior ao início")
	// ErrInvalidStatus indica resposta de convite desconhecida.
	ErrInvalidStatus = errors.New("resposta de convite inválida")
)

// Tipos de evento aceitos.
const (
	TypeAula      = "aula"
	TypeSeminario = "seminario"
	TypeReuniao   = "reuniao"
	TypeProva     = "prova"
	TypeOutro     = "outro"
)

// Status de participação.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Event representa um compromisso acadêmico.
type Event struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Type        string        `json:"type"`
	Location    *string       `json:"location,omitempty"`
	StartsAt    time.Time     `json:"starts_at"`
	EndsAt      *time.Time    `json:"ends_at,omitempty"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	Cancelled   bool          `json:"cancelled"`
	Participants []Participant `json:"participants,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Participant associa um perfil a um evento com status de convite.
type Participant struct {
	UserID   uuid.UUID `json:"user_id"`
	FullName string    `json:"full_name"`
	Status   string    `json:"status"`
}

// CreateInput agrupa dados de criação de evento.
type CreateInput struct {
	Title        string
	Description  *string
	Type         string
	Location     *string
	StartsAt     time.Time
	EndsAt       *time.Time
	CreatedBy    uuid.UUID
	Participants []uuid.UUID
}

// UpdateInput agrupa dados de alteração de evento.
type UpdateInput struct {
	Title       string
	Description *string
	Type        string
	Location    *string
	StartsAt    time.Time
	EndsAt      *time.Time
}

// ValidType verifica se o tipo de evento é conhecido.
func ValidType(t string) bool {
	switch t {
	case TypeAula, TypeSeminario, TypeReuniao, TypeProva, TypeOutro:
		return true
	}
	return false
}
