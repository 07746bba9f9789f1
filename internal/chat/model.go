package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PageSize define o tamanho fixo das páginas de mensagens.
const PageSize = 20

var (
	// ErrNotFound indica recurso de chat inexistente.
	ErrNotFound = errors.New("recurso não encontrado")
	// ErrForbidden indica acesso a conversa da qual o usuário não participa.
	ErrForbidden = errors.New("acesso negado à conversa")
	// ErrNotOwner indica tentativa de alterar mensagem de outro autor.
	ErrNotOwner = errors.New("mensagem pertence a outro usuário")
	// ErrEmptyContent indica mensagem sem conteúdo.
	ErrEmptyContent = errors.New("conteúdo da mensagem é obrigatório")
	// ErrSelfThread indica tentativa de abrir conversa direta consigo mesmo.
	ErrSelfThread = errors.New("conversa direta exige outro usuário")
	// ErrMissingDestination indica envio sem conversa nem destinatário.
	ErrMissingDestination = errors.New("informe a conversa ou o destinatário")
)

// Message representa uma mensagem persistida.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	ThreadID   uuid.UUID  `json:"thread_id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	SenderName string     `json:"sender_name"`
	Content    string     `json:"content"`
	Edited     bool       `json:"edited"`
	Deleted    bool       `json:"deleted"`
	CreatedAt  time.Time  `json:"created_at"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
}

// Thread descreve uma conversa (direta ou vinculada a evento).
type Thread struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	DirectMessage bool      `json:"direct_message"`
	Participants  []Member  `json:"participants"`
	LastMessage   *Message  `json:"last_message,omitempty"`
	UnreadCount   int       `json:"unread_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Member identifica um participante de conversa.
type Member struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
}

// Contact é um usuário disponível para iniciar conversa direta.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Online    bool      `json:"online"`
}

// SendInput agrupa dados de envio de mensagem. ThreadID pode ficar vazio
// quando RecipientID é informado: a conversa direta é resolvida (ou criada)
// no próprio envio.
type SendInput struct {
	ThreadID    uuid.UUID
	RecipientID uuid.UUID
	SenderID    uuid.UUID
	Content     string
}

// MessagePage é uma página ascendente de mensagens.
type MessagePage struct {
	Messages []Message `json:"messages"`
	Page     int       `json:"page"`
	HasMore  bool      `json:"has_more"`
}

// DMKey produz a chave canônica de conversa direta entre dois usuários.
// A ordenação lexicográfica garante a mesma chave independente de quem inicia.
func DMKey(a, b uuid.UUID) string {
	sa, sb := a.String(), b.String()
	if sa < sb {
		return sa + ":" + sb
	}
	return sb + ":" + sa
}
