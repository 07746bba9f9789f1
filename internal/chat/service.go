package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxContentLength limita o tamanho do corpo da mensagem.
const MaxContentLength = 4000

type chatRepository interface {
	ListContacts(ctx context.Context, self uuid.UUID) ([]Contact, error)
	ListThreads(ctx context.Context, userID uuid.UUID) ([]Thread, error)
	IsParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error)
	MessagesPage(ctx context.Context, threadID uuid.UUID, page int) (MessagePage, error)
	InsertMessage(ctx context.Context, in SendInput) (Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (Message, error)
	EditMessage(ctx context.Context, id, senderID uuid.UUID, content string) (Message, error)
	SoftDeleteMessage(ctx context.Context, id, senderID uuid.UUID) (Message, error)
	ResolveDirectThread(ctx context.Context, a, b uuid.UUID) (uuid.UUID, bool, error)
	MarkRead(ctx context.Context, messageID, userID uuid.UUID) error
	MarkThreadRead(ctx context.Context, threadID, userID uuid.UUID) error
}

// Publisher entrega eventos de chat aos clientes conectados na conversa.
type Publisher interface {
	Publish(threadID uuid.UUID, eventType string, payload any)
}

type presenceChecker interface {
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service aplica as regras de negócio do chat.
type Service struct {
	repo      chatRepository
	publisher Publisher
	presence  presenceChecker
}

// NewService cria serviço de chat.
func NewService(repo chatRepository, publisher Publisher, presence presenceChecker) *Service {
	return &Service{repo: repo, publisher: publisher, presence: presence}
}

// ListContacts lista usuários disponíveis para conversa, com status online.
func (s *Service) ListContacts(ctx context.Context, self uuid.UUID) ([]Contact, error) {
	contacts, err := s.repo.ListContacts(ctx, self)
	if err != nil {
		return nil, err
	}
	if s.presence != nil {
		for i := range contacts {
			online, err := s.presence.IsOnline(ctx, contacts[i].ID)
			if err != nil {
				log.Warn().Err(err).Str("user_id", contacts[i].ID.String()).Msg("chat: presence lookup failed")
				continue
			}
			contacts[i].Online = online
		}
	}
	return contacts, nil
}

// ListThreads lista conversas diretas do usuário.
func (s *Service) ListThreads(ctx context.Context, userID uuid.UUID) ([]Thread, error) {
	return s.repo.ListThreads(ctx, userID)
}

// OpenDirectThread localiza ou cria a conversa direta com outro usuário.
func (s *Service) OpenDirectThread(ctx context.Context, self, other uuid.UUID) (uuid.UUID, bool, error) {
	if self == other {
		return uuid.Nil, false, ErrSelfThread
	}
	return s.repo.ResolveDirectThread(ctx, self, other)
}

// Messages retorna uma página de mensagens, exigindo participação.
func (s *Service) Messages(ctx context.Context, threadID, userID uuid.UUID, page int) (MessagePage, error) {
	if page < 0 {
		page = 0
	}
	if err := s.requireMember(ctx, threadID, userID); err != nil {
		return MessagePage{}, err
	}
	return s.repo.MessagesPage(ctx, threadID, page)
}

// Send grava e difunde uma mensagem. Sem ThreadID, a conversa direta com o
// destinatário é resolvida (ou criada) antes da inserção, num único passo.
func (s *Service) Send(ctx context.Context, in SendInput) (Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return Message{}, ErrEmptyContent
	}
	in.Content = clampContent(in.Content)

	if in.ThreadID == uuid.Nil {
		if in.RecipientID == uuid.Nil {
			return Message{}, ErrMissingDestination
		}
		if in.RecipientID == in.SenderID {
			return Message{}, ErrSelfThread
		}
		threadID, _, err := s.repo.ResolveDirectThread(ctx, in.SenderID, in.RecipientID)
		if err != nil {
			return Message{}, err
		}
		in.ThreadID = threadID
	}

	if err := s.requireMember(ctx, in.ThreadID, in.SenderID); err != nil {
		return Message{}, err
	}

	msg, err := s.repo.InsertMessage(ctx, in)
	if err != nil {
		return Message{}, err
	}
	s.broadcast(msg.ThreadID, "message.new", msg)
	return msg, nil
}

// Edit altera mensagem do próprio autor.
func (s *Service) Edit(ctx context.Context, messageID, userID uuid.UUID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyContent
	}
	content = clampContent(content)
	msg, err := s.repo.EditMessage(ctx, messageID, userID, content)
	if err != nil {
		return Message{}, err
	}
	s.broadcast(msg.ThreadID, "message.edited", msg)
	return msg, nil
}

// Delete marca mensagem do próprio autor como apagada.
func (s *Service) Delete(ctx context.Context, messageID, userID uuid.UUID) (Message, error) {
	msg, err := s.repo.SoftDeleteMessage(ctx, messageID, userID)
	if err != nil {
		return Message{}, err
	}
	s.broadcast(msg.ThreadID, "message.deleted", msg)
	return msg, nil
}

// MarkRead registra leitura de uma mensagem.
func (s *Service) MarkRead(ctx context.Context, messageID, userID uuid.UUID) error {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, msg.ThreadID, userID); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, messageID, userID)
}

// MarkThreadRead zera o contador de não lidas da conversa.
func (s *Service) MarkThreadRead(ctx context.Context, threadID, userID uuid.UUID) error {
	if err := s.requireMember(ctx, threadID, userID); err != nil {
		return err
	}
	return s.repo.MarkThreadRead(ctx, threadID, userID)
}

// RequireMember expõe a checagem de participação para o upgrade de websocket.
func (s *Service) RequireMember(ctx context.Context, threadID, userID uuid.UUID) error {
	return s.requireMember(ctx, threadID, userID)
}

func (s *Service) requireMember(ctx context.Context, threadID, userID uuid.UUID) error {
	ok, err := s.repo.IsParticipant(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// clampContent corta no limite sem partir um rune no meio; o corte em byte
// cru produziria UTF-8 inválido, que o banco rejeita.
func clampContent(s string) string {
	if len(s) <= MaxContentLength {
		return s
	}
	cut := MaxContentLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (s *Service) broadcast(threadID uuid.UUID, eventType string, msg Message) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(threadID, eventType, msg)
}
