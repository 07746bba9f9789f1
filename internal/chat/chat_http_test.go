package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/agendaacademica/api/internal/http/middleware"
)

type stubChatRepo struct {
	userID   uuid.UUID
	threadID uuid.UUID
	message  Message
	member   bool

	inserted []SendInput
	reads    []uuid.UUID
	resolves int
}

func (s *stubChatRepo) ListContacts(ctx context.Context, self uuid.UUID) ([]Contact, error) {
	return []Contact{{ID: uuid.New(), FullName: "Maria Souza", Role: "student"}}, nil
}
func (s *stubChatRepo) ListThreads(ctx context.Context, userID uuid.UUID) ([]Thread, error) {
	return []Thread{{ID: s.threadID, Title: "Conversa direta", DirectMessage: true, UpdatedAt: time.Now()}}, nil
}
func (s *stubChatRepo) IsParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error) {
	return s.member, nil
}
func (s *stubChatRepo) MessagesPage(ctx context.Context, threadID uuid.UUID, page int) (MessagePage, error) {
	return MessagePage{Messages: []Message{s.message}, Page: page, HasMore: false}, nil
}
func (s *stubChatRepo) InsertMessage(ctx context.Context, in SendInput) (Message, error) {
	s.inserted = append(s.inserted, in)
	msg := s.message
	msg.Content = in.Content
	msg.SenderID = in.SenderID
	return msg, nil
}
func (s *stubChatRepo) GetMessage(ctx context.Context, id uuid.UUID) (Message, error) {
	if id != s.message.ID {
		return Message{}, ErrNotFound
	}
	return s.message, nil
}
func (s *stubChatRepo) EditMessage(ctx context.Context, id, senderID uuid.UUID, content string) (Message, error) {
	if senderID != s.message.SenderID {
		return Message{}, ErrNotOwner
	}
	msg := s.message
	msg.Content = content
	msg.Edited = true
	return msg, nil
}
func (s *stubChatRepo) SoftDeleteMessage(ctx context.Context, id, senderID uuid.UUID) (Message, error) {
	if senderID != s.message.SenderID {
		return Message{}, ErrNotOwner
	}
	msg := s.message
	msg.Deleted = true
	msg.Content = ""
	return msg, nil
}
func (s *stubChatRepo) ResolveDirectThread(ctx context.Context, a, b uuid.UUID) (uuid.UUID, bool, error) {
	s.resolves++
	return s.threadID, true, nil
}
func (s *stubChatRepo) MarkRead(ctx context.Context, messageID, userID uuid.UUID) error {
	s.reads = append(s.reads, messageID)
	return nil
}
func (s *stubChatRepo) MarkThreadRead(ctx context.Context, threadID, userID uuid.UUID) error {
	return nil
}

type stubPublisher struct {
	events []string
}

func (p *stubPublisher) Publish(threadID uuid.UUID, eventType string, payload any) {
	p.events = append(p.events, eventType)
}

func TestChatHandlers(t *testing.T) {
	userID := uuid.New()
	repo := &stubChatRepo{
		userID:   userID,
		threadID: uuid.New(),
		member:   true,
	}
	repo.message = Message{
		ID:        uuid.New(),
		ThreadID:  repo.threadID,
		SenderID:  userID,
		Content:   "olá",
		CreatedAt: time.Now(),
	}

	pub := &stubPublisher{}
	svc := NewService(repo, pub, nil)
	handler := NewHandler(svc)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"contacts", http.MethodGet, "/chat/contacts", nil, http.StatusOK},
		{"threads", http.MethodGet, "/chat/threads", nil, http.StatusOK},
		{"thread-direct", http.MethodPost, "/chat/threads/direct", map[string]any{"user_id": uuid.New().String()}, http.StatusCreated},
		{"messages", http.MethodGet, "/chat/threads/" + repo.threadID.String() + "/messages?page=0", nil, http.StatusOK},
		{"messages-pagina-invalida", http.MethodGet, "/chat/threads/" + repo.threadID.String() + "/messages?page=abc", nil, http.StatusBadRequest},
		{"send", http.MethodPost, "/chat/messages", map[string]any{"thread_id": repo.threadID.String(), "content": "nova mensagem"}, http.StatusCreated},
		{"send-destinatario", http.MethodPost, "/chat/messages", map[string]any{"recipient_id": uuid.New().String(), "content": "primeira mensagem"}, http.StatusCreated},
		{"send-sem-destino", http.MethodPost, "/chat/messages", map[string]any{"content": "perdida"}, http.StatusBadRequest},
		{"send-vazio", http.MethodPost, "/chat/messages", map[string]any{"thread_id": repo.threadID.String(), "content": "   "}, http.StatusBadRequest},
		{"edit", http.MethodPatch, "/chat/messages/" + repo.message.ID.String(), map[string]any{"content": "editada"}, http.StatusOK},
		{"delete", http.MethodDelete, "/chat/messages/" + repo.message.ID.String(), nil, http.StatusOK},
		{"read", http.MethodPost, "/chat/messages/" + repo.message.ID.String() + "/read", nil, http.StatusOK},
		{"thread-read", http.MethodPost, "/chat/threads/" + repo.threadID.String() + "/read", nil, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, requestBody(tc.body))
			req = withAuth(req, userID)
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			handler.RegisterRoutes(r)
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}

	if len(pub.events) == 0 {
		t.Fatal("envio deveria difundir evento para a conversa")
	}
}

func TestChatForbiddenForNonMember(t *testing.T) {
	userID := uuid.New()
	repo := &stubChatRepo{userID: userID, threadID: uuid.New(), member: false}
	repo.message = Message{ID: uuid.New(), ThreadID: repo.threadID, SenderID: userID}

	handler := NewHandler(NewService(repo, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/chat/threads/"+repo.threadID.String()+"/messages", nil)
	req = withAuth(req, userID)
	rec := httptest.NewRecorder()

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestSendWithRecipientResolvesThread(t *testing.T) {
	userID := uuid.New()
	repo := &stubChatRepo{userID: userID, threadID: uuid.New(), member: true}
	repo.message = Message{ID: uuid.New(), ThreadID: repo.threadID, SenderID: userID, CreatedAt: time.Now()}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	msg, err := svc.Send(ctx, SendInput{SenderID: userID, RecipientID: uuid.New(), Content: "oi"})
	if err != nil {
		t.Fatalf("envio por destinatário falhou: %v", err)
	}
	if repo.resolves != 1 {
		t.Fatalf("esperava 1 resolução de conversa, obteve %d", repo.resolves)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].ThreadID != repo.threadID {
		t.Fatalf("mensagem deveria entrar na conversa resolvida: %+v", repo.inserted)
	}
	if msg.ThreadID != repo.threadID {
		t.Fatalf("retorno deveria trazer a conversa resolvida, obteve %s", msg.ThreadID)
	}

	if _, err := svc.Send(ctx, SendInput{SenderID: userID, RecipientID: userID, Content: "oi"}); !errors.Is(err, ErrSelfThread) {
		t.Fatalf("esperava ErrSelfThread, obteve %v", err)
	}
	if _, err := svc.Send(ctx, SendInput{SenderID: userID, Content: "oi"}); !errors.Is(err, ErrMissingDestination) {
		t.Fatalf("esperava ErrMissingDestination, obteve %v", err)
	}
}

func TestSendClampKeepsValidUTF8(t *testing.T) {
	userID := uuid.New()
	repo := &stubChatRepo{userID: userID, threadID: uuid.New(), member: true}
	repo.message = Message{ID: uuid.New(), ThreadID: repo.threadID, SenderID: userID, CreatedAt: time.Now()}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	// 4001 bytes: o último rune (2 bytes) atravessa o limite.
	content := strings.Repeat("a", MaxContentLength-1) + "é"

	if _, err := svc.Send(ctx, SendInput{ThreadID: repo.threadID, SenderID: userID, Content: content}); err != nil {
		t.Fatalf("envio longo falhou: %v", err)
	}
	got := repo.inserted[0].Content
	if len(got) > MaxContentLength {
		t.Fatalf("conteúdo excede o limite: %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatal("corte deixou UTF-8 inválido")
	}

	edited, err := svc.Edit(ctx, repo.message.ID, userID, content)
	if err != nil {
		t.Fatalf("edição longa falhou: %v", err)
	}
	if len(edited.Content) > MaxContentLength || !utf8.ValidString(edited.Content) {
		t.Fatalf("edição deveria respeitar o mesmo corte: %d bytes", len(edited.Content))
	}
}

func requestBody(body any) *bytes.Buffer {
	if body == nil {
		return bytes.NewBuffer(nil)
	}
	b, _ := json.Marshal(body)
	return bytes.NewBuffer(b)
}

func withAuth(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, httpmiddleware.ContextKeySubject, userID.String())
	ctx = context.WithValue(ctx, httpmiddleware.ContextKeyRoles, []string{"STUDENT"})
	return req.WithContext(ctx)
}
