package agenda

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	httpmiddleware "github.com/agendaacademica/api/internal/http/middleware"
)

type stubAgendaRepo struct {
	creatorID uuid.UUID
	event     Event
	member    bool
	creates   int

	statuses map[uuid.UUID]string
}

func (s *stubAgendaRepo) Create(ctx context.Context, in CreateInput) (Event, error) {
	s.creates++
	ev := s.event
	ev.Title = in.Title
	ev.Type = in.Type
	ev.CreatedBy = in.CreatedBy
	for _, p := range in.Participants {
		ev.Participants = append(ev.Participants, Participant{UserID: p, Status: StatusPending})
	}
	return ev, nil
}
func (s *stubAgendaRepo) Get(ctx context.Context, id uuid.UUID) (Event, error) {
	if id != s.event.ID {
		return Event{}, ErrNotFound
	}
	return s.event, nil
}
func (s *stubAgendaRepo) ListByDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]Event, error) {
	return []Event{s.event}, nil
}
func (s *stubAgendaRepo) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Event, error) {
	return []Event{s.event}, nil
}
func (s *stubAgendaRepo) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Event, error) {
	ev := s.event
	ev.Title = in.Title
	return ev, nil
}
func (s *stubAgendaRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	return nil
}
func (s *stubAgendaRepo) SetParticipantStatus(ctx context.Context, eventID, userID uuid.UUID, status string) error {
	if s.statuses == nil {
		s.statuses = make(map[uuid.UUID]string)
	}
	s.statuses[userID] = status
	return nil
}
func (s *stubAgendaRepo) IsParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	return s.member, nil
}

type stubNotifier struct {
	sent []uuid.UUID
}

func (n *stubNotifier) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, refID *uuid.UUID) error {
	n.sent = append(n.sent, userID)
	return nil
}

func TestAgendaHandlers(t *testing.T) {
	creatorID := uuid.New()
	repo := &stubAgendaRepo{creatorID: creatorID, member: true}
	repo.event = Event{
		ID:        uuid.New(),
		Title:     "Seminário de Algoritmos",
		Type:      TypeSeminario,
		StartsAt:  time.Now().Add(24 * time.Hour),
		CreatedBy: creatorID,
		Participants: []Participant{
			{UserID: creatorID, FullName: "Prof. Ana", Status: StatusAccepted},
		},
	}

	notifier := &stubNotifier{}
	svc := NewService(repo, redis.NewClient(&redis.Options{Addr: "localhost:0"}), notifier)
	handler := NewHandler(svc)

	invited := uuid.New()
	starts := time.Now().Add(48 * time.Hour).Format(time.RFC3339)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"list-dia", http.MethodGet, "/events", nil, http.StatusOK},
		{"list-intervalo", http.MethodGet, "/events?from=" + time.Now().Format(time.RFC3339) + "&to=" + time.Now().Add(72*time.Hour).Format(time.RFC3339), nil, http.StatusOK},
		{"create", http.MethodPost, "/events", map[string]any{"title": "Aula de Cálculo", "type": "aula", "starts_at": starts, "participants": []string{invited.String()}}, http.StatusCreated},
		{"create-tipo-invalido", http.MethodPost, "/events", map[string]any{"title": "X", "type": "festa", "starts_at": starts}, http.StatusBadRequest},
		{"get", http.MethodGet, "/events/" + repo.event.ID.String(), nil, http.StatusOK},
		{"update", http.MethodPut, "/events/" + repo.event.ID.String(), map[string]any{"title": "Seminário atualizado", "type": "seminario", "starts_at": starts}, http.StatusOK},
		{"cancel", http.MethodPost, "/events/" + repo.event.ID.String() + "/cancel", nil, http.StatusOK},
		{"respond", http.MethodPost, "/events/" + repo.event.ID.String() + "/respond", map[string]any{"status": "accepted"}, http.StatusOK},
		{"respond-invalido", http.MethodPost, "/events/" + repo.event.ID.String() + "/respond", map[string]any{"status": "maybe"}, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, requestBody(tc.body))
			req = withAuth(req, creatorID)
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			handler.RegisterRoutes(r)
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}

	if len(notifier.sent) == 0 {
		t.Fatal("criação com convidados deveria gerar notificações")
	}
}

func TestAgendaCreateRequiresProfessor(t *testing.T) {
	repo := &stubAgendaRepo{}
	handler := NewHandler(NewService(repo, redis.NewClient(&redis.Options{Addr: "localhost:0"}), nil))

	body := map[string]any{"title": "Monitoria", "type": "aula", "starts_at": time.Now().Add(time.Hour).Format(time.RFC3339)}
	req := httptest.NewRequest(http.MethodPost, "/events", requestBody(body))
	req = withAuthRole(req, uuid.New(), "STUDENT")
	rec := httptest.NewRecorder()

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
	if repo.creates != 0 {
		t.Fatal("estudante não deveria criar evento")
	}
}

func TestAgendaUpdateForbiddenForNonCreator(t *testing.T) {
	repo := &stubAgendaRepo{member: true}
	repo.event = Event{ID: uuid.New(), Title: "Prova", Type: TypeProva, StartsAt: time.Now(), CreatedBy: uuid.New()}

	handler := NewHandler(NewService(repo, redis.NewClient(&redis.Options{Addr: "localhost:0"}), nil))

	body := map[string]any{"title": "Prova alterada", "type": "prova", "starts_at": time.Now().Format(time.RFC3339)}
	req := httptest.NewRequest(http.MethodPut, "/events/"+repo.event.ID.String(), requestBody(body))
	req = withAuth(req, uuid.New())
	rec := httptest.NewRecorder()

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
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
	return withAuthRole(req, userID, "PROFESSOR")
}

func withAuthRole(req *http.Request, userID uuid.UUID, role string) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, httpmiddleware.ContextKeySubject, userID.String())
	ctx = context.WithValue(ctx, httpmiddleware.ContextKeyRoles, []string{role})
	return req.WithContext(ctx)
}
