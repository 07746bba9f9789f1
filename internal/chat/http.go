package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/agendaacademica/api/internal/http/middleware"
)

// Handler orquestra rotas do módulo de chat.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/contacts", h.handleListContacts)
		r.Get("/threads", h.handleListThreads)
		r.Post("/threads/direct", h.handleOpenDirectThread)
		r.Get("/threads/{id}/messages", h.handleListMessages)
		r.Post("/threads/{id}/read", h.handleMarkThreadRead)
		r.Post("/messages", h.handleSendMessage)
		r.Patch("/messages/{id}", h.handleEditMessage)
		r.Delete("/messages/{id}", h.handleDeleteMessage)
		r.Post("/messages/{id}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	contacts, err := h.service.ListContacts(ctx, userID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	logRequest(ctx, "GET /chat/contacts", userID, start)
	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

func (h *Handler) handleListThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	threads, err := h.service.ListThreads(ctx, userID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	logRequest(ctx, "GET /chat/threads", userID, start)
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (h *Handler) handleOpenDirectThread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}
	other, err := uuid.Parse(payload.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "user_id inválido", nil)
		return
	}

	threadID, created, err := h.service.OpenDirectThread(ctx, userID, other)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	logRequest(ctx, "POST /chat/threads/direct", userID, start)
	writeJSON(w, status, map[string]any{"thread_id": threadID, "created": created})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION", "página inválida", nil)
			return
		}
	}

	result, err := h.service.Messages(ctx, threadID, userID, page)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /chat/threads/{id}/messages", userID, start)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMarkThreadRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.service.MarkThreadRead(ctx, threadID, userID); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		ThreadID    string `json:"thread_id"`
		RecipientID string `json:"recipient_id"`
		Content     string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	in := SendInput{SenderID: userID, Content: payload.Content}
	if payload.ThreadID != "" {
		threadID, err := uuid.Parse(payload.ThreadID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "thread_id inválido", nil)
			return
		}
		in.ThreadID = threadID
	}
	if payload.RecipientID != "" {
		recipientID, err := uuid.Parse(payload.RecipientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "recipient_id inválido", nil)
			return
		}
		in.RecipientID = recipientID
	}

	msg, err := h.service.Send(ctx, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /chat/messages", userID, start)
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	msg, err := h.service.Edit(ctx, messageID, userID, payload.Content)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	msg, err := h.service.Delete(ctx, messageID, userID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.service.MarkRead(ctx, messageID, userID); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func subjectAsUUID(ctx context.Context) (uuid.UUID, error) {
	sub := httpmiddleware.GetSubject(ctx)
	return uuid.Parse(sub)
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "sem acesso à conversa", nil)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	case errors.Is(err, ErrNotOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "mensagem de outro autor", nil)
	case errors.Is(err, ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "VALIDATION", "conteúdo obrigatório", nil)
	case errors.Is(err, ErrSelfThread):
		writeError(w, http.StatusBadRequest, "VALIDATION", "conversa direta exige outro usuário", nil)
	case errors.Is(err, ErrMissingDestination):
		writeError(w, http.StatusBadRequest, "VALIDATION", "informe a conversa ou o destinatário", nil)
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("chat handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

func logRequest(ctx context.Context, label string, userID uuid.UUID, start time.Time) {
	logger := log.Ctx(ctx)
	if logger == nil {
		logger = &log.Logger
	}
	reqID := chimiddleware.GetReqID(ctx)
	logger.Info().Str("request_id", reqID).Str("user_id", userID.String()).Str("label", label).Dur("duration", time.Since(start)).Msg("chat_request")
}

// Helpers de resposta JSON compatíveis com o resto do projeto.
type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any            `json:"data"`
	Error *errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: payload, Error: nil})
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Data: nil, Error: &errorResponse{Code: code, Message: message, Details: details}})
}
