package prefs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/agendaacademica/api/internal/http/middleware"
)

// Handler orquestra rotas de preferências.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/preferences", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handlePut)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida")
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("prefs handler error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida")
		return
	}

	var payload struct {
		Theme        string `json:"theme"`
		FontSize     string `json:"font_size"`
		HighContrast bool   `json:"high_contrast"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido")
		return
	}

	p, err := h.service.Put(r.Context(), Preferences{
		UserID:       userID,
		Theme:        payload.Theme,
		FontSize:     payload.FontSize,
		HighContrast: payload.HighContrast,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTheme) || errors.Is(err, ErrInvalidFontSize) {
			writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
		log.Error().Err(err).Msg("prefs handler error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": payload, "error": nil})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": nil, "error": map[string]string{"code": code, "message": message}})
}
