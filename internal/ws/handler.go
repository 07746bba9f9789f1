package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/agendaacademica/api/internal/auth"
	"github.com/agendaacademica/api/internal/chat"
)

// chatAccess reúne o que o canal precisa do chat: checagem de participação
// no upgrade e histórico paginado para as sessões conectadas.
type chatAccess interface {
	RequireMember(ctx context.Context, threadID, userID uuid.UUID) error
	Messages(ctx context.Context, threadID, userID uuid.UUID, page int) (chat.MessagePage, error)
}

// Handler faz o upgrade autenticado de conexões websocket por conversa.
type Handler struct {
	hub      *Hub
	jwt      *auth.JWTManager
	chat     chatAccess
	upgrader websocket.Upgrader
}

// NewHandler cria handler de websocket restrito às origens permitidas.
func NewHandler(hub *Hub, jwtMgr *auth.JWTManager, chat chatAccess, allowOrigins []string) *Handler {
	return &Handler{
		hub:  hub,
		jwt:  jwtMgr,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowOrigins),
		},
	}
}

// ServeHTTP atende GET /ws?thread_id=...&token=...
// O token vem por query string porque browsers não enviam headers no upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(r.URL.Query().Get("thread_id"))
	if err != nil {
		http.Error(w, "thread_id inválido", http.StatusBadRequest)
		return
	}

	claims, err := h.jwt.ParseAndValidate(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "token inválido", http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		http.Error(w, "token inválido", http.StatusUnauthorized)
		return
	}

	if err := h.chat.RequireMember(r.Context(), threadID, userID); err != nil {
		http.Error(w, "sem acesso à conversa", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws: upgrade failed")
		return
	}

	c := newClient(h.hub, threadID, userID, conn, h.chat)
	h.hub.Join(threadID, c)
	go c.writePump()
	go c.readPump()
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			o = strings.TrimSpace(o)
			if o == "" {
				continue
			}
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
			if strings.HasPrefix(o, "*.") {
				if strings.HasSuffix(origin, strings.TrimPrefix(o, "*")) {
					return true
				}
			}
		}
		return false
	}
}
