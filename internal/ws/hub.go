package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event é o quadro entregue aos clientes conectados.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub mantém salas por conversa e difunde eventos aos inscritos.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]bool
}

// NewHub cria hub sem salas.
func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*Client]bool)}
}

// Join inscreve o cliente na sala da conversa.
func (h *Hub) Join(threadID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[threadID] == nil {
		h.rooms[threadID] = make(map[*Client]bool)
	}
	h.rooms[threadID][c] = true
}

// Leave remove o cliente e fecha seu canal de envio. O canal só fecha
// aqui, sob o lock exclusivo: Publish envia sob RLock, portanto nunca
// encontra um canal fechado.
func (h *Hub) Leave(threadID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[threadID]
	if room == nil {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, threadID)
	}
}

// Publish serializa e entrega o evento a todos os clientes da conversa.
// Clientes com buffer cheio são desconectados depois, fora do lock, em vez
// de bloquear a entrega aos demais.
func (h *Hub) Publish(threadID uuid.UUID, eventType string, payload any) {
	b, err := json.Marshal(Event{Type: eventType, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("ws: marshal event failed")
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[threadID] {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		c.Close()
	}
}

// RoomSize informa quantos clientes estão inscritos na conversa.
func (h *Hub) RoomSize(threadID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[threadID])
}
