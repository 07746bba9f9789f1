package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/agendaacademica/api/internal/chat"
)

// historyLoader busca páginas de histórico para o comando history.load.
type historyLoader interface {
	Messages(ctx context.Context, threadID, userID uuid.UUID, page int) (chat.MessagePage, error)
}

// Client representa uma conexão websocket inscrita em uma conversa. Cada
// conexão carrega uma chat.Session: o epoch descarta páginas que chegaram
// atrasadas e a inserção por id absorve o eco da entrega otimista.
type Client struct {
	conn     *websocket.Conn
	hub      *Hub
	threadID uuid.UUID
	userID   uuid.UUID
	send     chan []byte

	session *chat.Session
	history historyLoader

	closeOnce sync.Once
}

func newClient(h *Hub, threadID, userID uuid.UUID, conn *websocket.Conn, history historyLoader) *Client {
	session := chat.NewSession()
	session.SetCurrentThread(threadID)
	return &Client{
		conn:     conn,
		hub:      h,
		threadID: threadID,
		userID:   userID,
		send:     make(chan []byte, 256),
		session:  session,
		history:  history,
	}
}

func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(8 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleCommand(raw)
	}
}

func (c *Client) handleCommand(raw []byte) {
	var cmd struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	if cmd.Type == "history.load" {
		c.loadHistory()
	}
}

// loadHistory busca a próxima página respeitando a trava e o epoch da
// sessão; com busca em andamento ou sem páginas restantes, não faz nada.
func (c *Client) loadHistory() {
	if c.history == nil {
		return
	}
	page, epoch, ok := c.session.BeginLoad()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := c.history.Messages(ctx, c.threadID, c.userID, page)
	if err != nil {
		log.Warn().Err(err).Str("thread_id", c.threadID.String()).Msg("ws: busca de histórico falhou")
		c.session.AbortLoad(epoch)
		return
	}
	if !c.session.ApplyPage(epoch, result) {
		return
	}

	b, err := json.Marshal(Event{Type: "history.page", Data: result})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

// admit decide se o quadro sai pela conexão: eventos de mensagem passam
// pela sessão, que descarta conversas alheias.
func (c *Client) admit(raw []byte) bool {
	var ev struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return true
	}
	if !strings.HasPrefix(ev.Type, "message.") {
		return true
	}
	var m chat.Message
	if err := json.Unmarshal(ev.Data, &m); err != nil {
		return true
	}
	return c.session.Ingest(m)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.admit(msg) {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close retira o cliente da sala (o hub fecha o canal de envio) e encerra
// a conexão.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.Leave(c.threadID, c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
