package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agendaacademica/api/internal/chat"
)

func TestHubPublishReachesRoomOnly(t *testing.T) {
	hub := NewHub()
	threadA := uuid.New()
	threadB := uuid.New()

	clientA := newClient(hub, threadA, uuid.New(), nil, nil)
	clientB := newClient(hub, threadB, uuid.New(), nil, nil)
	hub.Join(threadA, clientA)
	hub.Join(threadB, clientB)

	hub.Publish(threadA, "message.new", map[string]string{"content": "oi"})

	select {
	case raw := <-clientA.send:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("frame inválido: %v", err)
		}
		if ev.Type != "message.new" {
			t.Fatalf("tipo inesperado: %s", ev.Type)
		}
	default:
		t.Fatal("cliente da sala não recebeu o evento")
	}

	select {
	case <-clientB.send:
		t.Fatal("evento vazou para outra sala")
	default:
	}
}

func TestHubLeaveDropsEmptyRoom(t *testing.T) {
	hub := NewHub()
	threadID := uuid.New()
	c := newClient(hub, threadID, uuid.New(), nil, nil)

	hub.Join(threadID, c)
	if hub.RoomSize(threadID) != 1 {
		t.Fatalf("esperava 1 cliente, obteve %d", hub.RoomSize(threadID))
	}

	hub.Leave(threadID, c)
	if hub.RoomSize(threadID) != 0 {
		t.Fatal("sala deveria ser descartada quando vazia")
	}
}

func TestHubPublishAfterLeaveDoesNotPanic(t *testing.T) {
	hub := NewHub()
	threadID := uuid.New()

	gone := newClient(hub, threadID, uuid.New(), nil, nil)
	stays := newClient(hub, threadID, uuid.New(), nil, nil)
	hub.Join(threadID, gone)
	hub.Join(threadID, stays)

	gone.Close()
	if _, ok := <-gone.send; ok {
		t.Fatal("canal de envio deveria estar fechado após a saída")
	}

	hub.Publish(threadID, "message.new", map[string]string{"content": "ainda aqui"})

	select {
	case <-stays.send:
	default:
		t.Fatal("cliente restante não recebeu o evento")
	}
}

func TestHubConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub()
	threadID := uuid.New()

	clients := make([]*Client, 16)
	for i := range clients {
		clients[i] = newClient(hub, threadID, uuid.New(), nil, nil)
		hub.Join(threadID, clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Publish(threadID, "message.new", map[string]int{"seq": i})
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			c.Close()
		}
	}()
	wg.Wait()

	if hub.RoomSize(threadID) != 0 {
		t.Fatalf("esperava sala vazia, obteve %d", hub.RoomSize(threadID))
	}
}

func TestClientAdmitFiltersByThread(t *testing.T) {
	threadID := uuid.New()
	c := newClient(NewHub(), threadID, uuid.New(), nil, nil)

	frame := func(m chat.Message) []byte {
		b, err := json.Marshal(Event{Type: "message.new", Data: m})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}

	own := chat.Message{ID: uuid.New(), ThreadID: threadID, Content: "oi", CreatedAt: time.Now()}
	if !c.admit(frame(own)) {
		t.Fatal("mensagem da própria conversa deveria passar")
	}

	foreign := chat.Message{ID: uuid.New(), ThreadID: uuid.New(), Content: "de outra sala", CreatedAt: time.Now()}
	if c.admit(frame(foreign)) {
		t.Fatal("mensagem de outra conversa deveria ser descartada")
	}

	// Eco da entrega otimista: mesmo id substitui, nunca duplica.
	if !c.admit(frame(own)) {
		t.Fatal("eco da mesma mensagem deveria passar")
	}
	if got := len(c.session.Messages()); got != 1 {
		t.Fatalf("esperava 1 mensagem na sessão, obteve %d", got)
	}

	if !c.admit([]byte(`{"type":"presence.update","data":{}}`)) {
		t.Fatal("evento que não é de mensagem deveria passar direto")
	}
}

type stubHistory struct {
	pages []chat.MessagePage
	calls []int
	err   error
}

func (s *stubHistory) Messages(_ context.Context, _, _ uuid.UUID, page int) (chat.MessagePage, error) {
	s.calls = append(s.calls, page)
	if s.err != nil {
		return chat.MessagePage{}, s.err
	}
	if page >= len(s.pages) {
		return chat.MessagePage{Page: page}, nil
	}
	return s.pages[page], nil
}

func TestClientLoadHistoryPaginates(t *testing.T) {
	threadID := uuid.New()
	history := &stubHistory{
		pages: []chat.MessagePage{
			{Messages: []chat.Message{{ID: uuid.New(), ThreadID: threadID, Content: "mais antiga"}}, Page: 0, HasMore: true},
			{Messages: []chat.Message{{ID: uuid.New(), ThreadID: threadID, Content: "primeira"}}, Page: 1, HasMore: false},
		},
	}
	c := newClient(NewHub(), threadID, uuid.New(), nil, history)

	c.loadHistory()
	c.loadHistory()

	if len(history.calls) != 2 || history.calls[0] != 0 || history.calls[1] != 1 {
		t.Fatalf("páginas pedidas fora de ordem: %v", history.calls)
	}
	if got := len(c.session.Messages()); got != 2 {
		t.Fatalf("esperava 2 mensagens na sessão, obteve %d", got)
	}
	if c.session.HasMore() {
		t.Fatal("última página deveria zerar has_more")
	}

	// Sem páginas restantes o comando vira no-op.
	c.loadHistory()
	if len(history.calls) != 2 {
		t.Fatalf("busca extra após o fim do histórico: %v", history.calls)
	}

	for i := 0; i < 2; i++ {
		select {
		case raw := <-c.send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("frame inválido: %v", err)
			}
			if ev.Type != "history.page" {
				t.Fatalf("tipo inesperado: %s", ev.Type)
			}
		default:
			t.Fatal("página de histórico não foi enfileirada")
		}
	}
}

func TestClientLoadHistoryErrorReleasesLock(t *testing.T) {
	threadID := uuid.New()
	history := &stubHistory{err: context.DeadlineExceeded}
	c := newClient(NewHub(), threadID, uuid.New(), nil, history)

	c.loadHistory()
	if c.session.Loading() {
		t.Fatal("falha na busca deveria liberar a trava de carregamento")
	}

	history.err = nil
	history.pages = []chat.MessagePage{{Messages: []chat.Message{{ID: uuid.New(), ThreadID: threadID}}, Page: 0}}
	c.loadHistory()
	if got := len(c.session.Messages()); got != 1 {
		t.Fatalf("nova tentativa deveria funcionar, sessão tem %d mensagens", got)
	}
}
