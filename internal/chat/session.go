package chat

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Session mantém o estado de conversa de um cliente conectado: conversa
// atual, mensagens carregadas e paginação. O epoch invalida respostas de
// páginas solicitadas antes de uma troca de conversa, e a inserção por id
// torna a chegada de mensagens idempotente.
type Session struct {
	mu sync.Mutex

	threadID uuid.UUID
	epoch    uint64

	messages []Message
	byID     map[uuid.UUID]int

	page    int
	hasMore bool
	loading bool
}

// NewSession cria sessão sem conversa selecionada.
func NewSession() *Session {
	return &Session{byID: make(map[uuid.UUID]int), hasMore: true}
}

// SetCurrentThread troca a conversa ativa e descarta o estado anterior.
// Retorna o epoch que deve acompanhar o carregamento da primeira página.
func (s *Session) SetCurrentThread(threadID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threadID = threadID
	s.epoch++
	s.messages = nil
	s.byID = make(map[uuid.UUID]int)
	s.page = 0
	s.hasMore = true
	s.loading = false
	return s.epoch
}

// CurrentThread retorna a conversa ativa.
func (s *Session) CurrentThread() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// BeginLoad reserva o carregamento da próxima página. Retorna a página a
// buscar e o epoch vigente; ok=false quando já há busca em andamento ou não
// restam páginas.
func (s *Session) BeginLoad() (page int, epoch uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.threadID == uuid.Nil || s.loading || !s.hasMore {
		return 0, 0, false
	}
	s.loading = true
	return s.page, s.epoch, true
}

// ApplyPage integra a página carregada. Páginas de um epoch anterior (a
// conversa mudou enquanto a busca estava em voo) são descartadas.
func (s *Session) ApplyPage(epoch uint64, result MessagePage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false
	}
	s.loading = false
	s.page = result.Page + 1
	s.hasMore = result.HasMore

	for _, m := range result.Messages {
		s.insertLocked(m)
	}
	return true
}

// AbortLoad libera a trava de carregamento após falha na busca.
func (s *Session) AbortLoad(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch == s.epoch {
		s.loading = false
	}
}

// Ingest incorpora uma mensagem recebida em tempo real. Mensagens de outra
// conversa são ignoradas; mensagens repetidas (eco da entrega otimista)
// substituem a versão existente em vez de duplicar.
func (s *Session) Ingest(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ThreadID != s.threadID {
		return false
	}
	s.insertLocked(m)
	return true
}

func (s *Session) insertLocked(m Message) {
	if idx, ok := s.byID[m.ID]; ok {
		s.messages[idx] = m
		return
	}
	s.messages = append(s.messages, m)
	sort.SliceStable(s.messages, func(i, j int) bool {
		return s.messages[i].CreatedAt.Before(s.messages[j].CreatedAt)
	})
	for i := range s.messages {
		s.byID[s.messages[i].ID] = i
	}
}

// Messages devolve cópia das mensagens em ordem cronológica.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// HasMore informa se restam páginas anteriores a carregar.
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Loading informa se há busca de página em andamento.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
