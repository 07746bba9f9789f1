package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func makeMessages(threadID uuid.UUID, base time.Time, n int) []Message {
	msgs := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, Message{
			ID:        uuid.New(),
			ThreadID:  threadID,
			Content:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return msgs
}

func TestSessionPagination(t *testing.T) {
	threadID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	all := makeMessages(threadID, base, 25)

	s := NewSession()
	epoch := s.SetCurrentThread(threadID)

	page, got, ok := s.BeginLoad()
	if !ok || page != 0 || got != epoch {
		t.Fatalf("BeginLoad: page=%d epoch=%d ok=%v", page, got, ok)
	}
	if !s.ApplyPage(epoch, MessagePage{Messages: all[:20], Page: 0, HasMore: true}) {
		t.Fatal("primeira página descartada")
	}
	if len(s.Messages()) != 20 {
		t.Fatalf("esperava 20 mensagens, obteve %d", len(s.Messages()))
	}
	if !s.HasMore() {
		t.Fatal("esperava has_more após página cheia")
	}

	page, got, ok = s.BeginLoad()
	if !ok || page != 1 {
		t.Fatalf("BeginLoad segunda página: page=%d ok=%v", page, ok)
	}
	if !s.ApplyPage(got, MessagePage{Messages: all[20:], Page: 1, HasMore: false}) {
		t.Fatal("segunda página descartada")
	}
	if len(s.Messages()) != 25 {
		t.Fatalf("esperava 25 mensagens, obteve %d", len(s.Messages()))
	}
	if s.HasMore() {
		t.Fatal("não deveria restar página após página incompleta")
	}

	if _, _, ok := s.BeginLoad(); ok {
		t.Fatal("BeginLoad deveria ser no-op sem páginas restantes")
	}

	msgs := s.Messages()
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("mensagens fora de ordem na posição %d", i)
		}
	}
}

func TestSessionBeginLoadWhileLoading(t *testing.T) {
	s := NewSession()
	s.SetCurrentThread(uuid.New())

	if _, _, ok := s.BeginLoad(); !ok {
		t.Fatal("primeiro BeginLoad deveria iniciar carga")
	}
	if _, _, ok := s.BeginLoad(); ok {
		t.Fatal("BeginLoad concorrente deveria ser no-op")
	}
}

func TestSessionStalePageDiscarded(t *testing.T) {
	threadA := uuid.New()
	threadB := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s := NewSession()
	s.SetCurrentThread(threadA)
	_, epochA, ok := s.BeginLoad()
	if !ok {
		t.Fatal("BeginLoad em A deveria iniciar carga")
	}

	// Usuário troca de conversa com a busca de A ainda em voo.
	s.SetCurrentThread(threadB)
	_, epochB, ok := s.BeginLoad()
	if !ok {
		t.Fatal("BeginLoad em B deveria iniciar carga")
	}

	if s.ApplyPage(epochA, MessagePage{Messages: makeMessages(threadA, base, 20), Page: 0, HasMore: true}) {
		t.Fatal("página de epoch anterior deveria ser descartada")
	}
	if len(s.Messages()) != 0 {
		t.Fatalf("mensagens da conversa anterior vazaram: %d", len(s.Messages()))
	}

	if !s.ApplyPage(epochB, MessagePage{Messages: makeMessages(threadB, base, 5), Page: 0, HasMore: false}) {
		t.Fatal("página do epoch vigente deveria ser aplicada")
	}
	if len(s.Messages()) != 5 {
		t.Fatalf("esperava 5 mensagens de B, obteve %d", len(s.Messages()))
	}
}

func TestSessionAbortLoadReleasesLock(t *testing.T) {
	s := NewSession()
	s.SetCurrentThread(uuid.New())

	_, epoch, ok := s.BeginLoad()
	if !ok {
		t.Fatal("BeginLoad deveria iniciar carga")
	}
	s.AbortLoad(epoch)
	if _, _, ok := s.BeginLoad(); !ok {
		t.Fatal("BeginLoad após AbortLoad deveria funcionar")
	}
}

func TestSessionIngestDedup(t *testing.T) {
	threadID := uuid.New()
	s := NewSession()
	s.SetCurrentThread(threadID)

	msg := Message{
		ID:        uuid.New(),
		ThreadID:  threadID,
		Content:   "olá",
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	// Entrega otimista seguida do eco da difusão: uma única entrada.
	if !s.Ingest(msg) {
		t.Fatal("primeira entrega deveria ser aceita")
	}
	edited := msg
	edited.Content = "olá!"
	edited.Edited = true
	if !s.Ingest(edited) {
		t.Fatal("eco deveria ser aceito")
	}

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("mensagem duplicada: esperava 1, obteve %d", len(msgs))
	}
	if msgs[0].Content != "olá!" || !msgs[0].Edited {
		t.Fatalf("eco não substituiu a versão anterior: %+v", msgs[0])
	}
}

func TestSessionIngestOtherThreadIgnored(t *testing.T) {
	s := NewSession()
	s.SetCurrentThread(uuid.New())

	other := Message{ID: uuid.New(), ThreadID: uuid.New(), Content: "x", CreatedAt: time.Now()}
	if s.Ingest(other) {
		t.Fatal("mensagem de outra conversa deveria ser ignorada")
	}
	if len(s.Messages()) != 0 {
		t.Fatal("sessão não deveria acumular mensagens de outra conversa")
	}
}

func TestSessionSwitchResetsState(t *testing.T) {
	threadA := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s := NewSession()
	s.SetCurrentThread(threadA)
	_, epoch, _ := s.BeginLoad()
	s.ApplyPage(epoch, MessagePage{Messages: makeMessages(threadA, base, 20), Page: 0, HasMore: true})

	s.SetCurrentThread(uuid.New())
	if len(s.Messages()) != 0 {
		t.Fatal("troca de conversa deveria limpar mensagens")
	}
	if !s.HasMore() {
		t.Fatal("troca de conversa deveria reiniciar paginação")
	}
	if page, _, ok := s.BeginLoad(); !ok || page != 0 {
		t.Fatalf("após troca, BeginLoad deveria pedir página 0: page=%d ok=%v", page, ok)
	}
}

func TestDMKeyCanonical(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")

	if DMKey(a, b) != DMKey(b, a) {
		t.Fatal("chave direta deveria independer da ordem dos participantes")
	}
	if DMKey(a, b) != a.String()+":"+b.String() {
		t.Fatalf("chave fora da ordem lexicográfica: %s", DMKey(a, b))
	}
}
