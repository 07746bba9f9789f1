package presence

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agendaacademica/api/internal/config"
)

func newTestService() *Service {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	cfg := config.PresenceConfig{TTL: time.Minute, SweepInterval: time.Hour}
	return NewService(client, cfg, zerolog.Nop())
}

func TestLifecycleStopBeforeStart(t *testing.T) {
	s := newTestService()
	// Stop sem Start não tem o que cancelar; não pode entrar em panic.
	s.Stop()
}

func TestLifecycleStartOnceAndStop(t *testing.T) {
	s := newTestService()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	if s.cancel == nil {
		t.Fatal("Start deveria armar o cancelamento da varredura")
	}

	// sync.Once garante um único loop por serviço; chamadas repetidas de
	// Start e Stop são seguras.
	s.Start(ctx)
	s.Stop()
	s.Stop()
}

func TestTTLDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	s := NewService(client, config.PresenceConfig{}, zerolog.Nop())
	if s.ttl() != 5*time.Minute {
		t.Fatalf("ttl padrão inesperado: %s", s.ttl())
	}
}
