package presence

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agendaacademica/api/internal/config"
)

const onlineKey = "presence:online"

// Service mantém o conjunto de usuários online em um sorted set do Redis,
// pontuado pelo instante do último heartbeat. Entradas mais antigas que o
// TTL são consideradas offline e varridas periodicamente.
type Service struct {
	redis  *redis.Client
	cfg    config.PresenceConfig
	logger zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
}

// NewService cria serviço de presença.
func NewService(redisClient *redis.Client, cfg config.PresenceConfig, logger zerolog.Logger) *Service {
	return &Service{redis: redisClient, cfg: cfg, logger: logger}
}

// Heartbeat registra atividade do usuário.
func (s *Service) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return s.redis.ZAdd(ctx, onlineKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: userID.String(),
	}).Err()
}

// Disconnect remove o usuário do conjunto imediatamente.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID) error {
	return s.redis.ZRem(ctx, onlineKey, userID.String()).Err()
}

// IsOnline verifica se o último heartbeat está dentro da janela.
func (s *Service) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	score, err := s.redis.ZScore(ctx, onlineKey, userID.String()).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Since(time.Unix(int64(score), 0)) <= s.ttl(), nil
}

// OnlineUsers lista todos os usuários com heartbeat dentro da janela.
func (s *Service) OnlineUsers(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := time.Now().Add(-s.ttl()).Unix()
	members, err := s.redis.ZRangeByScore(ctx, onlineKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Start inicia a varredura periódica de entradas expiradas. Safe para
// chamar múltiplas vezes.
func (s *Service) Start(parent context.Context) {
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
}

// Stop encerra a varredura.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLoop(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("presence: varredura iniciada")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("presence: varredura encerrada")
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("presence: varredura falhou")
			}
		}
	}
}

func (s *Service) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.ttl()).Unix()
	removed, err := s.redis.ZRemRangeByScore(ctx, onlineKey, "-inf", strconv.FormatInt(cutoff, 10)).Result()
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Debug().Int64("removed", removed).Msg("presence: entradas expiradas removidas")
	}
	return nil
}

func (s *Service) ttl() time.Duration {
	if s.cfg.TTL <= 0 {
		return 5 * time.Minute
	}
	return s.cfg.TTL
}
