package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const dayCacheTTL = 60 * time.Second

type agendaRepository interface {
	Create(ctx context.Context, in CreateInput) (Event, error)
	Get(ctx context.Context, id uuid.UUID) (Event, error)
	ListByDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]Event, error)
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Event, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Event, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	SetParticipantStatus(ctx context.Context, eventID, userID uuid.UUID, status string) error
	IsParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

// Notifier entrega notificações geradas pela agenda.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, refID *uuid.UUID) error
}

// Service aplica as regras de negócio da agenda.
type Service struct {
	repo     agendaRepository
	redis    *redis.Client
	notifier Notifier
}

// NewService cria serviço de agenda.
func NewService(repo agendaRepository, redisClient *redis.Client, notifier Notifier) *Service {
	return &Service{repo: repo, redis: redisClient, notifier: notifier}
}

func validateInput(title, eventType string, startsAt time.Time, endsAt *time.Time) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("título é obrigatório")
	}
	if !ValidType(eventType) {
		return ErrInvalidType
	}
	if endsAt != nil && !endsAt.After(startsAt) {
		return ErrInvalidPeriod
	}
	return nil
}

// Create grava evento e convida participantes.
func (s *Service) Create(ctx context.Context, in CreateInput) (Event, error) {
	if err := validateInput(in.Title, in.Type, in.StartsAt, in.EndsAt); err != nil {
		return Event{}, err
	}

	ev, err := s.repo.Create(ctx, in)
	if err != nil {
		return Event{}, err
	}

	if s.notifier != nil {
		for _, p := range ev.Participants {
			if p.UserID == ev.CreatedBy {
				continue
			}
			body := fmt.Sprintf("Você foi convidado para %q em %s", ev.Title, ev.StartsAt.Format("02/01/2006 15:04"))
			if err := s.notifier.Notify(ctx, p.UserID, "event_invite", "Novo convite", body, &ev.ID); err != nil {
				log.Warn().Err(err).Str("user_id", p.UserID.String()).Msg("agenda: falha ao notificar convite")
			}
		}
	}
	return ev, nil
}

// Get busca evento exigindo participação.
func (s *Service) Get(ctx context.Context, eventID, userID uuid.UUID) (Event, error) {
	if err := s.requireParticipant(ctx, eventID, userID); err != nil {
		return Event{}, err
	}
	return s.repo.Get(ctx, eventID)
}

// ListByDay lista eventos do dia com cache curto no Redis.
func (s *Service) ListByDay(ctx context.Context, userID uuid.UUID, day time.Time) ([]Event, error) {
	cacheKey := fmt.Sprintf("agenda:day:%s:%s", userID, day.UTC().Format("2006-01-02"))
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached []Event
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}

	events, err := s.repo.ListByDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, err := json.Marshal(events); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, dayCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Msg("agenda: cache write failed")
			}
		}
	}
	return events, nil
}

// ListRange lista eventos entre dois instantes.
func (s *Service) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Event, error) {
	if !to.After(from) {
		return nil, ErrInvalidPeriod
	}
	return s.repo.ListRange(ctx, userID, from, to)
}

// Update altera evento; apenas o criador pode.
func (s *Service) Update(ctx context.Context, eventID, userID uuid.UUID, in UpdateInput) (Event, error) {
	if err := validateInput(in.Title, in.Type, in.StartsAt, in.EndsAt); err != nil {
		return Event{}, err
	}
	if err := s.requireCreator(ctx, eventID, userID); err != nil {
		return Event{}, err
	}

	ev, err := s.repo.Update(ctx, eventID, in)
	if err != nil {
		return Event{}, err
	}

	if s.notifier != nil {
		for _, p := range ev.Participants {
			if p.UserID == ev.CreatedBy {
				continue
			}
			body := fmt.Sprintf("O evento %q foi alterado; novo horário: %s", ev.Title, ev.StartsAt.Format("02/01/2006 15:04"))
			if err := s.notifier.Notify(ctx, p.UserID, "event_updated", "Evento atualizado", body, &ev.ID); err != nil {
				log.Warn().Err(err).Str("user_id", p.UserID.String()).Msg("agenda: falha ao notificar atualização")
			}
		}
	}
	return ev, nil
}

// Cancel marca o evento como cancelado e avisa participantes.
func (s *Service) Cancel(ctx context.Context, eventID, userID uuid.UUID) error {
	if err := s.requireCreator(ctx, eventID, userID); err != nil {
		return err
	}

	ev, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.repo.Cancel(ctx, eventID); err != nil {
		return err
	}

	if s.notifier != nil {
		for _, p := range ev.Participants {
			if p.UserID == userID {
				continue
			}
			body := fmt.Sprintf("O evento %q foi cancelado", ev.Title)
			if err := s.notifier.Notify(ctx, p.UserID, "event_cancelled", "Evento cancelado", body, &ev.ID); err != nil {
				log.Warn().Err(err).Str("user_id", p.UserID.String()).Msg("agenda: falha ao notificar cancelamento")
			}
		}
	}
	return nil
}

// Respond registra aceite ou recusa de convite.
func (s *Service) Respond(ctx context.Context, eventID, userID uuid.UUID, status string) error {
	if status != StatusAccepted && status != StatusDeclined {
		return ErrInvalidStatus
	}
	return s.repo.SetParticipantStatus(ctx, eventID, userID, status)
}

func (s *Service) requireParticipant(ctx context.Context, eventID, userID uuid.UUID) error {
	ok, err := s.repo.IsParticipant(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *Service) requireCreator(ctx context.Context, eventID, userID uuid.UUID) error {
	ev, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.CreatedBy != userID {
		return ErrForbidden
	}
	return nil
}
