package material

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agendaacademica/api/internal/storage"
)

type materialRepository interface {
	Insert(ctx context.Context, m Material) error
	Get(ctx context.Context, id uuid.UUID) (Material, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Material, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IsEventParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

// Service aplica regras de materiais de apoio.
type Service struct {
	repo     materialRepository
	uploader storage.Uploader
}

// NewService cria serviço de materiais.
func NewService(repo materialRepository, uploader storage.Uploader) *Service {
	return &Service{repo: repo, uploader: uploader}
}

// UploadInput agrupa dados de publicação de material.
type UploadInput struct {
	EventID     uuid.UUID
	Title       string
	Filename    string
	ContentType string
	Body        []byte
	UploadedBy  uuid.UUID
}

// Upload envia o arquivo ao storage e registra o material.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Material, error) {
	if len(in.Body) == 0 {
		return Material{}, ErrEmptyFile
	}
	if len(in.Body) > MaxFileSize {
		return Material{}, ErrFileTooLarge
	}
	if err := s.requireParticipant(ctx, in.EventID, in.UploadedBy); err != nil {
		return Material{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Filename
	}

	key := storage.MaterialKey(in.EventID, in.Filename)
	result, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         key,
		Body:        in.Body,
		ContentType: in.ContentType,
	})
	if err != nil {
		return Material{}, err
	}

	m := Material{
		ID:          uuid.New(),
		EventID:     in.EventID,
		Title:       title,
		FileURL:     result.URL,
		FileKey:     key,
		ContentType: in.ContentType,
		SizeBytes:   int64(len(in.Body)),
		UploadedBy:  in.UploadedBy,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("material: limpeza de upload órfão falhou")
		}
		return Material{}, err
	}
	return m, nil
}

// ListByEvent lista materiais visíveis ao participante.
func (s *Service) ListByEvent(ctx context.Context, eventID, userID uuid.UUID) ([]Material, error) {
	if err := s.requireParticipant(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByEvent(ctx, eventID)
}

// Delete remove material enviado pelo próprio usuário.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.UploadedBy != userID {
		return ErrNotUploader
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.uploader.Delete(ctx, m.FileKey); err != nil {
		log.Warn().Err(err).Str("key", m.FileKey).Msg("material: remoção no storage falhou")
	}
	return nil
}

func (s *Service) requireParticipant(ctx context.Context, eventID, userID uuid.UUID) error {
	ok, err := s.repo.IsEventParticipant(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
