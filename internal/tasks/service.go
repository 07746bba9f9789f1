package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type taskRepository interface {
	Insert(ctx context.Context, t Task) error
	Get(ctx context.Context, id uuid.UUID) (Task, error)
	List(ctx context.Context, userID uuid.UUID) ([]Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpsertSubmission(ctx context.Context, taskID, studentID uuid.UUID, content string) (Submission, error)
	ListSubmissions(ctx context.Context, taskID uuid.UUID) ([]Submission, error)
	GetSubmission(ctx context.Context, taskID, studentID uuid.UUID) (Submission, error)
	GradeSubmission(ctx context.Context, submissionID uuid.UUID, grade float64, feedback *string) error
}

// Notifier entrega notificações de correção.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, refID *uuid.UUID) error
}

// Service aplica as regras de tarefas e entregas.
type Service struct {
	repo     taskRepository
	notifier Notifier
}

// NewService cria serviço de tarefas.
func NewService(repo taskRepository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// CreateInput agrupa dados de criação de tarefa.
type CreateInput struct {
	EventID     *uuid.UUID
	Title       string
	Description *string
	DueAt       *time.Time
	MaxGrade    float64
	CreatedBy   uuid.UUID
}

// Create grava tarefa nova.
func (s *Service) Create(ctx context.Context, in CreateInput) (Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Task{}, fmt.Errorf("título é obrigatório")
	}
	if in.MaxGrade <= 0 {
		in.MaxGrade = 10
	}

	t := Task{
		ID:          uuid.New(),
		EventID:     in.EventID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		DueAt:       in.DueAt,
		MaxGrade:    in.MaxGrade,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// List lista tarefas visíveis ao usuário.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	return s.repo.List(ctx, userID)
}

// Get busca tarefa por id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Task, error) {
	return s.repo.Get(ctx, id)
}

// Delete remove tarefa do próprio criador.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.CreatedBy != userID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// Submit grava a entrega do estudante. Reenvio substitui a anterior e
// descarta nota já atribuída.
func (s *Service) Submit(ctx context.Context, taskID, studentID uuid.UUID, content string) (Submission, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Submission{}, ErrEmptySubmission
	}

	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return Submission{}, err
	}
	if t.DueAt != nil && time.Now().UTC().After(*t.DueAt) {
		return Submission{}, ErrPastDue
	}

	return s.repo.UpsertSubmission(ctx, taskID, studentID, content)
}

// MySubmission busca a entrega do próprio estudante.
func (s *Service) MySubmission(ctx context.Context, taskID, studentID uuid.UUID) (Submission, error) {
	return s.repo.GetSubmission(ctx, taskID, studentID)
}

// ListSubmissions lista entregas; apenas o criador da tarefa pode.
func (s *Service) ListSubmissions(ctx context.Context, taskID, userID uuid.UUID) ([]Submission, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != userID {
		return nil, ErrForbidden
	}
	return s.repo.ListSubmissions(ctx, taskID)
}

// Grade registra nota da entrega, limitada ao máximo da tarefa.
func (s *Service) Grade(ctx context.Context, taskID, studentID, graderID uuid.UUID, grade float64, feedback *string) error {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if t.CreatedBy != graderID {
		return ErrForbidden
	}
	if grade < 0 || grade > t.MaxGrade {
		return ErrInvalidGrade
	}

	sub, err := s.repo.GetSubmission(ctx, taskID, studentID)
	if err != nil {
		return err
	}
	if err := s.repo.GradeSubmission(ctx, sub.ID, grade, feedback); err != nil {
		return err
	}

	if s.notifier != nil {
		body := fmt.Sprintf("Sua entrega de %q foi corrigida: %.1f/%.1f", t.Title, grade, t.MaxGrade)
		if err := s.notifier.Notify(ctx, studentID, "task_graded", "Tarefa corrigida", body, &t.ID); err != nil {
			log.Warn().Err(err).Str("student_id", studentID.String()).Msg("tasks: falha ao notificar correção")
		}
	}
	return nil
}
