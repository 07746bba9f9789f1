package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

var (
	// ErrNotFound indica tarefa ou entrega inexistente.
	ErrNotFound = errors.New("tarefa não encontrada")
	// ErrForbidden indica ação reservada ao criador da tarefa.
	ErrForbidden = errors.New("ação reservada ao criador da tarefa")
	// ErrInvalidGrade indica nota fora do intervalo da tarefa.
	ErrInvalidGrade = errors.New("nota fora do intervalo da tarefa")
	// ErrPastDue indica entrega após o prazo.
	ErrPastDue = errors.New("prazo de entrega encerrado")
	// ErrEmptySubmission indica entrega sem conteúdo.
	ErrEmptySubmission = errors.New("entrega sem conteúdo")
)

// Task representa uma atividade avaliativa.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	EventID     *uuid.UUID `json:"event_id,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	MaxGrade    float64    `json:"max_grade"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Submission representa a entrega de um estudante.
type Submission struct {
	ID          uuid.UUID  `json:"id"`
	TaskID      uuid.UUID  `json:"task_id"`
	StudentID   uuid.UUID  `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
	Content     string     `json:"content"`
	Grade       *float64   `json:"grade,omitempty"`
	Feedback    *string    `json:"feedback,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`
}

// Repository concentra o acesso a dados de tarefas.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria repositório de tarefas.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert grava tarefa nova.
func (r *Repository) Insert(ctx context.Context, t Task) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
        INSERT INTO tasks (id, event_id, title, description, due_at, max_grade, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		t.ID, t.EventID, t.Title, t.Description, t.DueAt, t.MaxGrade, t.CreatedBy)
	return err
}

// Get busca tarefa por id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var t Task
	err := r.pool.QueryRow(ctx, `
        SELECT id, event_id, title, description, due_at, max_grade, created_by, created_at
          FROM tasks WHERE id = $1`, id).
		Scan(&t.ID, &t.EventID, &t.Title, &t.Description, &t.DueAt, &t.MaxGrade, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// List lista tarefas visíveis ao usuário: criadas por ele ou de eventos dos
// quais participa.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT DISTINCT t.id, t.event_id, t.title, t.description, t.due_at, t.max_grade, t.created_by, t.created_at
          FROM tasks t
          LEFT JOIN event_participants ep ON ep.event_id = t.event_id
         WHERE t.created_by = $1 OR ep.user_id = $1
         ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.EventID, &t.Title, &t.Description, &t.DueAt, &t.MaxGrade, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete remove tarefa e entregas em cascata.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertSubmission grava ou substitui a entrega do estudante.
func (r *Repository) UpsertSubmission(ctx context.Context, taskID, studentID uuid.UUID, content string) (Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var sub Submission
	err := r.pool.QueryRow(ctx, `
        INSERT INTO task_submissions (id, task_id, student_id, content, submitted_at)
        VALUES (gen_random_uuid(), $1, $2, $3, NOW())
        ON CONFLICT (task_id, student_id)
        DO UPDATE SET content = EXCLUDED.content, submitted_at = NOW(), grade = NULL, feedback = NULL, graded_at = NULL
        RETURNING id, task_id, student_id, content, grade, feedback, submitted_at, graded_at`,
		taskID, studentID, content).
		Scan(&sub.ID, &sub.TaskID, &sub.StudentID, &sub.Content, &sub.Grade, &sub.Feedback, &sub.SubmittedAt, &sub.GradedAt)
	return sub, err
}

// ListSubmissions lista entregas da tarefa com nome do estudante.
func (r *Repository) ListSubmissions(ctx context.Context, taskID uuid.UUID) ([]Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
        SELECT s.id, s.task_id, s.student_id, p.full_name, s.content, s.grade, s.feedback, s.submitted_at, s.graded_at
          FROM task_submissions s
          JOIN profiles p ON p.id = s.student_id
         WHERE s.task_id = $1
         ORDER BY s.submitted_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.TaskID, &s.StudentID, &s.StudentName, &s.Content, &s.Grade, &s.Feedback, &s.SubmittedAt, &s.GradedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSubmission busca a entrega do estudante na tarefa.
func (r *Repository) GetSubmission(ctx context.Context, taskID, studentID uuid.UUID) (Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var s Submission
	err := r.pool.QueryRow(ctx, `
        SELECT id, task_id, student_id, content, grade, feedback, submitted_at, graded_at
          FROM task_submissions
         WHERE task_id = $1 AND student_id = $2`, taskID, studentID).
		Scan(&s.ID, &s.TaskID, &s.StudentID, &s.Content, &s.Grade, &s.Feedback, &s.SubmittedAt, &s.GradedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, err
	}
	return s, nil
}

// GradeSubmission registra nota e feedback.
func (r *Repository) GradeSubmission(ctx context.Context, submissionID uuid.UUID, grade float64, feedback *string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
        UPDATE task_submissions
           SET grade = $2, feedback = $3, graded_at = NOW()
         WHERE id = $1`, submissionID, grade, feedback)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
