package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubTaskRepo struct {
	task       Task
	submission Submission
	graded     []float64
}

func (s *stubTaskRepo) Insert(ctx context.Context, t Task) error { return nil }
func (s *stubTaskRepo) Get(ctx context.Context, id uuid.UUID) (Task, error) {
	if id != s.task.ID {
		return Task{}, ErrNotFound
	}
	return s.task, nil
}
func (s *stubTaskRepo) List(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	return []Task{s.task}, nil
}
func (s *stubTaskRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubTaskRepo) UpsertSubmission(ctx context.Context, taskID, studentID uuid.UUID, content string) (Submission, error) {
	return Submission{ID: uuid.New(), TaskID: taskID, StudentID: studentID, Content: content, SubmittedAt: time.Now()}, nil
}
func (s *stubTaskRepo) ListSubmissions(ctx context.Context, taskID uuid.UUID) ([]Submission, error) {
	return []Submission{s.submission}, nil
}
func (s *stubTaskRepo) GetSubmission(ctx context.Context, taskID, studentID uuid.UUID) (Submission, error) {
	if studentID != s.submission.StudentID {
		return Submission{}, ErrNotFound
	}
	return s.submission, nil
}
func (s *stubTaskRepo) GradeSubmission(ctx context.Context, submissionID uuid.UUID, grade float64, feedback *string) error {
	s.graded = append(s.graded, grade)
	return nil
}

func newStub() (*stubTaskRepo, uuid.UUID, uuid.UUID) {
	profID := uuid.New()
	studentID := uuid.New()
	repo := &stubTaskRepo{}
	repo.task = Task{ID: uuid.New(), Title: "Lista 3", MaxGrade: 10, CreatedBy: profID}
	repo.submission = Submission{ID: uuid.New(), TaskID: repo.task.ID, StudentID: studentID, Content: "resposta"}
	return repo, profID, studentID
}

func TestGradeWithinRange(t *testing.T) {
	repo, profID, studentID := newStub()
	svc := NewService(repo, nil)

	if err := svc.Grade(context.Background(), repo.task.ID, studentID, profID, 8.5, nil); err != nil {
		t.Fatalf("nota válida rejeitada: %v", err)
	}
	if len(repo.graded) != 1 || repo.graded[0] != 8.5 {
		t.Fatalf("nota não registrada: %v", repo.graded)
	}
}

func TestGradeAboveMaxRejected(t *testing.T) {
	repo, profID, studentID := newStub()
	svc := NewService(repo, nil)

	if err := svc.Grade(context.Background(), repo.task.ID, studentID, profID, 11, nil); err != ErrInvalidGrade {
		t.Fatalf("esperava ErrInvalidGrade, obteve %v", err)
	}
	if err := svc.Grade(context.Background(), repo.task.ID, studentID, profID, -1, nil); err != ErrInvalidGrade {
		t.Fatalf("esperava ErrInvalidGrade para nota negativa, obteve %v", err)
	}
}

func TestGradeOnlyByCreator(t *testing.T) {
	repo, _, studentID := newStub()
	svc := NewService(repo, nil)

	if err := svc.Grade(context.Background(), repo.task.ID, studentID, uuid.New(), 5, nil); err != ErrForbidden {
		t.Fatalf("esperava ErrForbidden, obteve %v", err)
	}
}

func TestSubmitAfterDueRejected(t *testing.T) {
	repo, _, studentID := newStub()
	past := time.Now().UTC().Add(-time.Hour)
	repo.task.DueAt = &past
	svc := NewService(repo, nil)

	if _, err := svc.Submit(context.Background(), repo.task.ID, studentID, "atrasada"); err != ErrPastDue {
		t.Fatalf("esperava ErrPastDue, obteve %v", err)
	}
}

func TestSubmitEmptyRejected(t *testing.T) {
	repo, _, studentID := newStub()
	svc := NewService(repo, nil)

	if _, err := svc.Submit(context.Background(), repo.task.ID, studentID, "   "); err != ErrEmptySubmission {
		t.Fatalf("esperava ErrEmptySubmission, obteve %v", err)
	}
}
