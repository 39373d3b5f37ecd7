package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository owns exam session persistence. State transitions
// are compare-and-swap UPDATEs guarded on the current status so that a
// racing transition loses cleanly (zero rows affected) instead of
// overwriting a terminal state.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `exam_id, student_id, user_email, status, started_at, submitted_at,
	 terminated_at, termination_reason, answers, objective_score, subjective_marks, total_marks, rank`

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	s := &model.Submission{}
	var answersJSON []byte
	err := row.Scan(&s.ExamID, &s.StudentID, &s.UserEmail, &s.Status, &s.StartedAt, &s.SubmittedAt,
		&s.TerminatedAt, &s.TerminationReason, &answersJSON, &s.ObjectiveScore, &s.SubjectiveMarks, &s.TotalMarks, &s.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return s, nil
}

// Get retrieves a session by its (exam_id, student_id) key.
func (r *SubmissionRepository) Get(ctx context.Context, examID uuid.UUID, studentID string) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID))
}

// GetByEmail retrieves a session by (exam_id, user_email).
func (r *SubmissionRepository) GetByEmail(ctx context.Context, examID uuid.UUID, userEmail string) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE exam_id = $1 AND user_email = $2`, examID, userEmail))
}

// Create inserts a new IN_PROGRESS session. Returns false without error
// when a session for the key already exists, so concurrent starts
// serialize to exactly one record.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (exam_id, student_id, user_email, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING started_at`,
		s.ExamID, s.StudentID, s.UserEmail, model.StatusInProgress, s.StartedAt,
	).Scan(&s.StartedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil // Concurrent start won the insert
		}
		return false, err
	}
	s.Status = model.StatusInProgress
	return true, nil
}

// Complete transitions IN_PROGRESS → COMPLETED, storing answers and the
// objective score. Returns false when the session is not IN_PROGRESS.
func (r *SubmissionRepository) Complete(ctx context.Context, examID uuid.UUID, studentID string, answers []model.Answer, score int, now time.Time) (bool, error) {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return false, fmt.Errorf("encode answers: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET status = $1, answers = $2, objective_score = $3, submitted_at = $4
		 WHERE exam_id = $5 AND student_id = $6 AND status = $7`,
		model.StatusCompleted, answersJSON, score, now, examID, studentID, model.StatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Terminate transitions IN_PROGRESS → TERMINATED. Returns false when the
// session is not IN_PROGRESS.
func (r *SubmissionRepository) Terminate(ctx context.Context, examID uuid.UUID, studentID, reason string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET status = $1, terminated_at = $2, termination_reason = $3
		 WHERE exam_id = $4 AND student_id = $5 AND status = $6`,
		model.StatusTerminated, now, reason, examID, studentID, model.StatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Evaluate annotates a COMPLETED session with subjective marks, the
// derived total, and rank. It never changes the session state. Returns
// false when the session is not COMPLETED.
func (r *SubmissionRepository) Evaluate(ctx context.Context, examID uuid.UUID, userEmail string, subjectiveMarks float64, rank string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET subjective_marks = $1, total_marks = objective_score + $1, rank = $2
		 WHERE exam_id = $3 AND user_email = $4 AND status = $5`,
		subjectiveMarks, rank, examID, userEmail, model.StatusCompleted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
