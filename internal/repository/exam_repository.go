package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository reads the exam catalog. Exams are authored elsewhere;
// Create exists for seeding and tests only.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam with its full question list.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	var questionsJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, scheduled_for, randomize, difficulty, created_by, status, questions, created_at
		 FROM exams
		 WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.ScheduledFor, &e.Randomize, &e.Difficulty, &e.CreatedBy, &e.Status, &questionsJSON, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(questionsJSON, &e.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return e, nil
}

// ListScheduled retrieves all scheduled exams ordered by schedule time.
func (r *ExamRepository) ListScheduled(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, duration_minutes, scheduled_for, randomize, difficulty, created_by, status, questions, created_at
		 FROM exams
		 WHERE status = $1
		 ORDER BY scheduled_for ASC`, model.ExamStatusScheduled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		var questionsJSON []byte
		if err := rows.Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.ScheduledFor, &e.Randomize, &e.Difficulty, &e.CreatedBy, &e.Status, &questionsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questionsJSON, &e.Questions); err != nil {
			return nil, fmt.Errorf("decode questions for %s: %w", e.ID, err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts an exam. Used by seeding tools and end-to-end tests.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	questionsJSON, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, duration_minutes, scheduled_for, randomize, difficulty, created_by, status, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		e.Title, e.DurationMinutes, e.ScheduledFor, e.Randomize, e.Difficulty, e.CreatedBy, model.ExamStatusScheduled, questionsJSON,
	).Scan(&e.ID, &e.CreatedAt)
}
