package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/repository"
)

// examPayloadTTL bounds staleness of the cached exam payload. The
// catalog is effectively immutable during an exam window, so a short
// TTL is enough.
const examPayloadTTL = 5 * time.Minute

// ExamService serves catalog reads with question visibility applied per
// caller role.
type ExamService struct {
	exams       ExamCatalog
	submissions SubmissionStore
	rdb         *redis.Client
}

func NewExamService(exams ExamCatalog, submissions SubmissionStore, rdb *redis.Client) *ExamService {
	return &ExamService{exams: exams, submissions: submissions, rdb: rdb}
}

// QuestionsVisible reports whether a caller may see an exam's questions.
// Students see them only once the exam's scheduled time has passed;
// staff roles always see them.
func QuestionsVisible(role model.Role, scheduledFor, now time.Time) bool {
	if role != model.RoleStudent {
		return true
	}
	return !now.Before(scheduledFor)
}

// GetExam returns one exam shaped for the caller. For students, a
// submission overlay is attached when they have a session for it.
func (s *ExamService) GetExam(ctx context.Context, examID uuid.UUID, claims *Claims) (*model.ExamView, error) {
	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	view := s.shape(exam, claims)
	if claims.Role == model.RoleStudent {
		s.attachSubmission(ctx, view, claims)
	}
	return view, nil
}

// ListExams returns all scheduled exams shaped for the caller.
func (s *ExamService) ListExams(ctx context.Context, claims *Claims) ([]*model.ExamView, error) {
	exams, err := s.exams.ListScheduled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	views := make([]*model.ExamView, 0, len(exams))
	for i := range exams {
		view := s.shape(&exams[i], claims)
		if claims.Role == model.RoleStudent {
			s.attachSubmission(ctx, view, claims)
		}
		views = append(views, view)
	}
	return views, nil
}

// loadExam reads an exam through the Redis payload cache.
func (s *ExamService) loadExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	cacheKey := config.CacheKey.ExamPayloadKey(examID.String())

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var exam model.Exam
			if jerr := json.Unmarshal([]byte(cached), &exam); jerr == nil {
				return &exam, nil
			}
			log.Warn().Str("exam_id", examID.String()).Msg("corrupt exam payload cache, reloading")
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("exam payload cache read failed")
		}
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}

	if s.rdb != nil {
		if payload, jerr := json.Marshal(exam); jerr == nil {
			if err := s.rdb.Set(ctx, cacheKey, payload, examPayloadTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("failed to cache exam payload")
			}
		}
	}
	return exam, nil
}

func (s *ExamService) shape(exam *model.Exam, claims *Claims) *model.ExamView {
	view := &model.ExamView{
		ID:           exam.ID,
		Title:        exam.Title,
		Duration:     exam.DurationMinutes,
		ScheduledFor: exam.ScheduledFor,
		Randomized:   exam.Randomize,
		Difficulty:   exam.Difficulty,
		Status:       exam.Status,
	}
	if QuestionsVisible(claims.Role, exam.ScheduledFor, time.Now()) {
		view.Questions = exam.Questions
	}
	return view
}

func (s *ExamService) attachSubmission(ctx context.Context, view *model.ExamView, claims *Claims) {
	if claims.StudentID == "" {
		return
	}
	sub, err := s.submissions.Get(ctx, view.ID, claims.StudentID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("exam_id", view.ID.String()).Msg("failed to load submission overlay")
		}
		return
	}
	view.Submission = sub.Summary()
}
