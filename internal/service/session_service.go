package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/repository"
	"github.com/invigil/invigil-backend/internal/scoring"
)

// Session lifecycle errors, mapped to API error codes by the handlers.
var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrExamNotYetAvailable = errors.New("exam is not yet available")
	ErrNoActiveSession     = errors.New("no active session for this exam")
	ErrAlreadySubmitted    = errors.New("exam already submitted")
	ErrAlreadyTerminated   = errors.New("session already terminated")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrNotCompleted        = errors.New("submission is not completed")
)

// SubmissionStore is the persistence surface the session service needs.
// *repository.SubmissionRepository satisfies it.
type SubmissionStore interface {
	Get(ctx context.Context, examID uuid.UUID, studentID string) (*model.Submission, error)
	GetByEmail(ctx context.Context, examID uuid.UUID, userEmail string) (*model.Submission, error)
	Create(ctx context.Context, s *model.Submission) (bool, error)
	Complete(ctx context.Context, examID uuid.UUID, studentID string, answers []model.Answer, score int, now time.Time) (bool, error)
	Terminate(ctx context.Context, examID uuid.UUID, studentID, reason string, now time.Time) (bool, error)
	Evaluate(ctx context.Context, examID uuid.UUID, userEmail string, subjectiveMarks float64, rank string) (bool, error)
}

// ExamCatalog provides read access to the exam catalog.
type ExamCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListScheduled(ctx context.Context) ([]model.Exam, error)
}

// MonitorStopper stops an active proctoring run when its session leaves
// IN_PROGRESS. The proctoring registry satisfies it.
type MonitorStopper interface {
	Stop(examID, studentID string) bool
}

// SessionService owns the exam session state machine. All transitions
// are compare-and-swap updates in the store; the per-key mutex only
// narrows the race window so concurrent callers get clean errors
// instead of interleaved work.
type SessionService struct {
	submissions SubmissionStore
	exams       ExamCatalog
	monitors    MonitorStopper
	rdb         *redis.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionService(submissions SubmissionStore, exams ExamCatalog, monitors MonitorStopper, rdb *redis.Client) *SessionService {
	return &SessionService{
		submissions: submissions,
		exams:       exams,
		monitors:    monitors,
		rdb:         rdb,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *SessionService) sessionLock(examID uuid.UUID, studentID string) *sync.Mutex {
	key := examID.String() + ":" + studentID
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// forgetLock drops the per-key mutex once a session reaches a terminal
// state, so the map does not grow for the life of the process. The CAS
// updates keep correctness if a straggler recreates the entry.
func (s *SessionService) forgetLock(examID uuid.UUID, studentID string) {
	key := examID.String() + ":" + studentID
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
}

// StartSession begins (or resumes) a student's exam session. Repeated
// calls return the original start time, so a page refresh never resets
// the clock. The start time is cached in Redis with the session's
// remaining lifetime; the database row is the source of truth.
func (s *SessionService) StartSession(ctx context.Context, examID uuid.UUID, studentID, userEmail string) (*model.SessionHandle, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}
	if time.Now().Before(exam.ScheduledFor) {
		return nil, ErrExamNotYetAvailable
	}

	lock := s.sessionLock(examID, studentID)
	lock.Lock()
	defer lock.Unlock()

	// Fast path: cached start time from a previous call.
	cacheKey := config.CacheKey.SessionStartKey(examID.String(), studentID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			if start, perr := time.Parse(time.RFC3339Nano, cached); perr == nil {
				return &model.SessionHandle{StartTime: start, Duration: exam.DurationMinutes}, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("session start cache read failed, falling back to database")
		}
	}

	now := time.Now().UTC()
	sub := &model.Submission{
		ExamID:    examID,
		StudentID: studentID,
		UserEmail: userEmail,
		Status:    model.StatusInProgress,
		StartedAt: now,
	}

	created, err := s.submissions.Create(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	if !created {
		// A session already exists; reuse its recorded start time.
		existing, err := s.submissions.Get(ctx, examID, studentID)
		if err != nil {
			return nil, fmt.Errorf("load existing submission: %w", err)
		}
		switch existing.Status {
		case model.StatusCompleted:
			return nil, ErrAlreadySubmitted
		case model.StatusTerminated:
			return nil, ErrAlreadyTerminated
		}
		sub = existing
	}

	s.cacheStartTime(ctx, cacheKey, sub.StartedAt, exam.DurationMinutes)
	return &model.SessionHandle{StartTime: sub.StartedAt, Duration: exam.DurationMinutes}, nil
}

func (s *SessionService) cacheStartTime(ctx context.Context, key string, start time.Time, durationMinutes int) {
	if s.rdb == nil {
		return
	}
	ttl := time.Until(start.Add(time.Duration(durationMinutes)*time.Minute)) + 5*time.Minute
	if ttl <= 0 {
		return
	}
	if err := s.rdb.Set(ctx, key, start.Format(time.RFC3339Nano), ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to cache session start time")
	}
}

// SubmitAnswers grades MCQ answers and completes the session. The
// compare-and-swap update guarantees exactly one submission wins.
func (s *SessionService) SubmitAnswers(ctx context.Context, examID uuid.UUID, studentID string, answers []model.Answer) (*model.ScoreSummary, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}

	lock := s.sessionLock(examID, studentID)
	lock.Lock()
	defer lock.Unlock()

	score := scoring.Grade(exam.Questions, answers)
	now := time.Now().UTC()

	completed, err := s.submissions.Complete(ctx, examID, studentID, answers, score, now)
	if err != nil {
		return nil, fmt.Errorf("complete submission: %w", err)
	}
	if !completed {
		return nil, s.classifyInactive(ctx, examID, studentID)
	}

	s.monitors.Stop(examID.String(), studentID)
	s.forgetLock(examID, studentID)
	return &model.ScoreSummary{ObjectiveScore: score, SubmittedAt: now}, nil
}

// TerminateSession force-ends an in-progress session. Idempotent on
// already-terminated sessions from the caller's point of view: the
// distinct error lets the handler return a conflict.
func (s *SessionService) TerminateSession(ctx context.Context, examID uuid.UUID, studentID, reason string) error {
	lock := s.sessionLock(examID, studentID)
	lock.Lock()
	defer lock.Unlock()

	terminated, err := s.submissions.Terminate(ctx, examID, studentID, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("terminate submission: %w", err)
	}
	if !terminated {
		return s.classifyInactive(ctx, examID, studentID)
	}

	s.monitors.Stop(examID.String(), studentID)
	s.forgetLock(examID, studentID)
	return nil
}

// classifyInactive resolves why a state transition found no IN_PROGRESS
// row.
func (s *SessionService) classifyInactive(ctx context.Context, examID uuid.UUID, studentID string) error {
	existing, err := s.submissions.Get(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("load submission: %w", err)
	}
	switch existing.Status {
	case model.StatusCompleted:
		return ErrAlreadySubmitted
	case model.StatusTerminated:
		return ErrAlreadyTerminated
	}
	return ErrNoActiveSession
}

// EvaluateSubjective records subjective marks for a completed
// submission. Total marks are computed in the store from the stored
// objective score, so a stale read can never undercount.
func (s *SessionService) EvaluateSubjective(ctx context.Context, examID uuid.UUID, userEmail string, marks []*float64, rank string) error {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExamNotFound
		}
		return fmt.Errorf("load exam: %w", err)
	}

	var total float64
	for _, m := range marks {
		if m != nil {
			total += *m
		}
	}

	updated, err := s.submissions.Evaluate(ctx, examID, userEmail, total, rank)
	if err != nil {
		return fmt.Errorf("evaluate submission: %w", err)
	}
	if !updated {
		existing, err := s.submissions.GetByEmail(ctx, examID, userEmail)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("load submission: %w", err)
		}
		if existing.Status != model.StatusCompleted {
			return ErrNotCompleted
		}
		return fmt.Errorf("evaluate submission: unexpected state %s", existing.Status)
	}
	return nil
}

// GetSubmission returns a submission by exam and student email.
func (s *SessionService) GetSubmission(ctx context.Context, examID uuid.UUID, userEmail string) (*model.Submission, error) {
	sub, err := s.submissions.GetByEmail(ctx, examID, userEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return sub, nil
}
