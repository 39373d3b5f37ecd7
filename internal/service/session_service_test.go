package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/repository"
)

type memSubmissions struct {
	mu   sync.Mutex
	rows map[string]*model.Submission
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{rows: make(map[string]*model.Submission)}
}

func subKey(examID uuid.UUID, studentID string) string {
	return examID.String() + ":" + studentID
}

func (m *memSubmissions) Get(_ context.Context, examID uuid.UUID, studentID string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[subKey(examID, studentID)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memSubmissions) GetByEmail(_ context.Context, examID uuid.UUID, userEmail string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.ExamID == examID && s.UserEmail == userEmail {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memSubmissions) Create(_ context.Context, s *model.Submission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey(s.ExamID, s.StudentID)
	if _, exists := m.rows[key]; exists {
		return false, nil
	}
	cp := *s
	m.rows[key] = &cp
	return true, nil
}

func (m *memSubmissions) Complete(_ context.Context, examID uuid.UUID, studentID string, answers []model.Answer, score int, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[subKey(examID, studentID)]
	if !ok || s.Status != model.StatusInProgress {
		return false, nil
	}
	s.Status = model.StatusCompleted
	s.Answers = answers
	s.ObjectiveScore = score
	s.SubmittedAt = &now
	return true, nil
}

func (m *memSubmissions) Terminate(_ context.Context, examID uuid.UUID, studentID, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[subKey(examID, studentID)]
	if !ok || s.Status != model.StatusInProgress {
		return false, nil
	}
	s.Status = model.StatusTerminated
	s.TerminationReason = reason
	s.TerminatedAt = &now
	return true, nil
}

func (m *memSubmissions) Evaluate(_ context.Context, examID uuid.UUID, userEmail string, subjectiveMarks float64, rank string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.ExamID == examID && s.UserEmail == userEmail {
			if s.Status != model.StatusCompleted {
				return false, nil
			}
			s.SubjectiveMarks = &subjectiveMarks
			total := float64(s.ObjectiveScore) + subjectiveMarks
			s.TotalMarks = &total
			s.Rank = rank
			return true, nil
		}
	}
	return false, nil
}

type memCatalog struct {
	exams map[uuid.UUID]*model.Exam
}

func (m *memCatalog) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if e, ok := m.exams[id]; ok {
		return e, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memCatalog) ListScheduled(_ context.Context) ([]model.Exam, error) {
	out := make([]model.Exam, 0, len(m.exams))
	for _, e := range m.exams {
		out = append(out, *e)
	}
	return out, nil
}

type stopRecorder struct {
	mu      sync.Mutex
	stopped []string
}

func (r *stopRecorder) Stop(examID, studentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, examID+":"+studentID)
	return true
}

func (r *stopRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stopped)
}

func option(n int) *int { return &n }

func fixtureExam(scheduledFor time.Time) *model.Exam {
	return &model.Exam{
		ID:              uuid.New(),
		Title:           "Algorithms Midterm",
		DurationMinutes: 60,
		ScheduledFor:    scheduledFor,
		Status:          model.ExamStatusScheduled,
		Questions: []model.Question{
			{Type: model.QuestionTypeMCQ, Text: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectOption: option(0)},
			{Type: model.QuestionTypeMCQ, Text: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectOption: option(2)},
			{Type: model.QuestionTypeMCQ, Text: "Q3", Options: []string{"a", "b", "c", "d"}, CorrectOption: option(1)},
		},
	}
}

func newTestService(exam *model.Exam) (*SessionService, *memSubmissions, *stopRecorder) {
	subs := newMemSubmissions()
	stops := &stopRecorder{}
	catalog := &memCatalog{exams: map[uuid.UUID]*model.Exam{exam.ID: exam}}
	return NewSessionService(subs, catalog, stops, nil), subs, stops
}

func TestStartSessionIdempotent(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, _, _ := newTestService(exam)
	ctx := context.Background()

	first, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org")
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	second, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org")
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if !first.StartTime.Equal(second.StartTime) {
		t.Fatalf("start time reset: %v vs %v", first.StartTime, second.StartTime)
	}
	if second.Duration != 60 {
		t.Fatalf("unexpected duration %d", second.Duration)
	}
}

func TestStartSessionBeforeSchedule(t *testing.T) {
	exam := fixtureExam(time.Now().Add(time.Hour))
	svc, _, _ := newTestService(exam)

	if _, err := svc.StartSession(context.Background(), exam.ID, "STU1", "stu1@example.org"); !errors.Is(err, ErrExamNotYetAvailable) {
		t.Fatalf("expected ErrExamNotYetAvailable, got %v", err)
	}
}

func TestStartSessionUnknownExam(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, _, _ := newTestService(exam)

	if _, err := svc.StartSession(context.Background(), uuid.New(), "STU1", "stu1@example.org"); !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
}

func TestConcurrentStartOneRecord(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, subs, _ := newTestService(exam)
	ctx := context.Background()

	const workers = 16
	handles := make([]*model.SessionHandle, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org")
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	if len(subs.rows) != 1 {
		t.Fatalf("expected a single submission row, got %d", len(subs.rows))
	}
	for i := 1; i < workers; i++ {
		if handles[i] == nil || !handles[i].StartTime.Equal(handles[0].StartTime) {
			t.Fatalf("worker %d saw a different start time", i)
		}
	}
}

func TestSubmitAnswersScoresAndCompletes(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, subs, stops := newTestService(exam)
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org"); err != nil {
		t.Fatal(err)
	}

	answers := []model.Answer{{Answer: 0}, {Answer: 1}, {Answer: 1}}
	result, err := svc.SubmitAnswers(ctx, exam.ID, "STU1", answers)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.ObjectiveScore != 2 {
		t.Fatalf("expected score 2, got %d", result.ObjectiveScore)
	}

	stored, _ := subs.Get(ctx, exam.ID, "STU1")
	if stored.Status != model.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", stored.Status)
	}
	if stops.count() != 1 {
		t.Fatal("completing a session must stop its monitor")
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, _, _ := newTestService(exam)
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitAnswers(ctx, exam.ID, "STU1", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitAnswers(ctx, exam.ID, "STU1", nil); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, _, _ := newTestService(exam)

	if _, err := svc.SubmitAnswers(context.Background(), exam.ID, "STU1", nil); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestTerminateThenSubmit(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, subs, stops := newTestService(exam)
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org"); err != nil {
		t.Fatal(err)
	}
	if err := svc.TerminateSession(ctx, exam.ID, "STU1", "Phone detected"); err != nil {
		t.Fatalf("terminate failed: %v", err)
	}
	if stops.count() != 1 {
		t.Fatal("terminating a session must stop its monitor")
	}

	stored, _ := subs.Get(ctx, exam.ID, "STU1")
	if stored.Status != model.StatusTerminated || stored.TerminationReason != "Phone detected" {
		t.Fatalf("unexpected stored state: %+v", stored)
	}

	if _, err := svc.SubmitAnswers(ctx, exam.ID, "STU1", nil); !errors.Is(err, ErrAlreadyTerminated) {
		t.Fatalf("expected ErrAlreadyTerminated after termination, got %v", err)
	}
	if err := svc.TerminateSession(ctx, exam.ID, "STU1", "again"); !errors.Is(err, ErrAlreadyTerminated) {
		t.Fatalf("expected ErrAlreadyTerminated on repeat, got %v", err)
	}
}

func TestEvaluateSubjective(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, subs, _ := newTestService(exam)
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitAnswers(ctx, exam.ID, "STU1", []model.Answer{{Answer: 0}, {Answer: 2}, {Answer: 1}}); err != nil {
		t.Fatal(err)
	}

	marks := []*float64{ptrFloat(4.5), nil, ptrFloat(3)}
	if err := svc.EvaluateSubjective(ctx, exam.ID, "stu1@example.org", marks, "A"); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	stored, _ := subs.GetByEmail(ctx, exam.ID, "stu1@example.org")
	if stored.SubjectiveMarks == nil || *stored.SubjectiveMarks != 7.5 {
		t.Fatalf("unexpected subjective marks: %+v", stored.SubjectiveMarks)
	}
	if stored.TotalMarks == nil || *stored.TotalMarks != 10.5 {
		t.Fatalf("expected total 10.5 (objective 3 + subjective 7.5), got %+v", stored.TotalMarks)
	}
	if stored.Rank != "A" {
		t.Fatalf("unexpected rank %q", stored.Rank)
	}
}

func TestEvaluateRequiresCompletedSubmission(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, _, _ := newTestService(exam)
	ctx := context.Background()

	if err := svc.EvaluateSubjective(ctx, exam.ID, "ghost@example.org", nil, ""); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}

	if _, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org"); err != nil {
		t.Fatal(err)
	}
	if err := svc.EvaluateSubjective(ctx, exam.ID, "stu1@example.org", nil, ""); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted for in-progress session, got %v", err)
	}
}

func ptrFloat(f float64) *float64 { return &f }

func TestSessionLockReleasedAfterTerminalState(t *testing.T) {
	exam := fixtureExam(time.Now().Add(-time.Hour))
	svc, _, _ := newTestService(exam)
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, exam.ID, "STU1", "stu1@example.org"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartSession(ctx, exam.ID, "STU2", "stu2@example.org"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SubmitAnswers(ctx, exam.ID, "STU1", nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.TerminateSession(ctx, exam.ID, "STU2", "Left the room"); err != nil {
		t.Fatal(err)
	}

	svc.mu.Lock()
	remaining := len(svc.locks)
	svc.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected lock map to be empty after terminal transitions, got %d entries", remaining)
	}
}
