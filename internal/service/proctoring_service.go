package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/proctoring"
	"github.com/invigil/invigil-backend/internal/repository"
)

var (
	ErrCaptureUnavailable = errors.New("capture data not available for this session")
	ErrReportNotFound     = errors.New("proctoring report not found")
)

// EventStore persists and reads integrity events.
type EventStore interface {
	Insert(ctx context.Context, ev *model.IntegrityEvent) error
	List(ctx context.Context) ([]model.IntegrityEvent, error)
	ListBySession(ctx context.Context, examID uuid.UUID, studentID string) ([]model.IntegrityEvent, error)
}

// ArtifactStore tracks evidence uploads and generated reports.
type ArtifactStore interface {
	Create(ctx context.Context, a *model.ProctoringArtifact) error
	SetRemoteID(ctx context.Context, id uuid.UUID, remoteID string) error
	SetReportPath(ctx context.Context, id uuid.UUID, path string) error
	GetBySession(ctx context.Context, examID uuid.UUID, studentID string) (*model.ProctoringArtifact, error)
}

// UserDirectory resolves notification recipients.
type UserDirectory interface {
	GetByStudentID(ctx context.Context, studentID string) (*model.User, error)
	FindProctor(ctx context.Context) (*model.User, error)
}

// ProctoringService orchestrates monitoring runs: it validates the
// session, registers the run, and drives the capture → detect → report
// → escalate pipeline in the background.
type ProctoringService struct {
	cfg         *config.Config
	submissions SubmissionStore
	events      EventStore
	artifacts   ArtifactStore
	users       UserDirectory
	sessions    *SessionService
	registry    *proctoring.Registry
	sink        proctoring.EventSink
	escalator   *proctoring.Escalator
	anomaly     proctoring.Detector // nil when no classifier is configured
}

func NewProctoringService(
	cfg *config.Config,
	submissions SubmissionStore,
	events EventStore,
	artifacts ArtifactStore,
	users UserDirectory,
	sessions *SessionService,
	registry *proctoring.Registry,
	sink proctoring.EventSink,
	escalator *proctoring.Escalator,
	anomaly proctoring.Detector,
) *ProctoringService {
	return &ProctoringService{
		cfg:         cfg,
		submissions: submissions,
		events:      events,
		artifacts:   artifacts,
		users:       users,
		sessions:    sessions,
		registry:    registry,
		sink:        sink,
		escalator:   escalator,
		anomaly:     anomaly,
	}
}

// capturePaths returns the recording file and frame directory the
// capture agent produces for a session.
func (s *ProctoringService) capturePaths(examID uuid.UUID, studentID string) (recording, frames string) {
	base := fmt.Sprintf("proctoring_%s_%s", studentID, examID)
	recording = filepath.Join(s.cfg.CaptureDir, base+".avi")
	frames = filepath.Join(s.cfg.CaptureDir, base)
	return recording, frames
}

// StartRun begins a monitoring run for an in-progress session and
// returns the allocated artifact id immediately; the pipeline itself
// runs in the background.
func (s *ProctoringService) StartRun(ctx context.Context, examID uuid.UUID, studentID string) (uuid.UUID, error) {
	sub, err := s.submissions.Get(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, ErrNoActiveSession
		}
		return uuid.Nil, fmt.Errorf("load submission: %w", err)
	}
	if sub.Status != model.StatusInProgress {
		return uuid.Nil, ErrNoActiveSession
	}

	_, framesDir := s.capturePaths(examID, studentID)
	source, err := proctoring.NewDirSource(framesDir)
	if err != nil {
		return uuid.Nil, ErrCaptureUnavailable
	}

	runCtx, release, err := s.registry.Begin(context.Background(), examID.String(), studentID)
	if err != nil {
		source.Close()
		return uuid.Nil, err
	}

	artifact := &model.ProctoringArtifact{
		ID:        uuid.New(),
		ExamID:    examID,
		StudentID: studentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.artifacts.Create(ctx, artifact); err != nil {
		release()
		source.Close()
		return uuid.Nil, fmt.Errorf("create artifact record: %w", err)
	}

	go s.runPipeline(runCtx, release, source, artifact)
	return artifact.ID, nil
}

func (s *ProctoringService) runPipeline(ctx context.Context, release func(), source proctoring.FrameSource, artifact *model.ProctoringArtifact) {
	defer release()

	monitor := proctoring.NewMonitor(
		source,
		proctoring.NewPresenceDetector(),
		s.anomaly,
		s.sink,
		s.cfg.SampleInterval,
		s.cfg.AnomalyThreshold,
	)

	runEvents, err := monitor.Run(ctx, artifact.ExamID, artifact.StudentID)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).
			Str("exam_id", artifact.ExamID.String()).
			Str("student_id", artifact.StudentID).
			Msg("monitoring run aborted")
	}

	// The run may have been cancelled by session termination; the report
	// still covers everything observed up to that point.
	s.finishRun(artifact, runEvents)
}

// finishRun builds the report, uploads evidence, and escalates. It runs
// on a fresh context so shutdown of the run context does not cut off
// persistence.
func (s *ProctoringService) finishRun(artifact *model.ProctoringArtifact, runEvents []model.IntegrityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	verdict := proctoring.Aggregate(artifact.ExamID, artifact.StudentID, runEvents)

	logs := s.reportEvents(ctx, artifact, runEvents)
	report := proctoring.BuildReport(verdict, logs)
	reportPath, err := proctoring.WriteReport(s.cfg.ReportDir, report)
	if err != nil {
		log.Error().Err(err).Msg("failed to write proctoring report")
	} else if err := s.artifacts.SetReportPath(ctx, artifact.ID, reportPath); err != nil {
		log.Error().Err(err).Msg("failed to record report path")
	}

	recording, _ := s.capturePaths(artifact.ExamID, artifact.StudentID)
	proctorEmail, studentEmail := s.recipients(ctx, artifact.StudentID)

	result := s.escalator.Escalate(ctx, verdict, recording, proctorEmail, studentEmail)
	if result.RemoteArtifactID != "" {
		if err := s.artifacts.SetRemoteID(ctx, artifact.ID, result.RemoteArtifactID); err != nil {
			log.Error().Err(err).Msg("failed to record remote artifact id")
		}
	}

	log.Info().
		Str("exam_id", artifact.ExamID.String()).
		Str("student_id", artifact.StudentID).
		Bool("malpractice", verdict.Detected).
		Int("events", len(runEvents)).
		Msg("monitoring run finished")
}

// reportEvents merges the run's own events with manual proctor entries
// recorded during the session, ordered by capture time.
func (s *ProctoringService) reportEvents(ctx context.Context, artifact *model.ProctoringArtifact, runEvents []model.IntegrityEvent) []model.IntegrityEvent {
	merged := make([]model.IntegrityEvent, len(runEvents))
	copy(merged, runEvents)

	persisted, err := s.events.ListBySession(ctx, artifact.ExamID, artifact.StudentID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load manual events for report")
	} else {
		for _, e := range persisted {
			if e.Kind == model.EventManual {
				merged = append(merged, e)
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CapturedAt.Before(merged[j].CapturedAt)
	})
	return merged
}

func (s *ProctoringService) recipients(ctx context.Context, studentID string) (proctorEmail, studentEmail string) {
	if proctor, err := s.users.FindProctor(ctx); err == nil {
		proctorEmail = proctor.Email
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Warn().Err(err).Msg("failed to resolve proctor for notification")
	}

	if student, err := s.users.GetByStudentID(ctx, studentID); err == nil {
		studentEmail = student.Email
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Warn().Err(err).Msg("failed to resolve student for notification")
	}
	return proctorEmail, studentEmail
}

// StopExam terminates a session on a proctor's decision and notifies
// the student. Stopping the monitor is handled by the session service.
func (s *ProctoringService) StopExam(ctx context.Context, examID uuid.UUID, studentID, reason string) error {
	if reason == "" {
		reason = "Terminated by proctor"
	}
	if err := s.sessions.TerminateSession(ctx, examID, studentID, reason); err != nil {
		return err
	}

	if student, err := s.users.GetByStudentID(ctx, studentID); err == nil {
		body := fmt.Sprintf("Your exam %s was terminated by the proctor. Reason: %s", examID, reason)
		if err := s.escalator.Notify(ctx, student.Email, "Exam Terminated", body); err != nil {
			log.Warn().Err(err).Str("student_id", studentID).Msg("termination notification failed")
		}
	}
	return nil
}

// LogMalpractice records a manual observation from a proctor. Manual
// entries go straight to the database and the live stream; they do not
// pass through the batch queue.
func (s *ProctoringService) LogMalpractice(ctx context.Context, examID uuid.UUID, studentID, message string) error {
	event := model.IntegrityEvent{
		ExamID:     examID,
		StudentID:  studentID,
		Kind:       model.EventManual,
		Message:    message,
		CapturedAt: time.Now().UTC(),
	}
	if err := s.events.Insert(ctx, &event); err != nil {
		return fmt.Errorf("insert manual event: %w", err)
	}

	if pub, ok := s.sink.(proctoring.EventPublisher); ok {
		if err := pub.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("student_id", studentID).Msg("failed to publish manual event")
		}
	}
	return nil
}

// ListLogs returns integrity events, optionally filtered to a session.
func (s *ProctoringService) ListLogs(ctx context.Context, examID *uuid.UUID, studentID string) ([]model.IntegrityEvent, error) {
	if examID != nil && studentID != "" {
		return s.events.ListBySession(ctx, *examID, studentID)
	}
	return s.events.List(ctx)
}

// ReportPath resolves the on-disk report for a session. The canonical
// file name is checked as a fallback for runs whose artifact row
// predates report generation.
func (s *ProctoringService) ReportPath(ctx context.Context, examID uuid.UUID, studentID string) (string, error) {
	artifact, err := s.artifacts.GetBySession(ctx, examID, studentID)
	if err == nil && artifact.ReportPath != "" {
		if _, serr := os.Stat(artifact.ReportPath); serr == nil {
			return artifact.ReportPath, nil
		}
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("load artifact: %w", err)
	}

	fallback := filepath.Join(s.cfg.ReportDir, proctoring.ReportFileName(studentID, examID))
	if _, err := os.Stat(fallback); err != nil {
		return "", ErrReportNotFound
	}
	return fallback, nil
}
