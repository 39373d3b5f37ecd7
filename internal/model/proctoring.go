package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an integrity event.
type EventKind string

const (
	EventFaceAbsent      EventKind = "FACE_ABSENT"
	EventAnomalyDetected EventKind = "ANOMALY_DETECTED"
	EventManual          EventKind = "MANUAL"
)

// IntegrityEvent is one append-only entry in a session's event log,
// ordered by capture time. Events are never mutated or deleted.
type IntegrityEvent struct {
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  string    `json:"student_id"`
	Kind       EventKind `json:"kind"`
	Message    string    `json:"event"`
	CapturedAt time.Time `json:"timestamp"`
}

// ProctoringArtifact links a session to its uploaded evidence and the
// generated report document.
type ProctoringArtifact struct {
	ID               uuid.UUID `json:"artifact_id"`
	ExamID           uuid.UUID `json:"exam_id"`
	StudentID        string    `json:"student_id"`
	RemoteArtifactID string    `json:"remote_artifact_id,omitempty"`
	ReportPath       string    `json:"report_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// LogMalpracticeRequest is the payload for a proctor's manual log entry.
type LogMalpracticeRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	ExamID    string `json:"exam_id" binding:"required,uuid"`
	Event     string `json:"event" binding:"required,min=1,max=500"`
}

// StartProctoringRequest is the payload for starting a monitoring run.
type StartProctoringRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	ExamID    string `json:"exam_id" binding:"required,uuid"`
}

// SubmitExamRequest is the payload for submitting answers.
type SubmitExamRequest struct {
	ExamID  string   `json:"exam_id" binding:"required,uuid"`
	Answers []Answer `json:"answers" binding:"required"`
}

// EvaluateExamRequest is the payload for grading subjective answers.
type EvaluateExamRequest struct {
	ExamID          string     `json:"exam_id" binding:"required,uuid"`
	UserEmail       string     `json:"user_email" binding:"required,email"`
	SubjectiveMarks []*float64 `json:"subjective_marks" binding:"required"`
	Rank            string     `json:"rank"`
}
