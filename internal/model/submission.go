package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates exam session states. Transitions are
// monotonic: IN_PROGRESS → {COMPLETED, TERMINATED}; both end states are
// terminal and a session never leaves them.
type SubmissionStatus string

const (
	StatusInProgress SubmissionStatus = "IN_PROGRESS"
	StatusCompleted  SubmissionStatus = "COMPLETED"
	StatusTerminated SubmissionStatus = "TERMINATED"
)

// Submission is a student's exam session, keyed by (exam_id, student_id).
// At most one exists per key at any time.
type Submission struct {
	ExamID            uuid.UUID        `json:"exam_id"`
	StudentID         string           `json:"student_id"`
	UserEmail         string           `json:"user_email"`
	Status            SubmissionStatus `json:"status"`
	StartedAt         time.Time        `json:"start_time"`
	SubmittedAt       *time.Time       `json:"submitted_at,omitempty"`
	TerminatedAt      *time.Time       `json:"terminated_at,omitempty"`
	TerminationReason string           `json:"termination_reason,omitempty"`
	Answers           []Answer         `json:"answers"`
	ObjectiveScore    int              `json:"mcq_score"`
	SubjectiveMarks   *float64         `json:"subjective_marks,omitempty"`
	TotalMarks        *float64         `json:"total_marks,omitempty"`
	Rank              string           `json:"rank,omitempty"`
}

// SubmissionSummary is the compact submission overlay embedded in exam
// listings for students.
type SubmissionSummary struct {
	Status          SubmissionStatus `json:"status"`
	ObjectiveScore  int              `json:"mcq_score"`
	SubjectiveMarks float64          `json:"subjective_marks"`
	TotalMarks      float64          `json:"total_marks"`
	Rank            string           `json:"rank"`
	StartTime       *time.Time       `json:"start_time,omitempty"`
}

// Summary builds the student-facing overlay from a submission.
func (s *Submission) Summary() *SubmissionSummary {
	sum := &SubmissionSummary{
		Status:         s.Status,
		ObjectiveScore: s.ObjectiveScore,
		Rank:           s.Rank,
	}
	if s.SubjectiveMarks != nil {
		sum.SubjectiveMarks = *s.SubjectiveMarks
	}
	if s.TotalMarks != nil {
		sum.TotalMarks = *s.TotalMarks
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		sum.StartTime = &t
	}
	return sum
}

// SessionHandle is returned by StartSession so the caller can compute the
// deadline without another round trip.
type SessionHandle struct {
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"`
}

// ScoreSummary is the result of grading a submission.
type ScoreSummary struct {
	ObjectiveScore int       `json:"mcq_score"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
