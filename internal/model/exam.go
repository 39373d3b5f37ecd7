package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusScheduled ExamStatus = "SCHEDULED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity. Exams are authored by an external CRUD
// layer; this service reads them as an immutable catalog.
type Exam struct {
	ID              uuid.UUID  `json:"exam_id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration"`
	ScheduledFor    time.Time  `json:"scheduled_for"`
	Randomize       bool       `json:"randomized"`
	Difficulty      string     `json:"difficulty,omitempty"`
	CreatedBy       string     `json:"created_by"`
	Status          ExamStatus `json:"status"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ExamView is an exam as returned to a caller, with questions filtered by
// the visibility rule and an optional submission overlay for students.
type ExamView struct {
	ID           uuid.UUID          `json:"exam_id"`
	Title        string             `json:"title"`
	Duration     int                `json:"duration"`
	ScheduledFor time.Time          `json:"scheduled_for"`
	Randomized   bool               `json:"randomized"`
	Difficulty   string             `json:"difficulty,omitempty"`
	Questions    []Question         `json:"questions"`
	Status       ExamStatus         `json:"status"`
	Submission   *SubmissionSummary `json:"submission,omitempty"`
}
