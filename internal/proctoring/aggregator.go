package proctoring

import (
	"github.com/google/uuid"

	"github.com/invigil/invigil-backend/internal/model"
)

// Verdict is the outcome of a completed monitoring run.
type Verdict struct {
	ExamID       uuid.UUID
	StudentID    string
	Detected     bool
	Contributing []model.IntegrityEvent
}

// Aggregate folds a run's events into a verdict. Malpractice is flagged
// when at least one anomaly event occurred; face-absent and manual
// entries are recorded in the report but do not flip the verdict on
// their own.
func Aggregate(examID uuid.UUID, studentID string, events []model.IntegrityEvent) Verdict {
	v := Verdict{ExamID: examID, StudentID: studentID}
	for _, e := range events {
		if e.Kind == model.EventAnomalyDetected {
			v.Detected = true
			v.Contributing = append(v.Contributing, e)
		}
	}
	return v
}
