package proctoring

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/invigil/invigil-backend/internal/artifact"
	"github.com/invigil/invigil-backend/internal/notification"
)

// Escalator handles the end of a monitoring run: evidence is uploaded
// for every run, and people are notified only when malpractice was
// flagged. Termination of the session is never automatic; that decision
// stays with the proctor.
type Escalator struct {
	uploader   artifact.Uploader
	dispatcher notification.Dispatcher
}

func NewEscalator(uploader artifact.Uploader, dispatcher notification.Dispatcher) *Escalator {
	return &Escalator{uploader: uploader, dispatcher: dispatcher}
}

// Notify sends a one-off message through the escalator's dispatcher.
func (e *Escalator) Notify(ctx context.Context, recipient, subject, body string) error {
	return e.dispatcher.Send(ctx, recipient, subject, body)
}

// EscalationResult reports what happened during escalation. Upload
// failure never retracts a verdict.
type EscalationResult struct {
	RemoteArtifactID string
	UploadErr        error
}

// Escalate uploads the evidence recording and, for a detected verdict,
// notifies the proctor and the student. Notification failures are
// logged and swallowed; they must not hide the verdict.
func (e *Escalator) Escalate(ctx context.Context, verdict Verdict, evidencePath string, proctorEmail, studentEmail string) EscalationResult {
	var result EscalationResult

	remoteID, err := e.uploader.Upload(ctx, evidencePath)
	if err != nil {
		result.UploadErr = fmt.Errorf("upload evidence: %w", err)
		log.Error().Err(err).
			Str("exam_id", verdict.ExamID.String()).
			Str("student_id", verdict.StudentID).
			Msg("evidence upload failed")
	} else {
		result.RemoteArtifactID = remoteID
	}

	if !verdict.Detected {
		return result
	}

	subject := "Malpractice Alert"
	body := fmt.Sprintf(
		"Malpractice was detected for student %s in exam %s. %d anomaly event(s) were recorded. Review the proctoring report before taking action.",
		verdict.StudentID, verdict.ExamID, len(verdict.Contributing),
	)

	for _, recipient := range []string{proctorEmail, studentEmail} {
		if recipient == "" {
			continue
		}
		if err := e.dispatcher.Send(ctx, recipient, subject, body); err != nil {
			log.Warn().Err(err).Str("recipient", recipient).Msg("malpractice notification failed")
		}
	}

	return result
}
