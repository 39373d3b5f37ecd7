package proctoring

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/notification"
)

type stubUploader struct {
	id  string
	err error
}

func (u *stubUploader) Upload(_ context.Context, _ string) (string, error) {
	return u.id, u.err
}

func detectedVerdict() Verdict {
	examID := uuid.New()
	return Verdict{
		ExamID:    examID,
		StudentID: "STU3",
		Detected:  true,
		Contributing: []model.IntegrityEvent{
			{ExamID: examID, StudentID: "STU3", Kind: model.EventAnomalyDetected, Message: "Cheating detected (score 0.88)"},
		},
	}
}

func TestEscalateNotifiesOnDetection(t *testing.T) {
	dispatcher := &notification.MemoryDispatcher{}
	e := NewEscalator(&stubUploader{id: "remote-1"}, dispatcher)

	result := e.Escalate(context.Background(), detectedVerdict(), "/tmp/evidence.avi", "proctor@example.org", "student@example.org")
	if result.UploadErr != nil {
		t.Fatalf("upload should succeed: %v", result.UploadErr)
	}
	if result.RemoteArtifactID != "remote-1" {
		t.Fatalf("unexpected remote id %q", result.RemoteArtifactID)
	}

	if len(dispatcher.Sent) != 2 {
		t.Fatalf("expected proctor and student notified, got %d messages", len(dispatcher.Sent))
	}
	for _, msg := range dispatcher.Sent {
		if msg.Subject != "Malpractice Alert" {
			t.Fatalf("unexpected subject %q", msg.Subject)
		}
	}
}

func TestEscalateCleanRunSkipsNotification(t *testing.T) {
	dispatcher := &notification.MemoryDispatcher{}
	e := NewEscalator(&stubUploader{id: "remote-2"}, dispatcher)

	verdict := Verdict{ExamID: uuid.New(), StudentID: "STU4"}
	result := e.Escalate(context.Background(), verdict, "/tmp/evidence.avi", "proctor@example.org", "student@example.org")
	if result.RemoteArtifactID != "remote-2" {
		t.Fatal("evidence must be uploaded for clean runs too")
	}
	if len(dispatcher.Sent) != 0 {
		t.Fatalf("clean run must not notify anyone, got %d messages", len(dispatcher.Sent))
	}
}

func TestEscalateUploadFailureKeepsVerdict(t *testing.T) {
	dispatcher := &notification.MemoryDispatcher{}
	e := NewEscalator(&stubUploader{err: errors.New("store down")}, dispatcher)

	verdict := detectedVerdict()
	result := e.Escalate(context.Background(), verdict, "/tmp/evidence.avi", "proctor@example.org", "")
	if result.UploadErr == nil {
		t.Fatal("expected upload error to surface")
	}
	if !verdict.Detected {
		t.Fatal("upload failure must not retract the verdict")
	}
	// The proctor still hears about the detection.
	if len(dispatcher.Sent) != 1 {
		t.Fatalf("expected proctor notification despite upload failure, got %d", len(dispatcher.Sent))
	}
}
