package proctoring

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/invigil/invigil-backend/internal/model"
)

// Report is the XML document generated at the end of a monitoring run.
// Field order is part of the document format.
type Report struct {
	XMLName             xml.Name    `xml:"ProctoringReport"`
	StudentID           string      `xml:"StudentID"`
	ExamID              string      `xml:"ExamID"`
	MalpracticeDetected string      `xml:"MalpracticeDetected"`
	Logs                []ReportLog `xml:"Logs>Event"`
}

// ReportLog is one event entry in the report.
type ReportLog struct {
	Timestamp string `xml:"Timestamp"`
	Message   string `xml:"Message"`
}

// BuildReport assembles a report from a verdict and the full ordered
// event log of the run.
func BuildReport(verdict Verdict, events []model.IntegrityEvent) Report {
	detected := "No"
	if verdict.Detected {
		detected = "Yes"
	}

	report := Report{
		StudentID:           verdict.StudentID,
		ExamID:              verdict.ExamID.String(),
		MalpracticeDetected: detected,
	}
	for _, e := range events {
		report.Logs = append(report.Logs, ReportLog{
			Timestamp: e.CapturedAt.UTC().Format(time.RFC3339),
			Message:   e.Message,
		})
	}
	return report
}

// ReportFileName returns the canonical file name for a session's report.
func ReportFileName(studentID string, examID uuid.UUID) string {
	return fmt.Sprintf("proctoring_report_%s_%s.xml", studentID, examID)
}

// WriteReport serializes the report into dir and returns the file path.
func WriteReport(dir string, report Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := xml.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	examID, err := uuid.Parse(report.ExamID)
	if err != nil {
		return "", fmt.Errorf("invalid exam id in report: %w", err)
	}

	path := filepath.Join(dir, ReportFileName(report.StudentID, examID))
	payload := append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
