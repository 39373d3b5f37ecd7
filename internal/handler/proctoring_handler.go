package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/proctoring"
	"github.com/invigil/invigil-backend/internal/response"
	"github.com/invigil/invigil-backend/internal/service"
	"github.com/invigil/invigil-backend/internal/validator"
)

// ProctoringHandler handles monitoring runs, manual logs, and reports.
type ProctoringHandler struct {
	proctoringService *service.ProctoringService
}

func NewProctoringHandler(proctoringService *service.ProctoringService) *ProctoringHandler {
	return &ProctoringHandler{proctoringService: proctoringService}
}

// StartProctoring godoc
// POST /api/v1/start-proctoring
// Starts a monitoring run for an in-progress session. Returns the
// artifact id immediately; the pipeline runs in the background.
func (h *ProctoringHandler) StartProctoring(c *gin.Context) {
	var req model.StartProctoringRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	artifactID, err := h.proctoringService.StartRun(c.Request.Context(), examID, req.StudentID)
	if err != nil {
		switch {
		case errors.Is(err, proctoring.ErrMonitorRunning):
			response.Fail(c, http.StatusConflict, response.ErrMonitorAlreadyRunning)
		case errors.Is(err, service.ErrNoActiveSession):
			response.Fail(c, http.StatusBadRequest, response.ErrNoActiveSession)
		case errors.Is(err, service.ErrCaptureUnavailable):
			response.Fail(c, http.StatusBadRequest, response.ErrCaptureUnavailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"artifact_id": artifactID})
}

// LogMalpractice godoc
// POST /api/v1/log-malpractice
// Records a manual observation from a proctor.
func (h *ProctoringHandler) LogMalpractice(c *gin.Context) {
	var req model.LogMalpracticeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.proctoringService.LogMalpractice(c.Request.Context(), examID, req.StudentID, req.Event); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"status": "logged"})
}

// StopExam godoc
// POST /api/v1/stop-exam/:exam_id/:student_id
// Terminates a session on the proctor's decision. The monitor for the
// session stops within one sampling interval.
func (h *ProctoringHandler) StopExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	studentID := c.Param("student_id")

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body) // body is optional

	err = h.proctoringService.StopExam(c.Request.Context(), examID, studentID, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveSession):
			response.Fail(c, http.StatusBadRequest, response.ErrNoActiveSession)
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusBadRequest, response.ErrAlreadySubmitted)
		case errors.Is(err, service.ErrAlreadyTerminated):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyTerminated)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "terminated"})
}

// GetLogs godoc
// GET /api/v1/proctoring-logs?exam_id=&student_id=
// Lists integrity events, optionally filtered to one session.
func (h *ProctoringHandler) GetLogs(c *gin.Context) {
	var examID *uuid.UUID
	if raw := c.Query("exam_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		examID = &id
	}

	logs, err := h.proctoringService.ListLogs(c.Request.Context(), examID, c.Query("student_id"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"logs": logs})
}

// DownloadReport godoc
// GET /api/v1/download-report/:student_id/:exam_id
// Serves the generated XML report as a file attachment.
func (h *ProctoringHandler) DownloadReport(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	studentID := c.Param("student_id")

	path, err := h.proctoringService.ReportPath(c.Request.Context(), examID, studentID)
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrReportNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.FileAttachment(path, proctoring.ReportFileName(studentID, examID))
}
