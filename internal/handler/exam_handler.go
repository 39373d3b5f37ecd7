package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/invigil/invigil-backend/internal/middleware"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/response"
	"github.com/invigil/invigil-backend/internal/service"
	"github.com/invigil/invigil-backend/internal/validator"
)

// ExamHandler handles catalog reads and the exam session lifecycle.
type ExamHandler struct {
	examService    *service.ExamService
	sessionService *service.SessionService
}

func NewExamHandler(examService *service.ExamService, sessionService *service.SessionService) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		sessionService: sessionService,
	}
}

// GetExams godoc
// GET /api/v1/get-exams
// Lists scheduled exams shaped for the caller's role.
func (h *ExamHandler) GetExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListExams(c.Request.Context(), claims)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExamByID godoc
// GET /api/v1/get-exams/:exam_id
func (h *ExamHandler) GetExamByID(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), examID, claims)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// StartExam godoc
// POST /api/v1/start-exam/:exam_id
// Begins (or resumes) the caller's session. Repeated calls return the
// original start time.
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	if claims.Role != model.RoleStudent || claims.StudentID == "" {
		response.Fail(c, http.StatusForbidden, response.ErrRoleNotPermitted)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	handle, err := h.sessionService.StartSession(c.Request.Context(), examID, claims.StudentID, claims.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamNotYetAvailable):
			response.Fail(c, http.StatusBadRequest, response.ErrExamNotYetAvailable)
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusBadRequest, response.ErrAlreadySubmitted)
		case errors.Is(err, service.ErrAlreadyTerminated):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyTerminated)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, handle)
}

// SubmitExam godoc
// POST /api/v1/submit-exam
// Grades MCQ answers and completes the caller's session.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	if claims.Role != model.RoleStudent || claims.StudentID == "" {
		response.Fail(c, http.StatusForbidden, response.ErrRoleNotPermitted)
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.SubmitAnswers(c.Request.Context(), examID, claims.StudentID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusBadRequest, response.ErrAlreadySubmitted)
		case errors.Is(err, service.ErrAlreadyTerminated):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyTerminated)
		case errors.Is(err, service.ErrNoActiveSession):
			response.Fail(c, http.StatusBadRequest, response.ErrExamNotStarted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// EvaluateExam godoc
// POST /api/v1/evaluate-exam
// Records subjective marks and a rank for a completed submission.
func (h *ExamHandler) EvaluateExam(c *gin.Context) {
	var req model.EvaluateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	err = h.sessionService.EvaluateSubjective(c.Request.Context(), examID, req.UserEmail, req.SubjectiveMarks, req.Rank)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrSubmissionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSubmissionNotFound)
		case errors.Is(err, service.ErrNotCompleted):
			response.Fail(c, http.StatusBadRequest, response.ErrNotCompleted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "evaluated"})
}

// GetSubmission godoc
// GET /api/v1/get-submission/:exam_id/:user_email
func (h *ExamHandler) GetSubmission(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sub, err := h.sessionService.GetSubmission(c.Request.Context(), examID, c.Param("user_email"))
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSubmissionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}
