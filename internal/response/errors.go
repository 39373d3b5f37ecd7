package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrRoleNotPermitted ErrCode = "ROLE_NOT_PERMITTED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam sessions ─────────────────────────────────────────────────
	ErrExamNotYetAvailable ErrCode = "EXAM_NOT_YET_AVAILABLE"
	ErrExamNotStarted      ErrCode = "EXAM_NOT_STARTED"
	ErrAlreadySubmitted    ErrCode = "ALREADY_SUBMITTED"
	ErrAlreadyTerminated   ErrCode = "ALREADY_TERMINATED"
	ErrNoActiveSession     ErrCode = "NO_ACTIVE_SESSION"
	ErrSubmissionNotFound  ErrCode = "SUBMISSION_NOT_FOUND"
	ErrNotCompleted        ErrCode = "SUBMISSION_NOT_COMPLETED"

	// ─── Proctoring ────────────────────────────────────────────────────
	ErrMonitorAlreadyRunning ErrCode = "MONITOR_ALREADY_RUNNING"
	ErrCaptureUnavailable    ErrCode = "CAPTURE_UNAVAILABLE"
	ErrReportNotFound        ErrCode = "REPORT_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrRoleNotPermitted:
		return "Your role is not permitted to perform this action."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam sessions ─────────────────────────────────────────────────
	case ErrExamNotYetAvailable:
		return "Exam not yet available."
	case ErrExamNotStarted:
		return "Exam has not been started."
	case ErrAlreadySubmitted:
		return "Exam already submitted."
	case ErrAlreadyTerminated:
		return "Exam session was terminated; submission is no longer accepted."
	case ErrNoActiveSession:
		return "No active exam session found."
	case ErrSubmissionNotFound:
		return "Submission not found."
	case ErrNotCompleted:
		return "Submission has not been completed yet."

	// ─── Proctoring ────────────────────────────────────────────────────
	case ErrMonitorAlreadyRunning:
		return "A monitoring run is already active for this session."
	case ErrCaptureUnavailable:
		return "Failed to open the capture source for this session."
	case ErrReportNotFound:
		return "Report not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
