package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials   ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated   ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired        ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid         ErrCode = "TOKEN_INVALID"
	ErrTokenExpired         ErrCode = "TOKEN_EXPIRED"
	ErrDeviceMismatch       ErrCode = "DEVICE_MISMATCH"
	ErrRegistrationDisabled ErrCode = "REGISTRATION_DISABLED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation       ErrCode = "VALIDATION_ERROR"
	ErrInvalidID        ErrCode = "INVALID_ID"
	ErrInvalidPayload   ErrCode = "INVALID_PAYLOAD"
	ErrInvalidQuestion  ErrCode = "INVALID_QUESTION"
	ErrInvalidExamTime  ErrCode = "INVALID_EXAM_WINDOW"
	ErrInvalidRiskDelta ErrCode = "INVALID_RISK_DELTA"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam sessions ─────────────────────────────────────────────────
	ErrExamNotAvailable  ErrCode = "EXAM_NOT_AVAILABLE"
	ErrAlreadyCompleted  ErrCode = "EXAM_ALREADY_COMPLETED"
	ErrNoActiveSession   ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionFinalized  ErrCode = "SESSION_ALREADY_FINALIZED"
	ErrCameraCheckClosed ErrCode = "CAMERA_CHECK_NOT_PENDING"
	ErrScorerUnavailable ErrCode = "SCORER_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid credentials."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."
	case ErrDeviceMismatch:
		return "Unauthorized device. Please use your registered device."
	case ErrRegistrationDisabled:
		return "Registration is disabled."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidQuestion:
		return "The question is not well formed."
	case ErrInvalidExamTime:
		return "Exam end time must be after its start time."
	case ErrInvalidRiskDelta:
		return "Risk score delta must not be negative."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam sessions ─────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not available right now."
	case ErrAlreadyCompleted:
		return "You have already completed this exam."
	case ErrNoActiveSession:
		return "No active exam session."
	case ErrSessionFinalized:
		return "The exam session has already been submitted."
	case ErrCameraCheckClosed:
		return "This camera check has already been answered."
	case ErrScorerUnavailable:
		return "Answer analysis is not available."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
