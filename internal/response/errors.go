package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrAdminAccessOnly  ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidInput   ErrCode = "INVALID_INPUT"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Assessment ────────────────────────────────────────────────────
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrKeyNotStarted    ErrCode = "KEY_NOT_STARTED"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrNoCurrentVersion ErrCode = "NO_CURRENT_VERSION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrDataIntegrity    ErrCode = "DATA_INTEGRITY_ERROR"
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

var messages = map[ErrCode]string{
	ErrInvalidCredentials: "Incorrect email or password.",
	ErrTokenRequired:      "An authentication token is required.",
	ErrTokenInvalid:       "The authentication token is invalid or expired.",

	ErrPermissionDenied: "Permission denied.",
	ErrAdminAccessOnly:  "This resource is restricted to administrators.",

	ErrValidation:     "Validation failed. Please check your input.",
	ErrInvalidID:      "Invalid ID format.",
	ErrInvalidPayload: "Invalid request payload.",
	ErrInvalidInput:   "The request references data that does not exist or is not allowed.",

	ErrNotFound: "Resource not found.",
	ErrConflict: "Resource already exists.",

	ErrAlreadySubmitted: "Answers for this enrolment key were already submitted.",
	ErrKeyNotStarted:    "This enrolment key has not been started.",
	ErrNoQuestions:      "No questions are available to assign.",
	ErrNoCurrentVersion: "No test version has been published yet.",

	ErrRateLimitExceeded: "Too many requests. Please try again later.",

	ErrDataIntegrity:    "Stored test data is inconsistent. Please contact an administrator.",
	ErrStoreUnavailable: "The service is temporarily unavailable. Please retry.",
	ErrInternal:         "An internal server error occurred.",
}

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "An unexpected error occurred."
}
