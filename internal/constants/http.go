package constants

// HTTP Header Names
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderUserAgent     = "User-Agent"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized  = "Unauthorized"
	MsgForbidden     = "Access forbidden"
	MsgNotFound      = "Resource not found"
	MsgBadRequest    = "Invalid request"
	MsgInternalError = "Internal server error"
	MsgConflict      = "Resource already exists"
)

// HTTP Success Messages
const (
	MsgLogoutSuccess      = "Logout successful"
	MsgPasswordResetSent  = "If that email is registered, a reset link has been sent"
	MsgPasswordResetDone  = "Password has been reset"
	MsgEmailVerified      = "Email verified"
	MsgVerificationResent = "Verification email sent"
	MsgSessionTerminated  = "Session terminated"
	MsgPasswordChanged    = "Password changed"
)
