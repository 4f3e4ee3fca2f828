package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeCooldownActive     = "COOLDOWN_ACTIVE"

	// auth
	CodeMissingAuth          = "MISSING_AUTH"
	CodeInvalidAuthHeader    = "INVALID_AUTH_HEADER"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeInvalidTokenUserID   = "INVALID_TOKEN_USER_ID"
	CodeForbidden            = "FORBIDDEN"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"
	CodeRefreshTokenRequired = "REFRESH_TOKEN_REQUIRED"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	CodeInvalidResetToken    = "INVALID_RESET_TOKEN"
	CodeEmailAlreadyExists   = "EMAIL_ALREADY_EXISTS"

	// otp verification
	CodeOTPNotFound         = "OTP_NOT_FOUND"
	CodeInvalidOTP          = "INVALID_OTP"
	CodeVerificationCorrupt = "VERIFICATION_DATA_INVALID"
	CodeSignupDataMissing   = "SIGNUP_DATA_MISSING"

	// venues and bookings
	CodeVenueNotFound = "VENUE_NOT_FOUND"
	CodePhotoTooLarge = "PHOTO_TOO_LARGE"
	CodeInvalidStatus = "INVALID_STATUS"
	CodeCourtNotFound = "COURT_NOT_FOUND"
)
