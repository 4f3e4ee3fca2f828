package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

// HandlerOptions configures cookie and response behaviour of Handler
type HandlerOptions struct {
	SecureCookies   bool
	AccessDuration  time.Duration
	RefreshDuration time.Duration
	// ExposeOTP echoes generated codes in signup and resend responses
	ExposeOTP bool
}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
	logger      *logging.Logger
	opts        HandlerOptions
}

func NewHandler(service *Service, rateLimiter RateLimiter, logger *logging.Logger, opts HandlerOptions) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
		opts:        opts,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	FullName string    `json:"fullName" validate:"required,min=2"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=6"`
	Role     user.Role `json:"role" validate:"required,oneof=CUSTOMER FACILITY_OWNER ADMIN"`
}

// SignupResponse is returned once a code has been issued
type SignupResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	OTP     string `json:"otp,omitempty"`
}

// ResendOTPRequest represents the resend request body
type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResendOTPResponse is returned after a new code was issued
type ResendOTPResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

// VerifyOTPRequest represents the verification request body
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=5,numeric"`
}

// VerifyOTPResponse carries the id of the created user
type VerifyOTPResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Signup handles account signup
// @Summary      Sign up
// @Description  Store the signup data and email a 5-digit verification code. The account is created by verify-otp. Role ADMIN is refused with a field error unless AUTH_ALLOW_ADMIN_SIGNUP is enabled.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup data"
// @Success      200 {object} SignupResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error or email already registered"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, logger, "signup") {
		return
	}

	req, ok := decode[SignupRequest](w, r, logger)
	if !ok {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	pending, err := h.service.Signup(r.Context(), SignupInput{
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAdminSignupDisabled):
			logger.Warn("signup failed: admin role requested")
			httputil.RespondValidationError(w, []httputil.FieldError{{Field: "role", Message: "role ADMIN cannot be chosen at signup"}})
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("signup failed: email already exists")
			respondError(w, "User with this email already exists", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
		default:
			logger.Error("signup failed: internal error", "error", err.Error())
			respondError(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	// A fresh code gets a fresh set of guesses
	if err := h.rateLimiter.ResetVerifyAttempts(r.Context(), req.Email); err != nil {
		logger.Error("failed to reset verify attempts", "error", err.Error())
	}

	logger.Info("signup code issued")

	resp := SignupResponse{
		Message: "OTP sent to your email. Please check and verify.",
		Email:   pending.Email,
	}
	if h.opts.ExposeOTP {
		resp.OTP = pending.Code
	}
	respondJSON(w, resp, http.StatusOK)
}

// ResendOTP handles code resends
// @Summary      Resend verification code
// @Description  Issue a new code for the email, keeping any pending signup data
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendOTPRequest true "Email address"
// @Success      200 {object} ResendOTPResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/resend-otp [post]
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	req, ok := decode[ResendOTPRequest](w, r, logger)
	if !ok {
		return
	}

	if !h.allowIP(w, r, logger, "resend-otp") {
		return
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", req.Email)
		respondError(w, "please wait before requesting another code", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	pending, err := h.service.ResendOTP(r.Context(), req.Email)
	if err != nil {
		logger.Error("resend otp failed: internal error", "error", err.Error())
		respondError(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}
	if err := h.rateLimiter.ResetVerifyAttempts(r.Context(), req.Email); err != nil {
		logger.Error("failed to reset verify attempts", "error", err.Error())
	}

	resp := ResendOTPResponse{Message: "New OTP sent to your email."}
	if h.opts.ExposeOTP {
		resp.OTP = pending.Code
	}
	respondJSON(w, resp, http.StatusOK)
}

// VerifyOTP handles code verification
// @Summary      Verify signup code
// @Description  Check the code and create the user account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyOTPRequest true "Email and code"
// @Success      200 {object} VerifyOTPResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid, expired or unusable code"
// @Failure      429 {object} httputil.ErrorResponse "Too many attempts"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/verify-otp [post]
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, logger, "verify-otp") {
		return
	}

	req, ok := decode[VerifyOTPRequest](w, r, logger)
	if !ok {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	exceeded, err := h.rateLimiter.CheckVerifyAttempts(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check verify attempts", "error", err.Error())
	} else if exceeded {
		logger.Warn("verify attempts exceeded")
		respondError(w, "too many attempts, please request a new code later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	userID, err := h.service.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrNotFound):
			logger.Warn("verify failed: no active code")
			respondError(w, "OTP expired or not found. Please request a new one.", httputil.CodeOTPNotFound, http.StatusBadRequest)
		case errors.Is(err, verification.ErrCorrupt):
			logger.Error("verify failed: undecodable verification record")
			respondError(w, "Invalid verification data. Please sign up again.", httputil.CodeVerificationCorrupt, http.StatusBadRequest)
		case errors.Is(err, ErrSignupDataMissing):
			logger.Warn("verify failed: record has no signup data")
			respondError(w, "No signup data found for this email. Please sign up again.", httputil.CodeSignupDataMissing, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidOTP):
			logger.Warn("verify failed: code mismatch")
			if err := h.rateLimiter.RecordVerifyAttempt(r.Context(), req.Email); err != nil {
				logger.Error("failed to record verify attempt", "error", err.Error())
			}
			respondError(w, "Invalid OTP. Please try again.", httputil.CodeInvalidOTP, http.StatusBadRequest)
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("verify failed: email already registered")
			respondError(w, "User with this email already exists", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
		default:
			logger.Error("verify failed: internal error", "error", err.Error())
			respondError(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	if err := h.rateLimiter.ResetVerifyAttempts(r.Context(), req.Email); err != nil {
		logger.Error("failed to reset verify attempts", "error", err.Error())
	}

	logger.Info("user created from verified signup", "user_id", userID)

	respondJSON(w, VerifyOTPResponse{
		Message: "Email verified successfully! User account created.",
		UserID:  userID,
	}, http.StatusOK)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate user and receive access and refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthTokens
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Account disabled"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, logger, "login") {
		return
	}

	req, ok := decode[LoginRequest](w, r, logger)
	if !ok {
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	tokens, u, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrAccountDisabled):
			logger.Warn("login failed: account disabled")
			respondError(w, "account is disabled", httputil.CodeAccountDisabled, http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in successfully", "user_id", u.ID)

	h.respondTokens(w, r, tokens, "logged in successfully")
}

// Refresh handles access token refresh
// @Summary      Refresh access token
// @Description  Use a refresh token to get a new access token. The refresh token is rotated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token (or refresh_token cookie)"
// @Success      200 {object} AuthTokens
// @Failure      400 {object} httputil.ErrorResponse "Refresh token missing"
// @Failure      401 {object} httputil.ErrorResponse "Invalid or expired refresh token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := readRefreshToken(r)
	if refreshToken == "" {
		logger.Warn("refresh token missing from both body and cookie")
		respondError(w, "refresh token required", httputil.CodeRefreshTokenRequired, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.RefreshAccessToken(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrRefreshTokenRevoked), errors.Is(err, ErrRefreshTokenExpired):
			logger.Warn("token refresh failed: invalid or expired token", "error", err.Error())
			respondError(w, "invalid or expired refresh token", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
		case errors.Is(err, ErrAccountDisabled):
			logger.Warn("token refresh failed: account disabled")
			respondError(w, "account is disabled", httputil.CodeAccountDisabled, http.StatusForbidden)
		default:
			logger.Error("token refresh failed: internal error", "error", err.Error())
			respondError(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("access token refreshed successfully")

	h.respondTokens(w, r, tokens, "token refreshed successfully")
}

// Logout handles user logout
// @Summary      User logout
// @Description  Logout user by revoking refresh token and clearing cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Optional refresh token"
// @Success      200 {object} map[string]string
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if refreshToken := readRefreshToken(r); refreshToken != "" {
		if err := h.service.RevokeRefreshToken(r.Context(), refreshToken); err != nil {
			// Cookies are cleared regardless
			logger.Warn("failed to revoke refresh token", "error", err)
		}
	}

	ClearAuthCookies(w)

	logger.Info("user logged out successfully")

	respondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// Me returns the authenticated user
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} user.User
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	u, err := h.service.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("authenticated user no longer exists", "user_id", userID)
			respondError(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}
		logger.Error("failed to load current user", "error", err.Error())
		respondError(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	respondJSON(w, u, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link to the user's email. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	req, ok := decode[ForgotPasswordRequest](w, r, logger)
	if !ok {
		return
	}

	if !h.allowIP(w, r, logger, "forgot-password") {
		return
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", req.Email)
		respondError(w, "please wait before requesting another reset", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	respondJSON(w, map[string]string{
		"message": "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Reset a user's password using a valid reset token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	req, ok := decode[ResetPasswordRequest](w, r, logger)
	if !ok {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			logger.Warn("password reset failed: invalid or expired token")
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		logger.Error("password reset failed: internal error", "error", err.Error())
		respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password reset successfully")

	respondJSON(w, map[string]string{
		"message": "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

// allowIP applies the per-IP limit for purpose and records the request.
// Limiter failures are logged and let the request through.
func (h *Handler) allowIP(w http.ResponseWriter, r *http.Request, logger *logging.Logger, purpose string) bool {
	ip := httputil.ClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return true
}

// respondTokens sets cookies for browsers and returns tokens in the body otherwise
func (h *Handler) respondTokens(w http.ResponseWriter, r *http.Request, tokens *AuthTokens, message string) {
	if ShouldUseCookies(r) {
		SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.opts.SecureCookies, h.opts.AccessDuration, h.opts.RefreshDuration)
		respondJSON(w, map[string]string{"message": message}, http.StatusOK)
		return
	}
	respondJSON(w, tokens, http.StatusOK)
}

// readRefreshToken takes the token from the JSON body, falling back to the cookie
func readRefreshToken(r *http.Request) string {
	var refreshToken string
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		if cookieToken, err := GetRefreshTokenFromCookie(r); err == nil {
			refreshToken = cookieToken
		}
	}
	return strings.TrimSpace(refreshToken)
}

// decode wraps httputil.DecodeAndValidate and writes the error response
func decode[T any](w http.ResponseWriter, r *http.Request, logger *logging.Logger) (*T, bool) {
	req, err := httputil.DecodeAndValidate[T](r)
	if err != nil {
		logger.Warn("invalid request", "error", err.Error())
		httputil.RespondDecodeError(w, err)
		return nil, false
	}
	return req, true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
