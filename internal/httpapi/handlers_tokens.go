package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"accounthub/internal/auth"
	"accounthub/internal/domain"
	"accounthub/internal/service"
)

const genericResetMsg = "If an account with that email exists, a password reset link has been sent."
const genericResendMsg = "If an account with this email exists and is unverified, a new verification link has been sent."

type emailRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// ResetToken and VerificationToken are only populated when the
	// dev-mode token fallback is enabled.
	ResetToken        string `json:"reset_token,omitempty"`
	VerificationToken string `json:"verification_token,omitempty"`
}

func (a *api) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Email is required")
		return
	}

	rawToken, err := a.authSvc.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		a.logger.Error("forgot password failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to generate reset token")
		return
	}

	// rawToken is empty for unknown emails; the response below is the
	// same either way.
	if rawToken != "" && a.mailSvc.Enabled() {
		if err := a.mailSvc.SendPasswordReset(service.NormalizeEmail(req.Email), rawToken); err != nil {
			a.logger.Error("send reset email failed", "err", err, "token", service.TruncateToken(rawToken))
		}
	}

	resp := messageResponse{Success: true, Message: genericResetMsg}
	if a.exposeTokens {
		resp.ResetToken = rawToken
	}
	WriteJSON(w, http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *api) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Token and password are required")
		return
	}
	if msg, ok := auth.PasswordStrengthMessage(req.Password); !ok {
		WriteError(w, http.StatusBadRequest, "weak_password", msg)
		return
	}

	if err := a.authSvc.ResetPassword(r.Context(), token, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			a.logger.Info("reset token expired", "token", service.TruncateToken(token))
			WriteError(w, http.StatusBadRequest, "token_invalid", "Reset token has expired. Please request a new one.")
		case errors.Is(err, domain.ErrTokenInvalid):
			WriteError(w, http.StatusBadRequest, "token_invalid", "Invalid or expired reset token")
		case errors.Is(err, domain.ErrNotFound):
			WriteError(w, http.StatusNotFound, "not_found", "User not found")
		default:
			a.logger.Error("reset password failed", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to update password")
		}
		return
	}

	WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Password has been reset successfully. You can now log in.",
	})
}

func (a *api) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Email is required")
		return
	}

	rawToken, alreadyVerified, err := a.authSvc.ResendVerification(r.Context(), req.Email)
	if err != nil {
		a.logger.Error("resend verification failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to send verification link. Please try again.")
		return
	}

	if alreadyVerified {
		WriteJSON(w, http.StatusOK, messageResponse{
			Success: true,
			Message: "This email is already verified. You can login now.",
		})
		return
	}
	if rawToken == "" {
		WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: genericResendMsg})
		return
	}

	emailSent := false
	if a.mailSvc.Enabled() {
		if err := a.mailSvc.SendVerification(service.NormalizeEmail(req.Email), "", rawToken); err != nil {
			a.logger.Error("send verification email failed", "err", err, "token", service.TruncateToken(rawToken))
		} else {
			emailSent = true
		}
	}
	if !emailSent && !a.exposeTokens {
		WriteError(w, http.StatusInternalServerError, "email_failed", "Failed to send verification email. Please try again later.")
		return
	}

	resp := messageResponse{Success: true, Message: "Verification link sent! Check your email inbox."}
	if a.exposeTokens {
		resp.VerificationToken = rawToken
	}
	WriteJSON(w, http.StatusOK, resp)
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (a *api) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Verification token is required")
		return
	}

	if err := a.authSvc.VerifyEmail(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			a.logger.Info("verification token expired", "token", service.TruncateToken(token))
			WriteError(w, http.StatusBadRequest, "token_invalid", "Verification token has expired. Please request a new one.")
		case errors.Is(err, domain.ErrTokenInvalid):
			WriteError(w, http.StatusBadRequest, "token_invalid", "Invalid verification token")
		default:
			a.logger.Error("verify email failed", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to verify email. Please try again.")
		}
		return
	}

	WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Email verified successfully! You can now login.",
	})
}
