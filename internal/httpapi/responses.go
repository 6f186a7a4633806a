package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"accounthub/internal/domain"
)

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: message, Code: code})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps sentinel errors to status codes and wording.
// Handlers that need flow-specific text write it themselves before
// falling back here.
func WriteDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrNoPassword):
		// One message for unknown email, wrong password, and
		// password-less accounts. Do not give probes a foothold.
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, domain.ErrEmailNotVerified):
		WriteError(w, http.StatusUnauthorized, "email_not_verified", "Please verify your email before logging in. Check your email for the verification link.")
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenExpired):
		WriteError(w, http.StatusBadRequest, "token_invalid", "Invalid or expired token")
	case errors.Is(err, domain.ErrWrongPassword):
		WriteError(w, http.StatusBadRequest, "wrong_password", "Current password is incorrect")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "Forbidden")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

type userResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.Verified(),
	}
}
