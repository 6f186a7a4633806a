package httpapi

import (
	"errors"
	"net/http"

	"accounthub/internal/auth"
	"accounthub/internal/domain"
)

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := CurrentSession(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	// Fresh read: the artifact's cached name/avatar can lag behind
	// profile edits.
	u, err := a.authSvc.GetUser(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toUserResponse(u))
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

type updateProfileResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

func (a *api) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := CurrentSession(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	u, err := a.profileSvc.UpdateName(r.Context(), sess.UserID, req.Name)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, updateProfileResponse{
		Success: true,
		Message: "Profile updated successfully",
		User:    toUserResponse(u),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *api) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := CurrentSession(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Current password and new password are required")
		return
	}
	if msg, ok := auth.PasswordStrengthMessage(req.NewPassword); !ok {
		WriteError(w, http.StatusBadRequest, "weak_password", msg)
		return
	}

	if err := a.profileSvc.ChangePassword(r.Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPassword):
			WriteError(w, http.StatusBadRequest, "no_password", "This account does not have a password set")
		case errors.Is(err, domain.ErrWrongPassword), errors.Is(err, domain.ErrUnauthorized):
			WriteDomainError(w, err)
		default:
			a.logger.Error("change password failed", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to update password. Please try again.")
		}
		return
	}

	WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Password changed successfully",
	})
}
