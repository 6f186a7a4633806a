package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"accounthub/internal/auth"
	"accounthub/internal/domain"
	"accounthub/internal/service"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Success             bool         `json:"success"`
	Message             string       `json:"message"`
	User                userResponse `json:"user"`
	VerificationPending bool         `json:"verification_pending"`
	EmailSent           bool         `json:"email_sent"`
	VerificationToken   string       `json:"verification_token,omitempty"`
}

func (a *api) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	email := service.NormalizeEmail(req.Email)

	if req.Name == "" || email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Name, email, and password are required")
		return
	}
	if !validEmail(email) {
		WriteError(w, http.StatusBadRequest, "validation_error", "Invalid email format")
		return
	}
	if msg, ok := auth.PasswordStrengthMessage(req.Password); !ok {
		WriteError(w, http.StatusBadRequest, "weak_password", msg)
		return
	}

	u, rawToken, err := a.authSvc.Signup(r.Context(), req.Name, email, req.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrEmailTaken) {
			a.logger.Error("signup failed", "err", err)
		}
		WriteDomainError(w, err)
		return
	}

	// Delivery failure degrades: the account exists and the token is
	// valid, the user just needs another way to the link.
	emailSent := false
	if a.mailSvc.Enabled() {
		if err := a.mailSvc.SendVerification(u.Email, u.Name, rawToken); err != nil {
			a.logger.Error("send verification email failed", "err", err, "token", service.TruncateToken(rawToken))
		} else {
			emailSent = true
		}
	}

	resp := signupResponse{
		Success:             true,
		Message:             "Account created successfully",
		User:                toUserResponse(u),
		VerificationPending: true,
		EmailSent:           emailSent,
	}
	if a.exposeTokens {
		resp.VerificationToken = rawToken
	}
	WriteJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "Email and password are required")
		return
	}

	u, err := a.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPassword):
			// Logged apart from a plain bad password; the response is
			// the same.
			a.logger.Info("login rejected", "reason", "oauth_only_account")
		case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrEmailNotVerified):
		default:
			a.logger.Error("login failed", "err", err)
		}
		WriteDomainError(w, err)
		return
	}

	if !a.establishSession(w, u) {
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (a *api) handleLogout(w http.ResponseWriter, _ *http.Request) {
	// Sessions are stateless; forgetting the cookie is the whole
	// operation.
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

type idTokenRequest struct {
	IDToken string `json:"id_token"`
}

func (a *api) handleLoginGoogle(w http.ResponseWriter, r *http.Request) {
	if a.googleClientID == "" {
		WriteError(w, http.StatusServiceUnavailable, "google_unavailable", "Google sign-in is not configured")
		return
	}

	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	identity, err := auth.VerifyGoogleIDToken(r.Context(), req.IDToken, a.googleClientID)
	if err != nil {
		a.logger.Info("google id token rejected", "err", err)
		WriteError(w, http.StatusUnauthorized, "invalid_id_token", "Invalid Google ID token")
		return
	}

	a.finishExternalLogin(w, r, identity)
}

func (a *api) handleLoginApple(w http.ResponseWriter, r *http.Request) {
	if a.appleServiceID == "" {
		WriteError(w, http.StatusServiceUnavailable, "apple_unavailable", "Apple sign-in is not configured")
		return
	}

	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	identity, err := auth.VerifyAppleIDToken(r.Context(), req.IDToken, a.appleServiceID)
	if err != nil {
		a.logger.Info("apple id token rejected", "err", err)
		WriteError(w, http.StatusUnauthorized, "invalid_id_token", "Invalid Apple ID token")
		return
	}

	a.finishExternalLogin(w, r, identity)
}

const oauthStateCookie = "accounthub_oauth_state"

func (a *api) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if !a.google.Enabled() {
		WriteError(w, http.StatusServiceUnavailable, "google_unavailable", "Google sign-in is not configured")
		return
	}

	authURL, state := a.google.AuthURL()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (a *api) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !a.google.Enabled() {
		WriteError(w, http.StatusServiceUnavailable, "google_unavailable", "Google sign-in is not configured")
		return
	}

	state := r.URL.Query().Get("state")
	c, err := r.Cookie(oauthStateCookie)
	if err != nil || c.Value == "" || c.Value != state {
		WriteError(w, http.StatusBadRequest, "oauth_state_mismatch", "OAuth state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	identity, err := a.google.Exchange(r.Context(), state, r.URL.Query().Get("code"))
	if err != nil {
		a.logger.Info("google oauth exchange failed", "err", err)
		WriteError(w, http.StatusUnauthorized, "oauth_failed", "Google sign-in failed")
		return
	}

	u, err := a.authSvc.LoginExternal(r.Context(), identity)
	if err != nil {
		a.logger.Error("external login failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	if !a.establishSession(w, u) {
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (a *api) finishExternalLogin(w http.ResponseWriter, r *http.Request, identity *auth.ExternalIdentity) {
	u, err := a.authSvc.LoginExternal(r.Context(), identity)
	if err != nil {
		a.logger.Error("external login failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	if !a.establishSession(w, u) {
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// establishSession issues the artifact and sets the cookie. It writes
// the error response itself when signing fails.
func (a *api) establishSession(w http.ResponseWriter, u domain.User) bool {
	signed, err := a.sessions.Issue(u)
	if err != nil {
		a.logger.Error("issue session failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return false
	}
	auth.SetSessionCookie(w, signed, a.sessions.TTL(), a.cookieSecure)
	return true
}
