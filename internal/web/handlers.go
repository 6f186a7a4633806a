package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"accounthub/internal/auth"
)

type pageSessionKey struct{}

func withPageSession(ctx context.Context, view auth.SessionView) context.Context {
	return context.WithValue(ctx, pageSessionKey{}, view)
}

func pageSession(ctx context.Context) (auth.SessionView, bool) {
	view, ok := ctx.Value(pageSessionKey{}).(auth.SessionView)
	return view, ok
}

// Handlers serves the HTML pages. All state mutation goes through the
// JSON API; the pages only render forms and read the session cookie.
type Handlers struct {
	logger   *slog.Logger
	sessions auth.SessionCodec
	tmpl     *templates
}

type Opts struct {
	Logger   *slog.Logger
	Sessions auth.SessionCodec
}

// New builds the page router with the route guard applied to every
// request.
func New(opts Opts) (http.Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web templates: %w", err)
	}

	h := &Handlers{
		logger:   opts.Logger,
		sessions: opts.Sessions,
		tmpl:     tmpl,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /login", h.handleLogin)
	mux.HandleFunc("GET /signup", h.handleSignup)
	mux.HandleFunc("GET /forgot-password", h.handleForgotPassword)
	mux.HandleFunc("GET /resend-verification", h.handleResendVerification)
	mux.HandleFunc("GET /verify-email/{token}", h.handleVerifyEmail)
	mux.HandleFunc("GET /reset-password/{token}", h.handleResetPassword)
	mux.HandleFunc("GET /dashboard", h.handleDashboard)
	mux.HandleFunc("GET /profile", h.handleProfile)

	return h.Guard(mux), nil
}

func (h *Handlers) baseData(r *http.Request, title string) viewData {
	data := viewData{Title: title + " - Accounthub", Heading: title}
	if view, ok := pageSession(r.Context()); ok {
		data.LoggedIn = true
		data.UserName = view.Name
		data.UserEmail = view.Email
	}
	return data
}

func (h *Handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	h.tmpl.render(w, http.StatusOK, "home", h.baseData(r, "Accounthub"))
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	data := h.baseData(r, "Log in")
	if r.URL.Query().Get("expired") == "true" {
		data.Notice = "Your session has expired. Please log in again."
	}
	// The post-login destination defaults to the dashboard; the guard
	// fills in callbackUrl when it bounced the visitor here.
	data.CallbackURL = "/dashboard"
	if cb := r.URL.Query().Get("callbackUrl"); cb != "" && cb[0] == '/' {
		data.CallbackURL = cb
	}
	h.tmpl.render(w, http.StatusOK, "login", data)
}

func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	h.tmpl.render(w, http.StatusOK, "signup", h.baseData(r, "Sign up"))
}

func (h *Handlers) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.tmpl.render(w, http.StatusOK, "forgot", h.baseData(r, "Forgot password"))
}

func (h *Handlers) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	h.tmpl.render(w, http.StatusOK, "resend", h.baseData(r, "Resend verification"))
}

func (h *Handlers) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	data := h.baseData(r, "Verify email")
	data.Token = r.PathValue("token")
	h.tmpl.render(w, http.StatusOK, "verify", data)
}

func (h *Handlers) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	data := h.baseData(r, "Reset password")
	data.Token = r.PathValue("token")
	h.tmpl.render(w, http.StatusOK, "reset", data)
}

func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	h.tmpl.render(w, http.StatusOK, "dashboard", h.baseData(r, "Dashboard"))
}

func (h *Handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	h.tmpl.render(w, http.StatusOK, "profile", h.baseData(r, "Profile"))
}
