package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"accounthub/internal/auth"
	"accounthub/internal/oauth"
	"accounthub/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth    *service.AuthService
	Profile *service.ProfileService
	Mail    *service.MailService
	Google  *oauth.Google

	Sessions     auth.SessionCodec
	CookieSecure bool

	GoogleClientID string
	AppleServiceID string
	ExposeTokens   bool
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:         logger,
		isProd:         opts.IsProd,
		dbPing:         opts.DBPing,
		authSvc:        opts.Auth,
		profileSvc:     opts.Profile,
		mailSvc:        opts.Mail,
		google:         opts.Google,
		sessions:       opts.Sessions,
		cookieSecure:   opts.CookieSecure,
		googleClientID: opts.GoogleClientID,
		appleServiceID: opts.AppleServiceID,
		exposeTokens:   opts.ExposeTokens,
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)

	if api.authSvc == nil {
		apiMux.HandleFunc("/", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/signup", api.handleSignup)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleLogin)
		apiMux.HandleFunc("POST /v1/auth/logout", api.handleLogout)
		apiMux.HandleFunc("POST /v1/auth/google", api.handleLoginGoogle)
		apiMux.HandleFunc("POST /v1/auth/apple", api.handleLoginApple)
		apiMux.HandleFunc("GET /v1/auth/google/start", api.handleGoogleStart)
		apiMux.HandleFunc("GET /v1/auth/google/callback", api.handleGoogleCallback)
		apiMux.HandleFunc("POST /v1/auth/forgot-password", api.handleForgotPassword)
		apiMux.HandleFunc("POST /v1/auth/reset-password", api.handleResetPassword)
		apiMux.HandleFunc("POST /v1/auth/resend-verification", api.handleResendVerification)
		apiMux.HandleFunc("POST /v1/auth/verify-email", api.handleVerifyEmail)
		apiMux.HandleFunc("POST /v1/auth/change-password", api.requireAuth(api.handleChangePassword))
		apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
		apiMux.HandleFunc("PATCH /v1/users/me", api.requireAuth(api.handleUpdateProfile))
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc    *service.AuthService
	profileSvc *service.ProfileService
	mailSvc    *service.MailService
	google     *oauth.Google

	sessions     auth.SessionCodec
	cookieSecure bool

	googleClientID string
	appleServiceID string
	exposeTokens   bool
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
