package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"accounthub/internal/auth"
	"accounthub/internal/config"
	"accounthub/internal/email"
	"accounthub/internal/httpapi"
	"accounthub/internal/oauth"
	"accounthub/internal/service"
	"accounthub/internal/store/postgres"
	"accounthub/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var (
		authSvc    *service.AuthService
		profileSvc *service.ProfileService
		dbPing     func(context.Context) error
	)

	if cfg.DBDSN != "" {
		if err := postgres.Migrate(context.Background(), cfg.DBDSN); err != nil {
			logger.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		pgPool, err := postgres.Open(context.Background(), cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		users := postgres.NewUsersStore(pgPool)
		tokens := postgres.NewTokensStore(pgPool)

		tokenSvc := &service.TokenService{
			Tokens:   tokens,
			TokenTTL: cfg.TokenTTL,
		}
		authSvc = &service.AuthService{
			Users:  users,
			Tokens: tokenSvc,
		}
		profileSvc = &service.ProfileService{Users: users}
		dbPing = pgPool.Ping
	}

	mailSvc := &service.MailService{
		Sender: email.NewSender(email.Settings{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			TLSMode:   cfg.SMTPTLSMode,
			FromName:  cfg.SMTPFromName,
			FromEmail: cfg.SMTPFromEmail,
		}),
		BaseURL: cfg.BaseURL(),
	}
	if !mailSvc.Enabled() {
		logger.Info("email delivery disabled", "expose_tokens", cfg.ExposeTokens)
	}

	sessions := auth.NewSessionCodec([]byte(cfg.SessionSecret), cfg.SessionTTL)

	google := oauth.NewGoogle(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.BaseURL()+"/v1/auth/google/callback",
		[]byte(cfg.SessionSecret),
	)

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:         logger,
		IsProd:         cfg.IsProd(),
		DBPing:         dbPing,
		Auth:           authSvc,
		Profile:        profileSvc,
		Mail:           mailSvc,
		Google:         google,
		Sessions:       sessions,
		CookieSecure:   cfg.CookieSecure(),
		GoogleClientID: cfg.GoogleClientID,
		AppleServiceID: cfg.AppleServiceID,
		ExposeTokens:   cfg.ExposeTokens,
	})

	pages, err := web.New(web.Opts{
		Logger:   logger,
		Sessions: sessions,
	})
	if err != nil {
		logger.Error("web setup failed", "err", err)
		os.Exit(1)
	}

	root := http.NewServeMux()
	root.Handle("/v1/", apiRouter)
	root.Handle("/healthz", apiRouter)
	root.Handle("/", pages)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
