package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"sales-dashboard/internal/auth"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/sheets"
)

const sweepInterval = time.Minute

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	verifier, err := loadVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("load credential store: %w", err)
	}

	source := dialSource(ctx, cfg.Sheets, logger)
	analytics := services.NewAnalytics(source).
		WithLogger(logger).
		WithFetchTimeout(cfg.Sheets.FetchTimeout)
	sessions := auth.NewSessions(cfg.Auth.SessionTTL)
	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go rateLimiter.Run(sweepCtx, sweepInterval)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, logger, analytics, verifier, sessions, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("rate-limiter", func(ctx context.Context) error {
		stopSweep()
		return nil
	})
	gracefulServer.RegisterShutdownHook("record-cache", func(ctx context.Context) error {
		logger.Info("dropping record cache", "stats", analytics.Stats())
		analytics.Refresh()
		return nil
	})

	return gracefulServer.ListenAndServe(ctx)
}

func newHandler(cfg *config.Config, logger *slog.Logger, analytics *services.Analytics, verifier auth.Verifier, sessions *auth.Sessions, rateLimiter *middleware.RateLimiter) http.Handler {
	srv := server.NewServer(analytics, logger, server.Auth{
		Verifier: verifier,
		Sessions: sessions,
		Config:   cfg.Auth,
	})

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.SameOrigin(cfg.Security, logger),
	)

	return middlewareChain(srv)
}

func loadVerifier(cfg config.AuthConfig) (*auth.Store, error) {
	if len(cfg.Users) > 0 {
		return auth.NewStore(cfg.Users)
	}
	return auth.LoadStore(cfg.UsersFile)
}

// dialSource connects to the spreadsheet. Credential problems do not stop
// the server; every render reports them until the operator fixes the key.
func dialSource(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger) services.RecordSource {
	key, err := sheets.LoadServiceAccountKey(cfg)
	if err != nil {
		logger.Error("service account key unavailable", "error", err)
		return sheets.Unavailable{Err: err}
	}

	// ctx outlives the dial: the token source refreshes with it
	client, err := sheets.Dial(ctx, cfg, key, logger)
	if err != nil {
		logger.Error("sheets client unavailable", "error", err)
		return sheets.Unavailable{Err: err}
	}

	logger.Info("sheets client ready",
		"service_account", key.ClientEmail,
		"spreadsheet", cfg.SpreadsheetName,
	)
	return client
}

// hashPassword reads a password from r and writes its bcrypt hash, ready to
// be paired with a username in the credential file.
func hashPassword(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("empty password")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}
