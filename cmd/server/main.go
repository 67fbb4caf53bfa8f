package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cardgen/internal/api"
	"cardgen/internal/config"
	"cardgen/internal/logger"
	"cardgen/internal/services"
)

const sessionSweepInterval = 5 * time.Minute

func main() {
	// used until the configured logger exists
	boot, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init bootstrap logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		boot.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()

	srv, sessions, err := buildServer(cfg, zlog)
	if err != nil {
		return err
	}
	go sweepSessions(ctx, sessions, sessionSweepInterval, zlog)

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("model", cfg.Model),
			zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func buildServer(cfg config.Config, zlog *zap.Logger) (*http.Server, *api.SessionManager, error) {
	aiService, err := services.NewAIService(services.AIConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.APIBaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
		TopP:        float32(cfg.TopP),
	}, zlog)
	if err != nil {
		return nil, nil, fmt.Errorf("create ai service: %w", err)
	}
	pdfService := services.NewPDFService()
	sessions := api.NewSessionManager(cfg.SessionIdleTTL)

	server := api.NewServer(aiService, pdfService, sessions, zlog, api.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", serveFile("./internal/web/index.html"))
	mux.Handle("/api", server.Handler())
	mux.Handle("/api/", server.Handler())

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}, sessions, nil
}

// sweepSessions drops idle sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions *api.SessionManager, every time.Duration, zlog *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				zlog.Debug("expired idle sessions", zap.Int("removed", n), zap.Int("live", sessions.Len()))
			}
		}
	}
}

func serveFile(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.ServeFile(w, r, path)
	}
}
