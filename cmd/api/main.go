package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/code-with-happy/ai-voice-agent/internal/app"
	"github.com/code-with-happy/ai-voice-agent/internal/config"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (default: ./voice-agent.yaml if present)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using process environment", "error", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Log)

	srv, err := app.NewServer(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	slog.Info("voice agent starting",
		"addr", cfg.Server.Addr,
		"persona", srv.Persona.ID,
		"ai_backend", cfg.AI.Backend,
		"stt_backend", cfg.Speech.STTBackend,
		"tts_backend", cfg.Speech.TTSBackend,
	)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := runServer(ctx, httpSrv); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("voice agent stopped", "sessions", srv.Sessions.Len())
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
