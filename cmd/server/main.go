package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GetStream/chat-assistant-backend/ai"
	"github.com/GetStream/chat-assistant-backend/api"
	"github.com/GetStream/chat-assistant-backend/api/validator"
	"github.com/GetStream/chat-assistant-backend/chatapp"
	"github.com/GetStream/chat-assistant-backend/config"
	"github.com/GetStream/chat-assistant-backend/googlechat"
	"github.com/GetStream/chat-assistant-backend/postgres"
	"github.com/GetStream/chat-assistant-backend/redis"
	"google.golang.org/genai"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err.Error())
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newGenAI(ctx context.Context, cfg config.GenAI) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Project != "" {
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}
	return genai.NewClient(ctx, cc)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := context.Background()

	pg, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Connected to PostgreSQL")

	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("Connected to Redis")

	gc, err := newGenAI(ctx, cfg.GenAI)
	if err != nil {
		return err
	}
	appClient, err := googlechat.AppClient(ctx)
	if err != nil {
		return err
	}

	auth := googlechat.NewAuthorizer(cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.RedirectURL, []byte(cfg.OAuth.StateKey), rdb)
	app := &chatapp.App{
		Logger: logger,
		Store:  pg,
		Messaging: &googlechat.Client{
			App:   appClient,
			Users: auth,
		},
		Subscriptions: &googlechat.Subscriptions{
			Topic: cfg.Events.PubsubTopic,
			App:   appClient,
			Users: auth,
		},
		Auth: auth,
		Answerer: ai.New(gc.Models, ai.Config{
			Model:       cfg.GenAI.Model,
			Temperature: cfg.GenAI.Temperature,
		}, logger),
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: &api.API{
			Logger:   logger,
			App:      app,
			Auth:     auth,
			Recorder: app,
			Val:      validator.New(),
		},
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
