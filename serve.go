package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"policygen/main_backend/auth"
	"policygen/main_backend/cdn"
	"policygen/main_backend/config"
	ds "policygen/main_backend/database_service"
	"policygen/main_backend/discordbot"
	"policygen/main_backend/documents"
	"policygen/main_backend/graph"
	"policygen/main_backend/images"
	"policygen/main_backend/llm"
	"policygen/main_backend/logging"
	"policygen/main_backend/memstore"
	"policygen/main_backend/questionnaire"
	"policygen/main_backend/server"
)

// store is everything the services need from persistence. Both the
// Postgres store and the in-memory one satisfy it.
type store interface {
	auth.Store
	graph.AnswerStore
	documents.Store
	documents.GeneratorStore
	images.Store
	server.Pinger
}

var (
	_ store = (*ds.DB)(nil)
	_ store = (*memstore.Store)(nil)
)

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	catalog, err := questionnaire.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var st store
	var db *ds.DB
	if cfg.InMemory {
		log.Warn().Msg("running with the in-memory store; data is lost on exit")
		st = memstore.New()
	} else {
		db, err = ds.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		st = db
	}

	text, err := llm.NewProvider(cfg.TextModel, llm.Keys{
		Gemini:    cfg.GeminiAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
		OpenAI:    cfg.OpenAIAPIKey,
	})
	if err != nil {
		return fmt.Errorf("text model: %w", err)
	}

	var imageGen llm.ImageGenerator
	if g, err := llm.NewGeminiImage(cfg.ImageModel, cfg.GeminiAPIKey); err != nil {
		log.Warn().Err(err).Msg("image generation disabled")
	} else {
		imageGen = g
	}
	var uploader images.Uploader
	if cfg.CDNEnabled() {
		cld, err := cdn.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			return err
		}
		uploader = cld
	} else {
		log.Warn().Msg("CLOUDINARY_* not set; image uploads disabled")
	}

	authSvc := auth.NewService(st, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), log)
	if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	docs := documents.NewManager(st, log)
	schema, err := graph.NewSchema(graph.Services{
		Auth:      authSvc,
		Catalog:   catalog,
		Answers:   st,
		Generator: documents.NewGenerator(st, text, catalog, log),
		Documents: docs,
		Images: images.NewOrchestrator(st, imageGen, uploader, images.RetryConfig{
			MaxRetries: cfg.ImageMaxRetries,
			BaseDelay:  cfg.ImageRetryBase,
		}, log),
	}, log)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	if cfg.DiscordEnabled() && db != nil {
		stopNotifier, err := startNotifier(ctx, cfg, db, log)
		if err != nil {
			// notifications are optional; the API still serves
			log.Error().Err(err).Msg("❌ discord notifier not started")
		} else {
			defer stopNotifier()
		}
	}

	e := server.New(server.Deps{
		Schema:    schema,
		Auth:      authSvc,
		Documents: docs,
		Health:    st,
		Log:       log,
		LogLevel:  cfg.LogLevel,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api listening")
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

// startNotifier listens for app events and forwards them to Discord until
// the returned stop function is called.
func startNotifier(ctx context.Context, cfg *config.Config, db *ds.DB, log zerolog.Logger) (func(), error) {
	session, err := discordbot.Open(cfg.DiscordBotToken)
	if err != nil {
		return nil, err
	}
	lctx, cancel := context.WithCancel(ctx)
	events, errs, err := db.ListenAppEvents(lctx)
	if err != nil {
		cancel()
		session.Close()
		return nil, fmt.Errorf("listen app events: %w", err)
	}

	n := discordbot.NewNotifier(discordbot.SessionSender{Session: session}, cfg.DiscordChannelID, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := n.Run(lctx, events, errs); err != nil {
			log.Error().Err(err).Msg("❌ discord notifier stopped")
		}
	}()
	return func() {
		cancel()
		<-done
		session.Close()
	}, nil
}
