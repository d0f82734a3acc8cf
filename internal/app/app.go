package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/rankparty/rankparty/internal/config"
	"github.com/rankparty/rankparty/internal/game"
	"github.com/rankparty/rankparty/internal/logging"
	"github.com/rankparty/rankparty/internal/question"
	"github.com/rankparty/rankparty/internal/question/ai"
	"github.com/rankparty/rankparty/internal/server"
	ws "github.com/rankparty/rankparty/pkg/http/ws"
)

// Application aggregates shared infrastructure (question supply, game engine,
// HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	http *http.Server
}

// New bootstraps config, logger, question supply, game engine and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	// Seed pool is optional; a missing or malformed file degrades to the
	// generative and fallback sources only.
	seedPool, err := question.LoadSeedPool(cfg.Game.SeedQuestionsFile)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Game.SeedQuestionsFile).Msg("seed questions unavailable")
	} else {
		logger.Info().Int("count", len(seedPool)).Msg("seed questions loaded")
	}

	var generator question.Generator
	if cfg.AI.APIKey != "" {
		generator = ai.NewGenerator(ai.Config{
			BaseURL: cfg.AI.BaseURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.AttemptTimeout,
		}, logger)
		logger.Info().Str("model", cfg.AI.Model).Msg("generative question source enabled")
	} else {
		logger.Warn().Msg("AI_API_KEY not set; generative question source disabled")
	}

	supply := question.NewSupply(generator, question.SupplyOptions{
		SeedPool:       seedPool,
		PrefetchCap:    cfg.Game.PrefetchCap,
		MaxAttempts:    cfg.AI.MaxAttempts,
		AttemptTimeout: cfg.AI.AttemptTimeout,
	}, logger)

	registry := game.NewRegistry(game.RegistryOptions{
		OnDestroy: supply.ForgetRoom,
	}, logger)

	engine := game.NewEngine(registry, supply, logger)
	wsHub := ws.NewHub(logger)
	gameHandler := game.NewHandler(engine, wsHub, cfg.CORS.AllowedOrigins, logger)

	apiServer := server.NewHTTPServer(cfg, logger, registry, gameHandler.ServeWS)

	return &Application{
		cfg:    cfg,
		logger: logger,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
