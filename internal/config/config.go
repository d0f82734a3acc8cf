package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"rankparty"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	PublicURL               string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Game Game
	AI   AI
	CORS CORS
}

// Game groups gameplay and question supply defaults.
type Game struct {
	SeedQuestionsFile string `env:"SEED_QUESTIONS_FILE" envDefault:"configs/questions.json"`
	PrefetchCap       int    `env:"QUESTION_PREFETCH_CAP" envDefault:"64"`
}

// AI configures the generative question source. An empty API key disables the
// generative path entirely; the supply then uses local pools only.
type AI struct {
	BaseURL        string        `env:"AI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey         string        `env:"AI_API_KEY"`
	Model          string        `env:"AI_MODEL" envDefault:"gpt-4o-mini"`
	AttemptTimeout time.Duration `env:"AI_ATTEMPT_TIMEOUT" envDefault:"10s"`
	MaxAttempts    int           `env:"AI_MAX_ATTEMPTS" envDefault:"10"`
}

// CORS holds allowed origins for the WebSocket upgrade check.
type CORS struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
