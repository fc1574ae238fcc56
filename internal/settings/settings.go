// Package settings loads process-wide settings from the environment and an
// optional .env file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/cache"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/scoring"
)

type Settings struct {
	Env       string `env:"PRSIFT_ENV" env-default:"local" validate:"oneof=local dev prod"`
	CacheDir  string `env:"PRSIFT_CACHE_DIR"`
	ConfigDir string `env:"PRSIFT_CONFIG_DIR"`

	GitHub  GitHub
	Scoring Scoring
	Retry   Retry
	Server  Server

	// DotEnv is true when a .env file was found and applied.
	DotEnv bool
}

type GitHub struct {
	Token  string `env:"GITHUB_TOKEN"`
	APIURL string `env:"GITHUB_API_URL" validate:"omitempty,url"`
}

type Scoring struct {
	HeuristicWeight float64 `env:"PRSIFT_HEURISTIC_WEIGHT" env-default:"0.6" validate:"gte=0,lte=1"`
	AIWeight        float64 `env:"PRSIFT_AI_WEIGHT" env-default:"0.4" validate:"gte=0,lte=1"`
}

type Retry struct {
	Attempts int           `env:"PRSIFT_RETRY_ATTEMPTS" env-default:"3" validate:"gte=1,lte=10"`
	Backoff  time.Duration `env:"PRSIFT_RETRY_BACKOFF" env-default:"1s" validate:"gte=0"`
}

type Server struct {
	Host string `env:"PRSIFT_HOST" env-default:"localhost"`
	Port int    `env:"PRSIFT_PORT" env-default:"7070" validate:"gte=0,lte=65535"`
}

// Load applies the given .env files (".env" when none are named) without
// overriding variables already set, then reads the environment. Missing
// .env files are not an error.
func Load(envFiles ...string) (*Settings, error) {
	var s Settings

	err := godotenv.Load(envFiles...)
	switch {
	case err == nil:
		s.DotEnv = true
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, apperr.New(apperr.ConfigInvalid, "reading .env file", apperr.Wrap(err))
	}

	if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, apperr.New(apperr.ConfigInvalid, "reading environment", apperr.Wrap(err))
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, apperr.New(apperr.ConfigInvalid, fmt.Sprintf("invalid settings: %v", err), apperr.Recoverable(true))
	}
	if s.Scoring.HeuristicWeight+s.Scoring.AIWeight == 0 {
		return nil, apperr.New(apperr.ConfigInvalid, "PRSIFT_HEURISTIC_WEIGHT and PRSIFT_AI_WEIGHT cannot both be 0", apperr.Recoverable(true))
	}
	return &s, nil
}

// Weights returns the scorer blend.
func (s *Settings) Weights() scoring.Weights {
	return scoring.Weights{Heuristic: s.Scoring.HeuristicWeight, AI: s.Scoring.AIWeight}
}

// RetryOptions returns the hosting-provider retry policy.
func (s *Settings) RetryOptions() apperr.RetryOptions {
	return apperr.RetryOptions{MaxAttempts: s.Retry.Attempts, BackoffBase: s.Retry.Backoff}
}

// CacheRoot is PRSIFT_CACHE_DIR or the per-user cache directory.
func (s *Settings) CacheRoot() (string, error) {
	if s.CacheDir != "" {
		return s.CacheDir, nil
	}
	return cache.DefaultDir()
}

// ConfigRoot is PRSIFT_CONFIG_DIR or the per-user config directory.
func (s *Settings) ConfigRoot() (string, error) {
	if s.ConfigDir != "" {
		return s.ConfigDir, nil
	}
	return config.DefaultBaseDir()
}
