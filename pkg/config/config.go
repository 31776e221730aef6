// Package config loads process configuration from the environment.
//
// Values are read once at startup and handed to constructors; nothing in the
// relay or the worker reads the environment on its own.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Sternrassler/gemini-relay/pkg/logging"
)

var validate = validator.New()

// Relay configures the Gemini relay handler.
type Relay struct {
	// APIKey is the upstream credential. It is not required here: a missing
	// key is reported per request as a configuration error.
	APIKey  string `env:"GEMINI_API_KEY"`
	Model   string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-preview-09-2025" validate:"required"`
	BaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com" validate:"required,url"`
	Mode    string `env:"RELAY_MODE" envDefault:"extract" validate:"oneof=extract passthrough"`
}

// Logging configures pkg/logging.
type Logging struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY"`
}

// LoggerConfig maps LOG_LEVEL and LOG_PRETTY onto pkg/logging. Output is
// left nil so that logging.Setup writes to stderr.
func (l Logging) LoggerConfig() logging.Config {
	return logging.Config{
		Level:  logging.LogLevel(l.Level),
		Pretty: l.Pretty,
	}
}

// Server configures the local relay server.
type Server struct {
	Port string `env:"PORT" envDefault:"8888" validate:"required,numeric"`
}

// Worker configures the offline cache worker.
type Worker struct {
	CacheName string   `env:"CACHE_NAME" envDefault:"dream11-predictor-v1" validate:"required"`
	Origin    string   `env:"CACHE_ORIGIN" envDefault:"http://localhost:8888" validate:"required,url"`
	Manifest  []string `env:"CACHE_MANIFEST" envSeparator:"," validate:"dive,required"`
	RedisURL  string   `env:"REDIS_URL" envDefault:"localhost:6379" validate:"required"`
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored; existing variables are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Parse fills target from environment variables and validates it.
func Parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// LoadRelay parses the relay configuration.
func LoadRelay() (Relay, error) {
	var cfg Relay
	err := Parse(&cfg)
	return cfg, err
}

// LoadLogging parses the logging configuration.
func LoadLogging() (Logging, error) {
	var cfg Logging
	err := Parse(&cfg)
	return cfg, err
}

// LoadServer parses the relay server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	err := Parse(&cfg)
	return cfg, err
}

// LoadWorker parses the offline cache worker configuration.
func LoadWorker() (Worker, error) {
	var cfg Worker
	err := Parse(&cfg)
	return cfg, err
}
