// Command gemini-proxy is the serverless entry point of the Gemini relay. It
// answers API Gateway proxy events, which is also the event shape Netlify
// functions receive.
package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/gemini-relay/pkg/config"
	"github.com/Sternrassler/gemini-relay/pkg/logging"
	"github.com/Sternrassler/gemini-relay/pkg/relay"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}

	logCfg, err := config.LoadLogging()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}
	logging.Setup(logCfg.LoggerConfig())

	handler, err := newHandler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create relay handler")
	}

	lambda.Start(handler.HandleEvent)
}

func newHandler() (*relay.Handler, error) {
	cfg, err := config.LoadRelay()
	if err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, every request will fail")
	}

	return relay.New(relay.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Mode:    relay.Mode(cfg.Mode),
	})
}
