// Command relay-server hosts the Gemini relay on a plain HTTP server for local
// development, next to health and metrics endpoints.
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/gemini-relay/pkg/config"
	"github.com/Sternrassler/gemini-relay/pkg/logging"
	"github.com/Sternrassler/gemini-relay/pkg/metrics"
	"github.com/Sternrassler/gemini-relay/pkg/relay"
)

// Paths the relay is reachable under. The first matches the serverless
// deployment so that the browser app works unchanged against a local server.
var relayPaths = []string{
	"/.netlify/functions/gemini-proxy",
	"/api/gemini-proxy",
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}

	logCfg, err := config.LoadLogging()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}
	logging.Setup(logCfg.LoggerConfig())
	logger := logging.NewLogger("relay-server")

	serverCfg, err := config.LoadServer()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid server configuration")
	}

	relayCfg, err := config.LoadRelay()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid relay configuration")
	}
	if relayCfg.APIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set, every relay request will fail")
	}

	handler, err := relay.New(relay.Config{
		APIKey:  relayCfg.APIKey,
		Model:   relayCfg.Model,
		BaseURL: relayCfg.BaseURL,
		Mode:    relay.Mode(relayCfg.Mode),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create relay handler")
	}

	server := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           newMux(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("addr", server.Addr).
		Str("model", relayCfg.Model).
		Str("mode", relayCfg.Mode).
		Msg("Starting relay server")

	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func newMux(handler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	for _, path := range relayPaths {
		mux.Handle(path, handler)
	}
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
