// Package logging configures structured zerolog output for the relay and the
// offline cache worker.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty switches from JSON lines to the zerolog console writer.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON output at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a child of the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRequestID tags a logger with the invocation's request ID.
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow detail
//   - Upstream URL (credential redacted), payload size
//   - Cache hit/miss per fetch, stored keys
//
// Info: normal lifecycle events
//   - Server startup/shutdown
//   - Worker install/activate completion, generations pruned
//
// Warn: the caller gets an error response but the process is healthy
//   - Wrong method, invalid payload
//   - Upstream non-2xx responses
//   - Cache lookup/write failures (swallowed)
//
// Error: conditions requiring attention
//   - Missing credential
//   - Network failures reaching the upstream, malformed upstream payloads
//   - Install failures
//
// Context Fields:
//   - request_id: per-invocation ID, echoed in X-Request-Id
//   - status_code: HTTP status returned to the client
//   - upstream_status: HTTP status returned by the provider
//   - error_class: configuration, validation, upstream, malformed_response, internal
//   - cache: generation name
//   - url: cache key
