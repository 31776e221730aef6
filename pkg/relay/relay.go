// Package relay forwards client requests to the Gemini generateContent API,
// attaching a server-held API key, and normalizes upstream failures into
// client-facing JSON error bodies.
//
// The handler performs exactly one upstream call per request. It does not
// retry and sets no timeout of its own: the deadline of the incoming context
// (Lambda invocation deadline, HTTP request context) is the only bound.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/Sternrassler/gemini-relay/pkg/logging"
)

const (
	// DefaultBaseURL is the Gemini API host.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model embedded in the upstream URL.
	DefaultModel = "gemini-2.5-flash-preview-09-2025"

	// ResultTextPath locates the generated text in a generateContent response.
	ResultTextPath = "candidates.0.content.parts.0.text"

	// RequestIDHeader carries the per-invocation request ID.
	RequestIDHeader = "X-Request-Id"

	// DefaultMaxBodyBytes matches the synchronous Lambda payload limit.
	DefaultMaxBodyBytes int64 = 6 << 20
)

// Mode selects how a successful upstream response is shaped.
type Mode string

const (
	// ModeExtract returns {"text": ...} taken from ResultTextPath.
	ModeExtract Mode = "extract"

	// ModePassthrough returns the upstream JSON unmodified.
	ModePassthrough Mode = "passthrough"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the handler configuration.
type Config struct {
	// APIKey is the upstream credential. An empty key is not a construction
	// error; every request is answered with a configuration error instead.
	APIKey string

	Model   string
	BaseURL string
	Mode    Mode

	// HTTPClient defaults to a client without timeout.
	HTTPClient Doer

	// MaxBodyBytes bounds request bodies read by ServeHTTP. Zero means
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// DefaultConfig returns the production configuration for apiKey.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   DefaultModel,
		BaseURL: DefaultBaseURL,
		Mode:    ModeExtract,
	}
}

// Request is an inbound relay request.
type Request struct {
	Method string
	Body   string

	// IsBase64Encoded marks Body as base64, as API Gateway does for
	// binary payloads.
	IsBase64Encoded bool

	// readErr is set by adapters that failed to read the inbound body.
	readErr error
}

func (r Request) payload() ([]byte, error) {
	if r.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(r.Body)
	}
	return []byte(r.Body), nil
}

// Response is the relay's answer to a Request.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

func jsonResponse(status int, body []byte) Response {
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// Handler relays requests to the upstream API. It holds only read-only
// configuration and is safe for concurrent use.
type Handler struct {
	config Config
	base   *url.URL
	client Doer
	logger zerolog.Logger
}

// New creates a Handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	switch cfg.Mode {
	case "":
		cfg.Mode = ModeExtract
	case ModeExtract, ModePassthrough:
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	if cfg.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("max body bytes must not be negative")
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Handler{
		config: cfg,
		base:   base,
		client: client,
		logger: logging.NewLogger("relay"),
	}, nil
}

// Handle relays one request. It never fails: every error, including a panic
// further down, is mapped to an error Response.
func (h *Handler) Handle(ctx context.Context, req Request) (resp Response) {
	requestID := uuid.NewString()
	logger := logging.WithRequestID(h.logger, requestID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			relayErr := internalError(fmt.Errorf("panic: %v", r))
			h.logError(logger, relayErr)
			resp = relayErr.Response()
		}
		resp.Headers[RequestIDHeader] = requestID

		relayRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		relayRequestDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := h.relay(ctx, logger, req)
	if err != nil {
		var relayErr *Error
		if !errors.As(err, &relayErr) {
			relayErr = internalError(err)
		}
		h.logError(logger, relayErr)
		return relayErr.Response()
	}

	logger.Info().Int("status_code", http.StatusOK).Msg("Relayed request")
	return jsonResponse(http.StatusOK, body)
}

func (h *Handler) relay(ctx context.Context, logger zerolog.Logger, req Request) ([]byte, error) {
	if req.Method != http.MethodPost {
		return nil, methodNotAllowed(req.Method)
	}

	if h.config.APIKey == "" {
		return nil, missingAPIKey()
	}

	if req.readErr != nil {
		return nil, invalidPayload(req.readErr)
	}

	payload, err := req.payload()
	if err != nil {
		return nil, invalidPayload(err)
	}
	if !gjson.ValidBytes(payload) {
		return nil, invalidPayload(nil)
	}

	logger.Debug().
		Str("model", h.config.Model).
		Int("payload_bytes", len(payload)).
		Msg("Forwarding request upstream")

	status, data, err := h.forward(ctx, payload)
	if err != nil {
		return nil, internalError(err)
	}

	// Upstream errors are JSON as well, so the body is checked before the status.
	if !gjson.ValidBytes(data) {
		return nil, internalError(fmt.Errorf("%w (status %d)", ErrMalformedUpstream, status))
	}

	if status < 200 || status > 299 {
		var message string
		if m := gjson.GetBytes(data, "error.message"); m.Exists() {
			message = m.String()
		}
		return nil, upstreamError(status, message, data)
	}

	if h.config.Mode == ModePassthrough {
		return data, nil
	}

	text := gjson.GetBytes(data, ResultTextPath)
	if text.Type != gjson.String || text.Str == "" {
		return nil, emptyResult()
	}

	return json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text.Str})
}

func (h *Handler) logError(logger zerolog.Logger, e *Error) {
	relayErrorsTotal.WithLabelValues(string(e.Class)).Inc()

	var event *zerolog.Event
	switch e.Class {
	case ErrorClassValidation, ErrorClassUpstream:
		event = logger.Warn()
	default:
		event = logger.Error()
	}

	event = event.
		Int("status_code", e.StatusCode).
		Str("error_class", string(e.Class))
	if e.Err != nil {
		event = event.Err(e.Err)
	}
	if raw, ok := e.Details.(json.RawMessage); ok {
		event = event.RawJSON("details", raw)
	}
	event.Msg(e.Message)
}
