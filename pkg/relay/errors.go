package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the relay.
var (
	// ErrMethodNotAllowed is returned for any method other than POST.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrMissingAPIKey is returned when the handler has no upstream credential.
	ErrMissingAPIKey = errors.New("api key missing")

	// ErrInvalidPayload is returned when the request body is not JSON.
	ErrInvalidPayload = errors.New("invalid JSON payload")

	// ErrMalformedUpstream is returned when the upstream body is not JSON.
	ErrMalformedUpstream = errors.New("upstream response is not JSON")

	// ErrEmptyResult is returned when no text could be extracted from a
	// successful upstream response.
	ErrEmptyResult = errors.New("upstream result text missing")
)

// ErrorClass classifies relay failures for logging and metrics.
type ErrorClass string

const (
	// ErrorClassConfiguration is a missing or unusable server configuration.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassValidation is a client error: wrong method or bad payload.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassUpstream is a non-2xx response from the provider.
	ErrorClassUpstream ErrorClass = "upstream"

	// ErrorClassMalformedResponse is a 2xx response without the expected result.
	ErrorClassMalformedResponse ErrorClass = "malformed_response"

	// ErrorClassInternal covers network failures and anything unexpected.
	ErrorClassInternal ErrorClass = "internal"
)

// Client-facing error messages.
const (
	msgMethodNotAllowed = "Method Not Allowed"
	msgMissingAPIKey    = "Server configuration error: API key missing."
	msgInvalidPayload   = "Invalid JSON payload."
	msgEmptyResult      = "AI response was empty or malformed."
	msgInternal         = "Internal server error during API proxy."
)

// Error is a relay failure together with the response it maps to.
type Error struct {
	StatusCode int
	Class      ErrorClass

	// Message is the client-facing error text.
	Message string

	// Details is attached to the response body for diagnostics. It must
	// never contain the upstream credential.
	Details any

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("relay %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("relay %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Response renders the error as a client response.
func (e *Error) Response() Response {
	body, err := json.Marshal(errorBody{Error: e.Message, Details: e.Details})
	if err != nil {
		body, _ = json.Marshal(errorBody{Error: e.Message})
	}
	return jsonResponse(e.StatusCode, body)
}

func methodNotAllowed(method string) *Error {
	return &Error{
		StatusCode: http.StatusMethodNotAllowed,
		Class:      ErrorClassValidation,
		Message:    msgMethodNotAllowed,
		Err:        fmt.Errorf("%w: %s", ErrMethodNotAllowed, method),
	}
}

func missingAPIKey() *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Class:      ErrorClassConfiguration,
		Message:    msgMissingAPIKey,
		Err:        ErrMissingAPIKey,
	}
}

func invalidPayload(err error) *Error {
	if err == nil {
		err = ErrInvalidPayload
	} else {
		err = fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &Error{
		StatusCode: http.StatusBadRequest,
		Class:      ErrorClassValidation,
		Message:    msgInvalidPayload,
		Err:        err,
	}
}

func upstreamError(status int, message string, payload []byte) *Error {
	if message == "" {
		message = fmt.Sprintf("Gemini API returned status %d", status)
	}
	return &Error{
		StatusCode: status,
		Class:      ErrorClassUpstream,
		Message:    message,
		Details:    json.RawMessage(payload),
	}
}

func emptyResult() *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Class:      ErrorClassMalformedResponse,
		Message:    msgEmptyResult,
		Err:        ErrEmptyResult,
	}
}

func internalError(err error) *Error {
	e := &Error{
		StatusCode: http.StatusInternalServerError,
		Class:      ErrorClassInternal,
		Message:    msgInternal,
		Err:        err,
	}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}
