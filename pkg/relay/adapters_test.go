package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/gemini-relay/internal/testutil"
)

func TestHandleEvent(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse(testutil.GenerateContentPath(testModel), testutil.NewGenerateContentResponse("hello"))

	h := newTestHandler(t, mock, nil)

	tests := []struct {
		name       string
		event      events.APIGatewayProxyRequest
		wantStatus int
		wantBody   string
	}{
		{
			name:       "post",
			event:      events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: `{"contents":[]}`},
			wantStatus: http.StatusOK,
			wantBody:   `{"text":"hello"}`,
		},
		{
			name:       "get",
			event:      events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet},
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   `{"error":"Method Not Allowed"}`,
		},
		{
			name:       "invalid json",
			event:      events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: `{`},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid JSON payload."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.HandleEvent(context.Background(), tt.event)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.JSONEq(t, tt.wantBody, resp.Body)
			assert.Equal(t, "application/json", resp.Headers["Content-Type"])
			assert.NotEmpty(t, resp.Headers[RequestIDHeader])
		})
	}
}

func TestServeHTTP(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse(testutil.GenerateContentPath(testModel), testutil.NewErrorResponse(http.StatusTooManyRequests, "rate limited"))

	h := newTestHandler(t, mock, nil)

	req := httptest.NewRequest(http.MethodPost, "/.netlify/functions/gemini-proxy", strings.NewReader(`{"contents":[]}`))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "rate limited", decodeBody(t, string(body))["error"])
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	h := newTestHandler(t, mock, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, 0, mock.RequestCount())
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse(testutil.GenerateContentPath(testModel), testutil.NewGenerateContentResponse("unused"))

	h := newTestHandler(t, mock, func(c *Config) { c.MaxBodyBytes = 16 })

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "within limit", body: `{"contents":[]}`, wantStatus: http.StatusOK},
		{name: "over limit", body: `{"contents":[{"parts":[{"text":"too long"}]}]}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.Reset()

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/gemini-proxy", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.Equal(t, "Invalid JSON payload.", decodeBody(t, w.Body.String())["error"])
				assert.Equal(t, 0, mock.RequestCount())
			}
		})
	}
}

func TestServeHTTP_DefaultBodyLimit(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	h := newTestHandler(t, mock, nil)
	assert.Equal(t, DefaultMaxBodyBytes, h.config.MaxBodyBytes)

	_, err := New(Config{Model: testModel, BaseURL: mock.URL(), MaxBodyBytes: -1})
	assert.Error(t, err)
}
