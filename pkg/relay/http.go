package relay

import (
	"io"
	"net/http"
)

// ServeHTTP hosts the handler on a net/http server. Bodies over
// Config.MaxBodyBytes, or that cannot be read, are answered as invalid
// payloads.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		body = nil
	}

	resp := h.Handle(r.Context(), Request{
		Method:  r.Method,
		Body:    string(body),
		readErr: err,
	})

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.WriteString(w, resp.Body); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write response")
	}
}
