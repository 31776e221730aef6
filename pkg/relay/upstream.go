package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const redacted = "REDACTED"

// endpoint builds the generateContent URL carrying key as a query parameter.
func (h *Handler) endpoint(key string) string {
	u := *h.base
	u.Path = strings.TrimRight(u.Path, "/") + "/v1beta/models/" + h.config.Model + ":generateContent"
	u.RawPath = ""
	u.RawQuery = url.Values{"key": []string{key}}.Encode()
	return u.String()
}

// forward POSTs payload upstream and returns the status and the full body.
// Returned errors never contain the credential.
func (h *Handler) forward(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint(h.config.APIKey), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create upstream request: %w", h.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	upstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamResponsesTotal.WithLabelValues("network_error").Inc()
		return 0, nil, fmt.Errorf("upstream request: %w", h.redact(err))
	}
	defer resp.Body.Close()

	upstreamResponsesTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read upstream body: %w", h.redact(err))
	}

	return resp.StatusCode, data, nil
}

// redact removes the credential from err's message. *url.Error values are
// copied with the key query parameter replaced; any other error that still
// mentions the key is flattened to a string.
func (h *Handler) redact(err error) error {
	if err == nil {
		return nil
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		c := *uerr
		c.URL = redactURL(c.URL)
		err = &c
	}

	key := h.config.APIKey
	if key == "" {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, key) || strings.Contains(msg, url.QueryEscape(key)) {
		msg = strings.ReplaceAll(msg, url.QueryEscape(key), redacted)
		msg = strings.ReplaceAll(msg, key, redacted)
		return errors.New(msg)
	}
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable url]"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", redacted)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
