package cache

import (
	"net/http"
	"time"
)

// Entry is a stored response.
type Entry struct {
	// URL is the request URL the response was stored under.
	URL string `json:"url"`

	StatusCode int         `json:"status_code"`
	Status     string      `json:"status"`
	Headers    http.Header `json:"headers"`

	// Data is the full response body.
	Data []byte `json:"data"`

	CachedAt time.Time `json:"cached_at"`
}

// Size returns the body size in bytes.
func (e *Entry) Size() int {
	return len(e.Data)
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Headers = e.Headers.Clone()
	if e.Data != nil {
		c.Data = append([]byte(nil), e.Data...)
	}
	return &c
}
