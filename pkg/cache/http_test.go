package cache

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseToEntry(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		wantErr bool
	}{
		{
			name: "html response",
			resp: &http.Response{
				StatusCode: 200,
				Status:     "200 OK",
				Header: http.Header{
					"Content-Type": []string{"text/html"},
				},
				Body:    io.NopCloser(bytes.NewReader([]byte("<html></html>"))),
				Request: httptest.NewRequest(http.MethodGet, "https://app.example.com/index.html#x", nil),
			},
		},
		{
			name: "no body",
			resp: &http.Response{
				StatusCode: 204,
				Header:     http.Header{},
			},
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var original []byte
			if tt.resp != nil && tt.resp.Body != nil {
				original, _ = io.ReadAll(tt.resp.Body)
				tt.resp.Body = io.NopCloser(bytes.NewReader(original))
			}

			entry, err := ResponseToEntry(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			body, _ := io.ReadAll(tt.resp.Body)
			if !bytes.Equal(body, original) {
				t.Errorf("Response body not restored: got %q, want %q", body, original)
			}
			if !bytes.Equal(entry.Data, original) {
				t.Errorf("Entry data = %q, want %q", entry.Data, original)
			}
			if entry.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %d, want %d", entry.StatusCode, tt.resp.StatusCode)
			}
			if entry.CachedAt.IsZero() {
				t.Error("CachedAt was not set")
			}
		})
	}
}

func TestResponseToEntry_IndependentCopies(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"text/css"}},
		Body:       io.NopCloser(bytes.NewReader([]byte("body{}"))),
		Request:    httptest.NewRequest(http.MethodGet, "https://app.example.com/app.css", nil),
	}

	entry, err := ResponseToEntry(resp)
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}

	entry.Data[0] = 'X'
	entry.Headers.Set("Content-Type", "text/plain")

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "body{}" {
		t.Errorf("Caller body affected by entry mutation: %q", body)
	}
	if resp.Header.Get("Content-Type") != "text/css" {
		t.Error("Caller headers affected by entry mutation")
	}
	if entry.URL != "https://app.example.com/app.css" {
		t.Errorf("URL = %q", entry.URL)
	}
}

func TestEntryToResponse(t *testing.T) {
	entry := &Entry{
		URL:        "https://app.example.com/index.html",
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"text/html"}},
		Data:       []byte("<html></html>"),
	}
	req := httptest.NewRequest(http.MethodGet, entry.URL, nil)

	first := EntryToResponse(entry, req)
	second := EntryToResponse(entry, req)

	a, _ := io.ReadAll(first.Body)
	b, _ := io.ReadAll(second.Body)

	if string(a) != "<html></html>" || string(b) != "<html></html>" {
		t.Errorf("bodies = %q, %q", a, b)
	}
	if first.Status != "200 OK" {
		t.Errorf("Status = %q, want %q", first.Status, "200 OK")
	}
	if first.ContentLength != int64(len(entry.Data)) {
		t.Errorf("ContentLength = %d", first.ContentLength)
	}
	if first.Request != req {
		t.Error("Request not attached")
	}

	first.Header.Set("X-Test", "1")
	if entry.Headers.Get("X-Test") != "" {
		t.Error("Response shares headers with the entry")
	}
}

func TestEntryToResponse_Nil(t *testing.T) {
	if EntryToResponse(nil, nil) != nil {
		t.Error("EntryToResponse(nil) should return nil")
	}
}
