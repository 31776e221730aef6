package cache

import (
	"net/http"
	"testing"
	"time"
)

func TestEntry_Size(t *testing.T) {
	entry := &Entry{Data: []byte("<html></html>")}
	if entry.Size() != 13 {
		t.Errorf("Size() = %d, want 13", entry.Size())
	}
}

func TestEntry_Clone(t *testing.T) {
	original := &Entry{
		URL:        "https://app.example.com/index.html",
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"text/html"}},
		Data:       []byte("<html></html>"),
		CachedAt:   time.Now(),
	}

	clone := original.Clone()

	clone.Data[0] = 'X'
	clone.Headers.Set("Content-Type", "text/plain")

	if original.Data[0] != '<' {
		t.Error("Clone shares body bytes with the original")
	}
	if original.Headers.Get("Content-Type") != "text/html" {
		t.Error("Clone shares headers with the original")
	}
	if clone.URL != original.URL || clone.StatusCode != original.StatusCode {
		t.Error("Clone did not copy scalar fields")
	}
}

func TestEntry_CloneNil(t *testing.T) {
	var entry *Entry
	if entry.Clone() != nil {
		t.Error("Clone of nil entry should be nil")
	}
}
