package worker

import (
	"fmt"
	"net/url"
)

// DefaultCacheName is the current cache generation. Bump the version suffix
// whenever DefaultManifest changes so that Activate drops the old generation.
const DefaultCacheName = "dream11-predictor-v1"

// DefaultManifest is the app shell pre-cached on install. Relative entries
// resolve against the worker's origin.
var DefaultManifest = []string{
	"./",
	"./index.html",
	"./manifest.json",
	"./logo.png",
	"./favicon.ico",
	"https://cdn.tailwindcss.com",
	"https://cdn.jsdelivr.net/npm/marked/marked.min.js",
	"https://cdnjs.cloudflare.com/ajax/libs/jspdf/2.5.1/jspdf.umd.min.js",
	"https://cdnjs.cloudflare.com/ajax/libs/html2canvas/1.4.1/html2canvas.min.js",
	"https://cdn.jsdelivr.net/npm/lucide-dynamic@latest/dist/lucide.min.js",
	"https://unpkg.com/lucide@latest",
}

// resolveManifest resolves every entry against base, keeping order and
// dropping duplicates.
func resolveManifest(base *url.URL, entries []string) ([]*url.URL, error) {
	seen := make(map[string]bool, len(entries))
	resolved := make([]*url.URL, 0, len(entries))

	for _, entry := range entries {
		ref, err := url.Parse(entry)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", entry, err)
		}

		u := base.ResolveReference(ref)
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("manifest entry %q: unsupported scheme %q", entry, u.Scheme)
		}
		u.Fragment = ""
		u.RawFragment = ""

		if seen[u.String()] {
			continue
		}
		seen[u.String()] = true
		resolved = append(resolved, u)
	}

	return resolved, nil
}

// sameOrigin reports whether a and b share scheme, host and port.
func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return origin(a) == origin(b)
}

func origin(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return u.Scheme + "://" + u.Hostname() + ":" + port
}
