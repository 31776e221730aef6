package cache

import (
	"net/http"
	"net/url"
)

// Key identifies a stored response: the request URL without its fragment.
type Key string

// KeyFor returns the cache key for u.
//
// Example:
//
//	https://app.example.com/index.html#top -> https://app.example.com/index.html
func KeyFor(u *url.URL) Key {
	if u == nil {
		return ""
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return Key(c.String())
}

// RequestKey returns the cache key for req.
func RequestKey(req *http.Request) Key {
	if req == nil {
		return ""
	}
	return KeyFor(req.URL)
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}
