// Package worker implements an offline cache worker: a cache-first fetch
// interceptor with an explicit install / activate lifecycle.
//
// Lifecycle:
//
//	parsed ──Install──▶ installing ──▶ installed ──Activate──▶ activating ──▶ activated
//	                        │
//	                        └──(failure)──▶ redundant
//
//	parsed ──Resume──▶ activated   (generation already installed)
//
// Install pre-caches the manifest into the current generation, Activate
// deletes every other generation, and Fetch serves requests cache-first once
// the worker has been activated. Fetch calls are independent of each other and
// may run concurrently with each other and with lifecycle transitions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/gemini-relay/pkg/cache"
	"github.com/Sternrassler/gemini-relay/pkg/logging"
)

var (
	// ErrInstallFailed is returned when the manifest could not be pre-cached.
	ErrInstallFailed = errors.New("install failed")

	// ErrInvalidTransition is returned when a lifecycle transition is not
	// allowed from the current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrNotInstalled is returned by Resume when the current generation is
	// missing or empty.
	ErrNotInstalled = errors.New("cache generation not installed")
)

// State is a lifecycle state.
type State string

const (
	StateParsed     State = "parsed"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// Config holds the worker configuration.
type Config struct {
	// CacheName is the current cache generation.
	CacheName string

	// Origin is the URL the worker is registered for. Relative manifest
	// entries resolve against it, and only responses from its origin are
	// cached lazily by Fetch.
	Origin string

	// Manifest lists the URLs pre-cached by Install.
	Manifest []string

	Storage cache.Storage

	// Transport performs network fetches. Defaults to http.DefaultTransport.
	// It must not be the Worker itself.
	Transport http.RoundTripper
}

// DefaultConfig returns a configuration with the default generation name and
// manifest.
func DefaultConfig(storage cache.Storage, origin string) Config {
	return Config{
		CacheName: DefaultCacheName,
		Origin:    origin,
		Manifest:  append([]string(nil), DefaultManifest...),
		Storage:   storage,
	}
}

// Worker is the offline cache worker.
type Worker struct {
	config   Config
	origin   *url.URL
	manifest []*url.URL
	storage  cache.Storage
	client   *http.Client
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
	// active is set once the worker has been activated and stays set; a
	// failed re-install does not take an active worker out of service.
	active bool
}

// New creates a Worker in the parsed state.
func New(cfg Config) (*Worker, error) {
	if cfg.CacheName == "" {
		return nil, fmt.Errorf("cache name is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}

	origin, err := url.Parse(cfg.Origin)
	if err != nil || (origin.Scheme != "http" && origin.Scheme != "https") || origin.Host == "" {
		return nil, fmt.Errorf("invalid origin %q", cfg.Origin)
	}

	manifest, err := resolveManifest(origin, cfg.Manifest)
	if err != nil {
		return nil, err
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Worker{
		config:   cfg,
		origin:   origin,
		manifest: manifest,
		storage:  cfg.Storage,
		client:   &http.Client{Transport: transport},
		logger:   logging.NewLogger("offline-worker").With().Str("cache", cfg.CacheName).Logger(),
		state:    StateParsed,
	}, nil
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// CacheName returns the current generation name.
func (w *Worker) CacheName() string {
	return w.config.CacheName
}

// Manifest returns the resolved manifest URLs.
func (w *Worker) Manifest() []string {
	out := make([]string, len(w.manifest))
	for i, u := range w.manifest {
		out[i] = u.String()
	}
	return out
}

func (w *Worker) begin(to State, from ...State) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range from {
		if w.state == s {
			prev := w.state
			w.state = to
			return prev, nil
		}
	}
	return w.state, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.state, to)
}

func (w *Worker) finish(to State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = to
	if to == StateActivated {
		w.active = true
	}
}

func (w *Worker) controlling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Install opens the current generation and pre-caches every manifest URL.
//
// All URLs are fetched concurrently and every response must be 2xx. If any
// fetch fails, nothing is written and ErrInstallFailed is returned; a worker
// that had never been installed becomes redundant, one that had keeps its
// previous state. Re-installing over a populated generation overwrites the
// manifest entries.
func (w *Worker) Install(ctx context.Context) error {
	prev, err := w.begin(StateInstalling, StateParsed, StateInstalled, StateActivated, StateRedundant)
	if err != nil {
		return err
	}

	start := time.Now()
	err = w.install(ctx)
	installDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		installsTotal.WithLabelValues("failure").Inc()
		next := StateRedundant
		if prev == StateInstalled || prev == StateActivated {
			next = prev
		}
		w.finish(next)
		w.logger.Error().Err(err).Str("state", string(next)).Msg("Install failed")
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	installsTotal.WithLabelValues("success").Inc()
	next := StateInstalled
	if prev == StateActivated {
		next = StateActivated
	}
	w.finish(next)
	w.logger.Info().
		Int("entries", len(w.manifest)).
		Dur("duration", time.Since(start)).
		Msg("Installed")
	return nil
}

func (w *Worker) install(ctx context.Context) error {
	c, err := w.storage.Open(ctx, w.config.CacheName)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	entries, err := w.precache(ctx)
	if err != nil {
		return err
	}

	if err := c.PutAll(ctx, entries); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}
	return nil
}

func (w *Worker) precache(ctx context.Context) (map[cache.Key]*cache.Entry, error) {
	g, gctx := errgroup.WithContext(ctx)
	fetched := make([]*cache.Entry, len(w.manifest))

	for i, u := range w.manifest {
		i, u := i, u
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", u, err)
			}

			resp, err := w.client.Do(req)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", u, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return fmt.Errorf("fetch %s: unexpected status %d", u, resp.StatusCode)
			}

			entry, err := cache.ResponseToEntry(resp)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", u, err)
			}
			entry.URL = cache.KeyFor(u).String()
			fetched[i] = entry

			w.logger.Debug().Str("url", u.String()).Int("bytes", entry.Size()).Msg("Pre-cached")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make(map[cache.Key]*cache.Entry, len(fetched))
	for i, u := range w.manifest {
		entries[cache.KeyFor(u)] = fetched[i]
	}
	return entries, nil
}

// Activate deletes every cache generation other than the current one and
// starts serving fetches from the cache. Deletion failures are returned
// joined, but the worker is activated regardless.
func (w *Worker) Activate(ctx context.Context) error {
	if _, err := w.begin(StateActivating, StateInstalled, StateActivated); err != nil {
		return err
	}
	defer w.finish(StateActivated)

	names, err := w.storage.Keys(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list cache generations")
		return fmt.Errorf("list caches: %w", err)
	}

	var errs []error
	for _, name := range names {
		if name == w.config.CacheName {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			w.logger.Error().Err(err).Str("stale_cache", name).Msg("Failed to delete stale generation")
			errs = append(errs, fmt.Errorf("delete cache %s: %w", name, err))
			continue
		}
		generationsPrunedTotal.Inc()
		w.logger.Info().Str("stale_cache", name).Msg("Deleted stale generation")
	}

	w.logger.Info().Msg("Activated")
	return errors.Join(errs...)
}

// Resume brings a freshly parsed worker straight to the activated state when
// its generation was installed and activated by an earlier process sharing
// the same storage. Stale generations are left alone; Activate prunes them.
func (w *Worker) Resume(ctx context.Context) error {
	if _, err := w.begin(StateActivating, StateParsed); err != nil {
		return err
	}

	if err := w.installed(ctx); err != nil {
		w.finish(StateParsed)
		return err
	}

	w.finish(StateActivated)
	w.logger.Info().Msg("Resumed")
	return nil
}

func (w *Worker) installed(ctx context.Context) error {
	names, err := w.storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list caches: %w", err)
	}
	if !slices.Contains(names, w.config.CacheName) {
		return ErrNotInstalled
	}

	c, err := w.storage.Open(ctx, w.config.CacheName)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	keys, err := c.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if len(keys) == 0 {
		return ErrNotInstalled
	}
	return nil
}

// Fetch answers req cache-first.
//
// Non-GET requests and requests arriving before activation go straight to
// the network. A cache hit never touches the network. On a miss the network
// response is returned; a 200 response from the worker's own origin is also
// stored in the current generation first. Network errors are returned
// unmodified; cache errors are logged and otherwise ignored.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || !w.controlling() {
		fetchesTotal.WithLabelValues("bypass").Inc()
		return w.network(ctx, req)
	}

	key := cache.RequestKey(req)
	logger := w.logger.With().Str("url", key.String()).Logger()

	entry, err := w.storage.Match(ctx, key)
	switch {
	case err == nil:
		fetchesTotal.WithLabelValues("cache").Inc()
		logger.Debug().Msg("Cache hit")
		if req.Body != nil {
			req.Body.Close()
		}
		return cache.EntryToResponse(entry, req), nil
	case errors.Is(err, cache.ErrCacheMiss):
		logger.Debug().Msg("Cache miss")
	default:
		logger.Warn().Err(err).Msg("Cache lookup failed, using network")
	}

	fetchesTotal.WithLabelValues("network").Inc()
	resp, err := w.network(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK || !w.basic(req, resp) {
		return resp, nil
	}

	// ResponseToEntry hands the caller a fresh body and keeps its own copy.
	entry, err = cache.ResponseToEntry(resp)
	if err != nil {
		return nil, err
	}
	entry.URL = key.String()

	w.store(ctx, logger, key, entry)
	return resp, nil
}

// RoundTrip implements http.RoundTripper by delegating to Fetch.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	return w.Fetch(req.Context(), req)
}

func (w *Worker) network(ctx context.Context, req *http.Request) (*http.Response, error) {
	netReq := req.Clone(ctx)
	netReq.RequestURI = ""
	return w.client.Do(netReq)
}

// basic reports whether resp is a same-origin response, judged on the final
// URL after redirects.
func (w *Worker) basic(req *http.Request, resp *http.Response) bool {
	u := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL
	}
	return sameOrigin(w.origin, u)
}

func (w *Worker) store(ctx context.Context, logger zerolog.Logger, key cache.Key, entry *cache.Entry) {
	c, err := w.storage.Open(ctx, w.config.CacheName)
	if err == nil {
		err = c.Put(ctx, key, entry)
	}
	if err != nil {
		cacheWriteFailuresTotal.Inc()
		logger.Warn().Err(err).Msg("Cache write failed")
		return
	}
	logger.Debug().Int("bytes", entry.Size()).Msg("Cached response")
}
