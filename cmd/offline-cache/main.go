// Command offline-cache drives the offline cache worker against shared Redis
// storage: it pre-caches the app shell, activates a generation, answers
// single fetches and serves an origin cache-first through a reverse proxy.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/gemini-relay/pkg/cache"
	"github.com/Sternrassler/gemini-relay/pkg/config"
	"github.com/Sternrassler/gemini-relay/pkg/logging"
	"github.com/Sternrassler/gemini-relay/pkg/worker"
)

// deps are the seams the commands are built on.
type deps struct {
	loadConfig  func() (config.Worker, error)
	openStorage func(ctx context.Context, cfg config.Worker) (cache.Storage, func() error, error)
	transport   http.RoundTripper
}

func defaultDeps() deps {
	return deps{
		loadConfig:  config.LoadWorker,
		openStorage: openRedisStorage,
	}
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logCfg, err := config.LoadLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(logCfg.LoggerConfig())

	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "offline-cache",
		Short:         "Offline cache worker for the predictor app shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newInstallCmd(d),
		newActivateCmd(d),
		newFetchCmd(d),
		newListCmd(d),
		newServeCmd(d),
	)
	return root
}

// openRedisStorage accepts either a redis:// URL or a plain host:port.
func openRedisStorage(ctx context.Context, cfg config.Worker) (cache.Storage, func() error, error) {
	opts := &redis.Options{Addr: cfg.RedisURL}
	if strings.Contains(cfg.RedisURL, "://") {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	log.Debug().Str("addr", opts.Addr).Msg("Connected to Redis")

	return cache.NewRedisStorage(client), client.Close, nil
}

// session is an opened storage plus a worker on top of it.
type session struct {
	worker  *worker.Worker
	storage cache.Storage
	close   func() error
}

func (d deps) open(ctx context.Context) (*session, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, err
	}

	storage, closeFn, err := d.openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	wcfg := worker.DefaultConfig(storage, cfg.Origin)
	wcfg.CacheName = cfg.CacheName
	wcfg.Transport = d.transport
	if len(cfg.Manifest) > 0 {
		wcfg.Manifest = cfg.Manifest
	}

	w, err := worker.New(wcfg)
	if err != nil {
		closeFn()
		return nil, err
	}
	return &session{worker: w, storage: storage, close: closeFn}, nil
}

// resume takes over an installed generation, installing and activating one
// first when none exists yet.
func (s *session) resume(ctx context.Context) error {
	err := s.worker.Resume(ctx)
	if !errors.Is(err, worker.ErrNotInstalled) {
		return err
	}
	if err := s.worker.Install(ctx); err != nil {
		return err
	}
	return s.worker.Activate(ctx)
}
