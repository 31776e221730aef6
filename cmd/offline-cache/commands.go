package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/gemini-relay/pkg/logging"
	"github.com/Sternrassler/gemini-relay/pkg/metrics"
	"github.com/Sternrassler/gemini-relay/pkg/worker"
)

func newInstallCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Pre-cache the manifest into the current generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := d.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.worker.Install(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "installed %d entries into %s\n", len(s.worker.Manifest()), s.worker.CacheName())
			return err
		},
	}
}

func newActivateCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Install the current generation and delete every other one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := d.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.worker.Install(cmd.Context()); err != nil {
				return err
			}
			if err := s.worker.Activate(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "activated %s\n", s.worker.CacheName())
			return err
		},
	}
}

func newFetchCmd(d deps) *cobra.Command {
	var include bool

	command := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a URL through the worker and print the body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := d.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			// Without an installed generation the fetch simply goes to the
			// network, as it would for an uncontrolled page.
			if err := s.worker.Resume(ctx); err != nil && !errors.Is(err, worker.ErrNotInstalled) {
				return err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, args[0], nil)
			if err != nil {
				return err
			}
			resp, err := s.worker.Fetch(ctx, req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			out := cmd.OutOrStdout()
			if include {
				fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
				resp.Header.Write(out)
				fmt.Fprintln(out)
			}
			_, err = io.Copy(out, resp.Body)
			return err
		},
	}

	command.Flags().BoolVarP(&include, "include", "i", false, "print status line and headers")
	return command
}

func newListCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cache generations and their entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := d.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			names, err := s.storage.Keys(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				c, err := s.storage.Open(ctx, name)
				if err != nil {
					return err
				}
				keys, err := c.Keys(ctx)
				if err != nil {
					return err
				}

				marker := " "
				if name == s.worker.CacheName() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s (%d entries)\n", marker, name, len(keys))

				sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
				for _, key := range keys {
					fmt.Fprintf(out, "    %s\n", key)
				}
			}
			return nil
		},
	}
}

func newServeCmd(d deps) *cobra.Command {
	var addr string

	command := &cobra.Command{
		Use:   "serve",
		Short: "Serve the origin cache-first through a reverse proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := d.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.resume(ctx); err != nil {
				return err
			}

			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}
			origin, err := url.Parse(cfg.Origin)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           newProxyMux(s.worker, origin),
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger := logging.NewLogger("offline-cache")
			logger.Info().
				Str("addr", addr).
				Str("origin", origin.String()).
				Str("cache", s.worker.CacheName()).
				Msg("Serving origin cache-first")
			return server.ListenAndServe()
		},
	}

	command.Flags().StringVar(&addr, "addr", ":8889", "listen address")
	return command
}

// newProxyMux routes everything except /metrics to origin with the worker as
// the proxy transport.
func newProxyMux(w *worker.Worker, origin *url.URL) *http.ServeMux {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(origin)
		},
		Transport: w,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", proxy)
	return mux
}
