// File: cmd/netioctl/echo.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-netio/address"
	"github.com/momentics/hioload-netio/control"
	"github.com/momentics/hioload-netio/internal/echoloop"
	"github.com/momentics/hioload-netio/internal/logger"
)

func newEchoCmd() *cobra.Command {
	var (
		host        string
		port        int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a single-threaded echo server on the reactor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := control.Current()
			ip, err := address.ParseIPv4(host)
			if err != nil {
				return err
			}
			if metricsAddr == "" && cfg.Metrics.Enabled {
				metricsAddr = cfg.Metrics.Addr
			}
			return runEcho(cmd.Context(), echoloop.ConfigFrom(cfg, ip, port), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "IPv4 address to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", 7007, "TCP port to listen on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /debug/state on this address")
	return cmd
}

func runEcho(ctx context.Context, cfg echoloop.Config, metricsAddr string) error {
	log := logger.Named("netioctl")
	srv, err := echoloop.Listen(cfg)
	if err != nil {
		return err
	}
	log.Info().Int("port", srv.Port()).Msg("listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })

	if metricsAddr != "" {
		hs := &http.Server{
			Addr:              metricsAddr,
			Handler:           debugMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", metricsAddr).Msg("metrics endpoint up")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func debugMux() *http.ServeMux {
	reg := control.Metrics().Registry
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/debug/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = writeJSON(w, control.Probes().DumpState())
	})
	return mux
}
