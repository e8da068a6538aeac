// ABOUTME: Wiring of config, token source, REST client, connection, and metrics
// ABOUTME: Every subcommand builds its session through one app value

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/client"
	"github.com/2389/chatsync/internal/config"
	"github.com/2389/chatsync/internal/connection"
	"github.com/2389/chatsync/internal/metrics"
	"github.com/2389/chatsync/internal/session"
)

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	tokens   auth.EnvFileSource
	api      *client.Client
	registry *prometheus.Registry
	metrics  *metrics.Collectors
}

func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) *app {
	tokens := auth.EnvFileSource{EnvVar: cfg.Auth.TokenEnv, Path: cfg.Auth.TokenFile}
	registry := prometheus.NewRegistry()

	return &app{
		cfg:    cfg,
		logger: logger,
		out:    out,
		tokens: tokens,
		api: client.New(client.Options{
			BaseURL: cfg.Server.BaseURL,
			Tokens:  tokens,
			Timeout: cfg.Server.RequestTimeout,
			Logger:  logger,
		}),
		registry: registry,
		metrics:  metrics.New(registry),
	}
}

// newSession builds an unstarted session over a fresh connection manager.
func (a *app) newSession() *session.Session {
	mgr := connection.NewManager(connection.Options{
		URL:              a.cfg.Server.WebSocketURL,
		Tokens:           a.tokens,
		ReadLimit:        a.cfg.Connection.ReadLimit,
		HandshakeTimeout: a.cfg.Connection.HandshakeTimeout,
		WriteTimeout:     a.cfg.Connection.WriteTimeout,
		EventBuffer:      a.cfg.Connection.EventBuffer,
		Reconnect:        a.cfg.ReconnectPolicy(),
		Logger:           a.logger,
		Metrics:          a.metrics,
	})

	return session.New(session.Options{
		Backend:      a.api,
		Connection:   mgr,
		DiscoveryTTL: a.cfg.Session.DiscoveryTTL,
		Logger:       a.logger,
	})
}

// serveMetrics exposes the collectors over HTTP when metrics are enabled.
// The returned stop function shuts the listener down.
func (a *app) serveMetrics() (stop func(), err error) {
	if !a.cfg.Metrics.Enabled {
		return func() {}, nil
	}

	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics on %s: %w", a.cfg.Metrics.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("metrics listening", "addr", ln.Addr().String(), "path", a.cfg.Metrics.Path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
