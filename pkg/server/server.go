// Package server runs HTTP listeners that stop cleanly with their context.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaokai/furniture-backend/pkg/logger"
)

const (
	DefaultShutdownTimeout = 15 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// Serve listens on srv.Addr until ctx is done, then drains in-flight
// requests for up to grace. A clean shutdown returns nil.
func Serve(ctx context.Context, srv *http.Server, grace time.Duration, logg *logger.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, srv, ln, grace, logg)
}

func serveListener(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration, logg *logger.Logger) error {
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = readHeaderTimeout
	}
	if grace <= 0 {
		grace = DefaultShutdownTimeout
	}
	srv.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	if logg != nil {
		logg.Info(logg.WithField(ctx, "addr", ln.Addr().String()), "http.listening")
	}

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Ops is the side listener background workers expose: Prometheus metrics
// and a liveness probe.
func Ops(addr string, gatherer prometheus.Gatherer) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &http.Server{Addr: addr, Handler: r}
}
