package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"grimm.is/qdiscwatch/internal/health"
	"grimm.is/qdiscwatch/internal/logging"
	"grimm.is/qdiscwatch/internal/metrics"
)

func newMux(reg *metrics.Registry, checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.Handle("/healthz", checker.Handler())
	mux.Handle("/readyz", checker.ReadinessHandler())
	mux.Handle("/livez", health.LivenessHandler())
	return mux
}

// startHTTP binds addr synchronously, so a bad listen address is a startup
// error, then serves metrics and health endpoints in the background.
func startHTTP(addr string, reg *metrics.Registry, checker *health.Checker, log *logging.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind metrics listener on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           newMux(reg, checker),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Serving metrics and health", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "error", err)
		}
	}()
	return srv, nil
}
