// Package metrics exposes the Prometheus metrics of a harvest run.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, harvest, export) to keep them next to the code they measure.
//
// This package serves them and documents what is available.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by acs-harvest.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// NewMux returns a handler serving /metrics and /health.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Server serves metrics for the lifetime of a run.
type Server struct {
	srv      *http.Server
	listener net.Listener
	done     chan error
}

// Start listens on addr and serves NewMux in the background.
func Start(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s := &Server{
		srv: &http.Server{
			Handler:           NewMux(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		done:     make(chan error, 1),
	}

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Metrics server listening")
	return s, nil
}

// Addr returns the bound address, useful when addr used port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return <-s.done
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - acs_rate_limit_wait_seconds (Histogram): Time spent waiting for the request limiter
//   - acs_rate_limit_delays_total (Counter): Requests delayed by the limiter
//
// Cache Metrics (pkg/cache):
//   - acs_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - acs_cache_misses_total (Counter): Cache misses
//   - acs_cache_size_bytes{layer="redis"} (Gauge): Bytes of responses written to the cache
//   - acs_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - acs_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - acs_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - acs_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, unexpected)
//
// Retry Metrics (pkg/client):
//   - acs_retries_total{error_class} (Counter): Retry attempts by error class
//   - acs_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - acs_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Harvest Metrics (pkg/harvest):
//   - acs_scopes_harvested_total (Counter): Scopes fetched and assembled
//   - acs_records_assembled_total (Counter): Records produced
//   - acs_scope_duration_seconds (Histogram): Time per scope
//
// Export Metrics (pkg/export):
//   - acs_export_records_total{format} (Counter): Records written
//   - acs_export_bytes{format} (Gauge): Size of the last written file
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(acs_cache_hits_total[5m])) /
//   (sum(rate(acs_cache_hits_total[5m])) + sum(rate(acs_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(acs_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(acs_request_duration_seconds_bucket[5m]))
//
//   # Scopes per minute
//   rate(acs_scopes_harvested_total[1m]) * 60
