package report

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/procwatch/internal/discover"
	"github.com/psantana5/procwatch/internal/logging"
)

// Server serves /metrics, /status and /healthz
type Server struct {
	srv    *http.Server
	logger *logging.Logger
}

// NewServer creates a status server on addr. health may be nil.
func NewServer(addr string, metrics *Metrics, board *StatusBoard, health *discover.HealthCheck, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      Router(metrics, board, health),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Router builds the HTTP routes. /healthz answers 503 while the scanner is
// unhealthy.
func Router(metrics *Metrics, board *StatusBoard, health *discover.HealthCheck) *mux.Router {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")

	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		st, ok := board.Get()
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"no session yet"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(st)
	}).Methods("GET")

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health == nil {
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
			return
		}
		if !health.IsHealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health.Report())
	}).Methods("GET")

	return router
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("Status server listening", map[string]interface{}{"address": ln.Addr().String()})
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server error", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
