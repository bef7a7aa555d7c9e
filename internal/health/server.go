// Package health exposes liveness JSON and Prometheus metrics over a small
// local HTTP server.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Status struct {
	Running    bool `json:"running"`
	HardwareOK bool `json:"hardware_ok"`
	Sessions   int  `json:"sessions"`
}

// Server tracks agent status and implements the monitor's Recorder.
type Server struct {
	addr    string
	metrics *Metrics
	srv     *http.Server

	running    atomic.Bool
	hardwareOK atomic.Bool
	sessions   atomic.Int64
}

func New(addr string) *Server {
	s := &Server{
		addr:    addr,
		metrics: NewMetrics(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) SetRunning(ok bool) {
	s.running.Store(ok)
}

func (s *Server) SetHardwareOK(ok bool) {
	s.hardwareOK.Store(ok)
}

func (s *Server) SetSessions(n int) {
	s.sessions.Store(int64(n))
	s.metrics.sessions.Set(float64(n))
}

func (s *Server) SetAlert(active bool) {
	s.metrics.alertActive.Set(boolGauge(active))
}

func (s *Server) FrameSent(delivered int) {
	s.metrics.framesSent.Inc()
	s.metrics.deliveries.Add(float64(delivered))
}

func (s *Server) FrameSkipped() {
	s.metrics.framesSkipped.Inc()
}

func (s *Server) FetchFailed(source string) {
	s.metrics.fetchFailures.WithLabelValues(source).Inc()
}

func (s *Server) Status() Status {
	return Status{
		Running:    s.running.Load(),
		HardwareOK: s.hardwareOK.Load(),
		Sessions:   int(s.sessions.Load()),
	}
}

// Serve listens on the configured address until Shutdown. An empty address
// disables the endpoint.
func (s *Server) Serve() error {
	if s.addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("health listen %s: %w", s.addr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("health endpoint running")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.Status()
	w.Header().Set("Content-Type", "application/json")
	if !st.Running {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}
