package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Server exposes one registry on a dedicated port, away from the search API
// and its middleware chain.
type Server struct {
	srv  *http.Server
	done chan struct{}
}

// NewServer builds a metrics server for g on addr (":9090" or "host:port").
func NewServer(addr string, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", HandlerFor(g))
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		done: make(chan struct{}),
	}
}

// Serve listens on ln until ctx is cancelled, then drains for up to five
// seconds. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer close(s.done)
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	})
	defer stop()

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Done is closed once Serve has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// StartServer serves the default registry on port in the background. A bind
// failure is returned immediately; later errors are logged.
func StartServer(ctx context.Context, port int) (*Server, error) {
	s := NewServer(fmt.Sprintf(":%d", port), prometheus.DefaultGatherer)
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", s.srv.Addr, err)
	}
	slog.Info("metrics server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.Serve(ctx, ln); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return s, nil
}
