// Package httpapi exposes the engine over a JSON HTTP API. Each component is
// one synchronous POST endpoint; the caller identity is resolved from the
// bearer credential, never from the request body.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/adforge/creative-engine-go/internal/application/learner"
	"github.com/adforge/creative-engine-go/internal/application/mutator"
	"github.com/adforge/creative-engine-go/internal/application/ranker"
	"github.com/adforge/creative-engine-go/internal/infrastructure/auth"
)

// Server hosts the engine's HTTP endpoints.
type Server struct {
	mu         sync.Mutex
	ranker     *ranker.Service
	learner    *learner.Service
	mutator    *mutator.Service
	validator  *auth.Validator
	limiter    *credentialLimiter
	logger     *slog.Logger
	host       string
	port       int
	running    bool
	httpServer *http.Server
}

// Options configures the server.
type Options struct {
	Ranker    *ranker.Service
	Learner   *learner.Service
	Mutator   *mutator.Service
	Validator *auth.Validator
	Logger    *slog.Logger
	Host      string
	Port      int

	// RatePerSecond and Burst bound each credential's request rate.
	// Zero values fall back to 10 rps with a burst of 20.
	RatePerSecond float64
	Burst         int
}

// NewServer creates an HTTP server for the engine services.
func NewServer(opts Options) *Server {
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port == 0 {
		port = 8080
	}
	rps := opts.RatePerSecond
	if rps == 0 {
		rps = 10
	}
	burst := opts.Burst
	if burst == 0 {
		burst = 20
	}

	return &Server{
		ranker:    opts.Ranker,
		learner:   opts.Learner,
		mutator:   opts.Mutator,
		validator: opts.Validator,
		limiter:   newCredentialLimiter(rps, burst),
		logger:    opts.Logger,
		host:      host,
		port:      port,
	}
}

// Handler builds the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/rank", s.authenticated(s.handleRank))
	mux.HandleFunc("/v1/learn", s.authenticated(s.handleLearn))
	mux.HandleFunc("/v1/mutate", s.authenticated(s.handleMutate))
	return mux
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("http server stopped", "error", err)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}
	}()

	s.logger.Info("http server listening", "addr", addr)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
