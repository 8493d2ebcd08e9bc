package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chess-perft/engine"
)

// Config holds the server configuration.
type Config struct {
	Addr        string        // listen address (default "localhost:8080")
	Jobs        int           // concurrent perft jobs (default 1)
	MaxDepth    int           // deepest accepted request (default 8)
	ReadTimeout time.Duration // header read timeout (default 10s)
	IdleTimeout time.Duration // keep-alive timeout (default 60s)
	Version     string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:        "localhost:8080",
		Jobs:        1,
		MaxDepth:    8,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		Version:     "dev",
	}
}

// Server serves perft jobs over a websocket at /api/ws.
type Server struct {
	cfg  Config
	pool *JobPool
	log  zerolog.Logger
	http *http.Server
}

// NewServer builds the job pool from opts. Every job gets its own engine;
// the cache is shared.
func NewServer(cfg Config, opts engine.Options) (*Server, error) {
	pool, err := NewJobPool(cfg.Jobs, opts)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:  cfg,
		pool: pool,
		log:  opts.Logger.With().Str("component", "api").Logger(),
	}, nil
}

// Pool returns the job pool for monitoring.
func (s *Server) Pool() *JobPool { return s.pool }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:     "ok",
		Version:    s.cfg.Version,
		CacheBytes: s.pool.Cache().Bytes(),
		Pool:       s.pool.Stats(),
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("/api/ws", s.handleWebSocket)
	return s.loggingMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Int("jobs", s.pool.Stats().Max).Msg("perft server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if ok {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
