// Package web serves the analyzed track table as JSON for the
// visualization front end.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mirrorball/internal/cluster"
	"mirrorball/internal/dataset"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// TableSource provides the analyzed table. Satisfied by
// store.AnalyzedRepository and by StaticTable for tables held in memory.
type TableSource interface {
	List(ctx context.Context) (dataset.Table, error)
}

// StaticTable adapts an in-memory table to the TableSource interface.
type StaticTable dataset.Table

// List returns the wrapped table.
func (s StaticTable) List(context.Context) (dataset.Table, error) {
	return dataset.Table(s), nil
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr       string
	Source     TableSource
	Archetypes []cluster.Archetype
}

// Server is the HTTP server exposing the analyzed table.
type Server struct {
	router chi.Router
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("table source is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Archetypes == nil {
		cfg.Archetypes = cluster.DefaultArchetypes()
	}

	handlers := NewHandlers(cfg.Source, cfg.Archetypes)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tracks", handlers.Tracks)
		r.Get("/archetypes", handlers.Archetypes)
	})

	return &Server{
		router: r,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}, nil
}

// Run starts the server and blocks until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving analyzed tracks at http://%s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
		log.Println("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
