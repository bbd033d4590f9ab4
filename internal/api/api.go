// Package api provides HTTP handlers and the main API server logic for FormWeave.
//
// It exposes RESTful endpoints for authoring form templates, collecting
// responses, and managing assignments. The API integrates with the forms,
// genai, notify, and store modules.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formweave/formweave/internal/forms"
	"github.com/formweave/formweave/internal/genai"
	"github.com/formweave/formweave/internal/models"
	"github.com/formweave/formweave/internal/store"
)

// Default server configuration constants
const (
	// DefaultAPIAddr is the default address the API server listens on.
	DefaultAPIAddr = ":8080"
	// DefaultReadHeaderTimeout bounds how long reading request headers may take.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown on termination signals.
	DefaultShutdownTimeout = 15 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address for the API server.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the HTTP surface to the form services.
type Server struct {
	templates   *forms.TemplateService
	assignments *forms.AssignmentService
	gaClient    *genai.Client
	st          store.Store
	addr        string
}

// NewServer creates an API server. gaClient may be nil when no OpenAI key is
// configured; the suggestion endpoint then reports the feature as unavailable.
func NewServer(templates *forms.TemplateService, assignments *forms.AssignmentService, gaClient *genai.Client, st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAPIAddr
	}
	return &Server{
		templates:   templates,
		assignments: assignments,
		gaClient:    gaClient,
		st:          st,
		addr:        cfg.Addr,
	}
}

// routes registers all HTTP handlers on a fresh mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/templates", s.templatesHandler)
	mux.HandleFunc("/templates/", s.templateSubtreeHandler)
	mux.HandleFunc("/assignments", s.assignmentsHandler)
	mux.HandleFunc("/assignments/", s.assignmentSubtreeHandler)
	mux.HandleFunc("/surveys/", s.surveySubtreeHandler)
	mux.HandleFunc("/suggest-fields", s.suggestFieldsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the API server and blocks until the context is canceled or a
// termination signal arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("Server.Run: shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Server.Run: context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("Server.Run: API server stopped")
	return nil
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	// Use the public template listing as a cheap store liveness probe.
	if _, _, err := s.st.ListPublicTemplates("", 1, 1); err != nil {
		slog.Warn("Health check: store probe failed", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to reach template store"
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, models.Success(healthData))
}
