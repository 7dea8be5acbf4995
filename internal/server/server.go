package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/aiassist"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/convo"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/engine"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/registry"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/reports"
)

// Server is the Nalyze HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional (nil-safe): AI.
type ServerConfig struct {
	// Required dependencies.
	Registry *registry.Registry
	Reports  *reports.Store
	Engine   *engine.Engine
	Machine  *convo.Machine
	Logger   *slog.Logger

	// Optional dependencies (nil = disabled).
	AI *aiassist.Client

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Registry:            cfg.Registry,
		Reports:             cfg.Reports,
		Engine:              cfg.Engine,
		Machine:             cfg.Machine,
		AI:                  cfg.AI,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Conversation.
	mux.Handle("POST /chat", http.HandlerFunc(h.HandleChat))

	// Query execution.
	mux.Handle("POST /queries/execute", http.HandlerFunc(h.HandleExecute))

	// Dataset registry.
	mux.Handle("POST /datasets", http.HandlerFunc(h.HandleRegisterDataset))
	mux.Handle("GET /datasets", http.HandlerFunc(h.HandleListDatasets))
	mux.Handle("GET /datasets/{dataset_id}", http.HandlerFunc(h.HandleGetDataset))

	// Saved reports.
	mux.Handle("POST /reports", http.HandlerFunc(h.HandleCreateReport))
	mux.Handle("GET /reports", http.HandlerFunc(h.HandleListReports))
	mux.Handle("GET /reports/{report_id}", http.HandlerFunc(h.HandleGetReport))
	mux.Handle("DELETE /reports/{report_id}", http.HandlerFunc(h.HandleDeleteReport))

	// Probes (no body, no side effects).
	mux.HandleFunc("GET /test-ai-connection", h.HandleTestAI)
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
