// Package server exposes the anonymizer and the compatibility scorer over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/fairhire/internal/anonymizer"
	"github.com/raaihank/fairhire/internal/catalog"
	"github.com/raaihank/fairhire/internal/compat"
	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/gauge"
	"github.com/raaihank/fairhire/internal/logger"
	"github.com/raaihank/fairhire/internal/storage"
	"github.com/raaihank/fairhire/internal/web"
	"github.com/raaihank/fairhire/internal/websocket"
	"go.uber.org/zap"
)

// Info is reported by /info
type Info struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	NER        string `json:"ner"`
	Embeddings string `json:"embeddings"`
	Catalog    string `json:"catalog"`
	Storage    string `json:"storage"`
	// Backends lists every NER and embedding backend, active or not.
	Backends []Backend `json:"backends,omitempty"`
	// Notes warn about heuristic backends in use.
	Notes []string `json:"notes,omitempty"`
}

// Backend describes one NER or embedding backend
type Backend struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Heuristic   bool   `json:"heuristic"`
	Active      bool   `json:"active"`
}

// Services are the components behind the routes. Artifacts and Hub are optional.
type Services struct {
	Anonymizer    *anonymizer.Pipeline
	Scorer        *compat.Scorer
	CatalogScorer *compat.CatalogScorer
	Catalog       catalog.Store
	Artifacts     storage.Store
	Gauge         *gauge.Gauge
	Hub           *websocket.Hub
	Info          Info
}

// Server represents the HTTP server
type Server struct {
	config        config.ServerConfig
	defaultSkills string
	wsPath        string
	services      Services
	logger        *logger.Logger
	router        *mux.Router
	server        *http.Server
	limiter       *RateLimiter
	clients       *clientResolver
	stopCleanup   context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, services Services, log *logger.Logger) (*Server, error) {
	if services.Anonymizer == nil || services.Scorer == nil || services.CatalogScorer == nil || services.Catalog == nil {
		return nil, fmt.Errorf("server requires the anonymizer, both scorers and the catalog")
	}
	if services.Gauge == nil {
		services.Gauge = gauge.New()
	}

	s := &Server{
		config:        cfg.Server,
		defaultSkills: cfg.Compatibility.DefaultSkills,
		services:      services,
		logger:        log.WithComponent("server"),
		router:        mux.NewRouter(),
	}
	if cfg.WebSocket.Enabled && services.Hub != nil {
		s.wsPath = cfg.WebSocket.Path
	}
	if cfg.Server.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit)
	}
	clients, err := newClientResolver(cfg.Server.RateLimit.TrustedProxies)
	if err != nil {
		return nil, err
	}
	s.clients = clients

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")

	if s.wsPath != "" {
		s.router.HandleFunc(s.wsPath, s.services.Hub.HandleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.Use(s.bodyLimitMiddleware)

	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/anonymize/text", s.handleAnonymizeText).Methods("POST")
	api.HandleFunc("/artifacts/{name}", s.handleArtifact).Methods("GET")
	api.HandleFunc("/compatibility", s.handleCompatibility).Methods("POST")
	api.HandleFunc("/compatibility/catalog", s.handleCatalogScores).Methods("POST")
	api.HandleFunc("/jobs", s.handleJobs).Methods("GET")
	api.HandleFunc("/gauge.svg", s.handleGauge).Methods("GET")
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	if s.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopCleanup = cancel
		go s.limiter.RunCleanup(ctx, s.config.RateLimit.ClientTTL)
	}

	s.logger.Info("Starting fairhire server",
		zap.String("addr", s.server.Addr),
		zap.Bool("rate_limit", s.limiter != nil),
		zap.Bool("artifacts", s.services.Artifacts != nil),
		zap.String("websocket_path", s.wsPath))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping fairhire server")
	if s.stopCleanup != nil {
		s.stopCleanup()
	}
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := struct {
		Info
		WebSocket *websocket.HubStats `json:"websocket,omitempty"`
	}{Info: s.services.Info}
	if s.wsPath != "" {
		stats := s.services.Hub.GetStats()
		info.WebSocket = &stats
	}
	writeJSON(w, http.StatusOK, info)
}

// publish broadcasts to dashboard clients when the hub is running
func (s *Server) publish(t websocket.EventType, requestID string, data interface{}) {
	if s.services.Hub != nil {
		s.services.Hub.Publish(t, requestID, data)
	}
}
