// Package server provides the HTTP server and routing for the stress testing engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aristath/stresscore/internal/di"
	capitalhandlers "github.com/aristath/stresscore/internal/modules/capital/handlers"
	"github.com/aristath/stresscore/internal/modules/montecarlo"
	scenariohandlers "github.com/aristath/stresscore/internal/modules/scenario/handlers"
	simulationhandlers "github.com/aristath/stresscore/internal/modules/simulation/handlers"
	transferhandlers "github.com/aristath/stresscore/internal/modules/transfer/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container    // DI container with all services
	Jobs      *di.JobInstances // Maintenance jobs for manual triggering, may be nil
	// StatusInterval is how often the status monitor samples; zero disables it.
	StatusInterval time.Duration
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	jobs           *di.JobInstances
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
	statusInterval time.Duration
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Container

	systemHandlers := NewSystemHandlers(
		cfg.Log,
		c.ResultsDB,
		c.ResultCache,
		c.QueueManager,
		c.Scheduler,
		c.Engine,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		container:      c,
		jobs:           cfg.Jobs,
		systemHandlers: systemHandlers,
		statusInterval: cfg.StatusInterval,
	}

	s.statusMonitor = NewStatusMonitor(c.EventManager, systemHandlers, cfg.Log)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // /api routes carry their own timeout; streams have none
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging and request metrics
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(c.Metrics.Registry(), promhttp.HandlerOpts{}))

	// Event streams are long-lived and stay outside the timeout group
	eventsStream := NewEventsStreamHandler(c.EventBus, s.log)
	s.router.Get("/api/events/stream", eventsStream.ServeHTTP)
	s.router.Get("/api/events/ws", eventsStream.ServeWebSocket)

	strategy, err := montecarlo.ParseStrategy(c.Engine.Settings.Strategy)
	if err != nil {
		strategy = montecarlo.StrategyRawCorrelation
	}

	scenarioHandler := scenariohandlers.NewHandler(c.Engine.Scenarios, c.Engine.Correlation, strategy, s.log)
	transferHandler := transferhandlers.NewHandler(c.Engine.Scenarios, c.Engine.Coefficients, s.log)
	capitalHandler := capitalhandlers.NewHandler(
		c.Engine.Scenarios,
		c.Engine.Coefficients,
		c.Engine.Minimums,
		c.Engine.Settings.WarningThreshold,
		s.log,
	)
	simulationHandler := simulationhandlers.NewHandler(c.SimulationService, c.QueueManager, s.log)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Minute))

		// System monitoring and operations
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/engine", s.systemHandlers.HandleEngine)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/cache-cleanup", s.systemHandlers.HandleTriggerCacheCleanup)
			r.Post("/wal-checkpoint", s.handleTriggerWALCheckpoint)
		})

		scenarioHandler.RegisterRoutes(r)
		transferHandler.RegisterRoutes(r)
		capitalHandler.RegisterRoutes(r)
		simulationHandler.RegisterRoutes(r)
	})
}

// Start starts the HTTP server and background monitors
func (s *Server) Start() error {
	if s.statusInterval > 0 {
		s.statusMonitor.Start(s.statusInterval)
		s.log.Info().Dur("interval", s.statusInterval).Msg("Status monitor started")
	}

	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.statusMonitor.Stop()
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests and records them in the request histogram
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.container.Metrics != nil {
			s.container.Metrics.ObserveRequest(r.Method, route, strconv.Itoa(ww.Status()), elapsed)
		}

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
