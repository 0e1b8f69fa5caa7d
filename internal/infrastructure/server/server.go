// Package server wires configuration, logging, metrics, the session registry,
// and the HTTP surface into one runnable service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/TermHub/internal/api/http"
	"github.com/GriffinCanCode/TermHub/internal/api/middleware"
	"github.com/GriffinCanCode/TermHub/internal/api/ws"
	"github.com/GriffinCanCode/TermHub/internal/infrastructure/config"
	"github.com/GriffinCanCode/TermHub/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TermHub/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TermHub/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TermHub/internal/session"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	registry *session.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	httpSrv  *http.Server
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		built, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			logger = logging.NewDefault()
		} else {
			logger = built
		}
	}

	logger.Info("initializing termhub",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	metrics := monitoring.NewMetricsDefault()
	tracer := tracing.New("termhub", logger.Logger)

	registry := session.NewRegistry(session.Config{
		Shell:           cfg.Terminal.Shell,
		ScrollbackLines: cfg.Terminal.ScrollbackLines,
		KillGrace:       cfg.Terminal.KillGrace,
		DefaultCols:     cfg.Terminal.DefaultCols,
		DefaultRows:     cfg.Terminal.DefaultRows,
		IdentEnv:        cfg.Terminal.IdentEnv,
	}, logger.Logger).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(middleware.RequestLogger(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, logger.Logger)
	wsHandler := ws.NewHandler(registry, logger.Logger, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions", handlers.ListSessions)
	router.DELETE("/sessions/:name", handlers.KillSession)
	router.POST("/sessions/:name/rename", handlers.RenameSession)
	router.POST("/sessions/:name/resize", handlers.ResizeSession)
	router.GET("/sessions/:name/capture", handlers.CaptureSession)
	router.POST("/sessions/:name/send", handlers.SendText)
	router.GET("/sessions/:name/stream", wsHandler.Stream)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("server initialized")

	return &Server{
		router:   router,
		registry: registry,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Registry exposes the session registry for embedding callers that drive
// attach directly.
func (s *Server) Registry() *session.Registry { return s.registry }

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting http server", zap.String("addr", addr))
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops accepting requests, then kills every session.
func (s *Server) Close() error {
	s.logger.Info("shutting down")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}
	s.registry.Close()
	_ = s.logger.Sync()
	return nil
}
