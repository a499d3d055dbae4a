package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/dapplets/dapplet-registry/internal/api/http"
	"github.com/dapplets/dapplet-registry/internal/api/middleware"
	"github.com/dapplets/dapplet-registry/internal/api/ws"
	"github.com/dapplets/dapplet-registry/internal/domain/registry"
	"github.com/dapplets/dapplet-registry/internal/domain/staking"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/config"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/logging"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/monitoring"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/storage"
	"github.com/dapplets/dapplet-registry/internal/infrastructure/tracing"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// ShutdownTimeout bounds Close
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	registry   *registry.Registry
	store      *storage.BoltStore
	persister  *storage.Persister
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	untrack    func()
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing module registry server",
		zap.String("port", cfg.Server.Port),
		zap.Bool("staking", cfg.Staking.Token != ""),
		zap.Bool("storage", cfg.Storage.Enabled),
	)

	// Metrics on a private registry so tests can build many servers
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(promRegistry)

	tracer := tracing.New(logger.Component("tracing").Logger)

	reg := registry.New(
		registry.WithLedger(staking.NewMemoryLedger()),
		registry.WithStakeParams(staking.Params{
			Token:       cfg.Staking.Token,
			Period:      cfg.Staking.Period,
			MinDuration: cfg.Staking.MinDuration,
			BasePrice:   cfg.Staking.BasePrice,
			BurnShare:   cfg.Staking.BurnShare,
		}),
		registry.WithAdmin(types.Account(cfg.Registry.Admin)),
		registry.WithTreasury(types.Account(cfg.Registry.Treasury)),
		registry.WithMaxQueryResults(cfg.Registry.MaxQueryResults),
		registry.WithLogger(logger.Component("registry").Logger),
	)
	untrack := api.TrackRegistry(reg, metrics)

	s := &Server{
		registry: reg,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		untrack:  untrack,
	}

	ctx := context.Background()
	loaded := false
	if cfg.Storage.Enabled {
		if loaded, err = s.openStorage(ctx); err != nil {
			s.release()
			return nil, err
		}
	}

	if cfg.Registry.SeedDir != "" && !loaded {
		seeder := registry.NewSeeder(reg,
			registry.WithSeedPattern(cfg.Registry.SeedPattern),
			registry.WithSeedLogger(logger.Component("seeder").Logger),
		)
		report, err := seeder.Seed(ctx, cfg.Registry.SeedDir)
		if err != nil {
			logger.Warn("Failed to seed modules", zap.Error(err))
		} else {
			logger.Info("Seeded modules",
				zap.Int("created", len(report.Created)),
				zap.Int("skipped", len(report.Skipped)),
			)
		}
	}

	s.router = s.newRouter(promRegistry)
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	logger.Info("Server initialized successfully", zap.Any("registry", reg.Stats()))
	return s, nil
}

// openStorage restores the latest snapshot and starts background saves.
func (s *Server) openStorage(ctx context.Context) (bool, error) {
	codec, err := storage.ParseCodec(s.config.Storage.Format, s.config.Storage.Compression)
	if err != nil {
		return false, err
	}

	store := storage.NewBoltStore(storage.WithBoltLogger(s.logger.Component("bolt").Logger))
	if err := store.Open(s.config.Storage.Path); err != nil {
		return false, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	s.store = store

	s.persister = storage.NewPersister(s.registry, store,
		storage.WithCodec(codec),
		storage.WithPersisterLogger(s.logger.Component("persister").Logger),
		storage.WithObserver(s.metrics.RecordSnapshot),
	)

	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to restore registry: %w", err)
	}
	s.persister.Start(ctx)

	s.logger.Info("Snapshot storage ready",
		zap.String("path", s.config.Storage.Path),
		zap.String("format", string(codec.Format)),
		zap.String("compression", string(codec.Compression)),
		zap.Bool("restored", loaded),
	)
	return loaded, nil
}

func (s *Server) newRouter(promRegistry *prometheus.Registry) *gin.Engine {
	cfg := s.config
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(corsCfg))
	router.Use(middleware.Account())
	if cfg.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := api.NewHandlers(s.registry,
		api.WithMetrics(s.metrics),
		api.WithLogger(s.logger.Component("api").Logger),
	)
	wsHandler := ws.NewHandler(s.registry,
		ws.WithMetrics(s.metrics),
		ws.WithLogger(s.logger.Component("ws").Logger),
	)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))
	router.GET("/metrics/json", handlers.GetMetricsJSON)

	v1 := router.Group("/api/v1")
	handlers.Register(v1)
	v1.GET("/stream", wsHandler.HandleConnection)

	return router
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the registry served
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains connections, writes a final snapshot and closes storage
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.release(); err != nil {
		errs = append(errs, err)
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}

// Close shuts down with ShutdownTimeout
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

func (s *Server) release() error {
	var errs []error
	if s.persister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		if err := s.persister.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("final snapshot: %w", err))
		}
		cancel()
		s.persister = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.store = nil
	}
	if s.untrack != nil {
		s.untrack()
		s.untrack = nil
	}
	s.tracer.Close()
	return errors.Join(errs...)
}
