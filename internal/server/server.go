package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/proxylogs/proxylogs/internal/config"
	"github.com/proxylogs/proxylogs/internal/handler"
	"github.com/proxylogs/proxylogs/internal/middleware"
	"github.com/proxylogs/proxylogs/internal/proxy"
	"github.com/proxylogs/proxylogs/internal/ratelimit"
	"github.com/proxylogs/proxylogs/internal/repository"
	"github.com/proxylogs/proxylogs/internal/service"
	"github.com/proxylogs/proxylogs/internal/storage"
)

type Server struct {
	router       *gin.Engine
	config       *config.Config
	postgres     *storage.Postgres
	redis        *storage.RedisClient
	forwarder    *proxy.Forwarder
	proxyHandler *handler.ProxyHandler
	adminHandler *handler.AdminHandler
	httpServer   *http.Server
}

// New wires the full pipeline: storage → repository → service → handlers →
// router. redis may be nil; rate limiting is skipped without it.
func New(cfg *config.Config, postgres *storage.Postgres, redis *storage.RedisClient) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	forwarder, err := proxy.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, cfg.Upstream.HealthCheckTimeout)
	if err != nil {
		return nil, err
	}

	logRepo := repository.NewLogRepository(postgres, cfg.Upstream.MaxBodySize)
	logService := service.NewLogService(logRepo)

	s := &Server{
		router:       gin.New(),
		config:       cfg,
		postgres:     postgres,
		redis:        redis,
		forwarder:    forwarder,
		proxyHandler: handler.NewProxyHandler(forwarder, logRepo, cfg.Upstream.MaxBodySize),
		adminHandler: handler.NewAdminHandler(logService),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	admin := s.router.Group("/admin")
	admin.Use(middleware.BasicAuth(s.config.Admin.Username, s.config.Admin.Password))

	if s.config.RateLimit.Enabled && s.redis != nil {
		limiter := ratelimit.NewStrategy(
			s.redis,
			s.config.RateLimit.Algorithm,
			s.config.RateLimit.RequestsPerMinute,
			time.Minute,
		)
		admin.Use(middleware.RateLimit(limiter))
		log.Printf("Admin rate limit enabled: %d/min (%s)", s.config.RateLimit.RequestsPerMinute, limiter.Name())
	}

	admin.GET("/logs", s.adminHandler.GetLogs)
	admin.GET("/stats", s.adminHandler.GetStats)
	admin.GET("/overview", s.adminHandler.GetOverview)
	admin.GET("/stats/status-codes", s.adminHandler.GetStatusCodeStats)
	admin.GET("/stats/top-paths", s.adminHandler.GetTopPaths)
	admin.GET("/stats/hourly-trend", s.adminHandler.GetHourlyTrend)

	// Everything else is proxied to the upstream.
	s.router.NoRoute(s.proxyHandler.Handle)
}

// healthCheck always answers 200; the upstream's state is reported in the
// body, not the status code.
func (s *Server) healthCheck(c *gin.Context) {
	healthy := s.forwarder.HealthCheck(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"target": gin.H{
			"healthy": healthy,
			"url":     s.forwarder.BaseURL(),
		},
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
		// No WriteTimeout: proxied responses are bounded by the upstream
		// timeout, not the server's.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting API proxy on %s", addr)
	log.Printf("Target API: %s", s.forwarder.BaseURL())

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
