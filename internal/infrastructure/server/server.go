// Package server assembles the debug/inspection HTTP server around the
// engine: router, CORS, metrics middleware, and graceful shutdown.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/voidcell/enclave/internal/api/http"
	"github.com/voidcell/enclave/internal/engine"
	"github.com/voidcell/enclave/internal/infrastructure/config"
	"github.com/voidcell/enclave/internal/infrastructure/logging"
	"github.com/voidcell/enclave/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *logging.Logger
}

// New builds the server. The engine stays owned by the caller; closing the
// server never closes the engine.
func New(cfg config.ServerConfig, eng *engine.Engine, log *logging.Logger, metrics *monitoring.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}

	apihttp.NewHandlers(eng, log).Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := cfg.Host + ":" + cfg.Port
	return &Server{
		router: router,
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // runs block indefinitely by contract
		},
		log: log.Named("server"),
	}
}

// Run serves until Shutdown or a listener error.
func (s *Server) Run() error {
	s.log.Info("debug server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
