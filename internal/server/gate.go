// Package server hosts the HTTP decode gate.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danmuck/iectl/internal/bindings"
	"github.com/danmuck/iectl/internal/config"
	"github.com/danmuck/iectl/internal/observability"
	"github.com/danmuck/iectl/internal/protocol"
	"github.com/danmuck/iectl/internal/protocol/frame"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// Gate decodes PDUs posted over HTTP against one registry.
type Gate struct {
	Name     string
	Addr     string
	Appeared time.Time

	codec    *protocol.Codec
	limits   frame.Limits
	maxBody  int64
	metrics  bool
	router   *gin.Engine
	ready    atomic.Bool
	routesOn atomic.Bool
}

// NewGate builds the registry named by cfg and the router around it.
func NewGate(cfg config.GateConfig) (*Gate, error) {
	if err := config.ValidateGateConfig(cfg); err != nil {
		return nil, err
	}
	reg, err := bindings.NewRegistry(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics {
		observability.RegisterMetrics()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	if cfg.Metrics {
		r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CorsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", observability.RequestIDHeader},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	g := &Gate{
		Name:     cfg.Name,
		Addr:     cfg.Addr,
		Appeared: time.Now(),
		codec:    protocol.NewCodec(reg),
		limits: frame.Limits{
			MaxRecordBytes: uint32(cfg.MaxMessageBytes),
			MaxRecords:     cfg.MaxRecords,
		},
		maxBody: int64(cfg.MaxMessageBytes),
		metrics: cfg.Metrics,
		router:  r,
	}
	g.ready.Store(true)
	return g, nil
}

func (g *Gate) HTTPRouter() *gin.Engine {
	return g.router
}

// Codec returns the codec requests are decoded with.
func (g *Gate) Codec() *protocol.Codec {
	return g.codec
}

// SetReady flips the readiness probe.
func (g *Gate) SetReady(ready bool) {
	g.ready.Store(ready)
}

// Serve registers routes and blocks until ctx is done or the listener fails.
func (g *Gate) Serve(ctx context.Context) error {
	g.RegisterRoutes()
	srv := &http.Server{
		Addr:              g.Addr,
		Handler:           g.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("gate", g.Name).Str("addr", g.Addr).Msg("gate listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		g.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Str("gate", g.Name).Msg("gate stopped")
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
