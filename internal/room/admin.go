package room

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/chattest/internal/logging"
	"github.com/danmuck/chattest/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// AdminRouter builds the read-only admin HTTP surface.
func (s *Service) AdminRouter() *gin.Engine {
	observability.RegisterMetrics()
	router := gin.New()
	router.Use(
		gin.Recovery(),
		observability.RequestLogger(logging.Component("room.admin")),
		observability.RequestMetricsMiddleware("chattestd"),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"room":    s.cfg.Room,
			"admin":   s.cfg.Admin,
			"members": s.registry.Len(),
		})
	})

	router.GET("/members", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"room":    s.cfg.Room,
			"members": s.registry.Snapshot(),
		})
	})

	router.GET("/log", func(c *gin.Context) {
		since := 0
		if raw := c.Query("since"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
				return
			}
			since = v
		}
		c.JSON(http.StatusOK, gin.H{
			"next":    s.log.Len(),
			"entries": s.log.Since(since),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// serveAdmin runs the admin router until ctx is cancelled.
func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.AdminRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("room.admin listening")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
