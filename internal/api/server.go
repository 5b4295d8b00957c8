// Package api serves a small HTTP interface to trigger runs and inspect
// snapshots, history and metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raoulx24/dbkeeper/internal/logging"
)

// Deps are the components the API talks to. History, Schedule and
// Metrics are optional.
type Deps struct {
	Jobs     Jobs
	Planner  Planner
	History  HistoryReader
	Schedule NextRunner
	Metrics  http.Handler
	Log      logging.Logger
}

type Server struct {
	router *gin.Engine
	srv    *http.Server
	addr   string
	log    logging.Logger
}

// NewServer builds the router for addr.
func NewServer(addr string, d Deps) *Server {
	router := gin.New()

	router.Use(requestLogger(d.Log))
	router.Use(gin.Recovery())
	router.Use(errorHandler())

	h := &Handler{
		jobs:     d.Jobs,
		planner:  d.Planner,
		history:  d.History,
		schedule: d.Schedule,
	}

	router.GET("/health", h.Health)
	router.GET("/snapshots", h.Snapshots)
	router.GET("/history", h.History)

	router.POST("/:op", h.Submit)

	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}

	return &Server{
		router: router,
		addr:   addr,
		log:    d.Log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.log.Info("starting http server", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// errorHandler turns errors attached with c.Error into a JSON 500.
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Internal Server Error",
				Message: c.Errors.Last().Error(),
				Code:    http.StatusInternalServerError,
			})
		}
	}
}
