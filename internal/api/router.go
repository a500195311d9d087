// Package api serves the report endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"updatestracker/internal/domain"
	"updatestracker/internal/integrations/llm"
	"updatestracker/internal/report"
)

type ReportService interface {
	Preview(ctx context.Context, req report.PreviewRequest) (domain.ExtractionResult, error)
	Commit(ctx context.Context, req report.CommitRequest) (domain.Report, error)
	Get(ctx context.Context, id string) (domain.Report, error)
	List(ctx context.Context, limit int) ([]domain.Report, error)
	ListRange(ctx context.Context, startDate, endDate string) ([]domain.Report, error)
	UpdateSections(ctx context.Context, id string, req report.UpdateRequest) (domain.Report, error)
	Delete(ctx context.Context, id string) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Service        ReportService
	Models         []llm.ModelInfo
	Health         Pinger
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: opts.Service, models: opts.Models, pinger: opts.Health}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/health", h.health)
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	reports := router.Group("/api/reports")
	reports.POST("/format", h.format)
	reports.POST("", h.create)
	reports.GET("", h.list)
	reports.GET("/range", h.listRange)
	reports.GET("/models", h.listModels)
	reports.GET("/:id", h.get)
	reports.PUT("/:id", h.update)
	reports.DELETE("/:id", h.delete)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope{Success: false, Message: "Route not found"})
	})
	return router
}

// requestLogger logs one line per request with its outcome.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			logger.Error("http request", append(fields, zap.Strings("errors", c.Errors.Errors()))...)
			return
		}
		logger.Info("http request", fields...)
	}
}

// Server runs the router until its context ends.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// Commits may wait on a full generation timeout.
			WriteTimeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return s.srv.Shutdown(shutdownCtx)
	}
}
