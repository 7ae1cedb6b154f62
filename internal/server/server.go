// Package server exposes the collection trigger and read endpoints over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/pricetracker/internal/model"
	"sjsage522/pricetracker/internal/pipeline"
	"sjsage522/pricetracker/logger"
)

// Runner executes one collection run
type Runner interface {
	Run(ctx context.Context, params pipeline.RunParams) (*pipeline.RunReport, error)
}

// HistoryReader reads stored observations
type HistoryReader interface {
	ListObservations(ctx context.Context, productID string, since time.Time, limit int) ([]model.PriceObservation, error)
}

// Options configure the HTTP surface
type Options struct {
	CronSecret       string
	DefaultBatchSize int
	Production       bool
}

// Handler serves the HTTP endpoints
type Handler struct {
	runner  Runner
	history HistoryReader
	opts    Options
	now     func() time.Time
	log     *logger.Logger
}

// NewHandler creates the endpoint handler
func NewHandler(runner Runner, history HistoryReader, opts Options) *Handler {
	return &Handler{
		runner:  runner,
		history: history,
		opts:    opts,
		now:     time.Now,
		log:     logger.ForServer(),
	}
}

// NewRouter registers every route on a new gin engine
func NewRouter(h *Handler) *gin.Engine {
	if h.opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api", noStore())
	{
		api.GET("/cron/fetch-prices", h.FetchPrices)
		api.POST("/cron/fetch-prices", h.FetchPrices)
		api.GET("/price-history", h.PriceHistory)
	}
	return r
}

// NewHTTPServer wraps the router in an http.Server
func NewHTTPServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	}
}
