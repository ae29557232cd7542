// Package server is the HTTP API serving the stored snapshots, their
// reconciliation, and the push token registry.
package server

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/etnz/timberline/metrics"
	"github.com/etnz/timberline/store"
	"github.com/etnz/timberline/tokens"
)

// AdminHeader carries the admin key of the token registry operations.
const AdminHeader = "X-Admin-Api-Key"

// Options holds the optional configuration of a Server.
type Options struct {
	ManagerName string // display name used in the report
	AdminAPIKey string // empty rejects every admin operation
	CORSOrigin  string // "*" if empty

	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // serves /metrics when set

	Now func() time.Time // registration time of tokens
}

type Server struct {
	R      *gin.Engine
	Store  store.Store
	Tokens tokens.Registry
	Logger *zap.Logger

	opts Options
}

type apiError struct {
	Error string `json:"error"`
}

// New wires the router and the middleware.
func New(st store.Store, reg tokens.Registry, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := gin.New()
	s := &Server{
		R:      g,
		Store:  st,
		Tokens: reg,
		Logger: opts.Logger,
		opts:   opts,
	}

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		s.Logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
		opts.Metrics.Request(cn.FullPath(), cn.Writer.Status())
	})

	g.Use(gin.Recovery())
	g.Use(s.cors)

	g.GET("/health", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"ok": true}) })
	if opts.Gatherer != nil {
		g.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	g.GET("/api/latest", s.getSnapshot(store.Latest))
	g.GET("/api/last-quarter", s.getSnapshot(store.Previous))
	// historical paths
	g.GET("/api/himalaya-latest", s.getSnapshot(store.Latest))
	g.GET("/api/himalaya-last-quarter", s.getSnapshot(store.Previous))

	g.GET("/api/changes", s.getChanges)
	g.GET("/report", s.getReport)

	g.POST("/api/push-tokens", s.addToken)
	admin := g.Group("/api/push-tokens", s.requireAdmin)
	admin.GET("", s.listTokens)
	admin.GET("/count", s.countTokens)
	admin.DELETE("", s.deleteAllTokens)
	admin.DELETE("/:id", s.deleteToken)

	return s
}

// cors sets the CORS headers on every response, errors included, and
// answers preflight requests.
func (s *Server) cors(cn *gin.Context) {
	h := cn.Writer.Header()
	h.Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, "+AdminHeader)
	if s.opts.CORSOrigin != "*" {
		h.Set("Vary", "Origin")
	}
	if cn.Request.Method == http.MethodOptions {
		cn.AbortWithStatus(http.StatusNoContent)
		return
	}
	cn.Next()
}

// --- Helpers ---

func (s *Server) fail(cn *gin.Context, status int, msg string) {
	cn.AbortWithStatusJSON(status, apiError{Error: msg})
}

func (s *Server) internalError(cn *gin.Context, where string, err error, msg string) {
	s.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
	s.fail(cn, http.StatusInternalServerError, msg)
}
