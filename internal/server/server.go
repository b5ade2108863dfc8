// Package server exposes the prediction service over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/engine"
	"github.com/crimson-sun/screener/internal/model"
	"github.com/crimson-sun/screener/internal/service"
)

var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

const (
	defaultMaxBody = 64 << 10
	apiName        = "ASD Prediction API"
	apiVersion     = "1.0.0"
)

// Screener is the part of the service the HTTP layer needs.
type Screener interface {
	Evaluate(ctx context.Context, sub model.Submission) (engine.Outcome, error)
	Health() service.Health
	ClassifierName() string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origin allow-list. A lone "*" allows
// every origin without credentials.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithAudit records every served verdict to sink.
func WithAudit(sink audit.Sink) Option {
	return func(s *Server) { s.audit = sink }
}

// WithMaxBodyBytes caps the size of a request body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// Server routes HTTP requests to a Screener.
type Server struct {
	svc     Screener
	audit   audit.Sink
	origins []string
	maxBody int64
	router  *gin.Engine
}

// New builds the router. It fails only on an invalid CORS configuration.
func New(svc Screener, opts ...Option) (*Server, error) {
	s := &Server{
		svc:     svc,
		audit:   audit.Discard,
		origins: defaultOrigins,
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		opt(s)
	}

	cc := corsConfig(s.origins)
	if err := cc.Validate(); err != nil {
		return nil, fmt.Errorf("server: cors: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors.New(cc), limitBody(s.maxBody))
	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.GET("/questions", s.questions)
	r.GET("/schema", s.schema)
	r.POST("/predict", s.predict)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "not_found", Detail: "no route for " + c.Request.URL.Path})
	})
	s.router = r
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	var list []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 1 && list[0] == "*" {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
		return cc
	}
	cc.AllowOrigins = list
	for _, o := range list {
		if strings.Contains(o, "*") {
			cc.AllowWildcard = true
		}
	}
	return cc
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
