// Package server exposes the channel pipeline, creative studio and delivery bot over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/tgcreative/internal/channel"
	"github.com/ppiankov/tgcreative/internal/creative"
	"github.com/ppiankov/tgcreative/internal/delivery"
	"github.com/ppiankov/tgcreative/internal/logging"
)

const (
	DefaultMaxBodyBytes    = 10 << 20
	DefaultShutdownTimeout = 30 * time.Second
)

// Analyzer runs the channel pipeline.
type Analyzer interface {
	Run(ctx context.Context, rawInput string) (*channel.Digest, error)
}

// Studio turns a digest into a creative.
type Studio interface {
	Create(ctx context.Context, d *channel.Digest, opts creative.Options) (*creative.Result, error)
}

// Editor rewrites a creative by instruction.
type Editor interface {
	Edit(ctx context.Context, text, instruction string) (string, error)
}

// Messenger delivers creatives through the bot.
type Messenger interface {
	Send(ctx context.Context, to delivery.Recipient, text string, image []byte) error
	Updates(ctx context.Context) ([]delivery.Chat, error)
	HandleStart(ctx context.Context, u tgbotapi.Update) (bool, error)
}

// Deps are the collaborators behind the routes. Studio, Editor and Bot may be
// nil when their secrets are missing; their routes then answer 503.
type Deps struct {
	Analyzer Analyzer
	Studio   Studio
	Editor   Editor
	Bot      Messenger
}

// Config holds the listener settings.
type Config struct {
	Addr            string
	WebOrigin       string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	log    logrus.FieldLogger
	engine *gin.Engine
	flight singleflight.Group
}

// New builds the router. Analyzer is required.
func New(cfg Config, deps Deps, logger logrus.FieldLogger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{cfg: cfg, deps: deps, log: logger}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID())
	r.Use(requestLogger(s.log))
	r.Use(recovery(s.log))

	corsCfg := cors.DefaultConfig()
	if s.cfg.WebOrigin != "" {
		corsCfg.AllowOrigins = []string{s.cfg.WebOrigin}
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))
	r.Use(bodyLimit(s.cfg.MaxBodyBytes))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/channel/analyze", s.analyze)
	api.POST("/creative/generate", s.generate)
	api.POST("/creative/edit", s.edit)
	api.POST("/telegram/webhook", s.webhook)
	api.GET("/telegram/updates", s.updates)
	api.POST("/telegram/send", s.send)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("Server stopped")
	return nil
}
