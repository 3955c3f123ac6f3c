// Package server exposes the pipeline stages over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/queue"
	"fandom-explainer/types"
)

// Stages is the part of the pipeline served over HTTP
type Stages interface {
	Subtopics(ctx context.Context, concept string) ([]types.Subtopic, error)
	Script(ctx context.Context, concept, fandom string) (*types.ScriptPlan, error)
	Voiceover(ctx context.Context, plan *types.ScriptPlan, voice string) (*types.Voiceover, error)
	Video(ctx context.Context, vo *types.Voiceover) (*types.VideoResult, error)
}

// Jobs is the asynchronous job queue
type Jobs interface {
	Enqueue(ctx context.Context, concept, fandom string) (*queue.Job, error)
	Get(ctx context.Context, id string) (*queue.Job, error)
}

// Server holds the router and its collaborators
type Server struct {
	cfg    *config.Config
	stages Stages
	jobs   Jobs
	Router *gin.Engine
	logger zerolog.Logger
}

// New builds the router. jobs may be nil, in which case the job endpoints
// answer 503.
func New(cfg *config.Config, stages Stages, jobs Jobs) *Server {
	s := &Server{
		cfg:    cfg,
		stages: stages,
		jobs:   jobs,
		Router: gin.New(),
		logger: log.With().Str("stage", "server").Logger(),
	}
	s.Router.Use(gin.Recovery(), s.requestLogger(), s.cors())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Fandom explainer API. Start with /subtopics?concept=..."})
	})
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	s.Router.GET("/subtopics", s.handleSubtopics)
	s.Router.POST("/script", s.handleScript)
	s.Router.POST("/generate_voiceover", s.handleVoiceover)
	s.Router.POST("/generate_video", s.handleVideo)
	s.Router.GET("/download_video/:filename", s.handleDownloadVideo)
	s.Router.GET("/download_audio/:filename", s.handleDownloadAudio)

	jobs := s.Router.Group("/jobs")
	{
		jobs.POST("", s.handleEnqueue)
		jobs.GET("/:id", s.handleJob)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.Router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// StatusFor maps the error taxonomy onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrMediaNotFound), errors.Is(err, queue.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := StatusFor(err)
	ev := s.logger.Warn()
	if code >= 500 {
		ev = s.logger.Error()
	}
	ev.Err(err).Str("path", c.FullPath()).Int("status", code).Msg("request failed")
	c.JSON(code, gin.H{"detail": err.Error()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) cors() gin.HandlerFunc {
	allowed := map[string]bool{}
	for _, o := range s.cfg.Server.AllowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, Origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// safeName rejects anything that is not a bare file name
func safeName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

func fileSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}
