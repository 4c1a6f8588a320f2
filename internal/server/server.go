package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grouprk/vdl/internal/core/backend"
	"github.com/grouprk/vdl/internal/core/config"
	"github.com/grouprk/vdl/internal/core/media"
	"github.com/grouprk/vdl/internal/core/relay"
	"github.com/grouprk/vdl/internal/core/version"
	"golang.org/x/time/rate"
)

//go:embed web/index.html
var webFS embed.FS

// Response is the envelope used by the service endpoints (health, auth)
type Response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// Server is the HTTP gateway in front of the extraction backend
type Server struct {
	port       int
	apiKey     string
	signingKey []byte
	backend    *backend.Client
	relay      *relay.Relay
	limiter    *rate.Limiter
	server     *http.Server
	engine     *gin.Engine
}

// NewServer creates a gateway from cfg
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		port:    cfg.Server.Port,
		apiKey:  cfg.Server.APIKey,
		backend: backend.New(cfg.Backend.BaseURL),
		relay:   relay.New(cfg.Relay),
	}
	if s.apiKey != "" {
		s.signingKey = deriveSigningKey(s.apiKey)
	}
	if cfg.Server.RateLimit > 0 {
		burst := cfg.Server.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), burst)
	}
	return s
}

// Handler builds the gin engine once and returns it
func (s *Server) Handler() http.Handler {
	if s.engine != nil {
		return s.engine
	}

	s.engine = gin.New()

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestIDMiddleware())
	s.engine.Use(s.loggingMiddleware())
	if s.apiKey != "" {
		s.engine.Use(s.jwtAuthMiddleware())
	}

	s.engine.GET("/", s.handleIndex)

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	// Auth routes (don't require authentication)
	api.GET("/auth/status", s.handleAuthStatus)
	api.POST("/auth/token", s.handleGenerateToken)

	proxied := api.Group("")
	if s.limiter != nil {
		proxied.Use(s.rateLimitMiddleware())
	}
	proxied.POST("/info", wrap(s.handleInfo))
	proxied.POST("/download", wrap(s.handleDownload))
	proxied.POST("/download/stream", wrap(s.handleStreamDownload))
	proxied.POST("/proxy-download", wrap(s.handleProxyDownload))

	return s.engine
}

// Start starts the HTTP server
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // relayed media can take arbitrarily long
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting vdl gateway on port %d", s.port)
	log.Printf("Backend: %s", s.backend.BaseURL())
	if s.apiKey != "" {
		log.Printf("API key authentication enabled")
	}

	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handlers

func (s *Server) handleIndex(c *gin.Context) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, internalErrorMessage)
		return
	}
	s.setSessionCookie(c)
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code: 200,
		Data: gin.H{
			"status":  "ok",
			"version": version.Version,
		},
		Message: "everything is good",
	})
}

// handleInfo proxies metadata lookups to the backend
func (s *Server) handleInfo(c *gin.Context) error {
	var req media.InfoRequest
	if err := bindJSON(c, &req, "URL is required"); err != nil {
		return err
	}

	data, err := s.backend.Info(c.Request.Context(), req.URL)
	if err != nil {
		return err
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	return nil
}

// handleDownload returns the backend's resolved direct URL; it never streams bytes
func (s *Server) handleDownload(c *gin.Context) error {
	var req media.DownloadRequest
	if err := bindJSON(c, &req, "URL and format_id are required"); err != nil {
		return err
	}

	data, err := s.backend.ResolveDownload(c.Request.Context(), req.URL, req.FormatID)
	if err != nil {
		return err
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	return nil
}

// handleStreamDownload resolves a format and relays its bytes as an attachment
func (s *Server) handleStreamDownload(c *gin.Context) error {
	var req media.StreamRequest
	if err := bindJSON(c, &req, "URL and format_id are required"); err != nil {
		return err
	}

	data, err := s.backend.ResolveDownload(c.Request.Context(), req.URL, req.FormatID)
	if err != nil {
		return err
	}

	var resolved media.ResolvedDownload
	if err := json.Unmarshal(data, &resolved); err != nil {
		return fmt.Errorf("failed to decode resolved download: %w", err)
	}
	if resolved.DownloadURL == "" {
		return errMissingDownloadURL
	}

	filename := req.Filename
	if filename == "" {
		filename = resolved.Filename
	}

	stream, err := s.relay.Open(c.Request.Context(), resolved.DownloadURL)
	if err != nil {
		return err
	}
	defer stream.Close()

	c.DataFromReader(http.StatusOK, stream.ContentLength, stream.ContentType, stream.Body, map[string]string{
		"Content-Disposition": relay.AttachmentDisposition(filename),
	})
	return nil
}

// handleProxyDownload re-fetches a CDN URL with browser headers and returns it as an attachment.
// The whole body is buffered before responding.
func (s *Server) handleProxyDownload(c *gin.Context) error {
	var req media.RelayRequest
	if err := bindJSON(c, &req, "video_url is required"); err != nil {
		return err
	}

	m, err := s.relay.Fetch(c.Request.Context(), req.VideoURL)
	if err != nil {
		return err
	}

	c.Header("Content-Disposition", relay.AttachmentDisposition(req.Filename))
	c.Header("Content-Length", strconv.Itoa(len(m.Body)))
	c.Data(http.StatusOK, m.ContentType, m.Body)
	return nil
}
