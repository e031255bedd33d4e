// Package server exposes the plate recognition pipeline over HTTP and
// WebSocket endpoints.
package server

import (
	"context"
	"image"
	"net/http"

	"github.com/MeKo-Tech/platekit/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// frameProcessor defines the methods the server needs from a pipeline.
type frameProcessor interface {
	ProcessFrameContext(ctx context.Context, img image.Image) (*pipeline.FrameResult, error)
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    frameProcessor
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	PipelineConfig pipeline.Config
	RateLimit      *RateLimitConfig // nil disables rate limiting
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the JSON error envelope for failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// PlatesResponse wraps a frame result for the plates endpoint.
type PlatesResponse struct {
	Success bool                  `json:"success"`
	Result  *pipeline.FrameResult `json:"result"`
}

// NewServer creates a plate recognition server, loading both models.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().WithConfig(config.PipelineConfig).Build()
	if err != nil {
		return nil, err
	}
	return newServerWith(pl, config), nil
}

// newServerWith assembles a server around an existing pipeline.
// Split out so tests can inject fakes.
func newServerWith(p frameProcessor, config Config) *Server {
	var limiter *RateLimiter
	if rl := config.RateLimit; rl != nil {
		limiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return &Server{
		pipeline:    p,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		rateLimiter: limiter,
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/v1/plates", s.corsMiddleware(s.rateLimitMiddleware(s.platesHandler)))
	mux.HandleFunc("/v1/stream", s.streamHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
