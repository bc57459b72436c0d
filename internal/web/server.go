// Package web exposes computed time regions over HTTP: JSON for chart
// front-ends, an iCalendar export and an SVG/PNG preview.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"regionmark/internal/config"
	"regionmark/internal/ics"
	appLog "regionmark/internal/log"
)

const (
	regionsCacheSize = 256
	regionsCacheTTL  = 30 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// Server provides the HTTP API.
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	fetcher *ics.Fetcher
	now     func() time.Time

	// Parsed calendar events keyed by CalendarSource.Key(), replaced on
	// every RefreshCalendars.
	calMu     sync.RWMutex
	calEvents map[string][]ics.Event
	calGen    uint64

	// /api/regions responses keyed by calendar generation, window and theme.
	regions *expirable.LRU[string, RegionsResponse]
	limiter *rateLimiter
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithHTTPClient sets the client used to fetch calendar feeds.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.fetcher = ics.NewFetcher(s.cfg.CacheDir, c) }
}

// NewServer constructs a new Server. cfg must be normalized.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		now:       time.Now,
		calEvents: make(map[string][]ics.Event),
		regions:   expirable.NewLRU[string, RegionsResponse](regionsCacheSize, nil, regionsCacheTTL),
	}
	s.fetcher = ics.NewFetcher(cfg.CacheDir, nil)
	if cfg.RateLimitPerMin > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitPerMin)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with auth and rate limiting applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.limiter != nil {
		h = s.rateLimitMiddleware(h)
	}
	if s.basicAuthEnabled() {
		h = s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/regions", s.handleRegions)
	s.mux.HandleFunc("GET /api/rules", s.handleRules)
	s.mux.HandleFunc("GET /api/color-modes", s.handleColorModes)
	s.mux.HandleFunc("GET /regions.ics", s.handleExport)
	s.mux.HandleFunc("GET /preview", s.handlePreview)
	s.mux.HandleFunc("GET /preview.png", s.handlePreviewPNG)
}

// ListenAndServe binds cfg.Listen and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP shutdown failed", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String(), "auth", s.basicAuthEnabled())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}
