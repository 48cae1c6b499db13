package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// ServerConfig holds the API server dependencies.
type ServerConfig struct {
	Game        GameInterface
	Streamer    StreamerInterface
	Renderer    FrameRenderer
	CORSOrigins []string
}

// Server is the HTTP API server with WebSocket support.
type Server struct {
	game        GameInterface
	streamer    StreamerInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates the API server. Background workers do not start until
// Start is called, so tests can use Router() directly.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		game:        cfg.Game,
		streamer:    cfg.Streamer,
		wsHub:       NewWebSocketHub(cfg.Game, cfg.Streamer, cfg.CORSOrigins),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Game:        cfg.Game,
		Streamer:    cfg.Streamer,
		Renderer:    cfg.Renderer,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	// Needs the hub instance, so not part of NewRouter
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start runs the hub and serves HTTP on addr until Shutdown.
// Returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🏓 State: http://localhost%s/api/state", addr)
	log.Printf("🖼️  Frame: http://localhost%s/api/frame.png", addr)

	return srv.ListenAndServe()
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops background workers and drains HTTP connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	s.rateLimiter.Stop()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
