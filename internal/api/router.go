package api

import (
	"io"
	"net/http"
	"time"

	"pong/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// GameInterface defines the game methods used by the API.
// *game.Runner implements it; tests use a mock.
type GameInterface interface {
	// GetSnapshot returns the latest lock-free immutable snapshot
	GetSnapshot() game.GameSnapshot
	// SetInput latches the held keys for the player paddle
	SetInput(source string, in game.InputState)
	// ManualStep advances one tick (update) unless the loop is running
	ManualStep() (game.GameSnapshot, error)
	// Reset starts a new match to winningScore points
	Reset(winningScore int) error
	// IsRunning reports whether the fixed-rate loop is ticking
	IsRunning() bool
}

// StreamerInterface defines the streamer methods used by the API.
type StreamerInterface interface {
	Start() error
	Stop()
	IsStreaming() bool
	GetStats() map[string]interface{}
}

// FrameRenderer renders a snapshot as PNG. *render.Renderer implements it.
type FrameRenderer interface {
	PNG(w io.Writer, snap game.GameSnapshot) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Game:     mockGame,
//	    Streamer: mockStreamer,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	ts := httptest.NewServer(api.NewRouter(cfg))
type RouterConfig struct {
	// Game is the running match (required)
	Game GameInterface

	// Streamer is the stream manager (required; use streaming.NoOpStreamer when disabled)
	Streamer StreamerInterface

	// Renderer backs GET /api/frame.png. nil answers 503.
	Renderer FrameRenderer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	// If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides DefaultAllowedOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	game     GameInterface
	streamer StreamerInterface
	renderer FrameRenderer
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It opens no listeners, so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		game:     cfg.Game,
		streamer: cfg.Streamer,
		renderer: cfg.Renderer,
	}

	r.Route("/api", func(r chi.Router) {
		// Game
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/frame.png", h.handleFramePNG)
		r.Post("/input", h.handleInput)
		r.Post("/update", h.handleUpdate)
		r.Post("/reset", h.handleReset)

		// Stream control
		r.Post("/stream/start", h.handleStreamStart)
		r.Post("/stream/stop", h.handleStreamStop)
		r.Get("/stream/status", h.handleStreamStatus)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}

// metricsMiddleware records latency per chi route pattern (bounded labels).
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
