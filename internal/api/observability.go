package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"sync"
	"time"

	"pong/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded label values only
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in game tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_duration_seconds",
		Help:    "Time spent rendering a frame",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	scoreGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "game_score",
		Help: "Current match score",
	}, []string{"side"}) // "Player", "AI"

	pointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_points_total",
		Help: "Points scored",
	}, []string{"side"})

	matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_matches_total",
		Help: "Matches finished",
	}, []string{"winner"})

	wallBouncesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_wall_bounces_total",
		Help: "Ball reflections off the top and bottom walls",
	})

	paddleHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_paddle_hits_total",
		Help: "Ball reflections off a paddle",
	})

	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_events",
		Help: "Events accepted by the event log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped_events",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// endpoint is the chi route pattern, not the full URL
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket broadcasts sent",
	})
)

// EventLogStats is the part of game.EventLog the metrics read.
type EventLogStats interface {
	GetTotalCount() uint64
	GetDroppedCount() uint64
}

// eventLogSampleEvery is how many observed ticks pass between event log samples.
const eventLogSampleEvery = 60

// GameMetrics turns the cumulative counters in successive snapshots into
// Prometheus counters. Register Observe with Runner.OnTick.
type GameMetrics struct {
	mu       sync.Mutex
	last     game.GameSnapshot
	seen     bool
	samples  int
	eventLog EventLogStats
}

// NewGameMetrics creates an observer. eventLog may be nil.
func NewGameMetrics(eventLog EventLogStats) *GameMetrics {
	return &GameMetrics{eventLog: eventLog}
}

// Observe records one tick. A zero duration skips the tick histogram.
func (m *GameMetrics) Observe(d time.Duration, snap game.GameSnapshot) {
	if d > 0 {
		RecordTick(d)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	scoreGauge.WithLabelValues(string(game.SidePlayer)).Set(float64(snap.PlayerScore))
	scoreGauge.WithLabelValues(string(game.SideAI)).Set(float64(snap.AIScore))

	if m.seen {
		if n := snap.WallBounces - m.last.WallBounces; snap.WallBounces > m.last.WallBounces {
			wallBouncesTotal.Add(float64(n))
		}
		if n := snap.PaddleHits - m.last.PaddleHits; snap.PaddleHits > m.last.PaddleHits {
			paddleHitsTotal.Add(float64(n))
		}
		if snap.PlayerScore > m.last.PlayerScore {
			pointsTotal.WithLabelValues(string(game.SidePlayer)).Add(float64(snap.PlayerScore - m.last.PlayerScore))
		}
		if snap.AIScore > m.last.AIScore {
			pointsTotal.WithLabelValues(string(game.SideAI)).Add(float64(snap.AIScore - m.last.AIScore))
		}
		if snap.GameOver && !m.last.GameOver {
			matchesTotal.WithLabelValues(string(snap.Winner)).Inc()
		}
	}
	m.last = snap
	m.seen = true

	if m.eventLog != nil {
		m.samples++
		if m.samples%eventLogSampleEvery == 0 {
			UpdateEventLogStats(m.eventLog.GetTotalCount(), m.eventLog.GetDroppedCount())
		}
	}
}

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // Must stay on localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugHandler returns the debug mux: pprof, /metrics and /health.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server in the background.
// pprof can be used for DoS, so the listener is forced onto localhost unless
// ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg ObservabilityConfig) *http.Server {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           DebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records tick timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// RecordRender records render timing for metrics
func RecordRender(duration time.Duration) {
	renderDuration.Observe(duration.Seconds())
}

// UpdateEventLogStats sets the event log gauges
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
