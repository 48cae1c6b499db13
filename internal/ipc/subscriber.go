package ipc

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"pong/internal/game"
)

// Subscriber receives snapshots from a Publisher, reconnecting until Stop.
// It implements streaming.SnapshotSource.
type Subscriber struct {
	endpoint Endpoint
	conn     net.Conn
	connMu   sync.Mutex

	latest atomic.Pointer[game.GameSnapshot]

	config   ConfigMessage
	configMu sync.RWMutex
	configCh chan ConfigMessage

	snapshotsReceived atomic.Int64
	reconnects        atomic.Int64
	errors            atomic.Int64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Callbacks, set before Start
	onSnapshot   func(game.GameSnapshot)
	onConnect    func()
	onDisconnect func()
}

// NewSubscriber creates a subscriber. An empty path uses DefaultSocketPath;
// a host:port value uses TCP.
func NewSubscriber(socketPath string) *Subscriber {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Subscriber{
		endpoint: ResolveEndpoint(socketPath),
		configCh: make(chan ConfigMessage, 1),
		stopCh:   make(chan struct{}),
	}
}

// OnSnapshot sets a callback run on the read goroutine for every snapshot.
func (s *Subscriber) OnSnapshot(fn func(game.GameSnapshot)) {
	s.onSnapshot = fn
}

// OnConnect sets a callback for when connection is established
func (s *Subscriber) OnConnect(fn func()) {
	s.onConnect = fn
}

// OnDisconnect sets a callback for when connection is lost
func (s *Subscriber) OnDisconnect(fn func()) {
	s.onDisconnect = fn
}

// Start begins connecting in the background.
func (s *Subscriber) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}

	s.wg.Add(1)
	go s.connectionLoop()

	log.Printf("📡 IPC Subscriber started, connecting to %s", s.endpoint)
}

// Stop disconnects and waits for the read goroutine.
func (s *Subscriber) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	log.Println("📡 IPC Subscriber stopped")
}

// Latest returns the most recent snapshot, or false before the first one.
func (s *Subscriber) Latest() (game.GameSnapshot, bool) {
	if p := s.latest.Load(); p != nil {
		return *p, true
	}
	return game.GameSnapshot{}, false
}

// GetSnapshot returns the latest snapshot. Before the first one arrives it
// returns an empty field of the configured size.
func (s *Subscriber) GetSnapshot() game.GameSnapshot {
	if snap, ok := s.Latest(); ok {
		return snap
	}
	cfg := s.GetConfig()
	return game.GameSnapshot{Width: float64(cfg.Width), Height: float64(cfg.Height)}
}

// GetConfig returns the last config received
func (s *Subscriber) GetConfig() ConfigMessage {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config
}

// WaitForConfig blocks until config is received, the timeout passes or Stop.
func (s *Subscriber) WaitForConfig(timeout time.Duration) (ConfigMessage, bool) {
	select {
	case cfg := <-s.configCh:
		return cfg, true
	case <-time.After(timeout):
		return ConfigMessage{}, false
	case <-s.stopCh:
		return ConfigMessage{}, false
	}
}

// GetStats returns subscriber statistics
func (s *Subscriber) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"received":   s.snapshotsReceived.Load(),
		"reconnects": s.reconnects.Load(),
		"errors":     s.errors.Load(),
		"connected":  s.IsConnected(),
	}
}

// IsConnected returns whether the subscriber is connected
func (s *Subscriber) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

func (s *Subscriber) connectionLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.endpoint.Dial()
		if err != nil {
			if !s.sleep(ReconnectDelay) {
				return
			}
			continue
		}

		s.connMu.Lock()
		if !s.running.Load() {
			s.connMu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.connMu.Unlock()

		log.Printf("✅ Connected to server at %s", s.endpoint)
		if s.onConnect != nil {
			s.onConnect()
		}

		s.readLoop(conn)

		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		conn.Close()

		if s.onDisconnect != nil {
			s.onDisconnect()
		}
		s.reconnects.Add(1)

		if !s.sleep(ReconnectDelay) {
			return
		}
	}
}

// sleep waits d and reports false if Stop was called meanwhile.
func (s *Subscriber) sleep(d time.Duration) bool {
	select {
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

func (s *Subscriber) readLoop(conn net.Conn) {
	for s.running.Load() {
		conn.SetReadDeadline(time.Now().Add(ReadTimeout))

		msgType, data, err := ReadMessage(conn)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				// The server is idle between ticks while paused
				continue
			case errors.Is(err, io.EOF):
				log.Println("🔌 Server closed connection")
			default:
				if s.running.Load() {
					log.Printf("⚠️ IPC read error: %v", err)
					s.errors.Add(1)
				}
			}
			return
		}

		switch msgType {
		case MsgTypeSnapshot:
			s.handleSnapshot(data)
		case MsgTypeConfig:
			s.handleConfig(data)
		case MsgTypePing:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			WriteMessage(conn, MsgTypePong, nil)
		}
	}
}

func (s *Subscriber) handleSnapshot(data []byte) {
	var snap game.GameSnapshot
	if err := Decode(data, &snap); err != nil {
		log.Printf("⚠️ Failed to decode snapshot: %v", err)
		s.errors.Add(1)
		return
	}

	s.latest.Store(&snap)
	s.snapshotsReceived.Add(1)

	if s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
}

func (s *Subscriber) handleConfig(data []byte) {
	var cfg ConfigMessage
	if err := Decode(data, &cfg); err != nil {
		log.Printf("⚠️ Failed to decode config: %v", err)
		s.errors.Add(1)
		return
	}

	s.configMu.Lock()
	s.config = cfg
	s.configMu.Unlock()

	log.Printf("📺 Received stream config: %dx%d @ %d FPS, %dk bitrate",
		cfg.Width, cfg.Height, cfg.FPS, cfg.Bitrate)

	select {
	case s.configCh <- cfg:
	default:
	}
}
