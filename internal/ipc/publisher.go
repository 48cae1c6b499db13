package ipc

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"pong/internal/game"
)

// Publisher serves game snapshots to connected streamers.
type Publisher struct {
	endpoint Endpoint
	listener net.Listener

	clients   map[net.Conn]struct{}
	clientsMu sync.RWMutex

	// Bounded queue, oldest snapshot dropped when full
	snapshotCh chan game.GameSnapshot

	config   ConfigMessage
	configMu sync.RWMutex

	clientCount   atomic.Int32
	snapshotsSent atomic.Int64
	droppedFrames atomic.Int64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPublisher creates a publisher. An empty path uses DefaultSocketPath;
// a host:port value uses TCP.
func NewPublisher(socketPath string) *Publisher {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Publisher{
		endpoint:   ResolveEndpoint(socketPath),
		clients:    make(map[net.Conn]struct{}),
		snapshotCh: make(chan game.GameSnapshot, 8),
		stopCh:     make(chan struct{}),
	}
}

// SetConfig sets the stream settings sent to each new client.
func (p *Publisher) SetConfig(cfg ConfigMessage) {
	p.configMu.Lock()
	p.config = cfg
	p.configMu.Unlock()
}

// Start listens and begins broadcasting.
func (p *Publisher) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}

	listener, err := p.endpoint.Listen()
	if err != nil {
		p.running.Store(false)
		return err
	}
	p.listener = listener

	p.wg.Add(2)
	go p.acceptLoop()
	go p.broadcastLoop()

	log.Printf("📡 IPC Publisher started on %s", p.endpoint)
	return nil
}

// Stop closes the listener and every client.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	close(p.stopCh)
	p.listener.Close()

	p.clientsMu.Lock()
	for conn := range p.clients {
		conn.Close()
	}
	p.clients = make(map[net.Conn]struct{})
	p.clientCount.Store(0)
	p.clientsMu.Unlock()

	p.wg.Wait()

	if err := p.endpoint.Cleanup(); err != nil {
		log.Printf("⚠️ IPC socket cleanup failed: %v", err)
	}
	log.Println("📡 IPC Publisher stopped")
}

// PublishSnapshot queues snap for broadcast without blocking the game tick.
// Matches the Runner.OnTick signature's snapshot argument.
func (p *Publisher) PublishSnapshot(snap game.GameSnapshot) {
	if !p.running.Load() {
		return
	}

	select {
	case p.snapshotCh <- snap:
		return
	default:
	}

	// Full: drop the oldest and retry once
	select {
	case <-p.snapshotCh:
		p.droppedFrames.Add(1)
	default:
	}
	select {
	case p.snapshotCh <- snap:
	default:
		p.droppedFrames.Add(1)
	}
}

// GetStats returns publisher statistics
func (p *Publisher) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"clients": p.clientCount.Load(),
		"sent":    p.snapshotsSent.Load(),
		"dropped": p.droppedFrames.Load(),
	}
}

// ClientCount returns the number of connected streamers
func (p *Publisher) ClientCount() int {
	return int(p.clientCount.Load())
}

func (p *Publisher) acceptLoop() {
	defer p.wg.Done()

	for {
		conn, err := p.listener.Accept()
		if err != nil {
			if !p.running.Load() {
				return
			}
			log.Printf("⚠️ IPC accept error: %v", err)
			continue
		}
		p.addClient(conn)
	}
}

func (p *Publisher) addClient(conn net.Conn) {
	p.configMu.RLock()
	cfg := p.config
	p.configMu.RUnlock()

	// Config goes out before the client joins the broadcast set so it is
	// always the first message on the wire.
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := WriteMessage(conn, MsgTypeConfig, cfg); err != nil {
		log.Printf("⚠️ Failed to send config to streamer: %v", err)
		conn.Close()
		return
	}

	p.clientsMu.Lock()
	if !p.running.Load() {
		p.clientsMu.Unlock()
		conn.Close()
		return
	}
	p.clients[conn] = struct{}{}
	count := p.clientCount.Add(1)
	p.clientsMu.Unlock()

	log.Printf("✅ Streamer connected (total: %d)", count)
}

func (p *Publisher) removeClient(conn net.Conn) {
	p.clientsMu.Lock()
	_, ok := p.clients[conn]
	if ok {
		delete(p.clients, conn)
	}
	p.clientsMu.Unlock()

	if ok {
		conn.Close()
		log.Printf("🔌 Streamer disconnected (remaining: %d)", p.clientCount.Add(-1))
	}
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case snap := <-p.snapshotCh:
			p.broadcast(snap)
		}
	}
}

func (p *Publisher) broadcast(snap game.GameSnapshot) {
	p.clientsMu.RLock()
	clients := make([]net.Conn, 0, len(p.clients))
	for conn := range p.clients {
		clients = append(clients, conn)
	}
	p.clientsMu.RUnlock()

	if len(clients) == 0 {
		return
	}

	var failed []net.Conn
	for _, conn := range clients {
		conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := WriteMessage(conn, MsgTypeSnapshot, snap); err != nil {
			failed = append(failed, conn)
		}
	}
	for _, conn := range failed {
		p.removeClient(conn)
	}

	if len(failed) < len(clients) {
		p.snapshotsSent.Add(1)
	}
}
