package ipc

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// DialTimeout bounds a single connection attempt by the subscriber.
const DialTimeout = time.Second

// Endpoint is the address the publisher listens on and the subscriber dials.
type Endpoint struct {
	Network string // "unix" or "tcp"
	Address string
}

// ResolveEndpoint turns an IPC_SOCKET value into an endpoint. A host:port
// value selects TCP everywhere. Anything else is a socket path, which the
// platform may replace when it has no Unix sockets.
func ResolveEndpoint(socket string) Endpoint {
	if isTCPAddress(socket) {
		return Endpoint{Network: "tcp", Address: socket}
	}
	return platformEndpoint(socket)
}

func isTCPAddress(s string) bool {
	if strings.ContainsAny(s, `/\`) {
		return false
	}
	_, port, err := net.SplitHostPort(s)
	if err != nil {
		return false
	}
	_, err = strconv.Atoi(port)
	return err == nil
}

func (e Endpoint) String() string {
	return e.Network + ":" + e.Address
}

func (e Endpoint) isSocketFile() bool {
	return e.Network == "unix"
}

// Listen opens the endpoint. A stale socket file left by a crashed server
// is removed first.
func (e Endpoint) Listen() (net.Listener, error) {
	if e.isSocketFile() {
		if err := e.Cleanup(); err != nil {
			return nil, fmt.Errorf("cleanup socket: %w", err)
		}
	}

	listener, err := net.Listen(e.Network, e.Address)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", e, err)
	}

	// Streamer may run as another user
	if e.isSocketFile() {
		if err := os.Chmod(e.Address, 0666); err != nil {
			listener.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
	}
	return listener, nil
}

// Dial makes one connection attempt.
func (e Endpoint) Dial() (net.Conn, error) {
	return net.DialTimeout(e.Network, e.Address, DialTimeout)
}

// Cleanup removes the socket file, if any. TCP endpoints have nothing to remove.
func (e Endpoint) Cleanup() error {
	if !e.isSocketFile() {
		return nil
	}
	if err := os.Remove(e.Address); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
