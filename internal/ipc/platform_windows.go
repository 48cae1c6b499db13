//go:build windows

package ipc

// No Unix sockets here: a path setting falls back to the fixed loopback port.
func platformEndpoint(string) Endpoint {
	return Endpoint{Network: "tcp", Address: DefaultTCPAddr}
}
