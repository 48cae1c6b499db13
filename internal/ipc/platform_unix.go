//go:build !windows

package ipc

func platformEndpoint(socketPath string) Endpoint {
	return Endpoint{Network: "unix", Address: socketPath}
}
