// Package ipc carries game snapshots from the server to a separate streamer
// process over a Unix domain socket or loopback TCP.
package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	// DefaultSocketPath is the Unix socket path for IPC
	DefaultSocketPath = "/tmp/pong.sock"

	// DefaultTCPAddr replaces socket paths on Windows
	DefaultTCPAddr = "127.0.0.1:7070"

	// Message types
	MsgTypeSnapshot byte = 0x01
	MsgTypePing     byte = 0x02
	MsgTypePong     byte = 0x03
	MsgTypeConfig   byte = 0x04

	// Protocol version for compatibility checking
	ProtocolVersion uint16 = 1

	// Connection settings
	MaxMessageSize = 64 * 1024
	WriteTimeout   = 50 * time.Millisecond
	ReadTimeout    = 100 * time.Millisecond
	ReconnectDelay = 500 * time.Millisecond
)

// ConfigMessage tells a streamer how to size and pace its output.
// Sent once to every new client.
type ConfigMessage struct {
	Width   int
	Height  int
	FPS     int
	Bitrate int
}

// HeaderSize is version(2) + type(1) + reserved(1) + length(4)
const HeaderSize = 8

var encodeBuffers = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// WriteMessage writes one framed gob message. data may be nil for
// body-less messages such as ping.
func WriteMessage(w io.Writer, msgType byte, data interface{}) error {
	buf := encodeBuffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer encodeBuffers.Put(buf)

	// Header placeholder, patched once the body length is known
	buf.Write(make([]byte, HeaderSize))
	if data != nil {
		if err := gob.NewEncoder(buf).Encode(data); err != nil {
			return fmt.Errorf("gob encode: %w", err)
		}
	}

	frame := buf.Bytes()
	bodyLen := len(frame) - HeaderSize
	if bodyLen > MaxMessageSize {
		return fmt.Errorf("message too large: %d > %d", bodyLen, MaxMessageSize)
	}

	binary.LittleEndian.PutUint16(frame[0:2], ProtocolVersion)
	frame[2] = msgType
	frame[3] = 0
	binary.LittleEndian.PutUint32(frame[4:8], uint32(bodyLen))

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message and returns its type and raw body.
func ReadMessage(r io.Reader) (byte, []byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	if v := binary.LittleEndian.Uint16(header[0:2]); v != ProtocolVersion {
		return 0, nil, fmt.Errorf("version mismatch: got %d, want %d", v, ProtocolVersion)
	}

	length := binary.LittleEndian.Uint32(header[4:8])
	if length > MaxMessageSize {
		return 0, nil, fmt.Errorf("message too large: %d > %d", length, MaxMessageSize)
	}

	var body []byte
	if length > 0 {
		body = make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, nil, fmt.Errorf("read body: %w", err)
		}
	}
	return header[2], body, nil
}

// Decode unmarshals a gob body into v.
func Decode(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	return nil
}
