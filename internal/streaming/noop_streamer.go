package streaming

// NoOpStreamer stands in for StreamManager when no stream key is configured,
// so the API keeps its stream endpoints without an FFmpeg dependency.
type NoOpStreamer struct {
	message string
}

// NewNoOpStreamer creates a disabled streamer.
func NewNoOpStreamer() *NoOpStreamer {
	return &NoOpStreamer{
		message: "Streaming disabled: set STREAM_KEY to enable RTMP output",
	}
}

// Start is a no-op.
func (n *NoOpStreamer) Start() error {
	return nil
}

// Stop is a no-op.
func (n *NoOpStreamer) Stop() {}

// IsStreaming always returns false.
func (n *NoOpStreamer) IsStreaming() bool {
	return false
}

// GetStats reports the disabled state.
func (n *NoOpStreamer) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"streaming":  false,
		"mode":       "disabled",
		"message":    n.message,
		"framesSent": 0,
		"uptime":     "0s",
	}
}
