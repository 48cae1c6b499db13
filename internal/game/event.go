package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown    EventType = iota
	EventTypeTick                 // Sampled tick with ball position
	EventTypeWallBounce           // Ball reflected off top/bottom wall
	EventTypePaddleHit            // Ball reflected off a paddle
	EventTypeScore                // Ball left the field, point awarded
	EventTypeGameOver             // Winning score reached
	EventTypeReset                // New match started
	EventTypeInput                // Held-key state changed
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`
	Source    string          `json:"source"` // "engine" or the client that sent input (rate limit key)
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeWallBounce:
		return "wall_bounce"
	case EventTypePaddleHit:
		return "paddle_hit"
	case EventTypeScore:
		return "score"
	case EventTypeGameOver:
		return "game_over"
	case EventTypeReset:
		return "reset"
	case EventTypeInput:
		return "input"
	default:
		return "unknown"
	}
}

// MarshalText writes the event type by name in the JSONL log.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads for different event types

// TickPayload samples the ball position
type TickPayload struct {
	BallX float64 `json:"ballX"`
	BallY float64 `json:"ballY"`
}

// BouncePayload is shared by wall and paddle bounces
type BouncePayload struct {
	BallX float64 `json:"ballX"`
	BallY float64 `json:"ballY"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
}

// ScorePayload contains the point winner and the new score
type ScorePayload struct {
	Scorer      Side `json:"scorer"`
	PlayerScore int  `json:"playerScore"`
	AIScore     int  `json:"aiScore"`
}

// GameOverPayload contains the final result
type GameOverPayload struct {
	Winner       Side `json:"winner"`
	PlayerScore  int  `json:"playerScore"`
	AIScore      int  `json:"aiScore"`
	WinningScore int  `json:"winningScore"`
}

// ResetPayload contains the new match threshold
type ResetPayload struct {
	WinningScore int `json:"winningScore"`
}

// InputPayload contains the new held-key state
type InputPayload struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, source string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
