// Package config provides centralized configuration management.
// Every frontend (desktop window, headless server, streamer) reads its
// screen, game, audio and server settings from here.
//
// Environment variables override the defaults; cmd/* load a .env file
// before calling Load.
package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// SCREEN CONFIGURATION
// =============================================================================

// ScreenConfig holds the playfield size and frame rate.
// The same values drive the game tick, the renderer and the stream encoder.
type ScreenConfig struct {
	Width  int // Playfield width in pixels
	Height int // Playfield height in pixels
	FPS    int // Frames per second (also the game tick rate)
}

// DefaultScreen returns the default screen configuration.
func DefaultScreen() ScreenConfig {
	return ScreenConfig{
		Width:  800,
		Height: 600,
		FPS:    60,
	}
}

// ScreenFromEnv returns screen configuration with environment variable overrides.
func ScreenFromEnv() ScreenConfig {
	cfg := DefaultScreen()

	if w := getEnvInt("SCREEN_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("SCREEN_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if fps := getEnvInt("GAME_FPS", 0); fps > 0 {
		cfg.FPS = fps
	}

	return cfg
}

// =============================================================================
// GAME RULES
// =============================================================================

// GameConfig holds paddle, ball and match settings.
type GameConfig struct {
	PaddleWidth  float64
	PaddleHeight float64
	PaddleMargin float64 // Distance of the player paddle from the left edge
	PlayerSpeed  float64 // Pixels per input tick
	AISpeed      float64 // Max pixels per tick for the AI paddle; <= 0 follows the ball directly

	BallRadius float64
	BallSpeed  float64 // Per-axis speed after a reset

	WinningScore         int   // Threshold used on startup
	AllowedWinningScores []int // Thresholds accepted by a replay request
}

// DefaultGame returns the classic rules: first to 5, replay as best of 3, 5 or 7.
func DefaultGame() GameConfig {
	return GameConfig{
		PaddleWidth:          10,
		PaddleHeight:         100,
		PaddleMargin:         10,
		PlayerSpeed:          10,
		AISpeed:              6,
		BallRadius:           7,
		BallSpeed:            7,
		WinningScore:         5,
		AllowedWinningScores: []int{3, 5, 7},
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if v := getEnvFloat("AI_SPEED", -1); v >= 0 {
		cfg.AISpeed = v
	}
	if v := getEnvFloat("BALL_SPEED", 0); v > 0 {
		cfg.BallSpeed = v
	}
	if v := getEnvFloat("PLAYER_SPEED", 0); v > 0 {
		cfg.PlayerSpeed = v
	}
	if v := getEnvInt("WINNING_SCORE", 0); v > 0 {
		cfg.WinningScore = v
	}
	if scores := getEnvIntList("ALLOWED_WINNING_SCORES"); len(scores) > 0 {
		cfg.AllowedWinningScores = scores
	}

	return cfg
}

// IsAllowedWinningScore reports whether score is an accepted replay threshold.
func (c GameConfig) IsAllowedWinningScore(score int) bool {
	for _, s := range c.AllowedWinningScores {
		if s == score {
			return true
		}
	}
	return false
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds sound effect and mixer settings.
// Every asset is optional: a missing file only disables that sound.
type AudioConfig struct {
	SampleRate int     // Mixer sample rate in Hz
	Channels   int     // Number of audio channels (1=mono, 2=stereo)
	Volume     float64 // Effects volume (0.0 to 1.0)
	Enabled    bool    // Whether sound effects are loaded at all

	SoundsDir   string // Directory holding the effect WAV files
	PaddleSound string
	WallSound   string
	ScoreSound  string

	MusicPath   string  // Optional OGG Vorbis background loop (stream only)
	MusicVolume float64 // Background music volume (0.0 to 1.0)
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		SampleRate:  44100,
		Channels:    2, // Stereo
		Volume:      1.0,
		Enabled:     true,
		SoundsDir:   ".",
		PaddleSound: "paddle_hit.wav",
		WallSound:   "wall_bounce.wav",
		ScoreSound:  "score.wav",
		MusicVolume: 0.15,
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if v := getEnvFloat("SOUND_VOLUME", -1); v >= 0 {
		cfg.Volume = v
	}
	if os.Getenv("SOUND_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if dir := os.Getenv("SOUNDS_DIR"); dir != "" {
		cfg.SoundsDir = dir
	}
	if p := os.Getenv("MUSIC_PATH"); p != "" {
		cfg.MusicPath = p
	}
	if v := getEnvFloat("MUSIC_VOLUME", -1); v >= 0 {
		cfg.MusicVolume = v
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	EventLogPath string   // Empty disables the JSONL event log file
	CORSOrigins  []string // nil uses the router defaults
	DebugServer  bool     // pprof + /metrics on localhost
	IPCSocket    string   // Snapshot feed for cmd/streamer; empty disables it
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		EventLogPath: "events.jsonl",
		DebugServer:  true,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = v
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugServer = false
	}
	cfg.IPCSocket = strings.TrimSpace(os.Getenv("IPC_SOCKET"))

	return cfg
}

// IPCEnabled reports whether the server publishes snapshots for cmd/streamer.
// Both processes read the same IPC_SOCKET, so there is no implicit default.
func (c ServerConfig) IPCEnabled() bool {
	return c.IPCSocket != ""
}

// =============================================================================
// STREAM CONFIGURATION
// =============================================================================

// StreamConfig holds the optional RTMP output settings.
type StreamConfig struct {
	RTMPURL   string
	StreamKey string
	Bitrate   int // kbps
	FontPath  string
}

// DefaultStream returns the default stream configuration (no stream key).
func DefaultStream() StreamConfig {
	return StreamConfig{
		RTMPURL: "rtmp://localhost/live",
		Bitrate: 2500,
	}
}

// StreamFromEnv returns stream configuration with environment variable overrides.
func StreamFromEnv() StreamConfig {
	cfg := DefaultStream()

	if u := os.Getenv("RTMP_URL"); u != "" {
		cfg.RTMPURL = u
	}
	cfg.StreamKey = os.Getenv("STREAM_KEY")
	if br := getEnvInt("STREAM_BITRATE", 0); br > 0 {
		cfg.Bitrate = br
	}
	cfg.FontPath = os.Getenv("FONT_PATH")

	return cfg
}

// Enabled reports whether a stream destination is configured.
func (c StreamConfig) Enabled() bool {
	return c.StreamKey != ""
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Screen ScreenConfig
	Game   GameConfig
	Audio  AudioConfig
	Server ServerConfig
	Stream StreamConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Screen: ScreenFromEnv(),
		Game:   GameFromEnv(),
		Audio:  AudioFromEnv(),
		Server: ServerFromEnv(),
		Stream: StreamFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvIntList parses "3,5,7". Any invalid or non-positive entry discards the whole list.
func getEnvIntList(key string) []int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := splitList(v)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil || i <= 0 {
			return nil
		}
		out = append(out, i)
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
