package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"pong/internal/game"
)

// Handler methods for routerHandlers

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.game.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.game.GetSnapshot()
	writeJSON(w, map[string]interface{}{
		"tick":        snap.TickNumber,
		"running":     h.game.IsRunning(),
		"wallBounces": snap.WallBounces,
		"paddleHits":  snap.PaddleHits,
		"points":      snap.Points,
		"score": map[string]int{
			string(game.SidePlayer): snap.PlayerScore,
			string(game.SideAI):     snap.AIScore,
		},
		"streaming":   h.streamer.IsStreaming(),
		"streamStats": h.streamer.GetStats(),
	})
}

func (h *routerHandlers) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "Rendering disabled", http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := h.renderer.PNG(&buf, h.game.GetSnapshot()); err != nil {
		log.Printf("❌ Frame render failed: %v", err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	RecordRender(time.Since(start))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var in game.InputState
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	h.game.SetInput("http:"+GetClientIP(r), in)
	writeJSON(w, map[string]interface{}{"success": true, "input": in})
}

func (h *routerHandlers) handleUpdate(w http.ResponseWriter, r *http.Request) {
	// Metrics see the tick through the runner's OnTick hook.
	snap, err := h.game.ManualStep()
	if errors.Is(err, game.ErrLoopRunning) {
		writeError(w, "Game loop is running", http.StatusConflict)
		return
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WinningScore int `json:"winningScore"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.game.Reset(req.WinningScore); err != nil {
		if errors.Is(err, game.ErrInvalidWinningScore) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.game.GetSnapshot())
}

func (h *routerHandlers) handleStreamStart(w http.ResponseWriter, r *http.Request) {
	log.Println("📡 Stream start requested via API")
	if err := h.streamer.Start(); err != nil {
		log.Printf("❌ Stream start failed: %v", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleStreamStop(w http.ResponseWriter, r *http.Request) {
	log.Println("📡 Stream stop requested via API")
	h.streamer.Stop()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleStreamStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.streamer.GetStats())
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
