package api

import (
	"testing"

	"pong/internal/game"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeEventLog struct{ total, dropped uint64 }

func (f fakeEventLog) GetTotalCount() uint64   { return f.total }
func (f fakeEventLog) GetDroppedCount() uint64 { return f.dropped }

func TestGameMetricsObserveDeltas(t *testing.T) {
	m := NewGameMetrics(nil)

	wallBefore := testutil.ToFloat64(wallBouncesTotal)
	pointsBefore := testutil.ToFloat64(pointsTotal.WithLabelValues("AI"))
	matchesBefore := testutil.ToFloat64(matchesTotal.WithLabelValues("AI"))

	// First observation only establishes the baseline
	m.Observe(0, game.GameSnapshot{WallBounces: 10, AIScore: 2})
	if got := testutil.ToFloat64(wallBouncesTotal) - wallBefore; got != 0 {
		t.Errorf("Baseline should not count, got %v", got)
	}

	m.Observe(0, game.GameSnapshot{WallBounces: 13, AIScore: 3, WinningScore: 3, GameOver: true, Winner: game.SideAI})
	if got := testutil.ToFloat64(wallBouncesTotal) - wallBefore; got != 3 {
		t.Errorf("Expected 3 wall bounces, got %v", got)
	}
	if got := testutil.ToFloat64(pointsTotal.WithLabelValues("AI")) - pointsBefore; got != 1 {
		t.Errorf("Expected 1 AI point, got %v", got)
	}
	if got := testutil.ToFloat64(matchesTotal.WithLabelValues("AI")) - matchesBefore; got != 1 {
		t.Errorf("Expected 1 AI match, got %v", got)
	}
	if got := testutil.ToFloat64(scoreGauge.WithLabelValues("AI")); got != 3 {
		t.Errorf("Expected AI score gauge 3, got %v", got)
	}

	// A reset drops the score; counters must not go backwards
	m.Observe(0, game.GameSnapshot{WallBounces: 13})
	m.Observe(0, game.GameSnapshot{WallBounces: 13})
	if got := testutil.ToFloat64(matchesTotal.WithLabelValues("AI")) - matchesBefore; got != 1 {
		t.Errorf("Reset should not count a match, got %v", got)
	}
}

func TestGameMetricsEventLogSampling(t *testing.T) {
	m := NewGameMetrics(fakeEventLog{total: 42, dropped: 7})

	for i := 0; i < eventLogSampleEvery; i++ {
		m.Observe(0, game.GameSnapshot{})
	}

	if got := testutil.ToFloat64(eventLogTotal); got != 42 {
		t.Errorf("Expected event log total 42, got %v", got)
	}
	if got := testutil.ToFloat64(eventLogDropped); got != 7 {
		t.Errorf("Expected 7 dropped, got %v", got)
	}
}

func TestMatchOrigin(t *testing.T) {
	tests := []struct {
		pattern, origin string
		want            bool
	}{
		{"*", "https://anything", true},
		{"http://localhost", "HTTP://LOCALHOST", true},
		{"http://localhost:*", "http://localhost:8080", true},
		{"http://localhost:*", "http://localhost", false},
		{"https://*.example.com", "https://example.com", false},
		{"https://*.example.com", "https://a.example.com", true},
	}
	for _, tt := range tests {
		if got := matchOrigin(tt.pattern, tt.origin); got != tt.want {
			t.Errorf("matchOrigin(%q, %q) = %v, want %v", tt.pattern, tt.origin, got, tt.want)
		}
	}
}
