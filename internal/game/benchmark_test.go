package game

import (
	"bytes"
	"testing"

	"pong/internal/config"
)

// Run with: go test -bench=. -benchmem ./internal/game/...

func BenchmarkEngineUpdate(b *testing.B) {
	e := newTestEngine()
	in := InputState{Up: true}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.HandleInput(in)
		e.Update()
		if e.GameOver {
			e.ResetGame(5)
		}
	}
}

func BenchmarkEngineSnapshot(b *testing.B) {
	e := newTestEngine()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Snapshot()
	}
}

func BenchmarkRunnerStep(b *testing.B) {
	r := NewRunner(newTestEngine(), RunnerConfig{TickRate: 60, Rules: config.DefaultGame()})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Step()
	}
}

func BenchmarkRunnerGetSnapshotParallel(b *testing.B) {
	r := NewRunner(newTestEngine(), RunnerConfig{TickRate: 60, Rules: config.DefaultGame()})

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = r.GetSnapshot()
		}
	})
}

func BenchmarkEventLogEmit(b *testing.B) {
	el := NewEventLog()
	el.StartWriter(&bytes.Buffer{})
	defer el.Stop()

	payload := BouncePayload{BallX: 400, BallY: 300, DX: 7, DY: -7}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		el.EmitSimple(EventTypeWallBounce, uint64(i), "", payload)
	}
}
