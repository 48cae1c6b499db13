package game

import (
	"sync"
	"testing"
)

func TestSnapshotPoolPublish(t *testing.T) {
	p := NewSnapshotPool()
	if p.Latest() != nil {
		t.Fatal("Empty pool should return nil")
	}

	p.Publish(GameSnapshot{TickNumber: 1})
	p.Publish(GameSnapshot{TickNumber: 2})

	latest := p.Latest()
	if latest.TickNumber != 2 || latest.Sequence != 2 {
		t.Errorf("Unexpected latest snapshot: tick=%d seq=%d", latest.TickNumber, latest.Sequence)
	}
	if latest.Timestamp.IsZero() {
		t.Error("Publish should stamp a timestamp")
	}
}

func TestSnapshotPoolConcurrentReaders(t *testing.T) {
	p := NewSnapshotPool()
	p.Publish(GameSnapshot{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for j := 0; j < 1000; j++ {
				s := p.Latest()
				if s.Sequence < last {
					t.Errorf("Sequence went backwards: %d < %d", s.Sequence, last)
					return
				}
				last = s.Sequence
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		p.Publish(GameSnapshot{TickNumber: uint64(i)})
	}
	wg.Wait()
}

func TestBallSnapshotRect(t *testing.T) {
	b := BallSnapshot{X: 100, Y: 50, Radius: 7}
	want := Rect{X: 93, Y: 43, Width: 14, Height: 14}
	if got := b.Rect(); got != want {
		t.Errorf("Rect() = %+v, want %+v", got, want)
	}
}
