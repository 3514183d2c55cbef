package scheduler

import (
	"testing"
	"time"
)

type fakePruner struct {
	calls int
}

func (f *fakePruner) PruneExpired(now time.Time) (int, error) {
	f.calls++
	return 0, nil
}

func TestStartAndStop(t *testing.T) {
	s := New(&fakePruner{}, 15*time.Minute)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	s := New(&fakePruner{}, time.Minute)
	s.Stop()
}
