package msgqueue

import (
	"sync"
	"testing"
	"time"
)

type countingTicker struct {
	mu    sync.Mutex
	ticks int
}

func (c *countingTicker) Tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return nil
}

func (c *countingTicker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

func TestSchedulerDrainsRegisteredPeer(t *testing.T) {
	s := NewScheduler()
	ticker := &countingTicker{}
	s.Register(ticker, 10*time.Millisecond)

	go s.Run(nil)
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for ticker.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if ticker.count() == 0 {
		t.Fatal("scheduler never ticked the registered peer")
	}
}

func TestSchedulerUnregisterStopsTicking(t *testing.T) {
	s := NewScheduler()
	ticker := &countingTicker{}
	s.Register(ticker, 10*time.Millisecond)

	go s.Run(nil)
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	s.Unregister(ticker)
	seen := ticker.count()

	time.Sleep(50 * time.Millisecond)
	if ticker.count() > seen+1 {
		t.Fatalf("ticks continued after Unregister: %d -> %d", seen, ticker.count())
	}
}

func TestSchedulerLenReflectsRegistration(t *testing.T) {
	s := NewScheduler()
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	a, b := &countingTicker{}, &countingTicker{}
	s.Register(a, time.Second)
	s.Register(b, time.Second)
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	s.Unregister(a)
	if s.Len() != 1 {
		t.Fatalf("Len after unregister = %d, want 1", s.Len())
	}
}
