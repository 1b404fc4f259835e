package msgqueue

import (
	"container/heap"
	"sync"
	"time"
)

// Ticker is anything a scheduled peer exposes for draining: the queue's
// Tick plus identity for bookkeeping.
type Ticker interface {
	Tick() error
}

// deadline pairs a Ticker with the next time it is due to be drained.
// It is the heap element; Scheduler keeps one per registered peer.
type deadline struct {
	ticker Ticker
	at     time.Time
	period time.Duration
	index  int
}

// deadlineHeap implements heap.Interface over peer deadlines, always
// surfacing the soonest-due peer at index 0.
type deadlineHeap []*deadline

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *deadlineHeap) Push(x interface{}) {
	d := x.(*deadline)
	d.index = len(*h)
	*h = append(*h, d)
}

func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*h = old[:n-1]
	return d
}

// Scheduler drains every registered peer's Queue on its own period using
// a single goroutine and a min-heap of deadlines, rather than spawning
// one ticker goroutine per peer (spec.md §4.5 / §5).
type Scheduler struct {
	mu    sync.Mutex
	heap  deadlineHeap
	byPtr map[Ticker]*deadline

	wake   chan struct{}
	stop   chan struct{}
	nowFn  func() time.Time
	sleepF func(time.Duration) <-chan time.Time
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		byPtr:  make(map[Ticker]*deadline),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		nowFn:  time.Now,
		sleepF: func(d time.Duration) <-chan time.Time { return time.After(d) },
	}
}

// Register adds a peer to the schedule, to be ticked every period
// starting one period from now.
func (s *Scheduler) Register(t Ticker, period time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &deadline{ticker: t, period: period, at: s.nowFn().Add(period)}
	s.byPtr[t] = d
	heap.Push(&s.heap, d)
	s.nudge()
}

// Unregister removes a peer from the schedule; its Queue's own Close is
// the caller's responsibility.
func (s *Scheduler) Unregister(t Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byPtr[t]
	if !ok {
		return
	}
	heap.Remove(&s.heap, d.index)
	delete(s.byPtr, t)
}

func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the schedule until Stop is called; while the heap is empty
// it waits for the next Register or for Stop. Tick errors are reported to onErr
// rather than aborting the loop, so one misbehaving peer doesn't starve
// the rest.
func (s *Scheduler) Run(onErr func(Ticker, error)) {
	for {
		s.mu.Lock()
		if len(s.heap) == 0 {
			s.mu.Unlock()
			select {
			case <-s.stop:
				return
			case <-s.wake:
				continue
			}
		}

		next := s.heap[0]
		wait := next.at.Sub(s.nowFn())
		s.mu.Unlock()

		if wait > 0 {
			select {
			case <-s.stop:
				return
			case <-s.wake:
				continue
			case <-s.sleepF(wait):
			}
		}

		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0] != next {
			s.mu.Unlock()
			continue
		}
		heap.Pop(&s.heap)
		next.at = s.nowFn().Add(next.period)
		heap.Push(&s.heap, next)
		s.mu.Unlock()

		if err := next.ticker.Tick(); err != nil && onErr != nil {
			onErr(next.ticker, err)
		}
	}
}

// Stop halts Run.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// Len reports how many peers are currently registered.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}
