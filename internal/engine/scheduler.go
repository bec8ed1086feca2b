package engine

import (
	"sync"
	"time"
)

// Scheduler drives the orchestrator's tick loop. Implementations must
// guarantee that tick is never invoked concurrently with itself and that
// Stop prevents further invocations from starting.
type Scheduler interface {
	// Start begins invoking tick periodically. Calling Start on a running
	// scheduler is a no-op.
	Start(tick func())
	// Stop halts the loop. It is idempotent and safe to call from within a
	// tick invocation.
	Stop()
}

// TickScheduler invokes the tick function on a fixed wall-clock interval.
type TickScheduler struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewTickScheduler creates a scheduler firing every interval.
//
// Precondition: interval must be > 0.
func NewTickScheduler(interval time.Duration) *TickScheduler {
	return &TickScheduler{interval: interval}
}

func (s *TickScheduler) Start(tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

func (s *TickScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}
