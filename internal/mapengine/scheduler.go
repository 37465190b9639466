package mapengine

import (
	"sync"
	"time"
)

// scheduler coalesces render requests into at most one pending frame.
type scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	fire     func()
	timer    *time.Timer
	pending  bool
	stopped  bool
}

func newScheduler(interval time.Duration, fire func()) *scheduler {
	return &scheduler{interval: interval, fire: fire}
}

// Request arms a frame unless one is already pending.
func (s *scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.pending {
		return
	}
	s.pending = true
	s.timer = time.AfterFunc(s.interval, s.run)
}

func (s *scheduler) run() {
	s.mu.Lock()
	if s.stopped || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()
	s.fire()
}

// Cancel drops the pending frame, if any.
func (s *scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

// Stop cancels the pending frame and refuses further requests.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stopped = true
}

// Pending reports whether a frame is armed.
func (s *scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
