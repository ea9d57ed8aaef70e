package testutil

import "sync"

// Sequence is a thread-safe counter for numbering recorded writes.
//
// The zero value is ready to use; the first call to Next returns 1.
type Sequence struct {
	mu sync.Mutex
	n  int64
}

// Next increments and returns the counter.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

// Current returns the counter without incrementing.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset sets the counter back to 0 so a scenario can be replayed with
// identical numbering.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
