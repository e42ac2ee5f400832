package service

import "sync"

// SingleFlight serializes video analyses per user: a user may only have
// one analysis in flight at a time, keyed by the normalized source URL.
// Process-local by design; correctness depends on single-process
// deployment.
type SingleFlight struct {
	mu       sync.Mutex
	inFlight map[string]string // user id -> normalized URL
}

// NewSingleFlight creates an empty registry.
func NewSingleFlight() *SingleFlight {
	return &SingleFlight{inFlight: make(map[string]string)}
}

// TryAcquire records the mapping iff the user has no analysis in flight.
// On conflict it returns the URL currently being analyzed and false.
func (s *SingleFlight) TryAcquire(userID, normalizedURL string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.inFlight[userID]; ok {
		return current, false
	}
	s.inFlight[userID] = normalizedURL
	return "", true
}

// Release frees the user's slot. Idempotent.
func (s *SingleFlight) Release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}

// InFlight returns the number of analyses currently running.
func (s *SingleFlight) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}
