package stream

import "sync"

// Slot holds at most one live subscription. Attaching a new subscription
// closes the previous one first, whatever task it belonged to.
type Slot struct {
	mu     sync.Mutex
	active *Subscription
}

// Attach closes any current subscription and makes sub the active one.
func (s *Slot) Attach(sub *Subscription) {
	s.mu.Lock()
	prev := s.active
	s.active = sub
	s.mu.Unlock()

	if prev != nil && prev != sub {
		_ = prev.Close()
	}
}

// Active returns the live subscription, if any.
func (s *Slot) Active() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.Closed() {
		return nil
	}
	return s.active
}

// Release closes and clears the slot.
func (s *Slot) Release() {
	s.mu.Lock()
	prev := s.active
	s.active = nil
	s.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}
