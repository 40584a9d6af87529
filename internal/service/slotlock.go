package service

import "sync"

// slotLocks serializes writers per slot. The classify+write sequence
// for one slot is a single logical transaction; different slots
// proceed concurrently.
type slotLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[string]*sync.Mutex)}
}

func (s *slotLocks) lock(slot string) func() {
	s.mu.Lock()
	l, ok := s.locks[slot]
	if !ok {
		l = &sync.Mutex{}
		s.locks[slot] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
