package sinks

import (
	"context"
	"sync"

	"duskhaven/server/logging"
)

// Memory retains events in order for tests and the diagnostics endpoint.
type Memory struct {
	mu     sync.RWMutex
	events []logging.Event
	limit  int
}

// NewMemory constructs a memory sink. A positive limit caps retention at
// the most recent events; zero keeps everything.
func NewMemory(limit int) *Memory {
	if limit < 0 {
		limit = 0
	}
	return &Memory{events: make([]logging.Event, 0), limit: limit}
}

func (s *Memory) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if s.limit > 0 && len(s.events) > s.limit {
		overflow := len(s.events) - s.limit
		s.events = append(s.events[:0], s.events[overflow:]...)
	}
	return nil
}

func (s *Memory) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

func (s *Memory) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

func (s *Memory) Close(context.Context) error {
	return nil
}
