package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// State tracks feed health for the status endpoints. It holds no window data.
type State struct {
	connected atomic.Bool
	ingested  atomic.Int64
	dropped   atomic.Int64

	mu        sync.RWMutex
	lastEvent time.Time
}

func NewState() *State {
	return &State{}
}

func (s *State) SetConnected(v bool) { s.connected.Store(v) }
func (s *State) Connected() bool     { return s.connected.Load() }

// RecordIngest counts a stored killmail received at t.
func (s *State) RecordIngest(t time.Time) {
	s.ingested.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastEvent) {
		s.lastEvent = t
	}
}

// RecordDrop counts a feed message that could not be stored.
func (s *State) RecordDrop() { s.dropped.Add(1) }

func (s *State) Ingested() int64 { return s.ingested.Load() }
func (s *State) Dropped() int64  { return s.dropped.Load() }

func (s *State) LastEvent() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEvent
}
