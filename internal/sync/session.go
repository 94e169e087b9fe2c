// Package sync periodically pulls messages from platforms whose APIs expose a
// fetch endpoint, complementing webhook push delivery.
package sync

import (
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of one pull session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateReady        State = "ready"
)

// Session tracks the pull state for one platform link. All transitions go
// through the typed methods so a session can never skip Connecting.
type Session struct {
	mu        sync.Mutex
	state     State
	lastError string
	lastSync  time.Time
}

func NewSession() *Session {
	return &Session{state: StateDisconnected}
}

// Begin moves Disconnected (or Ready, for a refresh cycle) into Connecting.
// A session already Connecting is busy and Begin reports false so concurrent
// sweeps skip it instead of doubling up.
func (s *Session) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting {
		return false
	}
	s.state = StateConnecting
	return true
}

// Succeed moves Connecting into Ready and records the sync time.
func (s *Session) Succeed(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return fmt.Errorf("succeed from %s", s.state)
	}
	s.state = StateReady
	s.lastError = ""
	s.lastSync = at
	return nil
}

// Fail moves Connecting back into Disconnected and records the error.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	if err != nil {
		s.lastError = err.Error()
	}
}

// Status returns a point-in-time snapshot.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		State:     s.state,
		LastError: s.lastError,
		LastSync:  s.lastSync,
	}
}

// SessionStatus is the read-only view of a session.
type SessionStatus struct {
	State     State     `json:"state"`
	LastError string    `json:"last_error,omitempty"`
	LastSync  time.Time `json:"last_sync,omitempty"`
}
