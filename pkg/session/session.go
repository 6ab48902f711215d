// Package session owns the single identity state of a running client and the
// bootstrap flow that resolves it.
package session

import (
	"sync"

	"tableflip.dev/journey/pkg/record"
)

// State is the identity state machine.
type State int

const (
	StateResolving State = iota
	StateUnauthenticated
	StateAuthenticatedNoName
	StateAuthenticatedNamed
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticatedNoName:
		return "authenticated (no name)"
	case StateAuthenticatedNamed:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the session.
type Snapshot struct {
	State       State
	UserID      string
	DisplayName string
}

func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticatedNoName || s.State == StateAuthenticatedNamed
}

func (s Snapshot) Resolving() bool { return s.State == StateResolving }

// NeedsName reports that the UI should prompt for a display name.
func (s Snapshot) NeedsName() bool { return s.State == StateAuthenticatedNoName }

// Author returns the write stamp for this session.
func (s Snapshot) Author() record.Author {
	return record.Author{UserID: s.UserID, DisplayName: s.DisplayName}
}

// Owns reports whether the session may modify a record created by creatorID.
func (s Snapshot) Owns(creatorID string) bool {
	return s.Authenticated() && s.UserID != "" && s.UserID == creatorID
}

// Session is created empty at start; Bootstrap is its only writer besides
// name submission.
type Session struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners map[int]func(Snapshot)
	next      int
}

func New() *Session {
	return &Session{
		snap:      Snapshot{State: StateResolving},
		listeners: make(map[int]func(Snapshot)),
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Watch registers fn for every change. The returned func removes it.
func (s *Session) Watch(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) update(mutate func(*Snapshot)) {
	s.mu.Lock()
	before := s.snap
	mutate(&s.snap)
	after := s.snap
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if before == after {
		return
	}
	for _, fn := range fns {
		fn(after)
	}
}

func (s *Session) signedIn(uid, name string) {
	s.update(func(snap *Snapshot) {
		snap.UserID = uid
		snap.DisplayName = name
		if name == "" {
			snap.State = StateAuthenticatedNoName
		} else {
			snap.State = StateAuthenticatedNamed
		}
	})
}

func (s *Session) signedOut() {
	s.update(func(snap *Snapshot) {
		*snap = Snapshot{State: StateUnauthenticated}
	})
}

// failed releases Resolving when sign-in could not complete.
func (s *Session) failed() {
	s.update(func(snap *Snapshot) {
		if snap.State == StateResolving {
			*snap = Snapshot{State: StateUnauthenticated}
		}
	})
}

func (s *Session) named(uid, name string) bool {
	applied := false
	s.update(func(snap *Snapshot) {
		if !snap.Authenticated() || snap.UserID != uid {
			return
		}
		snap.DisplayName = name
		snap.State = StateAuthenticatedNamed
		applied = true
	})
	return applied
}
