// Package guard admits at most one client session at a time.
package guard

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBusy is returned by TryAcquire while another session holds the guard.
var ErrBusy = errors.New("device busy")

// Guard tracks whether the controller is held by a session.
//
// The critical sections only check and update the counter. They never block
// on I/O, touch the line or allocate, so TryAcquire is safe to call from
// latency-sensitive paths.
type Guard struct {
	mu   sync.Mutex
	held int

	seq atomic.Uint64
}

// New creates an unheld guard.
func New() *Guard {
	return &Guard{}
}

// TryAcquire admits the caller if no session is held. It never waits: when
// the guard is held it returns ErrBusy and changes nothing. When callers race,
// exactly one wins.
func (g *Guard) TryAcquire() (*Session, error) {
	g.mu.Lock()
	if g.held != 0 {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	g.held++
	g.mu.Unlock()

	return &Session{guard: g, id: g.seq.Add(1)}, nil
}

// Release ends the session. Releasing a nil, foreign or already released
// session is a no-op.
func (g *Guard) Release(s *Session) {
	if s == nil || s.guard != g {
		return
	}
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	g.decrement()
}

// decrement drops the hold count, ignoring a count that is already zero.
func (g *Guard) decrement() {
	g.mu.Lock()
	if g.held > 0 {
		g.held--
	}
	g.mu.Unlock()
}

// Held reports whether a session currently holds the guard.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held != 0
}

// Session is the token handed to an admitted client.
type Session struct {
	guard    *Guard
	id       uint64
	released atomic.Bool
}

// ID returns a process-unique session number, starting at 1.
func (s *Session) ID() uint64 {
	return s.id
}

// Active reports whether the session still holds its guard.
func (s *Session) Active() bool {
	return s != nil && !s.released.Load()
}

// Release is shorthand for releasing the session on its own guard.
func (s *Session) Release() {
	if s == nil {
		return
	}
	s.guard.Release(s)
}
