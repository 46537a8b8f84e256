package core

import "sync"

// TurnLimiter enforces at most one active streamed turn per desk. The
// scheduling model is cooperative: callers acquire before opening a turn and
// release on every exit path (completion, cancellation, transport error).
type TurnLimiter struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewTurnLimiter creates an empty limiter.
func NewTurnLimiter() *TurnLimiter {
	return &TurnLimiter{active: make(map[string]bool)}
}

// Acquire marks a turn active for the desk. Returns ErrTurnActive when one
// is already streaming.
func (tl *TurnLimiter) Acquire(deskID string) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.active[deskID] {
		return ErrTurnActive
	}
	tl.active[deskID] = true

	return nil
}

// Release clears the active mark for the desk. Releasing an inactive desk is
// a no-op.
func (tl *TurnLimiter) Release(deskID string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	delete(tl.active, deskID)
}

// Active reports whether a turn is currently streaming for the desk.
func (tl *TurnLimiter) Active(deskID string) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	return tl.active[deskID]
}
