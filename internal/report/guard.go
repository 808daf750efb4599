package report

import "sync"

// Guard allows one in-flight submission per user.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// Acquire marks userID busy. It returns false if a submission is already
// running for that user.
func (g *Guard) Acquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[userID]; busy {
		return false
	}
	g.inflight[userID] = struct{}{}
	return true
}

// Release clears the mark set by Acquire.
func (g *Guard) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, userID)
}
