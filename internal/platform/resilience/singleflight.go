package resilience

import "sync"

// SingleFlight collapses concurrent calls with the same key into one
// execution; waiters receive the leader's result. The third return of Do is
// true for callers that shared a result instead of computing one.
type SingleFlight struct {
	mu      sync.Mutex
	pending map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if f, ok := g.pending[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}
	if g.pending == nil {
		g.pending = make(map[string]*flight)
	}
	f := &flight{done: make(chan struct{})}
	g.pending[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()
	close(f.done)

	g.mu.Lock()
	delete(g.pending, key)
	g.mu.Unlock()

	return f.val, f.err, false
}
