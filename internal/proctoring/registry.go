package proctoring

import (
	"context"
	"errors"
	"sync"
)

// ErrMonitorRunning is returned when a monitoring run is already active
// for the same session.
var ErrMonitorRunning = errors.New("monitoring already running for this session")

type sessionKey struct {
	examID    string
	studentID string
}

// Registry tracks active monitoring runs per session. One run per
// (exam, student) pair at a time.
type Registry struct {
	mu   sync.Mutex
	runs map[sessionKey]context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[sessionKey]context.CancelFunc)}
}

// Begin registers a run and returns a context cancelled when the run is
// stopped, plus a release function the run must call when it finishes.
func (r *Registry) Begin(parent context.Context, examID, studentID string) (context.Context, func(), error) {
	key := sessionKey{examID: examID, studentID: studentID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, active := r.runs[key]; active {
		return nil, nil, ErrMonitorRunning
	}

	ctx, cancel := context.WithCancel(parent)
	r.runs[key] = cancel

	release := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.runs[key]; ok {
			c()
			delete(r.runs, key)
		}
	}
	return ctx, release, nil
}

// Stop cancels an active run. Returns false when no run is registered
// for the session.
func (r *Registry) Stop(examID, studentID string) bool {
	key := sessionKey{examID: examID, studentID: studentID}

	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.runs[key]
	if !ok {
		return false
	}
	cancel()
	delete(r.runs, key)
	return true
}

// Active reports whether a run is registered for the session.
func (r *Registry) Active(examID, studentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[sessionKey{examID: examID, studentID: studentID}]
	return ok
}

// StopAll cancels every active run. Used during shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, cancel := range r.runs {
		cancel()
		delete(r.runs, key)
	}
}
