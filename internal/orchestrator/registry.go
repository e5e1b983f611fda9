package orchestrator

import (
	"context"
	"sync"
)

// runHandle is what the engine holds for a job owned by a live goroutine:
// the cancel function to signal it and, once admitted, the release token for
// its concurrency slot.
type runHandle struct {
	cancel context.CancelCauseFunc
	slot   *slotToken
}

// runRegistry tracks the handles of jobs currently owned by this process.
// The caller never holds a live reference to a running job, only its id; the
// registry is how kill and timeout signals reach the detached goroutine that
// executes it.
type runRegistry struct {
	mu      sync.RWMutex
	handles map[string]*runHandle
}

func newRunRegistry() *runRegistry {
	return &runRegistry{handles: make(map[string]*runHandle)}
}

func (r *runRegistry) add(jobID string, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[jobID] = &runHandle{cancel: cancel}
}

func (r *runRegistry) remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, jobID)
}

// setSlot records the current slot token for an owned job. Called on
// admission and again after every checkpoint resume.
func (r *runRegistry) setSlot(jobID string, slot *slotToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[jobID]; ok {
		h.slot = slot
	}
}

// releaseSlot gives back the job's slot, if one is held. Safe against the
// owning goroutine's own deferred release: the token releases once.
func (r *runRegistry) releaseSlot(jobID string) {
	r.mu.RLock()
	h, ok := r.handles[jobID]
	r.mu.RUnlock()
	if ok {
		h.slot.release()
	}
}

// cancel signals the job's goroutine with the given cause. Returns false if
// the job has no live handle in this process.
func (r *runRegistry) cancel(jobID string, cause error) bool {
	r.mu.RLock()
	h, ok := r.handles[jobID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	h.cancel(cause)
	return true
}

// owns reports whether a live goroutine in this process holds the job.
func (r *runRegistry) owns(jobID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[jobID]
	return ok
}

func (r *runRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
