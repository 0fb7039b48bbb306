package stream

import (
	"sync"

	"github.com/foxseedlab/shuchurin/internal/repository"
	"github.com/foxseedlab/shuchurin/internal/timeline"
	"github.com/google/uuid"
)

// Registry tracks live connection handlers for lifecycle management only:
// shutdown sweeps and current-session lookups. Business state stays inside
// each handler; the lock here is touched on connect/disconnect and on
// queries, never on the per-message hot path.
type Registry struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]*Handler
	unsaved  []repository.AppendSessionInput
	wg       sync.WaitGroup
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[uuid.UUID]*Handler)}
}

func (r *Registry) register(h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.id] = h
	r.wg.Add(1)
}

func (r *Registry) unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, id)
	r.wg.Done()
}

// ActiveConnections reports the number of live handlers.
func (r *Registry) ActiveConnections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// CurrentSession returns the open timeline snapshot for a user, or nil when
// that user has no live session.
func (r *Registry) CurrentSession(userID string) *timeline.Snapshot {
	r.mu.Lock()
	handlers := make([]*Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		if snap := h.Snapshot(); snap != nil && snap.UserID == userID {
			return snap
		}
	}
	return nil
}

// holdUnsaved parks a finalized record whose store write exhausted all
// retries. The record stays until an operator drains it; it is never
// silently dropped.
func (r *Registry) holdUnsaved(input repository.AppendSessionInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsaved = append(r.unsaved, input)
}

// UnsavedSessions returns a copy of the records held after store failures.
func (r *Registry) UnsavedSessions() []repository.AppendSessionInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.AppendSessionInput, len(r.unsaved))
	copy(out, r.unsaved)
	return out
}

// CloseAll force-closes every live connection and blocks until each
// handler's Run loop has abandoned and persisted its open session; used on
// server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handlers := make([]*Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		_ = h.conn.Close()
	}
	r.wg.Wait()
}
