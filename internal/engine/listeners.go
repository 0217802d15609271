package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/couchcryptid/clock-sync-engine/internal/domain"
)

// Event keys a listener can register for.
const (
	EventDisplay       = "display"
	EventTimeData      = "timeData"
	EventDateData      = "dateData"
	EventConstellation = "currentConstellation"
	EventSettings      = "settings"
	EventFont          = "font"
)

// Listener receives the full display state after a change.
type Listener func(state domain.DisplayState)

// Handle identifies a registered listener for removal.
type Handle struct {
	event string
	id    uuid.UUID
}

type entry struct {
	id uuid.UUID
	fn Listener
}

// registry maps event keys to listeners in registration order.
type registry struct {
	mu        sync.RWMutex
	listeners map[string][]entry
}

func newRegistry() *registry {
	return &registry{listeners: make(map[string][]entry)}
}

func (r *registry) add(event string, fn Listener) Handle {
	h := Handle{event: event, id: uuid.New()}
	r.mu.Lock()
	r.listeners[event] = append(r.listeners[event], entry{id: h.id, fn: fn})
	r.mu.Unlock()
	return h
}

func (r *registry) remove(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.listeners[h.event]
	for i, e := range list {
		if e.id == h.id {
			r.listeners[h.event] = append(list[:i:i], list[i+1:]...)
			if len(r.listeners[h.event]) == 0 {
				delete(r.listeners, h.event)
			}
			return true
		}
	}
	return false
}

// snapshot copies the listeners for event so they can be called unlocked.
func (r *registry) snapshot(event string) []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.listeners[event]
	out := make([]Listener, len(list))
	for i, e := range list {
		out[i] = e.fn
	}
	return out
}

func (r *registry) count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[event])
}
