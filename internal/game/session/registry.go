// Package session tracks live connections: which player and room each
// connection is bound to, and the outbound queue that feeds its transport.
package session

import "sync"

// Binding ties a connection to the player it joined as.
type Binding struct {
	ConnectionID string
	Name         string
	RoomID       string
}

// Registry maps connection ids to bindings.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// Register binds connID to name in roomID. Registering an id again replaces
// its binding; a connection belongs to one player session for its lifetime.
//
// Precondition: connID must be non-empty.
func (r *Registry) Register(connID, name, roomID string) Binding {
	b := Binding{ConnectionID: connID, Name: name, RoomID: roomID}
	r.mu.Lock()
	r.bindings[connID] = b
	r.mu.Unlock()
	return b
}

// Resolve returns the binding for connID.
//
// Postcondition: Returns (Binding{}, false) when connID is not registered.
func (r *Registry) Resolve(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[connID]
	return b, ok
}

// Remove drops connID's binding and returns it. Removing an unknown id is a no-op.
func (r *Registry) Remove(connID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[connID]
	if ok {
		delete(r.bindings, connID)
	}
	return b, ok
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
