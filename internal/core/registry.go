package core

import "sync"

// Registry maps logical user identities to their currently active realtime
// connection. One connection per user: registering a new connection for a
// user replaces the previous mapping (last-registration-wins). The replaced
// connection stays open but is no longer addressable by user id, so this is
// a single-active-session model, not an exclusivity guarantee.
//
// All mutations are mutex-guarded; disconnect is O(1) via the reverse index.
type Registry struct {
	mu        sync.RWMutex
	connected map[string]struct{} // connections seen, registered or not
	byUser    map[int64]string    // userID -> connectionID
	byConn    map[string]int64    // connectionID -> userID (reverse index)
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		connected: make(map[string]struct{}),
		byUser:    make(map[int64]string),
		byConn:    make(map[string]int64),
	}
}

// OnConnect records a new connection with no user association yet.
func (r *Registry) OnConnect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connected[connectionID] = struct{}{}
}

// Register binds a connection to a user identity. If the user already has a
// registered connection, the new one replaces it.
func (r *Registry) Register(connectionID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connected[connectionID] = struct{}{}

	if prev, ok := r.byUser[userID]; ok && prev != connectionID {
		delete(r.byConn, prev)
	}
	// A connection re-registering as a different user releases its old binding.
	if prevUser, ok := r.byConn[connectionID]; ok && prevUser != userID {
		if r.byUser[prevUser] == connectionID {
			delete(r.byUser, prevUser)
		}
	}

	r.byUser[userID] = connectionID
	r.byConn[connectionID] = userID
}

// OnDisconnect removes a connection and, if it was the user's active one,
// its user mapping. Idempotent: unknown connections are a no-op.
func (r *Registry) OnDisconnect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connected, connectionID)

	userID, ok := r.byConn[connectionID]
	if !ok {
		return
	}
	delete(r.byConn, connectionID)
	if r.byUser[userID] == connectionID {
		delete(r.byUser, userID)
	}
}

// Resolve returns the active connection for a user, if any.
func (r *Registry) Resolve(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionID, ok := r.byUser[userID]
	return connectionID, ok
}

// IsConnected reports whether the connection is known to the registry.
func (r *Registry) IsConnected(connectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.connected[connectionID]
	return ok
}
