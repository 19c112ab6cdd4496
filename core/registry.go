package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ConnectionRegistry is the process-memory lookup from connection key to the
// live connection handle. It never owns connection lifetime: the coordinator
// populates it on creation and invalidates it on every terminal transition.
// A process restart yields an empty registry, and a surface that misses a
// lookup must treat the connection as already gone.
type ConnectionRegistry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{connections: make(map[string]*Connection)}
}

// Register inserts or replaces the handle for a key. Replacement is safe:
// the active-call guard prevents two lifecycles for different calls, so a
// replaced entry can only be a stale handle for the same key.
func (r *ConnectionRegistry) Register(key string, conn *Connection) error {
	if r == nil {
		return fmt.Errorf("core: connection registry is nil")
	}
	if conn == nil {
		return fmt.Errorf("core: connection is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: connection key is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[key] = conn
	return nil
}

func (r *ConnectionRegistry) Lookup(key string) (*Connection, bool) {
	if r == nil {
		return nil, false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	conn, ok := r.connections[key]
	r.mu.RUnlock()
	return conn, ok
}

func (r *ConnectionRegistry) Unregister(key string) {
	if r == nil {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	r.mu.Lock()
	delete(r.connections, key)
	r.mu.Unlock()
}

// Keys returns the registered connection keys in deterministic order.
func (r *ConnectionRegistry) Keys() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	keys := make([]string, 0, len(r.connections))
	for key := range r.connections {
		keys = append(keys, key)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
