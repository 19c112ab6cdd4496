package core

import (
	"fmt"
	"sync"
)

// Connection is the ephemeral, process-memory handle for one call's
// lifecycle. Exclusively owned by the coordinator; the registry holds a
// non-owning reference so a UI surface can reach the right handle.
type Connection struct {
	key  string
	fact IncomingCallFact

	mu    sync.Mutex
	state ConnectionState
}

func newConnection(fact IncomingCallFact) *Connection {
	return &Connection{
		key:   fact.ConnectionKey(),
		fact:  fact,
		state: StateInitializing,
	}
}

func (c *Connection) Key() string {
	if c == nil {
		return ""
	}
	return c.key
}

func (c *Connection) Fact() IncomingCallFact {
	if c == nil {
		return IncomingCallFact{}
	}
	return c.fact
}

func (c *Connection) State() ConnectionState {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) Terminal() bool {
	return c.State().Terminal()
}

// transition advances the state machine, rejecting moves the lifecycle does
// not define. Terminal states are absorbing.
func (c *Connection) transition(to ConnectionState) error {
	if c == nil {
		return fmt.Errorf("core: connection is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == to {
		return nil
	}
	if !validConnectionTransition(c.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidConnectionStateTransition, c.state, to)
	}
	c.state = to
	return nil
}
