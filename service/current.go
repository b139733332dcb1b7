package service

import "sync/atomic"

// Current holds the registry serving requests. The daemon swaps in a new
// registry when the snapshot's reference date rolls.
type Current struct {
	p atomic.Pointer[Registry]
}

// NewCurrent returns a holder for r.
func NewCurrent(r *Registry) *Current {
	c := &Current{}
	c.Store(r)
	return c
}

// Load returns the registry in use.
func (c *Current) Load() *Registry { return c.p.Load() }

// Store replaces the registry in use.
func (c *Current) Store(r *Registry) { c.p.Store(r) }
