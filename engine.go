// engine.go - Execution-engine boundary: hart registry and cached state

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sort"
	"sync"
)

// HartContext is the execution engine's cached view of one hart: the
// values the instruction pipeline reads without going back to the
// architectural state. It must be re-synchronized after any externally
// initiated state change (reset, restore).
type HartContext struct {
	PC      uint64
	GPR     [32]uint64
	Running bool
}

// Engine is the boundary to the instruction execution machinery, which
// is outside this model. It keeps the hart registry and the per-hart
// cached contexts, and provides the post-reset synchronization hook the
// reset controller relies on.
type Engine struct {
	mu       sync.Mutex
	harts    map[uint64]*Hart
	contexts map[uint64]*HartContext

	// userOnly marks restricted environments with no privilege levels;
	// harts registered here always report work.
	userOnly bool
}

// NewEngine creates an empty hart registry.
func NewEngine(userOnly bool) *Engine {
	return &Engine{
		harts:    make(map[uint64]*Hart),
		contexts: make(map[uint64]*HartContext),
		userOnly: userOnly,
	}
}

// RegisterHart adds a realized-or-realizing hart to the registry and
// seeds its cached context.
func (e *Engine) RegisterHart(h *Hart) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := h.ID()
	if _, dup := e.harts[id]; dup {
		return fmt.Errorf("hart %d is already registered", id)
	}
	e.harts[id] = h
	e.contexts[id] = &HartContext{}
	return nil
}

// Hart looks up a registered hart by id.
func (e *Engine) Hart(id uint64) *Hart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.harts[id]
}

// HartIDs returns the registered hart ids in ascending order.
func (e *Engine) HartIDs() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint64, 0, len(e.harts))
	for id := range e.harts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SynchronizePostReset refreshes the cached context from the hart's
// architectural state, so subsequent engine reads observe the reset (or
// restored) values.
func (e *Engine) SynchronizePostReset(h *Hart) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx := e.contexts[h.ID()]
	if ctx == nil {
		return
	}
	s := h.State()
	ctx.PC = s.PC
	ctx.GPR = s.GPR
}

// Context returns the cached context for a hart id, or nil.
func (e *Engine) Context(id uint64) *HartContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contexts[id]
}
