// hart.go - Hart lifecycle: construct, realize, reset

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
hart.go - Hart Lifecycle State Machine

A Hart moves through Constructed -> Realized, after which Reset may be
applied any number of times. Realize runs the extension configuration
exactly once; on success the finalized misa/version tuple is written into
HartState, the hart registers with the execution engine and performs its
first reset. A hart whose realize fails never becomes schedulable.

Reset is infallible once realize has succeeded. It establishes machine
mode, clears the interrupt-enable and MPRV control bits, clears all
cause/epc/tval/scratch state for the machine and supervisor levels (and
the virtual-supervisor level when the hypervisor extension is present),
moves the program counter to the reset vector, zeroes the PMP table and
reselects the FP unit's default NaN behaviour. Identity (HartID, XLEN)
and the finalized configuration registers are never touched by reset.
*/

package main

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrAlreadyRealized = errors.New("hart is already realized")
	ErrNotRealized     = errors.New("hart is not realized")
)

// Hart drives one HartState through its lifecycle. The state is owned
// exclusively by this Hart; external mutation happens only through the
// lifecycle entry points and the snapshot codec.
type Hart struct {
	state HartState
	cfg   ExtensionConfig

	realized     bool
	inconsistent bool

	// userOnly models restricted execution environments with no
	// privilege levels: HasWork is unconditionally true there.
	userOnly bool

	engine *Engine
}

// NewHart constructs an unrealized hart with zeroed architectural state
// and the given pre-configuration ISA request.
func NewHart(hartID uint64, xlen int, cfg ExtensionConfig) *Hart {
	h := &Hart{cfg: cfg}
	h.state.HartID = hartID
	h.state.XLEN = xlen
	h.state.ExceptionIndex = RISCV_EXCP_NONE
	return h
}

// Realize finalizes the hart's extension configuration, registers the
// hart with the execution engine and performs the initial reset. A
// configuration error aborts construction; the hart stays unrealized.
func (h *Hart) Realize(engine *Engine) error {
	if h.realized {
		return ErrAlreadyRealized
	}

	fc, err := h.cfg.Finalize(h.state.XLEN)
	if err != nil {
		return fmt.Errorf("hart %d: %w", h.state.HartID, err)
	}

	s := &h.state
	s.Misa = fc.Misa
	s.MisaMask = fc.MisaMask
	s.PrivVer = fc.PrivVer
	s.BextVer = fc.BextVer
	s.VextVer = fc.VextVer
	s.Features = fc.Features
	s.ResetVec = fc.ResetVec
	s.VLen = fc.VLen
	s.ELen = fc.ELen

	if engine != nil {
		if err := engine.RegisterHart(h); err != nil {
			return err
		}
		h.engine = engine
		h.userOnly = engine.userOnly
	}

	h.realized = true
	h.Reset()
	return nil
}

// Reset applies the reset invariants. Idempotent; callable at any time
// after realize.
func (h *Hart) Reset() {
	s := &h.state

	s.Priv = PRV_M
	s.Mstatus &^= MSTATUS_MIE | MSTATUS_MPRV
	s.PC = s.ResetVec
	s.Virt = false
	s.TwoStageLookup = false

	s.Satp = 0
	s.Mcause = 0
	s.Scause = 0
	s.Mepc = 0
	s.Sepc = 0
	s.Mtvec = 0
	s.Stvec = 0
	s.Mtval = 0
	s.Stval = 0
	s.Mscratch = 0
	s.Sscratch = 0

	if s.HasExt(RVH) {
		s.Hstatus = 0
		s.Vsstatus = 0
		s.Htval = 0
		s.Vscause = 0
		s.Mtval2 = 0
		s.Hideleg = 0
		s.Hedeleg = 0
		s.Vstvec = 0
		s.Vsepc = 0
	}

	s.PMP.Reset()

	s.ExceptionIndex = RISCV_EXCP_NONE
	s.LoadRes = noLoadReservation
	s.DefaultNaN = true

	h.inconsistent = false
}

// HasWork reports whether the hart has a deliverable interrupt pending.
// The WFI definition ignores privilege mode and delegation but respects
// the individual enables; restricted environments have no wait-for-
// interrupt concept and always have work.
func (h *Hart) HasWork() bool {
	if h.userOnly {
		return true
	}
	return h.state.Mip&h.state.Mie != 0
}

// SetPC stores value into the program counter unconditionally. Used by
// the execution engine on block entry and by external control tooling.
func (h *Hart) SetPC(value uint64) {
	h.state.PC = value
}

// State exposes the architectural state to same-machine collaborators
// (snapshot codec, monitor, scripting). The returned pointer does not
// transfer ownership.
func (h *Hart) State() *HartState {
	return &h.state
}

// ID returns the hart's identity.
func (h *Hart) ID() uint64 {
	return h.state.HartID
}

// Realized reports whether realize has completed successfully.
func (h *Hart) Realized() bool {
	return h.realized
}

// Inconsistent reports whether a failed restore has left the state
// partially overwritten. Cleared by Reset or a successful restore;
// execution must not resume on an inconsistent hart.
func (h *Hart) Inconsistent() bool {
	return h.inconsistent
}

// ISAString renders the hart's finalized ISA string.
func (h *Hart) ISAString() string {
	return ISAString(h.state.XLEN, h.state.Misa)
}

// DumpState serializes the full architectural state to w.
func (h *Hart) DumpState(w io.Writer) error {
	if !h.realized {
		return ErrNotRealized
	}
	return dumpHartState(&h.state, w)
}

// LoadState replaces the architectural state with a snapshot read from r.
// On failure the state is partially overwritten and the hart is tagged
// inconsistent until the next Reset or a successful LoadState.
func (h *Hart) LoadState(r io.Reader) error {
	if !h.realized {
		return ErrNotRealized
	}
	h.inconsistent = true
	if err := loadHartState(&h.state, r); err != nil {
		return err
	}
	h.inconsistent = false
	if h.engine != nil {
		h.engine.SynchronizePostReset(h)
	}
	return nil
}
