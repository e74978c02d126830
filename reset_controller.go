// reset_controller.go - Memory-mapped per-hart reset and test-finisher device

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
reset_controller.go - Domain-Partitioned Reset Controller

A core-granularity reset unit for confidential compute with hardware
domain partitioning. Hart 0 is the trusted orchestrator: through this
window it can reset a peer hart's architectural state without being able
to read or write that hart's registers - the controller only ever
invokes reset, never inspects state.

Address decoding (4-byte aligned writes):

    offset 0           -> system-wide request
    offset 4 * hartid  -> that hart (offset 0 is reserved, so hart 0
                          has no per-hart reset path through here)

Value decoding: bits[15:0] status, bits[31:16] exit code.

    FAIL  (0x3333) -> terminate the process with the exit code
    PASS  (0x5555) -> terminate the process with exit code 0
    RESET (0x7777) -> system reset, or hart reset + engine resync
    anything else  -> logged as a guest error, no state change

The device is stateless between writes and reads always return 0.
*/

package main

import (
	"fmt"
	"os"
)

const (
	RESET_CTRL_BASE = 0x00100000
	RESET_CTRL_SIZE = 0x1000
)

// Finisher status codes (value bits [15:0]).
const (
	FINISHER_FAIL  = 0x3333
	FINISHER_PASS  = 0x5555
	FINISHER_RESET = 0x7777
)

// ResetController dispatches reset-window writes to hart lifecycles, the
// whole-machine reset path, or process termination.
type ResetController struct {
	machine *Machine

	// exit is swapped out by tests; defaults to os.Exit. Termination is
	// immediate and unconditional, with no cleanup of other harts.
	exit func(code int)
}

// NewResetController creates the device for a machine.
func NewResetController(m *Machine) *ResetController {
	return &ResetController{machine: m, exit: os.Exit}
}

// HandleRead implements the register window's read side: always 0.
func (rc *ResetController) HandleRead(addr uint64) uint64 {
	return 0
}

// HandleWrite decodes one write to the register window. Every write is
// independently interpreted; the device keeps no state across calls.
// Misaligned writes are rejected before decoding: offset>>2 would
// otherwise alias a neighbouring hart's register.
func (rc *ResetController) HandleWrite(addr uint64, value uint64) {
	offset := addr - RESET_CTRL_BASE
	if offset&3 != 0 {
		fmt.Fprintf(os.Stderr, "rvengine: guest error: misaligned reset controller write addr=%#x\n", addr)
		return
	}
	systemWide := offset == 0
	hartID := offset >> 2

	status := value & 0xffff
	code := (value >> 16) & 0xffff

	switch status {
	case FINISHER_FAIL:
		rc.exit(int(code))
	case FINISHER_PASS:
		rc.exit(0)
	case FINISHER_RESET:
		if systemWide {
			rc.machine.RequestSystemReset()
			return
		}
		hart := rc.machine.Hart(hartID)
		if hart == nil {
			fmt.Fprintf(os.Stderr, "rvengine: guest error: reset request for unknown hart %d\n", hartID)
			return
		}
		hart.Reset()
		// The engine caches hart state; resync so subsequent reads
		// observe the reset values.
		rc.machine.Engine().SynchronizePostReset(hart)
	default:
		fmt.Fprintf(os.Stderr, "rvengine: guest error: reset controller write addr=%#x val=%#08x\n",
			offset, uint32(value))
	}
}
