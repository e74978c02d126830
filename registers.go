// registers.go - Centralized memory map and MMIO register reference for RVEngine

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
registers.go - Master Memory Map Reference

This file provides a centralized reference for all memory-mapped regions in
the RVEngine machine. Individual devices define their own detailed register
constants next to their implementation.

MEMORY MAP OVERVIEW
===================

Address Range              Size     Device            Constants File
---------------------------------------------------------------------------
0x0010_0000-0x0010_0FFF    4KB      Reset controller  reset_controller.go
0x1000_0000-0x1000_00FF    256B     UART console      uart.go
0x8000_0000-...            128MB    Main RAM          machine_bus.go

The reset controller window decodes the written offset as a target selector:
offset 0 addresses the whole machine, offset 4*hartid addresses one hart.
All accesses to the window must be 4-byte aligned.

The UART exposes a transmit register and an always-ready status register,
enough for guest scenarios and scripts to produce console output.

RAM is a single contiguous block based at RAM_BASE, which is also the
default reset vector. Accesses outside RAM and outside any mapped I/O
region are logged as guest errors and read as zero.
*/

package main

const (
	// Main RAM window. The base doubles as the default reset vector.
	RAM_BASE         = 0x80000000
	DEFAULT_RAM_SIZE = 128 * 1024 * 1024

	// Default program counter after reset, overridable per machine.
	DEFAULT_RSTVEC = RAM_BASE
)

// RegionName returns a human-readable name for the device mapped at addr,
// used by the monitor and by guest-error diagnostics.
func RegionName(addr uint64) string {
	switch {
	case addr >= RESET_CTRL_BASE && addr < RESET_CTRL_BASE+RESET_CTRL_SIZE:
		return "ResetController"
	case addr >= UART_BASE && addr < UART_BASE+UART_SIZE:
		return "UART"
	case addr >= RAM_BASE:
		return "RAM"
	default:
		return "Unknown"
	}
}
