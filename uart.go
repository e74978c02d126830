// uart.go - Minimal console UART MMIO device

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

import (
	"io"
	"sync"
)

const (
	UART_BASE = 0x10000000
	UART_SIZE = 0x100

	UART_TX     = UART_BASE + 0x00
	UART_STATUS = UART_BASE + 0x04
)

// UART is a transmit-only console device: TX takes a byte, STATUS is
// always ready. Enough for guest scenarios and scripts to print.
type UART struct {
	mu  sync.Mutex
	out io.Writer
}

// NewUART creates a UART writing transmitted bytes to out.
func NewUART(out io.Writer) *UART {
	return &UART{out: out}
}

// HandleRead implements the register window's read side.
func (u *UART) HandleRead(addr uint64) uint64 {
	if addr == UART_STATUS {
		return 1 // always ready
	}
	return 0
}

// HandleWrite implements the register window's write side.
func (u *UART) HandleWrite(addr uint64, value uint64) {
	if addr != UART_TX {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.out != nil {
		u.out.Write([]byte{byte(value)})
	}
}
