// machine.go - Machine assembly: harts, bus, devices

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
machine.go - Machine Assembly

Wires the full system together: the bus with its RAM block, the reset
controller and UART register windows, the execution engine, and one hart
per configured core. Construction follows a strict order - build every
hart, realize every hart, map devices, seal the bus - so a hart that
fails extension validation aborts assembly before any device is visible
to guest software.

A system-wide reset request resets every hart and device and resyncs the
engine, but leaves RAM intact: the loaded guest image must survive so
execution can restart from the reset vector.
*/

package main

import (
	"fmt"
	"io"
	"os"
)

// MachineConfig describes a machine before assembly.
type MachineConfig struct {
	NumHarts int
	XLEN     int
	RAMSize  uint64

	// Hart is the per-hart extension configuration; all harts share it.
	Hart ExtensionConfig

	// UserOnly builds a machine with no privilege levels (user-mode
	// emulation); harts in such a machine always report work.
	UserOnly bool

	// ConsoleOut receives UART transmit bytes (os.Stdout when nil).
	ConsoleOut io.Writer

	// ExitFunc replaces os.Exit for finisher writes; tests inject this.
	ExitFunc func(code int)
}

// Machine is a fully assembled system.
type Machine struct {
	bus       *MachineBus
	engine    *Engine
	harts     []*Hart
	resetCtrl *ResetController
	uart      *UART
}

// NewMachine assembles and seals a machine. Any hart whose configuration
// fails validation aborts assembly.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.NumHarts <= 0 {
		cfg.NumHarts = 1
	}
	if cfg.XLEN == 0 {
		cfg.XLEN = 64
	}
	if cfg.XLEN != 32 && cfg.XLEN != 64 {
		return nil, fmt.Errorf("unsupported XLEN %d", cfg.XLEN)
	}
	out := cfg.ConsoleOut
	if out == nil {
		out = os.Stdout
	}

	m := &Machine{
		bus:    NewMachineBus(cfg.RAMSize),
		engine: NewEngine(cfg.UserOnly),
	}

	for id := 0; id < cfg.NumHarts; id++ {
		m.harts = append(m.harts, NewHart(uint64(id), cfg.XLEN, cfg.Hart))
	}
	for _, h := range m.harts {
		if err := h.Realize(m.engine); err != nil {
			return nil, err
		}
	}

	m.resetCtrl = NewResetController(m)
	if cfg.ExitFunc != nil {
		m.resetCtrl.exit = cfg.ExitFunc
	}
	m.uart = NewUART(out)

	if err := m.bus.MapIO(RESET_CTRL_BASE, RESET_CTRL_BASE+RESET_CTRL_SIZE-1,
		m.resetCtrl.HandleRead, m.resetCtrl.HandleWrite); err != nil {
		return nil, err
	}
	if err := m.bus.MapIO(UART_BASE, UART_BASE+UART_SIZE-1,
		m.uart.HandleRead, m.uart.HandleWrite); err != nil {
		return nil, err
	}
	m.bus.Seal()
	return m, nil
}

// Bus returns the system bus.
func (m *Machine) Bus() *MachineBus {
	return m.bus
}

// Engine returns the execution-engine boundary.
func (m *Machine) Engine() *Engine {
	return m.engine
}

// Hart looks up a hart by id, nil if out of range.
func (m *Machine) Hart(id uint64) *Hart {
	if id >= uint64(len(m.harts)) {
		return nil
	}
	return m.harts[id]
}

// Harts returns the hart list in id order.
func (m *Machine) Harts() []*Hart {
	return m.harts
}

// RequestSystemReset resets every hart and device and resyncs the
// engine. RAM is untouched: the guest image must survive a warm reset.
func (m *Machine) RequestSystemReset() {
	for _, h := range m.harts {
		h.Reset()
		m.engine.SynchronizePostReset(h)
	}
	m.uart.Reset()
	m.resetCtrl.Reset()
}

// LoadBinary copies a raw image into RAM at addr (DEFAULT_RSTVEC when
// addr is zero).
func (m *Machine) LoadBinary(data []byte, addr uint64) error {
	if addr == 0 {
		addr = DEFAULT_RSTVEC
	}
	return m.bus.LoadAt(addr, data)
}

// LoadBinaryFile reads a raw image from disk into RAM at addr.
func (m *Machine) LoadBinaryFile(path string, addr uint64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return m.LoadBinary(data, addr)
}
