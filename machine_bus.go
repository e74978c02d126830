// machine_bus.go - System bus for the RVEngine machine

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
machine_bus.go - System Bus

This module implements the memory bus that backs the RVEngine machine. It
provides a unified interface for 8/16/32/64-bit memory operations,
including both RAM access and memory-mapped I/O.

Core Features:

    Main memory allocated as a contiguous block, mapped at RAM_BASE.
    Memory-mapped I/O via an I/O region table keyed by 256-byte page.
    Little-endian read/write operations for all access widths.
    Full memory reset capability to clear the entire RAM state.
    Thread-safe access implemented with a read/write mutex.
    A seal that rejects I/O mapping changes once boot completes.

Accesses outside RAM and outside any mapped region are tolerated: reads
return zero, writes are dropped, and both are logged as guest errors.
The bus is deliberately forgiving here because guest software probing
unimplemented devices is an expected condition, not a host bug.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

const busPageShift = 8 // 256-byte I/O pages

var _ Bus64 = (*MachineBus)(nil)

// Bus64 is the interface the machine's memory operations are written
// against. Implementations must be safe for concurrent use and support
// memory-mapped I/O.
type Bus64 interface {
	Read8(addr uint64) uint8
	Write8(addr uint64, value uint8)
	Read16(addr uint64) uint16
	Write16(addr uint64, value uint16)
	Read32(addr uint64) uint32
	Write32(addr uint64, value uint32)
	Read64(addr uint64) uint64
	Write64(addr uint64, value uint64)
	Reset()
	GetMemory() []byte
}

// IORegion represents one memory-mapped I/O region. The callbacks are
// invoked with the absolute address for any access that falls inside
// [start, end].
type IORegion struct {
	start   uint64
	end     uint64
	onRead  func(addr uint64) uint64
	onWrite func(addr uint64, value uint64)
}

// MachineBus implements Bus64: a contiguous RAM block at RAM_BASE plus a
// page-keyed table of I/O regions.
type MachineBus struct {
	mu      sync.RWMutex
	memory  []byte
	mapping map[uint64][]IORegion

	// Sealed state to prevent I/O mapping changes after boot.
	sealed atomic.Bool
}

// NewMachineBus allocates a bus with the given RAM size (DEFAULT_RAM_SIZE
// when zero).
func NewMachineBus(ramSize uint64) *MachineBus {
	if ramSize == 0 {
		ramSize = DEFAULT_RAM_SIZE
	}
	return &MachineBus{
		memory:  make([]byte, ramSize),
		mapping: make(map[uint64][]IORegion),
	}
}

// MapIO registers callbacks for [start, end]. Mapping fails once the bus
// is sealed.
func (bus *MachineBus) MapIO(start, end uint64,
	onRead func(addr uint64) uint64,
	onWrite func(addr uint64, value uint64)) error {

	if bus.sealed.Load() {
		return fmt.Errorf("bus is sealed, cannot map I/O region [%#x, %#x]", start, end)
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()

	region := IORegion{start: start, end: end, onRead: onRead, onWrite: onWrite}
	for page := start >> busPageShift; page <= end>>busPageShift; page++ {
		bus.mapping[page] = append(bus.mapping[page], region)
	}
	return nil
}

// Seal freezes the I/O map. Called once machine assembly completes.
func (bus *MachineBus) Seal() {
	bus.sealed.Store(true)
}

// Sealed reports whether the I/O map is frozen.
func (bus *MachineBus) Sealed() bool {
	return bus.sealed.Load()
}

// GetMemory exposes the RAM slice for direct access by loaders and the
// execution engine.
func (bus *MachineBus) GetMemory() []byte {
	return bus.memory
}

// inRAM reports whether [addr, addr+size) lies inside the RAM window.
func (bus *MachineBus) inRAM(addr uint64, size uint64) bool {
	return addr >= RAM_BASE && addr-RAM_BASE+size <= uint64(len(bus.memory))
}

// ioRegion resolves addr against the I/O map. The map is frozen by Seal
// before execution starts, so lookups run without holding bus.mu and
// device callbacks are free to re-enter the machine (a reset-controller
// write resetting a hart, for instance).
func (bus *MachineBus) ioRegion(addr uint64) *IORegion {
	regions := bus.mapping[addr>>busPageShift]
	for i := range regions {
		if addr >= regions[i].start && addr <= regions[i].end {
			return &regions[i]
		}
	}
	return nil
}

func logGuestAccess(op string, addr uint64) {
	fmt.Fprintf(os.Stderr, "rvengine: guest error: %s of unmapped address %#x (%s)\n",
		op, addr, RegionName(addr))
}

func (bus *MachineBus) ioRead(addr uint64) uint64 {
	if r := bus.ioRegion(addr); r != nil && r.onRead != nil {
		return r.onRead(addr)
	}
	logGuestAccess("read", addr)
	return 0
}

func (bus *MachineBus) ioWrite(addr uint64, value uint64) {
	if r := bus.ioRegion(addr); r != nil && r.onWrite != nil {
		r.onWrite(addr, value)
		return
	}
	logGuestAccess("write", addr)
}

func (bus *MachineBus) Read8(addr uint64) uint8 {
	if bus.inRAM(addr, 1) {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return bus.memory[addr-RAM_BASE]
	}
	return uint8(bus.ioRead(addr))
}

func (bus *MachineBus) Write8(addr uint64, value uint8) {
	if bus.inRAM(addr, 1) {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		bus.memory[addr-RAM_BASE] = value
		return
	}
	bus.ioWrite(addr, uint64(value))
}

func (bus *MachineBus) Read16(addr uint64) uint16 {
	if bus.inRAM(addr, 2) {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return binary.LittleEndian.Uint16(bus.memory[addr-RAM_BASE:])
	}
	return uint16(bus.ioRead(addr))
}

func (bus *MachineBus) Write16(addr uint64, value uint16) {
	if bus.inRAM(addr, 2) {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		binary.LittleEndian.PutUint16(bus.memory[addr-RAM_BASE:], value)
		return
	}
	bus.ioWrite(addr, uint64(value))
}

func (bus *MachineBus) Read32(addr uint64) uint32 {
	if bus.inRAM(addr, 4) {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return binary.LittleEndian.Uint32(bus.memory[addr-RAM_BASE:])
	}
	return uint32(bus.ioRead(addr))
}

func (bus *MachineBus) Write32(addr uint64, value uint32) {
	if bus.inRAM(addr, 4) {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		binary.LittleEndian.PutUint32(bus.memory[addr-RAM_BASE:], value)
		return
	}
	bus.ioWrite(addr, uint64(value))
}

func (bus *MachineBus) Read64(addr uint64) uint64 {
	if bus.inRAM(addr, 8) {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return binary.LittleEndian.Uint64(bus.memory[addr-RAM_BASE:])
	}
	return bus.ioRead(addr)
}

func (bus *MachineBus) Write64(addr uint64, value uint64) {
	if bus.inRAM(addr, 8) {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		binary.LittleEndian.PutUint64(bus.memory[addr-RAM_BASE:], value)
		return
	}
	bus.ioWrite(addr, value)
}

// LoadAt copies data into RAM at the given absolute address.
func (bus *MachineBus) LoadAt(addr uint64, data []byte) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if !bus.inRAM(addr, uint64(len(data))) {
		return fmt.Errorf("load of %d bytes at %#x falls outside RAM", len(data), addr)
	}
	copy(bus.memory[addr-RAM_BASE:], data)
	return nil
}
