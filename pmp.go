// pmp.go - Physical memory protection table with derived match rules

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

import "math/bits"

const MAX_RISCV_PMPS = 16

// pmpcfg packed-byte fields.
const (
	PMP_READ  = 1 << 0
	PMP_WRITE = 1 << 1
	PMP_EXEC  = 1 << 2
	PMP_LOCK  = 1 << 7

	PMP_AMATCH = 3 << 3 // address-matching mode field
)

// Address-matching modes (pmpcfg A field).
const (
	PMP_AMATCH_OFF = iota << 3
	PMP_AMATCH_TOR
	PMP_AMATCH_NA4
	PMP_AMATCH_NAPOT
)

// PMPEntry is one address-matching rule: the raw addr/cfg pair plus the
// derived start/end byte addresses. sa/ea are never serialized; they are
// rebuilt from Addr and Cfg whenever either changes.
type PMPEntry struct {
	Addr uint64
	Cfg  uint8

	sa uint64
	ea uint64
}

// PMPState is the hart's ordered rule table plus the derived count of
// active (non-OFF) rules.
type PMPState struct {
	Entries  [MAX_RISCV_PMPS]PMPEntry
	NumRules int
}

// AddrRead returns the raw pmpaddr value for entry i.
func (p *PMPState) AddrRead(i int) uint64 {
	return p.Entries[i].Addr
}

// AddrWrite stores a pmpaddr value and rebuilds the derived rule state.
// Writes to locked entries are dropped, as are writes to the base of a
// locked TOR entry.
func (p *PMPState) AddrWrite(i int, val uint64) {
	if p.locked(i) {
		return
	}
	if i+1 < MAX_RISCV_PMPS {
		next := p.Entries[i+1].Cfg
		if next&PMP_LOCK != 0 && next&PMP_AMATCH == PMP_AMATCH_TOR {
			return
		}
	}
	p.Entries[i].Addr = val
	p.updateRuleAddr(i)
	p.updateRuleNums()
}

// CfgRead returns pmpcfg register i, packing four entry bytes.
func (p *PMPState) CfgRead(i int) uint64 {
	var v uint64
	for j := 0; j < 4; j++ {
		v |= uint64(p.Entries[i*4+j].Cfg) << (8 * j)
	}
	return v
}

// CfgWrite stores pmpcfg register i (four entry bytes) and rebuilds the
// derived rule state. Locked entry bytes are preserved.
func (p *PMPState) CfgWrite(i int, val uint64) {
	for j := 0; j < 4; j++ {
		idx := i*4 + j
		if p.locked(idx) {
			continue
		}
		p.Entries[idx].Cfg = uint8(val >> (8 * j))
		p.updateRuleAddr(idx)
	}
	p.updateRuleNums()
}

// Reset fully zeroes the table, raw fields and derived rules alike.
func (p *PMPState) Reset() {
	*p = PMPState{}
}

// RebuildRules recomputes every derived range and the rule count from the
// raw addr/cfg fields. Any direct mutation of those fields must be
// followed by a call here before the state is consistent.
func (p *PMPState) RebuildRules() {
	for i := range p.Entries {
		p.updateRuleAddr(i)
	}
	p.updateRuleNums()
}

// Match reports whether addr falls inside entry i's derived range.
func (p *PMPState) Match(i int, addr uint64) bool {
	e := &p.Entries[i]
	if e.Cfg&PMP_AMATCH == PMP_AMATCH_OFF {
		return false
	}
	return addr >= e.sa && addr <= e.ea
}

func (p *PMPState) locked(i int) bool {
	return p.Entries[i].Cfg&PMP_LOCK != 0
}

// updateRuleAddr decodes entry i's raw addr/cfg into a byte-address range.
// pmpaddr values are word addresses (addr >> 2), per the privileged spec.
func (p *PMPState) updateRuleAddr(i int) {
	e := &p.Entries[i]
	switch e.Cfg & PMP_AMATCH {
	case PMP_AMATCH_OFF:
		e.sa, e.ea = 0, 0
	case PMP_AMATCH_TOR:
		var prev uint64
		if i > 0 {
			prev = p.Entries[i-1].Addr << 2
		}
		top := e.Addr << 2
		if top > 0 {
			e.sa, e.ea = prev, top-1
		} else {
			e.sa, e.ea = 0, 0
		}
	case PMP_AMATCH_NA4:
		e.sa = e.Addr << 2
		e.ea = e.sa + 3
	case PMP_AMATCH_NAPOT:
		t := bits.TrailingZeros64(^e.Addr)
		base := (e.Addr &^ (1<<uint(t) - 1)) << 2
		size := uint64(1) << (uint(t) + 3)
		e.sa = base
		e.ea = base + size - 1
	}
}

// updateRuleNums recounts active rules.
func (p *PMPState) updateRuleNums() {
	n := 0
	for i := range p.Entries {
		if p.Entries[i].Cfg&PMP_AMATCH != PMP_AMATCH_OFF {
			n++
		}
	}
	p.NumRules = n
}
