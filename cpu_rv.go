// cpu_rv.go - RISC-V hart architectural state and ISA constants

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

import "strings"

// misa extension bits. RV('X') == 1 << ('X'-'A').
const (
	RVI = 1 << ('I' - 'A')
	RVE = 1 << ('E' - 'A')
	RVM = 1 << ('M' - 'A')
	RVA = 1 << ('A' - 'A')
	RVF = 1 << ('F' - 'A')
	RVD = 1 << ('D' - 'A')
	RVC = 1 << ('C' - 'A')
	RVS = 1 << ('S' - 'A')
	RVU = 1 << ('U' - 'A')
	RVH = 1 << ('H' - 'A')
	RVB = 1 << ('B' - 'A')
	RVV = 1 << ('V' - 'A')
)

// Privilege modes.
const (
	PRV_U = 0
	PRV_S = 1
	PRV_H = 2 // reserved by the ISA, never entered
	PRV_M = 3
)

// mstatus control bits cleared on reset.
const (
	MSTATUS_MIE  = 1 << 3
	MSTATUS_MPRV = 1 << 17
)

// Enumerated specification versions. These are closed sets: configuration
// rejects anything not listed here.
const (
	PRIV_VERSION_1_10_0 = 0x00011000
	PRIV_VERSION_1_11_0 = 0x00011100

	BEXT_VERSION_0_93_0 = 0x00009300

	VEXT_VERSION_0_07_1 = 0x00000701
)

// Implementation feature flags (features bitfield in HartState).
const (
	RISCV_FEATURE_MMU = 1 << iota
	RISCV_FEATURE_PMP
	RISCV_FEATURE_EPMP
)

// Pending-exception sentinel: no exception outstanding.
const RISCV_EXCP_NONE = -1

// Load-reservation sentinel: no reservation held.
const noLoadReservation = ^uint64(0)

// Extension letters in canonical ISA-string order.
const riscvExts = "IEMAFDQCLBJTPVNSUHKORWXYZG"

var intRegNames = [32]string{
	"x0/zero", "x1/ra", "x2/sp", "x3/gp", "x4/tp", "x5/t0", "x6/t1",
	"x7/t2", "x8/s0", "x9/s1", "x10/a0", "x11/a1", "x12/a2", "x13/a3",
	"x14/a4", "x15/a5", "x16/a6", "x17/a7", "x18/s2", "x19/s3", "x20/s4",
	"x21/s5", "x22/s6", "x23/s7", "x24/s8", "x25/s9", "x26/s10", "x27/s11",
	"x28/t3", "x29/t4", "x30/t5", "x31/t6",
}

var fpRegNames = [32]string{
	"f0/ft0", "f1/ft1", "f2/ft2", "f3/ft3", "f4/ft4", "f5/ft5",
	"f6/ft6", "f7/ft7", "f8/fs0", "f9/fs1", "f10/fa0", "f11/fa1",
	"f12/fa2", "f13/fa3", "f14/fa4", "f15/fa5", "f16/fa6", "f17/fa7",
	"f18/fs2", "f19/fs3", "f20/fs4", "f21/fs5", "f22/fs6", "f23/fs7",
	"f24/fs8", "f25/fs9", "f26/fs10", "f27/fs11", "f28/ft8", "f29/ft9",
	"f30/ft10", "f31/ft11",
}

type HartState struct {
	/*
		HartState is the complete architectural register file of one
		hart plus per-hart metadata. It is owned exclusively by its
		Hart; the lifecycle, the snapshot codec and the execution
		engine callbacks are the only mutators.

		HartID and XLEN are fixed once Realize succeeds. Misa,
		MisaMask and the version registers are written exactly once,
		from the finalized extension configuration, and are
		read-mostly afterwards.
	*/

	// Identity, immutable after realize.
	HartID uint64
	XLEN   int // 32 or 64

	// Control state.
	PC             uint64
	Priv           uint64
	Virt           bool
	TwoStageLookup bool // set only during guest-physical faults under virtualization

	// Finalized configuration registers.
	Misa     uint64
	MisaMask uint64
	PrivVer  uint64
	BextVer  uint64
	VextVer  uint64
	Features uint64
	ResetVec uint64
	VLen     uint
	ELen     uint

	// Machine/supervisor CSR scalars.
	Mstatus    uint64
	Mip        uint64
	Mie        uint64
	Mideleg    uint64
	Medeleg    uint64
	Mtvec      uint64
	Stvec      uint64
	Mepc       uint64
	Sepc       uint64
	Mcause     uint64
	Scause     uint64
	Mtval      uint64
	Stval      uint64
	Mscratch   uint64
	Sscratch   uint64
	Satp       uint64
	Scounteren uint64
	Mcounteren uint64

	// Hart-to-host mailbox and timer compare.
	Mfromhost uint64
	Mtohost   uint64
	Timecmp   uint64

	// Hypervisor-extension CSR scalars, live only when RVH is set.
	Hstatus  uint64
	Vsstatus uint64
	Htval    uint64
	Vscause  uint64
	Mtval2   uint64
	Hideleg  uint64
	Hedeleg  uint64
	Vstvec   uint64
	Vsepc    uint64

	// Register files. FPR is present regardless of F/D; unused lanes
	// are don't-care when the extension is absent.
	GPR [32]uint64
	FPR [32]uint64

	// FP control.
	Frm        uint64
	DefaultNaN bool

	// Fault bookkeeping.
	Badaddr            uint64
	GuestPhysFaultAddr uint64
	ExceptionIndex     int

	// Load reservation for LR/SC.
	LoadRes uint64
	LoadVal uint64

	// Physical memory protection.
	PMP PMPState
}

// HasExt reports whether the finalized misa carries the given extension bit.
func (s *HartState) HasExt(ext uint64) bool {
	return s.Misa&ext != 0
}

// Is32Bit reports whether the hart runs the 32-bit base ISA.
func (s *HartState) Is32Bit() bool {
	return s.XLEN == 32
}

// mxlBit returns the misa MXL field encoding for the hart's XLEN.
func mxlBit(xlen int) uint64 {
	if xlen == 32 {
		return 1 << 30
	}
	return 2 << 62
}

// ISAString renders the canonical riscv ISA string ("rv64imafdcsu") for a
// finalized misa value.
func ISAString(xlen int, misa uint64) string {
	var b strings.Builder
	if xlen == 32 {
		b.WriteString("rv32")
	} else {
		b.WriteString("rv64")
	}
	for _, c := range riscvExts {
		if misa&(1<<(c-'A')) != 0 {
			b.WriteRune(c - 'A' + 'a')
		}
	}
	return b.String()
}
