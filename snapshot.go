// snapshot.go - Textual hart state snapshot codec (dump/restore)

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
snapshot.go - Hart State Transfer Protocol

The codec produces and consumes a strict line-oriented representation of
one hart's full architectural state: one "<name> <hex>" record per line,
in a fixed order fully determined by the hart's finalized configuration.
Scalars come first, then the 32 integer registers by name, then the 32
floating-point registers, then the PMP address and configuration
registers when PMP is enabled. The 32-bit variant adds an mstatush
record immediately after mstatus.

Restore reads the same sequence positionally and checks every tag. Any
parse or tag mismatch abandons the whole call with an error naming the
failing field; there is no rollback, so the caller must reset or
successfully restore the hart before resuming it. Identity and
configuration records (mhartid, misa, misa_mask, versions, features) are
verified against the hart's own finalized configuration rather than
assigned: the format is configuration-pinned and a mismatch means writer
and reader disagree about the hart's shape.
*/

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SnapshotFormatError reports a malformed, missing or out-of-order record
// during restore, or a configuration-pinning mismatch.
type SnapshotFormatError struct {
	Field  string
	Reason string
}

func (e *SnapshotFormatError) Error() string {
	return fmt.Sprintf("snapshot: field %q: %s", e.Field, e.Reason)
}

// snapshotField is one record of the serialized representation. Fields
// with verify set are compared on restore instead of assigned.
type snapshotField struct {
	name   string
	verify bool
	get    func(s *HartState) uint64
	set    func(s *HartState, v uint64)
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// snapshotFields derives the record sequence for a hart's configuration.
// The order is part of the external format and must never change for a
// given configuration.
func snapshotFields(s *HartState) []snapshotField {
	fields := []snapshotField{
		{name: "pc",
			get: func(s *HartState) uint64 { return s.PC },
			set: func(s *HartState, v uint64) { s.PC = v }},
		{name: "mhartid", verify: true,
			get: func(s *HartState) uint64 { return s.HartID }},
		{name: "mstatus",
			get: func(s *HartState) uint64 { return s.Mstatus },
			set: func(s *HartState, v uint64) { s.Mstatus = v }},
	}
	if s.Is32Bit() {
		fields = append(fields, snapshotField{name: "mstatush",
			get: func(s *HartState) uint64 { return s.Mstatus >> 32 },
			set: func(s *HartState, v uint64) {
				s.Mstatus = s.Mstatus&0xFFFFFFFF | v<<32
			}})
	}
	fields = append(fields, []snapshotField{
		{name: "mip",
			get: func(s *HartState) uint64 { return s.Mip },
			set: func(s *HartState, v uint64) { s.Mip = v }},
		{name: "mie",
			get: func(s *HartState) uint64 { return s.Mie },
			set: func(s *HartState, v uint64) { s.Mie = v }},
		{name: "mideleg",
			get: func(s *HartState) uint64 { return s.Mideleg },
			set: func(s *HartState, v uint64) { s.Mideleg = v }},
		{name: "medeleg",
			get: func(s *HartState) uint64 { return s.Medeleg },
			set: func(s *HartState, v uint64) { s.Medeleg = v }},
		{name: "mtvec",
			get: func(s *HartState) uint64 { return s.Mtvec },
			set: func(s *HartState, v uint64) { s.Mtvec = v }},
		{name: "stvec",
			get: func(s *HartState) uint64 { return s.Stvec },
			set: func(s *HartState, v uint64) { s.Stvec = v }},
		{name: "mepc",
			get: func(s *HartState) uint64 { return s.Mepc },
			set: func(s *HartState, v uint64) { s.Mepc = v }},
		{name: "sepc",
			get: func(s *HartState) uint64 { return s.Sepc },
			set: func(s *HartState, v uint64) { s.Sepc = v }},
		{name: "mcause",
			get: func(s *HartState) uint64 { return s.Mcause },
			set: func(s *HartState, v uint64) { s.Mcause = v }},
		{name: "scause",
			get: func(s *HartState) uint64 { return s.Scause },
			set: func(s *HartState, v uint64) { s.Scause = v }},
		{name: "mtval",
			get: func(s *HartState) uint64 { return s.Mtval },
			set: func(s *HartState, v uint64) { s.Mtval = v }},
		{name: "stval",
			get: func(s *HartState) uint64 { return s.Stval },
			set: func(s *HartState, v uint64) { s.Stval = v }},
		{name: "mscratch",
			get: func(s *HartState) uint64 { return s.Mscratch },
			set: func(s *HartState, v uint64) { s.Mscratch = v }},
		{name: "sscratch",
			get: func(s *HartState) uint64 { return s.Sscratch },
			set: func(s *HartState, v uint64) { s.Sscratch = v }},
		{name: "satp",
			get: func(s *HartState) uint64 { return s.Satp },
			set: func(s *HartState, v uint64) { s.Satp = v }},
		{name: "load_res",
			get: func(s *HartState) uint64 { return s.LoadRes },
			set: func(s *HartState, v uint64) { s.LoadRes = v }},
		{name: "load_val",
			get: func(s *HartState) uint64 { return s.LoadVal },
			set: func(s *HartState, v uint64) { s.LoadVal = v }},
		{name: "frm",
			get: func(s *HartState) uint64 { return s.Frm },
			set: func(s *HartState, v uint64) { s.Frm = v }},
		{name: "badaddr",
			get: func(s *HartState) uint64 { return s.Badaddr },
			set: func(s *HartState, v uint64) { s.Badaddr = v }},
		{name: "guest_phys_fault_addr",
			get: func(s *HartState) uint64 { return s.GuestPhysFaultAddr },
			set: func(s *HartState, v uint64) { s.GuestPhysFaultAddr = v }},
		{name: "priv_ver", verify: true,
			get: func(s *HartState) uint64 { return s.PrivVer }},
		{name: "vext_ver", verify: true,
			get: func(s *HartState) uint64 { return s.VextVer }},
		{name: "misa", verify: true,
			get: func(s *HartState) uint64 { return s.Misa }},
		{name: "misa_mask", verify: true,
			get: func(s *HartState) uint64 { return s.MisaMask }},
		{name: "features", verify: true,
			get: func(s *HartState) uint64 { return s.Features }},
		{name: "priv",
			get: func(s *HartState) uint64 { return s.Priv },
			set: func(s *HartState, v uint64) { s.Priv = v }},
		{name: "virt",
			get: func(s *HartState) uint64 { return boolToReg(s.Virt) },
			set: func(s *HartState, v uint64) { s.Virt = v != 0 }},
		{name: "resetvec",
			get: func(s *HartState) uint64 { return s.ResetVec },
			set: func(s *HartState, v uint64) { s.ResetVec = v }},
		{name: "scounteren",
			get: func(s *HartState) uint64 { return s.Scounteren },
			set: func(s *HartState, v uint64) { s.Scounteren = v }},
		{name: "mcounteren",
			get: func(s *HartState) uint64 { return s.Mcounteren },
			set: func(s *HartState, v uint64) { s.Mcounteren = v }},
		{name: "mfromhost",
			get: func(s *HartState) uint64 { return s.Mfromhost },
			set: func(s *HartState, v uint64) { s.Mfromhost = v }},
		{name: "mtohost",
			get: func(s *HartState) uint64 { return s.Mtohost },
			set: func(s *HartState, v uint64) { s.Mtohost = v }},
		{name: "timecmp",
			get: func(s *HartState) uint64 { return s.Timecmp },
			set: func(s *HartState, v uint64) { s.Timecmp = v }},
	}...)

	if s.HasExt(RVH) {
		fields = append(fields, []snapshotField{
			{name: "hstatus",
				get: func(s *HartState) uint64 { return s.Hstatus },
				set: func(s *HartState, v uint64) { s.Hstatus = v }},
			{name: "vsstatus",
				get: func(s *HartState) uint64 { return s.Vsstatus },
				set: func(s *HartState, v uint64) { s.Vsstatus = v }},
			{name: "htval",
				get: func(s *HartState) uint64 { return s.Htval },
				set: func(s *HartState, v uint64) { s.Htval = v }},
			{name: "vscause",
				get: func(s *HartState) uint64 { return s.Vscause },
				set: func(s *HartState, v uint64) { s.Vscause = v }},
			{name: "mtval2",
				get: func(s *HartState) uint64 { return s.Mtval2 },
				set: func(s *HartState, v uint64) { s.Mtval2 = v }},
			{name: "hideleg",
				get: func(s *HartState) uint64 { return s.Hideleg },
				set: func(s *HartState, v uint64) { s.Hideleg = v }},
			{name: "hedeleg",
				get: func(s *HartState) uint64 { return s.Hedeleg },
				set: func(s *HartState, v uint64) { s.Hedeleg = v }},
			{name: "vstvec",
				get: func(s *HartState) uint64 { return s.Vstvec },
				set: func(s *HartState, v uint64) { s.Vstvec = v }},
			{name: "vsepc",
				get: func(s *HartState) uint64 { return s.Vsepc },
				set: func(s *HartState, v uint64) { s.Vsepc = v }},
		}...)
	}

	for i := 0; i < 32; i++ {
		i := i
		fields = append(fields, snapshotField{
			name: intRegNames[i],
			get:  func(s *HartState) uint64 { return s.GPR[i] },
			set:  func(s *HartState, v uint64) { s.GPR[i] = v },
		})
	}
	for i := 0; i < 32; i++ {
		i := i
		fields = append(fields, snapshotField{
			name: fpRegNames[i],
			get:  func(s *HartState) uint64 { return s.FPR[i] },
			set:  func(s *HartState, v uint64) { s.FPR[i] = v },
		})
	}

	if s.Features&RISCV_FEATURE_PMP != 0 {
		for i := 0; i < MAX_RISCV_PMPS; i++ {
			i := i
			fields = append(fields, snapshotField{
				name: fmt.Sprintf("pmpaddr_%d", i),
				get:  func(s *HartState) uint64 { return s.PMP.Entries[i].Addr },
				set:  func(s *HartState, v uint64) { s.PMP.Entries[i].Addr = v },
			})
		}
		for i := 0; i < MAX_RISCV_PMPS/4; i++ {
			i := i
			fields = append(fields, snapshotField{
				name: fmt.Sprintf("pmpcfg_%d", i),
				get:  func(s *HartState) uint64 { return s.PMP.CfgRead(i) },
				set: func(s *HartState, v uint64) {
					for j := 0; j < 4; j++ {
						s.PMP.Entries[i*4+j].Cfg = uint8(v >> (8 * j))
					}
				},
			})
		}
	}

	return fields
}

// dumpHartState writes every record of the hart's state to w, one field
// per line, in the fixed order for its configuration.
func dumpHartState(s *HartState, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, f := range snapshotFields(s) {
		if _, err := fmt.Fprintf(bw, "%s %x\n", f.name, f.get(s)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// loadHartState reads records from r in the fixed order for the hart's
// configuration, assigning or verifying each field. The first malformed
// or out-of-order record aborts the call; state written up to that point
// stays written. PMP derived rules are rebuilt after the raw PMP block.
func loadHartState(s *HartState, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for _, f := range snapshotFields(s) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return &SnapshotFormatError{Field: f.name, Reason: err.Error()}
			}
			return &SnapshotFormatError{Field: f.name, Reason: "unexpected end of snapshot"}
		}
		tokens := strings.Fields(sc.Text())
		if len(tokens) != 2 {
			return &SnapshotFormatError{Field: f.name,
				Reason: fmt.Sprintf("malformed record %q", sc.Text())}
		}
		if tokens[0] != f.name {
			return &SnapshotFormatError{Field: f.name,
				Reason: fmt.Sprintf("expected tag %q, found %q", f.name, tokens[0])}
		}
		v, err := strconv.ParseUint(tokens[1], 16, 64)
		if err != nil {
			return &SnapshotFormatError{Field: f.name,
				Reason: fmt.Sprintf("bad hex value %q", tokens[1])}
		}
		if f.verify {
			if have := f.get(s); v != have {
				return &SnapshotFormatError{Field: f.name,
					Reason: fmt.Sprintf("configuration mismatch: snapshot %x, hart %x", v, have)}
			}
			continue
		}
		f.set(s, v)
	}
	if s.Features&RISCV_FEATURE_PMP != 0 {
		s.PMP.RebuildRules()
	}
	return nil
}
