package main

import "testing"

// TestPMPNAPOTDecode verifies naturally-aligned power-of-two range
// derivation from the trailing-ones encoding.
func TestPMPNAPOTDecode(t *testing.T) {
	var p PMPState

	// 0x2000_03ff: 8KiB region at 0x8000_0000.
	p.CfgWrite(0, PMP_AMATCH_NAPOT|PMP_READ)
	p.AddrWrite(0, 0x2000_03ff)

	if p.NumRules != 1 {
		t.Fatalf("NumRules = %d, want 1", p.NumRules)
	}
	if !p.Match(0, 0x8000_0000) {
		t.Error("base address not matched")
	}
	if !p.Match(0, 0x8000_1fff) {
		t.Error("last byte not matched")
	}
	if p.Match(0, 0x8000_2000) {
		t.Error("address past the region matched")
	}
	if p.Match(0, 0x7fff_ffff) {
		t.Error("address below the region matched")
	}
}

// TestPMPNA4Decode verifies the single-word match mode.
func TestPMPNA4Decode(t *testing.T) {
	var p PMPState
	p.CfgWrite(0, PMP_AMATCH_NA4|PMP_READ|PMP_EXEC)
	p.AddrWrite(0, 0x1000>>2)

	if !p.Match(0, 0x1000) || !p.Match(0, 0x1003) {
		t.Error("NA4 range not matched")
	}
	if p.Match(0, 0x0FFF) || p.Match(0, 0x1004) {
		t.Error("NA4 matched outside its four bytes")
	}
}

// TestPMPTORDecode verifies top-of-range entries take their base from
// the preceding entry's address.
func TestPMPTORDecode(t *testing.T) {
	var p PMPState
	p.AddrWrite(0, 0x1000>>2)
	p.CfgWrite(0, PMP_AMATCH_TOR|PMP_READ)
	p.AddrWrite(1, 0x2000>>2)
	p.CfgWrite(0, uint64(PMP_AMATCH_TOR|PMP_READ)<<8|PMP_AMATCH_TOR|PMP_READ)

	// Entry 1 covers [0x1000, 0x1FFF].
	if !p.Match(1, 0x1000) || !p.Match(1, 0x1FFF) {
		t.Error("TOR range not matched")
	}
	if p.Match(1, 0x2000) {
		t.Error("TOR matched its own top")
	}
	// Entry 0 has no predecessor: [0, 0xFFF].
	if !p.Match(0, 0) || !p.Match(0, 0xFFF) {
		t.Error("first TOR entry range wrong")
	}
}

// TestPMPLockedEntry verifies that locked entries ignore address and
// configuration writes, including the locked-TOR base rule.
func TestPMPLockedEntry(t *testing.T) {
	var p PMPState
	p.CfgWrite(0, PMP_LOCK|PMP_AMATCH_NA4|PMP_READ)
	p.AddrWrite(0, 0x400)

	addr := p.AddrRead(0)
	p.AddrWrite(0, 0x999)
	if p.AddrRead(0) != addr {
		t.Error("locked entry accepted an address write")
	}
	p.CfgWrite(0, PMP_AMATCH_OFF)
	if p.Entries[0].Cfg&PMP_LOCK == 0 {
		t.Error("locked entry accepted a cfg write")
	}

	// Entry 1 locked TOR: entry 0's address is its base and is frozen.
	p = PMPState{}
	p.AddrWrite(0, 0x100)
	p.CfgWrite(0, uint64(PMP_LOCK|PMP_AMATCH_TOR|PMP_READ)<<8)
	p.AddrWrite(0, 0x200)
	if p.AddrRead(0) != 0x100 {
		t.Error("base of a locked TOR entry accepted an address write")
	}
}

// TestPMPRebuildRules verifies that derived ranges are recomputable from
// raw fields alone, which the snapshot restore path depends on.
func TestPMPRebuildRules(t *testing.T) {
	var p PMPState
	p.Entries[0].Addr = 0x2000_03ff
	p.Entries[0].Cfg = PMP_AMATCH_NAPOT | PMP_READ
	p.Entries[2].Addr = 0x3000 >> 2
	p.Entries[2].Cfg = PMP_AMATCH_NA4 | PMP_EXEC

	if p.NumRules != 0 {
		t.Fatal("derived state present before rebuild")
	}
	p.RebuildRules()

	if p.NumRules != 2 {
		t.Errorf("NumRules = %d, want 2", p.NumRules)
	}
	if !p.Match(0, 0x8000_0000) || !p.Match(2, 0x3000) {
		t.Error("rebuilt rules do not match")
	}
}

// TestPMPCfgPacking verifies the four-entries-per-register packing of
// pmpcfg reads and writes.
func TestPMPCfgPacking(t *testing.T) {
	var p PMPState
	p.CfgWrite(1, 0x190B_0018) // entries 4..7, one byte each

	if p.Entries[4].Cfg != 0x18 || p.Entries[6].Cfg != 0x0B || p.Entries[7].Cfg != 0x19 {
		t.Errorf("cfg bytes = %#x %#x %#x %#x",
			p.Entries[4].Cfg, p.Entries[5].Cfg, p.Entries[6].Cfg, p.Entries[7].Cfg)
	}
	if got := p.CfgRead(1); got != 0x190B_0018 {
		t.Errorf("CfgRead = %#x", got)
	}
}
