package main

import (
	"bytes"
	"testing"
)

func newTestMachine(t *testing.T, numHarts int, exit func(int)) *Machine {
	t.Helper()
	m, err := NewMachine(MachineConfig{
		NumHarts:   numHarts,
		XLEN:       64,
		Hart:       DefaultExtensionConfig(),
		ConsoleOut: &bytes.Buffer{},
		ExitFunc:   exit,
	})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	return m
}

// TestResetControllerPerHart verifies that a RESET write at offset
// 4*hartid resets exactly that hart and resyncs its engine context.
func TestResetControllerPerHart(t *testing.T) {
	m := newTestMachine(t, 4, nil)

	for _, h := range m.Harts() {
		h.SetPC(0x8000_0100 + h.ID()*0x10)
		m.Engine().SynchronizePostReset(h)
	}

	m.Bus().Write32(RESET_CTRL_BASE+4*2, FINISHER_RESET)

	for _, h := range m.Harts() {
		want := 0x8000_0100 + h.ID()*0x10
		if h.ID() == 2 {
			want = h.State().ResetVec
		}
		if h.State().PC != want {
			t.Errorf("hart %d pc = %#x, want %#x", h.ID(), h.State().PC, want)
		}
	}
	if ctx := m.Engine().Context(2); ctx.PC != m.Hart(2).State().ResetVec {
		t.Errorf("engine context pc = %#x, not resynced", ctx.PC)
	}
	// Untouched harts keep their stale-by-design cached contexts.
	if ctx := m.Engine().Context(1); ctx.PC != 0x8000_0110 {
		t.Errorf("hart 1 context pc = %#x, want %#x", ctx.PC, uint64(0x8000_0110))
	}
}

// TestResetControllerSystemWide verifies that a RESET write at offset 0
// resets every hart.
func TestResetControllerSystemWide(t *testing.T) {
	m := newTestMachine(t, 3, nil)

	for _, h := range m.Harts() {
		h.SetPC(0x8000_0200)
		h.State().Priv = PRV_U
	}

	m.Bus().Write32(RESET_CTRL_BASE, FINISHER_RESET)

	for _, h := range m.Harts() {
		if h.State().PC != h.State().ResetVec {
			t.Errorf("hart %d pc = %#x after system reset", h.ID(), h.State().PC)
		}
		if h.State().Priv != PRV_M {
			t.Errorf("hart %d priv = %d after system reset", h.ID(), h.State().Priv)
		}
	}
}

// TestResetControllerSystemResetPreservesRAM verifies that a warm system
// reset leaves the loaded guest image in place.
func TestResetControllerSystemResetPreservesRAM(t *testing.T) {
	m := newTestMachine(t, 1, nil)
	if err := m.LoadBinary([]byte{0x13, 0x00, 0x00, 0x00}, 0); err != nil {
		t.Fatalf("LoadBinary failed: %v", err)
	}

	m.Bus().Write32(RESET_CTRL_BASE, FINISHER_RESET)

	if got := m.Bus().Read32(DEFAULT_RSTVEC); got != 0x13 {
		t.Errorf("RAM at reset vector = %#x after system reset, want 0x13", got)
	}
}

// TestResetControllerFail verifies the FAIL finisher: the exit code
// comes from the upper halfword.
func TestResetControllerFail(t *testing.T) {
	var code = -1
	m := newTestMachine(t, 1, func(c int) { code = c })

	m.Bus().Write32(RESET_CTRL_BASE, 8<<16|FINISHER_FAIL)

	if code != 8 {
		t.Errorf("exit code = %d, want 8", code)
	}
}

// TestResetControllerPass verifies the PASS finisher exits 0 regardless
// of the upper halfword.
func TestResetControllerPass(t *testing.T) {
	var code = -1
	m := newTestMachine(t, 1, func(c int) { code = c })

	m.Bus().Write32(RESET_CTRL_BASE, 9<<16|FINISHER_PASS)

	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

// TestResetControllerUnknownStatus verifies that unrecognized status
// values change nothing: no reset, no exit.
func TestResetControllerUnknownStatus(t *testing.T) {
	exited := false
	m := newTestMachine(t, 1, func(int) { exited = true })

	h := m.Hart(0)
	h.SetPC(0x8000_0300)

	m.Bus().Write32(RESET_CTRL_BASE, 0x1234)

	if exited {
		t.Error("unknown status terminated the machine")
	}
	if h.State().PC != 0x8000_0300 {
		t.Errorf("pc = %#x, unknown status reset the hart", h.State().PC)
	}
}

// TestResetControllerMisalignedWrite verifies that writes off the
// 4-byte register grid are dropped whole: a misaligned offset must not
// alias a per-hart register, and in particular must never reach hart 0,
// which has no per-hart reset path through this window at all.
func TestResetControllerMisalignedWrite(t *testing.T) {
	exited := false
	m := newTestMachine(t, 2, func(int) { exited = true })

	for _, h := range m.Harts() {
		h.SetPC(0x8000_0400 + h.ID()*0x10)
	}

	for _, off := range []uint64{1, 2, 3, 7} {
		m.Bus().Write32(RESET_CTRL_BASE+off, FINISHER_RESET)
	}
	m.Bus().Write32(RESET_CTRL_BASE+1, 5<<16|FINISHER_FAIL)

	if exited {
		t.Error("misaligned finisher write terminated the machine")
	}
	for _, h := range m.Harts() {
		if want := 0x8000_0400 + h.ID()*0x10; h.State().PC != want {
			t.Errorf("hart %d pc = %#x, want %#x: misaligned write reset it",
				h.ID(), h.State().PC, want)
		}
	}
}

// TestResetControllerUnknownHart verifies that a reset request for a
// hart id beyond the machine is dropped.
func TestResetControllerUnknownHart(t *testing.T) {
	m := newTestMachine(t, 2, nil)
	m.Bus().Write32(RESET_CTRL_BASE+4*9, FINISHER_RESET) // no hart 9, no panic
}

// TestResetControllerReadsZero verifies the read side of the window.
func TestResetControllerReadsZero(t *testing.T) {
	m := newTestMachine(t, 1, nil)
	if v := m.Bus().Read32(RESET_CTRL_BASE); v != 0 {
		t.Errorf("read = %#x, want 0", v)
	}
	if v := m.Bus().Read32(RESET_CTRL_BASE + 0x40); v != 0 {
		t.Errorf("read = %#x, want 0", v)
	}
}
