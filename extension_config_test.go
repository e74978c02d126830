package main

import (
	"errors"
	"testing"
)

// TestFinalizeDefaultConfig verifies that the default configuration
// finalizes cleanly and produces a misa carrying exactly the requested
// extensions plus the MXL field.
func TestFinalizeDefaultConfig(t *testing.T) {
	cfg := DefaultExtensionConfig()
	fc, err := cfg.Finalize(64)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	want := mxlBit(64) | RVI | RVM | RVA | RVF | RVD | RVC | RVS | RVU
	if fc.Misa != want {
		t.Errorf("misa = %#x, want %#x", fc.Misa, want)
	}
	if fc.MisaMask != fc.Misa {
		t.Errorf("misa_mask = %#x, want %#x", fc.MisaMask, fc.Misa)
	}
	if fc.PrivVer != PRIV_VERSION_1_11_0 {
		t.Errorf("priv_ver = %#x, want %#x", fc.PrivVer, PRIV_VERSION_1_11_0)
	}
	if fc.Features&RISCV_FEATURE_MMU == 0 || fc.Features&RISCV_FEATURE_PMP == 0 {
		t.Errorf("features = %#x, want MMU and PMP set", fc.Features)
	}
	if fc.ResetVec != DEFAULT_RSTVEC {
		t.Errorf("resetvec = %#x, want %#x", fc.ResetVec, uint64(DEFAULT_RSTVEC))
	}
}

// TestFinalizeRejectsIAndE verifies that requesting both base integer
// ISAs is fatal.
func TestFinalizeRejectsIAndE(t *testing.T) {
	cfg := DefaultExtensionConfig()
	cfg.ExtE = true
	if _, err := cfg.Finalize(64); !errors.Is(err, ErrIncompatibleIE) {
		t.Errorf("Finalize err = %v, want ErrIncompatibleIE", err)
	}
}

// TestFinalizeRequiresBaseExtension verifies that at least one of I or E
// must be requested.
func TestFinalizeRequiresBaseExtension(t *testing.T) {
	cfg := DefaultExtensionConfig()
	cfg.ExtI = false
	if _, err := cfg.Finalize(64); !errors.Is(err, ErrMissingBaseExtension) {
		t.Errorf("Finalize err = %v, want ErrMissingBaseExtension", err)
	}
}

// TestFinalizeGImpliesIMAFD verifies the G autocorrect: requesting G
// without its constituents succeeds and sets all of IMAFD in misa.
func TestFinalizeGImpliesIMAFD(t *testing.T) {
	cfg := ExtensionConfig{ExtI: true, ExtG: true, ResetVec: DEFAULT_RSTVEC}
	fc, err := cfg.Finalize(64)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	for _, bit := range []uint64{RVI, RVM, RVA, RVF, RVD} {
		if fc.Misa&bit == 0 {
			t.Errorf("misa = %#x, missing bit %#x after G autocorrect", fc.Misa, bit)
		}
	}
}

// TestFinalizeVersionSelection verifies the closed version sets for the
// privileged, bitmanip and vector specs.
func TestFinalizeVersionSelection(t *testing.T) {
	cfg := DefaultExtensionConfig()
	cfg.PrivSpec = "v1.10.0"
	fc, err := cfg.Finalize(64)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if fc.PrivVer != PRIV_VERSION_1_10_0 {
		t.Errorf("priv_ver = %#x, want %#x", fc.PrivVer, PRIV_VERSION_1_10_0)
	}

	cfg = DefaultExtensionConfig()
	cfg.PrivSpec = "v99.0"
	if _, err := cfg.Finalize(64); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("priv spec v99.0: err = %v, want ErrUnsupportedVersion", err)
	}

	cfg = DefaultExtensionConfig()
	cfg.ExtB = true
	cfg.BextSpec = "v0.92"
	if _, err := cfg.Finalize(64); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("bext spec v0.92: err = %v, want ErrUnsupportedVersion", err)
	}

	cfg = DefaultExtensionConfig()
	cfg.ExtV = true
	cfg.VextSpec = "v1.0"
	if _, err := cfg.Finalize(64); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("vext spec v1.0: err = %v, want ErrUnsupportedVersion", err)
	}
}

// TestFinalizeVectorGeometry verifies the VLEN/ELEN power-of-two and
// range constraints, which are checked only when V is requested.
func TestFinalizeVectorGeometry(t *testing.T) {
	cases := []struct {
		name string
		vlen uint
		elen uint
		ok   bool
	}{
		{"minimum", 128, 64, true},
		{"maximum", 256, 64, true},
		{"narrow elements", 128, 32, true},
		{"vlen not power of two", 96, 64, false},
		{"vlen too small", 64, 64, false},
		{"vlen too large", 512, 64, false},
		{"elen not power of two", 128, 48, false},
		{"elen too large", 128, 128, false},
	}
	for _, tc := range cases {
		cfg := DefaultExtensionConfig()
		cfg.ExtV = true
		cfg.VextSpec = "v0.7.1"
		cfg.VLen = tc.vlen
		cfg.ELen = tc.elen

		_, err := cfg.Finalize(64)
		if tc.ok && err != nil {
			t.Errorf("%s: Finalize failed: %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidVectorConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidVectorConfig", tc.name, err)
		}
	}

	// Geometry is ignored entirely without V.
	cfg := DefaultExtensionConfig()
	cfg.VLen = 13
	if _, err := cfg.Finalize(64); err != nil {
		t.Errorf("geometry checked without V: %v", err)
	}
}

// TestFinalizeMXL verifies the MXL field for both register widths.
func TestFinalizeMXL(t *testing.T) {
	cfg := DefaultExtensionConfig()

	fc32, err := cfg.Finalize(32)
	if err != nil {
		t.Fatalf("Finalize(32) failed: %v", err)
	}
	if fc32.Misa>>30&3 != 1 {
		t.Errorf("rv32 MXL = %d, want 1", fc32.Misa>>30&3)
	}

	fc64, err := cfg.Finalize(64)
	if err != nil {
		t.Fatalf("Finalize(64) failed: %v", err)
	}
	if fc64.Misa>>62&3 != 2 {
		t.Errorf("rv64 MXL = %d, want 2", fc64.Misa>>62&3)
	}
}

// TestISAString verifies canonical ISA string rendering order.
func TestISAString(t *testing.T) {
	cfg := DefaultExtensionConfig()
	fc, err := cfg.Finalize(64)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if got := ISAString(64, fc.Misa); got != "rv64imafdcsu" {
		t.Errorf("ISAString = %q, want %q", got, "rv64imafdcsu")
	}
	if got := ISAString(32, mxlBit(32)|RVI|RVC); got != "rv32ic" {
		t.Errorf("ISAString = %q, want %q", got, "rv32ic")
	}
}

// TestFinalizeEPMPRequiresPMP verifies that the enhanced-PMP feature bit
// is only set alongside base PMP.
func TestFinalizeEPMPRequiresPMP(t *testing.T) {
	cfg := DefaultExtensionConfig()
	cfg.PMP = false
	cfg.EPMP = true
	fc, err := cfg.Finalize(64)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if fc.Features&RISCV_FEATURE_EPMP != 0 {
		t.Errorf("features = %#x, EPMP set without PMP", fc.Features)
	}
}
