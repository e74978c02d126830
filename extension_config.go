// extension_config.go - ISA extension validation and misa finalization

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

import (
	"errors"
	"fmt"
	"math/bits"
	"os"
)

// Configuration errors. All are fatal to hart construction: a hart whose
// configuration fails validation never becomes schedulable.
var (
	ErrIncompatibleIE       = errors.New("I and E extensions are incompatible")
	ErrMissingBaseExtension = errors.New("either I or E extension must be set")
	ErrUnsupportedVersion   = errors.New("unsupported specification version")
	ErrInvalidVectorConfig  = errors.New("invalid vector extension configuration")
)

// Vector geometry bounds.
const (
	RV_VLEN_MAX = 256
	RV_VLEN_MIN = 128
	RV_ELEN_MAX = 64
)

// ExtensionConfig is the requested per-hart configuration: boolean
// extension flags, optional version-spec strings and vector geometry.
// It is supplied once at machine construction and consumed exactly once,
// by Finalize during realize.
type ExtensionConfig struct {
	ExtI bool
	ExtE bool
	ExtG bool
	ExtM bool
	ExtA bool
	ExtF bool
	ExtD bool
	ExtC bool
	ExtS bool
	ExtU bool
	ExtB bool
	ExtH bool
	ExtV bool

	PrivSpec string
	BextSpec string
	VextSpec string

	VLen uint
	ELen uint

	MMU  bool
	PMP  bool
	EPMP bool

	ResetVec uint64
}

// DefaultExtensionConfig mirrors the default property set of the original
// hardware model: rv_imafdcsu with MMU and PMP, vlen 128, elen 64.
func DefaultExtensionConfig() ExtensionConfig {
	return ExtensionConfig{
		ExtI: true, ExtM: true, ExtA: true, ExtF: true, ExtD: true,
		ExtC: true, ExtS: true, ExtU: true,
		VLen: 128, ELen: 64,
		MMU: true, PMP: true,
		ResetVec: DEFAULT_RSTVEC,
	}
}

// FinalizedConfig is the immutable output of Finalize: the consistent
// misa/feature tuple written into HartState at realize time.
type FinalizedConfig struct {
	Misa     uint64
	MisaMask uint64
	PrivVer  uint64
	BextVer  uint64
	VextVer  uint64
	Features uint64
	ResetVec uint64
	VLen     uint
	ELen     uint
}

// Finalize validates the requested configuration for the given XLEN and
// derives the finalized tuple. It is a pure function over its inputs
// except for warning/informational diagnostics on stderr; it mutates no
// global state and is invoked exactly once per hart, during realize.
func (cfg ExtensionConfig) Finalize(xlen int) (FinalizedConfig, error) {
	var fc FinalizedConfig

	privVer := uint64(PRIV_VERSION_1_11_0)
	switch cfg.PrivSpec {
	case "", "v1.11.0":
		privVer = PRIV_VERSION_1_11_0
	case "v1.10.0":
		privVer = PRIV_VERSION_1_10_0
	default:
		return fc, fmt.Errorf("%w: privilege spec %q", ErrUnsupportedVersion, cfg.PrivSpec)
	}

	if cfg.ExtI && cfg.ExtE {
		return fc, ErrIncompatibleIE
	}
	if !cfg.ExtI && !cfg.ExtE {
		return fc, ErrMissingBaseExtension
	}

	if cfg.ExtG && !(cfg.ExtI && cfg.ExtM && cfg.ExtA && cfg.ExtF && cfg.ExtD) {
		fmt.Fprintf(os.Stderr, "rvengine: warning: setting G will also set IMAFD\n")
		cfg.ExtI = true
		cfg.ExtM = true
		cfg.ExtA = true
		cfg.ExtF = true
		cfg.ExtD = true
	}

	misa := mxlBit(xlen)
	for _, e := range []struct {
		on  bool
		bit uint64
	}{
		{cfg.ExtI, RVI}, {cfg.ExtE, RVE}, {cfg.ExtM, RVM}, {cfg.ExtA, RVA},
		{cfg.ExtF, RVF}, {cfg.ExtD, RVD}, {cfg.ExtC, RVC}, {cfg.ExtS, RVS},
		{cfg.ExtU, RVU}, {cfg.ExtH, RVH},
	} {
		if e.on {
			misa |= e.bit
		}
	}

	bextVer := uint64(BEXT_VERSION_0_93_0)
	if cfg.ExtB {
		misa |= RVB
		switch cfg.BextSpec {
		case "v0.93":
			bextVer = BEXT_VERSION_0_93_0
		case "":
			fmt.Fprintf(os.Stderr, "rvengine: bitmanip version is not specified, using the default value v0.93\n")
		default:
			return fc, fmt.Errorf("%w: bitmanip spec %q", ErrUnsupportedVersion, cfg.BextSpec)
		}
	}

	vextVer := uint64(VEXT_VERSION_0_07_1)
	if cfg.ExtV {
		misa |= RVV
		if bits.OnesCount(cfg.VLen) != 1 {
			return fc, fmt.Errorf("%w: VLEN %d must be a power of 2", ErrInvalidVectorConfig, cfg.VLen)
		}
		if cfg.VLen > RV_VLEN_MAX || cfg.VLen < RV_VLEN_MIN {
			return fc, fmt.Errorf("%w: VLEN %d outside the range [%d, %d]",
				ErrInvalidVectorConfig, cfg.VLen, RV_VLEN_MIN, RV_VLEN_MAX)
		}
		if bits.OnesCount(cfg.ELen) != 1 {
			return fc, fmt.Errorf("%w: ELEN %d must be a power of 2", ErrInvalidVectorConfig, cfg.ELen)
		}
		if cfg.ELen > RV_ELEN_MAX {
			return fc, fmt.Errorf("%w: ELEN %d outside the range [8, %d]",
				ErrInvalidVectorConfig, cfg.ELen, RV_ELEN_MAX)
		}
		switch cfg.VextSpec {
		case "v0.7.1":
			vextVer = VEXT_VERSION_0_07_1
		case "":
			fmt.Fprintf(os.Stderr, "rvengine: vector version is not specified, using the default value v0.7.1\n")
		default:
			return fc, fmt.Errorf("%w: vector spec %q", ErrUnsupportedVersion, cfg.VextSpec)
		}
	}

	var features uint64
	if cfg.MMU {
		features |= RISCV_FEATURE_MMU
	}
	if cfg.PMP {
		features |= RISCV_FEATURE_PMP
		// Enhanced PMP is only meaningful on harts with PMP support.
		if cfg.EPMP {
			features |= RISCV_FEATURE_EPMP
		}
	}

	fc = FinalizedConfig{
		Misa:     misa,
		MisaMask: misa,
		PrivVer:  privVer,
		BextVer:  bextVer,
		VextVer:  vextVer,
		Features: features,
		ResetVec: cfg.ResetVec,
		VLen:     cfg.VLen,
		ELen:     cfg.ELen,
	}
	return fc, nil
}
