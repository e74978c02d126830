// main.go - Main entry point for the RVEngine machine emulator

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const Version = "0.1.0"

func boilerPlate() {
	fmt.Println("RVEngine", Version)
	fmt.Println("A domain-partitioned RISC-V machine emulator.")
	fmt.Println("https://github.com/domainpart/rvengine")
	fmt.Println("License: GPLv3 or later")
}

// applyISAString sets extension flags from a QEMU-style lowercase ISA
// string ("imafdcsu", "g" expands to imafd).
func applyISAString(cfg *ExtensionConfig, isa string) error {
	cfg.ExtI, cfg.ExtE, cfg.ExtG = false, false, false
	cfg.ExtM, cfg.ExtA, cfg.ExtF, cfg.ExtD = false, false, false, false
	cfg.ExtC, cfg.ExtB, cfg.ExtV, cfg.ExtH = false, false, false, false
	cfg.ExtS, cfg.ExtU = false, false

	for _, ch := range strings.ToLower(isa) {
		switch ch {
		case 'i':
			cfg.ExtI = true
		case 'e':
			cfg.ExtE = true
		case 'g':
			cfg.ExtG = true
		case 'm':
			cfg.ExtM = true
		case 'a':
			cfg.ExtA = true
		case 'f':
			cfg.ExtF = true
		case 'd':
			cfg.ExtD = true
		case 'c':
			cfg.ExtC = true
		case 'b':
			cfg.ExtB = true
		case 'v':
			cfg.ExtV = true
		case 'h':
			cfg.ExtH = true
		case 's':
			cfg.ExtS = true
		case 'u':
			cfg.ExtU = true
		default:
			return fmt.Errorf("unknown extension letter %q in ISA string %q", string(ch), isa)
		}
	}
	return nil
}

func main() {
	var (
		numHarts    int
		xlen        int
		isa         string
		privSpec    string
		bextSpec    string
		vextSpec    string
		vlen        int
		elen        int
		resetVec    string
		ramSize     string
		loadFile    string
		loadAddr    string
		monitorMode bool
		scriptFile  string
		userOnly    bool
		noMMU       bool
		noPMP       bool
		showVersion bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&numHarts, "harts", 1, "Number of harts")
	flagSet.IntVar(&xlen, "xlen", 64, "Register width, 32 or 64")
	flagSet.StringVar(&isa, "isa", "imafdcsu", "ISA extension string")
	flagSet.StringVar(&privSpec, "priv-spec", "v1.11.0", "Privileged spec version (v1.10.0 or v1.11.0)")
	flagSet.StringVar(&bextSpec, "bext-spec", "", "Bit-manipulation spec version (requires b in -isa)")
	flagSet.StringVar(&vextSpec, "vext-spec", "", "Vector spec version (requires v in -isa)")
	flagSet.IntVar(&vlen, "vlen", 128, "Vector register length in bits")
	flagSet.IntVar(&elen, "elen", 64, "Vector element width limit in bits")
	flagSet.StringVar(&resetVec, "resetvec", "", "Reset vector address (hex or decimal)")
	flagSet.StringVar(&ramSize, "ram", "", "RAM size in bytes (hex or decimal)")
	flagSet.StringVar(&loadFile, "load", "", "Raw binary image to load into RAM")
	flagSet.StringVar(&loadAddr, "load-addr", "", "Image load address (defaults to reset vector)")
	flagSet.BoolVar(&monitorMode, "monitor", false, "Start the interactive machine monitor")
	flagSet.StringVar(&scriptFile, "script", "", "Run a Lua script against the machine")
	flagSet.BoolVar(&userOnly, "user", false, "User-only machine (no privilege levels)")
	flagSet.BoolVar(&noMMU, "no-mmu", false, "Disable the MMU feature")
	flagSet.BoolVar(&noPMP, "no-pmp", false, "Disable PMP")
	flagSet.BoolVar(&showVersion, "version", false, "Print version and compiled features")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: rvengine [-harts N] [-xlen 32|64] [-isa imafdcsu] [-load image.bin] [-monitor|-script file.lua]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			flagSet.Usage()
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		printFeatures()
		os.Exit(0)
	}

	boilerPlate()

	cfg := DefaultExtensionConfig()
	if err := applyISAString(&cfg, isa); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.PrivSpec = privSpec
	cfg.BextSpec = bextSpec
	cfg.VextSpec = vextSpec
	cfg.VLen = uint(vlen)
	cfg.ELen = uint(elen)
	cfg.MMU = !noMMU
	cfg.PMP = !noPMP

	if resetVec != "" {
		v, err := strconv.ParseUint(resetVec, 0, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad reset vector %q\n", resetVec)
			os.Exit(1)
		}
		cfg.ResetVec = v
	}

	var ram uint64
	if ramSize != "" {
		v, err := strconv.ParseUint(ramSize, 0, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad RAM size %q\n", ramSize)
			os.Exit(1)
		}
		ram = v
	}

	machine, err := NewMachine(MachineConfig{
		NumHarts: numHarts,
		XLEN:     xlen,
		RAMSize:  ram,
		Hart:     cfg,
		UserOnly: userOnly,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if loadFile != "" {
		var addr uint64
		if loadAddr != "" {
			addr, err = strconv.ParseUint(loadAddr, 0, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: bad load address %q\n", loadAddr)
				os.Exit(1)
			}
		}
		if err := machine.LoadBinaryFile(loadFile, addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	for _, h := range machine.Harts() {
		fmt.Printf("hart %d: %s resetvec=%#x\n", h.ID(), h.ISAString(), h.State().ResetVec)
	}

	if scriptFile != "" {
		host := NewScriptHost(machine)
		defer host.Close()
		if err := host.RunFile(scriptFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if monitorMode {
		if err := RunMonitorSession(NewMonitor(machine)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}
