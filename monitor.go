// monitor.go - Machine monitor command dispatch

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
monitor.go - Machine Monitor

Line-oriented inspection and control of an assembled machine. The
monitor is intentionally a thin layer: every command maps directly onto
one hart lifecycle or bus operation, so anything scriptable from here is
equally reachable from guest software or the Lua host.

Commands:

    help                    command summary
    harts                   list harts with pc, priv, isa
    regs <hart>             integer register file
    isa <hart>              canonical ISA string
    reset <hart>            reset one hart
    sysreset                system-wide reset (RAM preserved)
    haswork <hart>          interrupt-pending / schedulability check
    dump <hart> [file]      write state snapshot to file or console
    restore <hart> <file>   load state snapshot from file
    peek <addr>             32-bit bus read
    poke <addr> <value>     32-bit bus write
    quit                    leave the monitor
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const monitorHelp = `commands:
  help                    this summary
  harts                   list harts with pc, priv, isa
  regs <hart>             integer register file
  isa <hart>              canonical ISA string
  reset <hart>            reset one hart
  sysreset                system-wide reset (RAM preserved)
  haswork <hart>          schedulability check
  dump <hart> [file]      write state snapshot
  restore <hart> <file>   load state snapshot
  peek <addr>             32-bit bus read
  poke <addr> <value>     32-bit bus write
  quit                    leave the monitor`

// Monitor dispatches textual commands against a machine.
type Monitor struct {
	machine *Machine
}

// NewMonitor creates a monitor for a machine.
func NewMonitor(m *Machine) *Monitor {
	return &Monitor{machine: m}
}

func privName(priv uint64) string {
	switch priv {
	case PRV_U:
		return "U"
	case PRV_S:
		return "S"
	case PRV_M:
		return "M"
	}
	return "?"
}

// parseNum accepts decimal and 0x-prefixed hex.
func parseNum(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func (mon *Monitor) hartArg(args []string, out io.Writer) *Hart {
	if len(args) < 1 {
		fmt.Fprintln(out, "error: missing hart id")
		return nil
	}
	id, err := parseNum(args[0])
	if err != nil {
		fmt.Fprintf(out, "error: bad hart id %q\n", args[0])
		return nil
	}
	h := mon.machine.Hart(id)
	if h == nil {
		fmt.Fprintf(out, "error: no hart %d\n", id)
		return nil
	}
	return h
}

// Dispatch runs one command line. It returns true when the session
// should end.
func (mon *Monitor) Dispatch(line string, out io.Writer) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(out, monitorHelp)

	case "harts":
		for _, h := range mon.machine.Harts() {
			s := h.State()
			flag := ""
			if h.Inconsistent() {
				flag = " [inconsistent]"
			}
			fmt.Fprintf(out, "hart %d: pc=%#x priv=%s %s%s\n",
				h.ID(), s.PC, privName(s.Priv), h.ISAString(), flag)
		}

	case "regs":
		h := mon.hartArg(args, out)
		if h == nil {
			return false
		}
		s := h.State()
		fmt.Fprintf(out, "pc %016x\n", s.PC)
		for i := 0; i < 32; i += 4 {
			for j := i; j < i+4; j++ {
				fmt.Fprintf(out, "%-8s %016x  ", intRegNames[j], s.GPR[j])
			}
			fmt.Fprintln(out)
		}

	case "isa":
		h := mon.hartArg(args, out)
		if h == nil {
			return false
		}
		fmt.Fprintln(out, h.ISAString())

	case "reset":
		h := mon.hartArg(args, out)
		if h == nil {
			return false
		}
		h.Reset()
		mon.machine.Engine().SynchronizePostReset(h)
		fmt.Fprintf(out, "hart %d reset, pc=%#x\n", h.ID(), h.State().PC)

	case "sysreset":
		mon.machine.RequestSystemReset()
		fmt.Fprintln(out, "system reset")

	case "haswork":
		h := mon.hartArg(args, out)
		if h == nil {
			return false
		}
		fmt.Fprintln(out, h.HasWork())

	case "dump":
		h := mon.hartArg(args, out)
		if h == nil {
			return false
		}
		if len(args) >= 2 {
			f, err := os.Create(args[1])
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				return false
			}
			err = h.DumpState(f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				return false
			}
			fmt.Fprintf(out, "hart %d state written to %s\n", h.ID(), args[1])
			return false
		}
		if err := h.DumpState(out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "restore":
		h := mon.hartArg(args, out)
		if h == nil {
			return false
		}
		if len(args) < 2 {
			fmt.Fprintln(out, "error: missing snapshot file")
			return false
		}
		f, err := os.Open(args[1])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		err = h.LoadState(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "hart %d state restored, pc=%#x\n", h.ID(), h.State().PC)

	case "peek":
		if len(args) < 1 {
			fmt.Fprintln(out, "error: missing address")
			return false
		}
		addr, err := parseNum(args[0])
		if err != nil {
			fmt.Fprintf(out, "error: bad address %q\n", args[0])
			return false
		}
		fmt.Fprintf(out, "%#x: %08x\n", addr, mon.machine.Bus().Read32(addr))

	case "poke":
		if len(args) < 2 {
			fmt.Fprintln(out, "error: usage: poke <addr> <value>")
			return false
		}
		addr, err := parseNum(args[0])
		if err != nil {
			fmt.Fprintf(out, "error: bad address %q\n", args[0])
			return false
		}
		val, err := parseNum(args[1])
		if err != nil {
			fmt.Fprintf(out, "error: bad value %q\n", args[1])
			return false
		}
		mon.machine.Bus().Write32(addr, uint32(val))

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(out, "unknown command %q, try help\n", cmd)
	}
	return false
}
