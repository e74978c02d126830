// script.go - Lua scripting host for machine automation

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

/*
script.go - Lua Scripting Host

Embeds a Lua interpreter and exposes the machine to it, so test
scenarios and bring-up sequences can be driven without recompiling.
Every exposed function is a thin wrapper over the same operations the
monitor uses; scripts get no access the guest or monitor does not have.

Exposed functions (all in the global table rv):

    rv.peek8/peek16/peek32/peek64(addr)
    rv.poke8/poke16/poke32/poke64(addr, value)
    rv.pc(hart) / rv.setpc(hart, value)
    rv.reg(hart, n) / rv.setreg(hart, n, value)
    rv.reset(hart)
    rv.sysreset()
    rv.haswork(hart)
    rv.isastring(hart)
    rv.dump(hart) -> snapshot text
    rv.restore(hart, snapshot_text)
    rv.harts() -> hart count

Numeric values cross the boundary as Lua numbers, which are IEEE
doubles: integers above 2^53 lose their low bits. Addresses and device
registers stay well below that; scripts that must move full 64-bit
register or CSR values exactly should go through dump/restore, which
carries them as hex text.
*/

package main

import (
	"bytes"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ScriptHost binds a machine into a Lua state.
type ScriptHost struct {
	machine *Machine
	state   *lua.LState
}

// NewScriptHost creates a Lua state with the rv table installed. Close
// the host when done.
func NewScriptHost(m *Machine) *ScriptHost {
	h := &ScriptHost{machine: m, state: lua.NewState()}
	h.install()
	return h
}

// Close releases the Lua state.
func (h *ScriptHost) Close() {
	h.state.Close()
}

// RunFile executes a script from disk.
func (h *ScriptHost) RunFile(path string) error {
	if err := h.state.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// RunString executes inline script text.
func (h *ScriptHost) RunString(src string) error {
	if err := h.state.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// hart resolves a Lua hart-id argument, raising a Lua error when it
// names no hart.
func (h *ScriptHost) hart(L *lua.LState, idx int) *Hart {
	id := uint64(L.CheckInt64(idx))
	hart := h.machine.Hart(id)
	if hart == nil {
		L.RaiseError("no hart %d", id)
	}
	return hart
}

func (h *ScriptHost) install() {
	L := h.state
	bus := h.machine.Bus()

	rv := L.NewTable()

	reg := func(name string, fn lua.LGFunction) {
		L.SetField(rv, name, L.NewFunction(fn))
	}

	reg("peek8", func(L *lua.LState) int {
		L.Push(lua.LNumber(bus.Read8(uint64(L.CheckInt64(1)))))
		return 1
	})
	reg("peek16", func(L *lua.LState) int {
		L.Push(lua.LNumber(bus.Read16(uint64(L.CheckInt64(1)))))
		return 1
	})
	reg("peek32", func(L *lua.LState) int {
		L.Push(lua.LNumber(bus.Read32(uint64(L.CheckInt64(1)))))
		return 1
	})
	reg("peek64", func(L *lua.LState) int {
		L.Push(lua.LNumber(bus.Read64(uint64(L.CheckInt64(1)))))
		return 1
	})
	reg("poke8", func(L *lua.LState) int {
		bus.Write8(uint64(L.CheckInt64(1)), uint8(L.CheckInt64(2)))
		return 0
	})
	reg("poke16", func(L *lua.LState) int {
		bus.Write16(uint64(L.CheckInt64(1)), uint16(L.CheckInt64(2)))
		return 0
	})
	reg("poke32", func(L *lua.LState) int {
		bus.Write32(uint64(L.CheckInt64(1)), uint32(L.CheckInt64(2)))
		return 0
	})
	reg("poke64", func(L *lua.LState) int {
		bus.Write64(uint64(L.CheckInt64(1)), uint64(L.CheckInt64(2)))
		return 0
	})

	reg("pc", func(L *lua.LState) int {
		L.Push(lua.LNumber(h.hart(L, 1).State().PC))
		return 1
	})
	reg("setpc", func(L *lua.LState) int {
		h.hart(L, 1).SetPC(uint64(L.CheckInt64(2)))
		return 0
	})
	reg("reg", func(L *lua.LState) int {
		hart := h.hart(L, 1)
		n := L.CheckInt(2)
		if n < 0 || n > 31 {
			L.RaiseError("register index %d out of range", n)
		}
		L.Push(lua.LNumber(hart.State().GPR[n]))
		return 1
	})
	reg("setreg", func(L *lua.LState) int {
		hart := h.hart(L, 1)
		n := L.CheckInt(2)
		if n < 1 || n > 31 {
			L.RaiseError("register index %d out of range", n)
		}
		hart.State().GPR[n] = uint64(L.CheckInt64(3))
		return 0
	})

	reg("reset", func(L *lua.LState) int {
		hart := h.hart(L, 1)
		hart.Reset()
		h.machine.Engine().SynchronizePostReset(hart)
		return 0
	})
	reg("sysreset", func(L *lua.LState) int {
		h.machine.RequestSystemReset()
		return 0
	})
	reg("haswork", func(L *lua.LState) int {
		L.Push(lua.LBool(h.hart(L, 1).HasWork()))
		return 1
	})
	reg("isastring", func(L *lua.LState) int {
		L.Push(lua.LString(h.hart(L, 1).ISAString()))
		return 1
	})

	reg("dump", func(L *lua.LState) int {
		var buf bytes.Buffer
		if err := h.hart(L, 1).DumpState(&buf); err != nil {
			L.RaiseError("dump: %v", err)
		}
		L.Push(lua.LString(buf.String()))
		return 1
	})
	reg("restore", func(L *lua.LState) int {
		hart := h.hart(L, 1)
		text := L.CheckString(2)
		if err := hart.LoadState(strings.NewReader(text)); err != nil {
			L.RaiseError("restore: %v", err)
		}
		return 0
	})

	reg("harts", func(L *lua.LState) int {
		L.Push(lua.LNumber(len(h.machine.Harts())))
		return 1
	})

	L.SetGlobal("rv", rv)
}
