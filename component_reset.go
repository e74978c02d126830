// component_reset.go - Reset() methods for bus and device components

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

// MachineBus.Reset zeroes the entire RAM block. Cold-boot path only; a
// warm system reset must leave the loaded guest image in place.
func (bus *MachineBus) Reset() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i := range bus.memory {
		bus.memory[i] = 0
	}
}

// UART.Reset restores the device to power-on state. The device keeps no
// guest-visible state beyond its output stream, which is preserved.
func (u *UART) Reset() {
}

// ResetController.Reset is a no-op: the device is stateless between
// writes.
func (rc *ResetController) Reset() {
}
