// monitor_host.go - Interactive terminal front-end for the machine monitor

/*
RVEngine - a domain-partitioned RISC-V machine emulator

https://github.com/domainpart/rvengine
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// RunMonitorSession runs the monitor against the controlling terminal.
// The terminal is placed in raw mode and restored on exit; line editing
// and history come from the terminal package.
func RunMonitorSession(mon *Monitor) error {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		// Non-interactive stdin (piped commands): plain line loop.
		return runMonitorLines(mon, os.Stdin, os.Stdout)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "rvengine> ")

	if w, h, err := term.GetSize(fd); err == nil {
		t.SetSize(w, h)
	}

	fmt.Fprintln(t, "rvengine monitor, type help for commands")
	for {
		line, err := t.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if mon.Dispatch(line, t) {
			return nil
		}
	}
}

func runMonitorLines(mon *Monitor, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if mon.Dispatch(sc.Text(), out) {
			return nil
		}
	}
	return sc.Err()
}
