// Package klog is the kernel's only logging surface. A freestanding kernel
// has no OS to hand log lines to, so — matching every reference kernel in
// the retrieval pack, none of which import a structured logger — this
// wraps the standard library's log.Logger over whatever io.Writer is
// reachable at the time: the UART transmit path at kernel runtime, a
// buffer or os.Stderr in tests and host tools.
package klog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

// SetOutput redirects the logger, e.g. to a uart.Driver's Writer once the
// console is up, mirroring the teacher's deferred "ring buffer ready"
// sequencing (UART is polled before it can carry log output).
func SetOutput(w io.Writer) { std.SetOutput(w) }

// Printf logs an informational line.
func Printf(format string, args ...any) { std.Printf(format, args...) }

// Panic is the kernel's one path for a programmer/invariant violation
// (spec §7 taxonomy 1): log, then halt. Halting is a Go panic in every
// build, hosted or riscv64; the caller never observes a return.
func Panic(format string, args ...any) {
	std.Printf("FATAL: "+format, args...)
	panic(fmt.Sprintf(format, args...))
}
