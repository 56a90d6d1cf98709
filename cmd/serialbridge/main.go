// serialbridge opens a real serial device (or a pty) and bridges its bytes
// to and from a running uart.Driver instance over a software bus, so the
// UART driver's RX-FIFO/IRQ path can be exercised against a real terminal
// without QEMU. Grounded on Daedaluz-goserial's serial.Open/Port API; the
// kernel side is wired exactly as internal/uart/uart_test.go wires it,
// minus the fake bus it normally drives against.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"

	serial "github.com/daedaluz/goserial"

	"rvkernel/internal/irqwait"
	"rvkernel/internal/mmio"
	"rvkernel/internal/plic"
	"rvkernel/internal/platform"
	"rvkernel/internal/sched"
	"rvkernel/internal/uart"
)

const lsrDataReady = 1 << 0

// bridgeBus is an mmio.Bus whose UART data and line-status registers are
// backed by a real serial port instead of QEMU's 16550: writes to the data
// register go out over the wire, and bytes read from the wire queue up as
// if hardware had just received them.
type bridgeBus struct {
	mmio.Bus
	port *serial.Port

	mu      sync.Mutex
	pending []byte
}

func (b *bridgeBus) Load8(addr uintptr) uint8 {
	switch addr {
	case platform.UART0Base + platform.UartOffsetLSR:
		b.mu.Lock()
		defer b.mu.Unlock()
		if len(b.pending) > 0 {
			return lsrDataReady
		}
		return 0
	case platform.UART0Base + platform.UartOffsetData:
		b.mu.Lock()
		defer b.mu.Unlock()
		if len(b.pending) == 0 {
			return 0
		}
		v := b.pending[0]
		b.pending = b.pending[1:]
		return v
	}
	return b.Bus.Load8(addr)
}

func (b *bridgeBus) Store8(addr uintptr, v uint8) {
	if addr == platform.UART0Base+platform.UartOffsetData {
		if _, err := b.port.Write([]byte{v}); err != nil {
			log.Printf("serialbridge: write to serial port: %v", err)
		}
		return
	}
	b.Bus.Store8(addr, v)
}

func (b *bridgeBus) push(data []byte) {
	b.mu.Lock()
	b.pending = append(b.pending, data...)
	b.mu.Unlock()
}

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "serial device or pty to bridge")
	flag.Parse()

	opts := serial.NewOptions()
	port, err := serial.Open(*device, opts)
	if err != nil {
		log.Fatalf("serialbridge: open %s: %v", *device, err)
	}
	defer port.Close()
	if err := port.MakeRaw(); err != nil {
		log.Fatalf("serialbridge: set raw mode: %v", err)
	}

	bus := &bridgeBus{Bus: mmio.NewSimBus(), port: port}
	p := plic.New(bus)
	p.Init()
	s := sched.NewCooperative()
	wait := irqwait.New(s)
	d := uart.New(bus, p, wait)
	d.Init()

	fmt.Fprintf(os.Stderr, "serialbridge: bridging %s\n", *device)

	go readLoop(port, bus, p, d)

	stdin := bufio.NewReader(os.Stdin)
	for {
		line, err := stdin.ReadString('\n')
		for _, c := range []byte(line) {
			d.Put(c)
		}
		if err != nil {
			return
		}
	}
}

// readLoop pulls bytes off the serial port, feeds them into the driver's
// simulated hardware RX register, latches IRQ 10 in the simulated PLIC
// claim register, claims it, and runs OnInterrupt inline — standing in for
// the PLIC claim a real external interrupt would deliver.
func readLoop(port *serial.Port, bus *bridgeBus, p *plic.Plic, d *uart.Driver) {
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if err != nil {
			log.Printf("serialbridge: read from serial port: %v", err)
			return
		}
		if n == 0 {
			continue
		}
		bus.push(buf[:n])
		bus.Store32(platform.PlicClaim, uint32(platform.IrqUART))
		if _, ok := p.Next(); ok {
			d.OnInterrupt()
		}
		for {
			b, ok := d.Get()
			if !ok {
				break
			}
			os.Stdout.Write([]byte{b})
		}
	}
}
