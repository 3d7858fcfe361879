// Package uart models the monitor's serial port. Receive follows the
// hardware shape: an incoming byte lands in a holding register and raises an
// interrupt line, and the interrupt handler does nothing but move the byte
// into a bounded receive ring. The ring is single-producer (interrupt
// context) / single-consumer (monitor main line) with atomic indexes, so the
// two sides need no shared lock.
package uart

import (
	"context"
	"io"
	"sync/atomic"
)

// RingSize bounds the receive ring. Must be a power of two.
const RingSize = 128

// Line is the interrupt line the UART raises when a byte arrives.
type Line interface {
	Raise()
}

type noopLine struct{}

func (noopLine) Raise() {}

// UART is the byte I/O collaborator. Transmit forwards to an io.Writer;
// receive buffers through the interrupt path.
type UART struct {
	out io.Writer
	irq Line

	ring [RingSize]byte
	head atomic.Uint32 // consumer index
	tail atomic.Uint32 // producer index

	hold     byte
	overruns atomic.Uint32

	notify chan struct{}
}

// New returns a UART transmitting to out. Call AttachIRQ before feeding
// receive data if delivery should go through an interrupt controller.
func New(out io.Writer) *UART {
	return &UART{
		out:    out,
		irq:    noopLine{},
		notify: make(chan struct{}, 1),
	}
}

// AttachIRQ wires the receive interrupt line.
func (u *UART) AttachIRQ(line Line) {
	if line == nil {
		line = noopLine{}
	}
	u.irq = line
}

// Receive latches one byte into the holding register and raises the
// interrupt line. It must be called from a single goroutine (the interrupt
// context).
func (u *UART) Receive(b byte) {
	u.hold = b
	u.irq.Raise()
}

// ServiceRX is the interrupt handler body: move the holding register into
// the ring. A full ring drops the byte and counts an overrun.
func (u *UART) ServiceRX() {
	tail := u.tail.Load()
	if tail-u.head.Load() >= RingSize {
		u.overruns.Add(1)
		return
	}
	u.ring[tail&(RingSize-1)] = u.hold
	u.tail.Store(tail + 1)
	select {
	case u.notify <- struct{}{}:
	default:
	}
}

// Overruns reports dropped receive bytes.
func (u *UART) Overruns() uint32 { return u.overruns.Load() }

// TryReadByte dequeues one byte without blocking.
func (u *UART) TryReadByte() (byte, bool) {
	head := u.head.Load()
	if head == u.tail.Load() {
		return 0, false
	}
	b := u.ring[head&(RingSize-1)]
	u.head.Store(head + 1)
	return b, true
}

// ReadByte blocks until a byte is available or the context ends.
func (u *UART) ReadByte(ctx context.Context) (byte, error) {
	for {
		if b, ok := u.TryReadByte(); ok {
			return b, nil
		}
		select {
		case <-u.notify:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Write implements io.Writer for the transmit side.
func (u *UART) Write(p []byte) (int, error) {
	return u.out.Write(p)
}
