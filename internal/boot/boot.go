// Package boot runs the startup fallback chain: each configured boot medium
// is attempted once, in priority order, and the first success hands control
// to the loaded program. Total exhaustion returns control to the caller so
// the operator still gets a prompt.
package boot

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Handoff carries the transfer-of-control arguments: three general-purpose
// argument registers and the entry address.
type Handoff struct {
	R1, R2, R3 uint32
	Addr       uint32
}

// Medium supplies a bootable image over one transport.
type Medium interface {
	Name() string
	// Boot attempts the transfer exactly once. ErrNoTransfer means the
	// peer never initiated within the protocol window; any other error is
	// a plain failure. There is no retry inside an attempt.
	Boot(ctx context.Context) (Handoff, error)
}

// ErrNoTransfer reports that no transfer was initiated within the serial
// protocol's window.
var ErrNoTransfer = errors.New("no transfer initiated")

// ErrExhausted reports that every configured medium failed.
var ErrExhausted = errors.New("no boot medium found")

// TransferFunc is the non-returning transfer-of-control primitive. The
// orchestrator never regains control after calling it.
type TransferFunc func(Handoff)

// Orchestrator tries media strictly in the order given. Media absent from
// the build are simply not in the list.
type Orchestrator struct {
	out      io.Writer
	transfer TransferFunc
	media    []Medium
}

// NewOrchestrator builds the fallback chain. The media order is the attempt
// order and never changes.
func NewOrchestrator(out io.Writer, transfer TransferFunc, media ...Medium) *Orchestrator {
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{out: out, transfer: transfer, media: media}
}

// Run attempts each medium once. On the first success it calls the transfer
// primitive, which does not return. On exhaustion it reports and returns
// ErrExhausted.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, m := range o.media {
		fmt.Fprintf(o.out, "Booting from %s...\n", m.Name())
		h, err := m.Boot(ctx)
		if err == nil {
			o.transfer(h)
			return nil
		}
		fmt.Fprintf(o.out, "%s boot failed: %v\n", m.Name(), err)
	}
	fmt.Fprintln(o.out, "No boot medium found")
	return ErrExhausted
}
