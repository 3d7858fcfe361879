// Package irq implements the SoC's interrupt fabric: numbered lines latch
// into a pending bitmask, and a single service pass demultiplexes the mask to
// per-line handlers. Handlers run on the raising goroutine and must do no
// work beyond buffering.
package irq

import (
	"fmt"
	"sync"
)

// Handler services one interrupt line. It is invoked with interrupts for that
// line already acknowledged; raising the same line from inside the handler
// latches a new pending bit.
type Handler func()

// Controller latches line assertions into a pending mask and dispatches them
// to registered handlers. A masked line still latches but is not serviced
// until unmasked.
type Controller struct {
	mu       sync.Mutex
	pending  uint32
	mask     uint32
	handlers map[uint8]Handler
}

// NewController returns a controller with every line masked off.
func NewController() *Controller {
	return &Controller{handlers: make(map[uint8]Handler)}
}

// Register attaches a handler to a line and unmasks it.
func (c *Controller) Register(line uint8, h Handler) error {
	if line > 31 {
		return fmt.Errorf("irq: line %d out of range", line)
	}
	if h == nil {
		return fmt.Errorf("irq: nil handler for line %d", line)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handlers[line]; ok {
		return fmt.Errorf("irq: line %d already registered", line)
	}
	c.handlers[line] = h
	c.mask |= 1 << line
	return nil
}

// Raise latches the line into the pending mask and runs one service pass.
func (c *Controller) Raise(line uint8) {
	c.mu.Lock()
	c.pending |= 1 << line
	c.mu.Unlock()
	c.Service()
}

// Pending returns the latched, unserviced lines.
func (c *Controller) Pending() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SetMask replaces the unmask bitmask. Bits set in mask are serviceable.
func (c *Controller) SetMask(mask uint32) {
	c.mu.Lock()
	c.mask = mask
	c.mu.Unlock()
	c.Service()
}

// Service drains every pending, unmasked line through its handler, lowest
// line first. Lines without a handler stay pending until one is registered.
func (c *Controller) Service() {
	for {
		c.mu.Lock()
		ready := c.pending & c.mask
		var line uint8
		var h Handler
		for i := uint8(0); i < 32; i++ {
			if ready&(1<<i) != 0 {
				if hh, ok := c.handlers[i]; ok {
					line = i
					h = hh
					break
				}
			}
		}
		if h == nil {
			c.mu.Unlock()
			return
		}
		c.pending &^= 1 << line
		c.mu.Unlock()
		h()
	}
}
