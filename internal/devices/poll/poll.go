// Package poll wraps hardware-status busy waits in a bounded primitive so a
// wedged device surfaces as an error instead of hanging the monitor.
package poll

import "errors"

// ErrDeviceTimeout reports a status flag that never reached the expected
// value within the iteration bound.
var ErrDeviceTimeout = errors.New("device unresponsive")

// DefaultBound is the iteration cap used when a caller passes no bound.
const DefaultBound = 1 << 20

// Wait polls ready up to bound times. A bound of zero or less selects
// DefaultBound.
func Wait(bound int, ready func() bool) error {
	if bound <= 0 {
		bound = DefaultBound
	}
	for i := 0; i < bound; i++ {
		if ready() {
			return nil
		}
	}
	return ErrDeviceTimeout
}
