//go:build tinygo

package core

import "runtime/interrupt"

// DisableInterrupts masks interrupts and returns the previous mask.
func DisableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// RestoreInterrupts restores a mask saved by DisableInterrupts.
func RestoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
