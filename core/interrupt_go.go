//go:build !tinygo

package core

// State stands in for the saved interrupt mask on regular Go.
type State uintptr

// DisableInterrupts is a no-op on regular Go (host tools and tests).
func DisableInterrupts() State {
	return 0
}

// RestoreInterrupts is a no-op on regular Go.
func RestoreInterrupts(state State) {}
