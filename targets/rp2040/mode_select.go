//go:build rp2040

package main

// ModeConfig selects how the bus trace leaves the board.
type ModeConfig struct {
	// TextTrace prints one readable line per bus event instead of binary
	// frames. i2cs-trace capture only understands frames.
	TextTrace bool
}

// GetMode returns the compile-time mode configuration.
func GetMode() ModeConfig {
	return ModeConfig{
		TextTrace: false,
	}
}
