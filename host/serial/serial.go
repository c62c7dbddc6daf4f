// Package serial opens the UART the rp2040 target streams bus trace frames
// on.
package serial

import (
	"io"
)

// Port is an open serial port.
type Port interface {
	io.ReadWriteCloser

	// Flush discards buffered input.
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the trace UART
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud matches the rp2040 trace UART.
const DefaultBaud = 115200

// DefaultConfig returns the trace UART settings for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}
