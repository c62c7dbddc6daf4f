// Package i2cs implements a two-wire (I2C) bus slave protocol engine that
// multiplexes several virtual devices behind one shift-register peripheral.
//
// The engine runs entirely from interrupt context. A target wires two
// interrupt sources to it:
//
//	start condition   -> Engine.OnStart
//	counter overflow  -> Engine.OnOverflow
//
// Every state transition and every virtual device callback happens inside
// OnOverflow. The engine never allocates and never blocks, except for the
// bounded clock-stretch guard wait (see Guard).
package i2cs

// Addr is a 7-bit bus address.
type Addr uint8

// AddrMask masks the valid bits of an Addr.
const AddrMask Addr = 0x7F

// Slave is the capability set every virtual device implements.
//
// Both methods are called from interrupt context and must return within the
// per-byte timing budget. first is true for exactly one call per
// transaction: the first data exchange after the device was addressed.
type Slave interface {
	// Transmit returns the next byte the bus master is reading.
	Transmit(first bool) byte

	// Receive consumes a byte written by the bus master. Returning false
	// ends the device's multi-byte transfer; the engine then re-arms for
	// address decode without waiting for a stop or start condition.
	Receive(first bool, data byte) bool
}
